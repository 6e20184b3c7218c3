package models

import "time"

const CategoryTable = "gso_supply_categories"
const SupplyTable = "gso_supplies"

// Stock status, derived from quantity vs min level. Never stored.
const (
	StockInStock    = "in_stock"
	StockLowStock   = "low_stock"
	StockOutOfStock = "out_of_stock"
)

// SupplyCategory groups supplies. IsEquipment marks categories whose items
// are individually tracked units that must be returned; everything else is
// consumable stock.
type SupplyCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `json:"description,omitempty"`
	IsEquipment bool      `gorm:"not null;default:false" json:"isEquipment"`
	Icon        string    `gorm:"size:50" json:"icon,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Supply is the item template. For consumables Quantity is the live stock
// count; for equipment it is the number of owned units and availability is
// counted from instances instead.
type Supply struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  uint   `gorm:"index;not null" json:"categoryId"`

	Quantity      int `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	MinStockLevel int `gorm:"not null;default:5" json:"minStockLevel"`

	// IsConsumable mirrors !category.IsEquipment; kept denormalized on the
	// row so issue paths never need the category join. No default tag: gorm
	// drops zero-valued defaulted fields from the INSERT, which would turn
	// every equipment supply consumable.
	IsConsumable      bool `gorm:"not null" json:"isConsumable"`
	DefaultBorrowDays int  `gorm:"not null;default:3" json:"defaultBorrowDays"`

	Unit        string  `gorm:"size:20;not null;default:'pcs'" json:"unit"`
	IsActive    bool    `gorm:"not null;default:true" json:"isActive"`
	CreatedByID *string `gorm:"type:uuid" json:"createdById,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Category SupplyCategory `gorm:"foreignKey:CategoryID" json:"-"`
}

func (SupplyCategory) TableName() string { return CategoryTable }
func (Supply) TableName() string         { return SupplyTable }

// StockStatus is recomputed on every read, never cached.
func (s *Supply) StockStatus() string {
	switch {
	case s.Quantity == 0:
		return StockOutOfStock
	case s.Quantity <= s.MinStockLevel:
		return StockLowStock
	default:
		return StockInStock
	}
}

func (s *Supply) IsLowStock() bool { return s.Quantity <= s.MinStockLevel }
