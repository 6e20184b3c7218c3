package models

import "time"

const InstanceTable = "gso_equipment_instances"

// Equipment instance statuses. Transitions happen only through repo
// methods (issue, return, maintenance); never a bare field write.
const (
	InstanceAvailable   = "available"
	InstanceBorrowed    = "borrowed"
	InstanceMaintenance = "maintenance"
	InstanceRetired     = "retired"
	InstanceLost        = "lost"
	InstanceDamaged     = "damaged"
)

// EquipmentInstance is one physical unit of a non-consumable supply.
type EquipmentInstance struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	SupplyID uint `gorm:"index;not null" json:"supplyId"`

	InstanceCode string `gorm:"size:50;uniqueIndex;not null" json:"instanceCode"`
	SerialNumber string `gorm:"size:100" json:"serialNumber,omitempty"`

	Status         string `gorm:"size:20;not null;default:'available'" json:"status"`
	ConditionNotes string `json:"conditionNotes,omitempty"`

	LastBorrowedAt   *time.Time `json:"lastBorrowedAt,omitempty"`
	LastReturnedAt   *time.Time `json:"lastReturnedAt,omitempty"`
	LastBorrowedByID *string    `gorm:"type:uuid" json:"lastBorrowedById,omitempty"`

	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Supply Supply `gorm:"foreignKey:SupplyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (EquipmentInstance) TableName() string { return InstanceTable }

func (i *EquipmentInstance) IsAvailable() bool { return i.Status == InstanceAvailable }
