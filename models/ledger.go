package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const TransactionTable = "gso_inventory_transactions"
const AdjustmentTable = "gso_stock_adjustments"
const AuditTable = "gso_audit_log"

// Inventory transaction types.
const (
	TxIn         = "in"
	TxOut        = "out"
	TxAdjustment = "adjustment"
	TxReturn     = "return"
	TxDamage     = "damage"
	TxLoss       = "loss"
)

// Stock adjustment reasons.
const (
	AdjustDamage     = "damage"
	AdjustLoss       = "loss"
	AdjustTheft      = "theft"
	AdjustExpired    = "expired"
	AdjustCorrection = "correction"
	AdjustOther      = "other"
)

// Audit actions.
const (
	AuditCreate  = "create"
	AuditUpdate  = "update"
	AuditApprove = "approve"
	AuditReject  = "reject"
	AuditIssue   = "issue"
	AuditReturn  = "return"
	AuditCancel  = "cancel"
	AuditScan    = "scan"
)

// InventoryTransaction is an append-only record of every stock movement,
// written inside the same transaction as the movement itself.
type InventoryTransaction struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	SupplyID   uint  `gorm:"index;not null" json:"supplyId"`
	InstanceID *uint `gorm:"index" json:"instanceId,omitempty"`

	TransactionType string `gorm:"size:20;index;not null" json:"transactionType"`
	// Positive for stock in, negative for stock out.
	Quantity         int `gorm:"not null" json:"quantity"`
	PreviousQuantity int `gorm:"not null" json:"previousQuantity"`
	NewQuantity      int `gorm:"not null" json:"newQuantity"`

	ReferenceCode  string `gorm:"size:100" json:"referenceCode,omitempty"`
	RequestID      *uint  `gorm:"index" json:"requestId,omitempty"`
	BorrowedItemID *uint  `gorm:"index" json:"borrowedItemId,omitempty"`

	Notes         string    `json:"notes,omitempty"`
	PerformedByID *string   `gorm:"type:uuid" json:"performedById,omitempty"`
	PerformedAt   time.Time `gorm:"index" json:"performedAt"`
}

// StockAdjustment records damage, loss and inventory corrections. Penalty
// rows are attributed to the responsible borrower.
type StockAdjustment struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	SupplyID   uint  `gorm:"index;not null" json:"supplyId"`
	InstanceID *uint `gorm:"index" json:"instanceId,omitempty"`

	Reason      string `gorm:"size:20;not null" json:"reason"`
	Quantity    int    `gorm:"not null" json:"quantity"`
	Description string `json:"description"`

	IsPenalty         bool             `gorm:"not null;default:false" json:"isPenalty"`
	PenaltyAmount     *decimal.Decimal `gorm:"type:numeric(10,2)" json:"penaltyAmount,omitempty"`
	ResponsibleUserID *string          `gorm:"type:uuid;index" json:"responsibleUserId,omitempty"`

	BorrowedItemID *uint `gorm:"index" json:"borrowedItemId,omitempty"`

	AdjustedByID *string   `gorm:"type:uuid" json:"adjustedById,omitempty"`
	AdjustedAt   time.Time `gorm:"index;autoCreateTime" json:"adjustedAt"`
}

// AuditLog records every privileged action. Append-only.
type AuditLog struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	UserID   *string `gorm:"type:uuid;index" json:"userId,omitempty"`
	Username string  `gorm:"size:150" json:"username"`

	Action     string `gorm:"size:20;index;not null" json:"action"`
	EntityType string `gorm:"size:20;index;not null" json:"entityType"`
	EntityID   *uint  `json:"entityId,omitempty"`

	Description string `json:"description"`
	IPAddress   string `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent   string `gorm:"size:255" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (InventoryTransaction) TableName() string { return TransactionTable }
func (StockAdjustment) TableName() string      { return AdjustmentTable }
func (AuditLog) TableName() string             { return AuditTable }
