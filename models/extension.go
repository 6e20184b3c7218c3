package models

import "time"

const ExtensionTable = "gso_extension_requests"

const (
	ExtensionPending  = "pending"
	ExtensionApproved = "approved"
	ExtensionRejected = "rejected"
)

// ExtensionRequest asks to push back one borrowed item's deadline.
// OriginalDeadline is snapshotted at request time; an approval always grants
// OriginalDeadline + RequestedDays, regardless of when staff act on it.
// Only one pending extension may exist per borrowed item.
type ExtensionRequest struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	BorrowedItemID uint `gorm:"index;not null" json:"borrowedItemId"`

	RequestedDays int    `gorm:"not null" json:"requestedDays"`
	Reason        string `json:"reason"`

	OriginalDeadline time.Time  `gorm:"not null" json:"originalDeadline"`
	NewDeadline      *time.Time `json:"newDeadline,omitempty"`

	Status string `gorm:"size:20;index;not null;default:'pending'" json:"status"`

	RequestedByID string     `gorm:"type:uuid;not null" json:"requestedById"`
	ReviewedByID  *string    `gorm:"type:uuid" json:"reviewedById,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	ReviewNotes   string     `json:"reviewNotes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	BorrowedItem BorrowedItem `gorm:"foreignKey:BorrowedItemID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ExtensionRequest) TableName() string { return ExtensionTable }
