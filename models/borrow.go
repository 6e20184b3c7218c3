package models

import "time"

const BorrowTable = "gso_borrowed_items"

// Return condition recorded when an item comes back.
const (
	ReturnPending = "pending"
	ReturnGood    = "good"
	ReturnDamaged = "damaged"
	ReturnLost    = "lost"
)

// BorrowedItem binds one equipment instance to one request and one borrower
// for a single borrowing episode. At most one row per instance may have
// ReturnedAt = NULL (enforced by a partial unique index).
type BorrowedItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	RequestID  uint   `gorm:"index;not null" json:"requestId"`
	InstanceID uint   `gorm:"index;not null" json:"instanceId"`
	BorrowerID string `gorm:"type:uuid;index;not null" json:"borrowerId"`

	BorrowedAt     time.Time  `gorm:"index;not null" json:"borrowedAt"`
	ReturnDeadline time.Time  `gorm:"index;not null" json:"returnDeadline"`
	ReturnedAt     *time.Time `gorm:"index" json:"returnedAt,omitempty"`

	ReturnStatus string  `gorm:"size:20;not null;default:'pending'" json:"returnStatus"`
	ReturnNotes  string  `json:"returnNotes,omitempty"`
	ReceivedByID *string `gorm:"type:uuid" json:"receivedById,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Request  SupplyRequest     `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"-"`
	Instance EquipmentInstance `gorm:"foreignKey:InstanceID" json:"-"`
}

func (BorrowedItem) TableName() string { return BorrowTable }

// IsOverdue reports whether the item is out past its deadline right now.
// Purely derived; there is no timer anywhere.
func (b *BorrowedItem) IsOverdue() bool {
	if b.ReturnedAt != nil {
		return false
	}
	return time.Now().After(b.ReturnDeadline)
}

// OverdueDays is the whole days past the deadline, 0 if not overdue.
func (b *BorrowedItem) OverdueDays() int {
	if !b.IsOverdue() {
		return 0
	}
	return int(time.Since(b.ReturnDeadline).Hours() / 24)
}

// DaysUntilDue is the signed whole-day delta to the deadline, nil once the
// item has been returned.
func (b *BorrowedItem) DaysUntilDue() *int {
	if b.ReturnedAt != nil {
		return nil
	}
	d := int(time.Until(b.ReturnDeadline).Hours() / 24)
	return &d
}
