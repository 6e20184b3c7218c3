package models

import "time"

const NotificationTable = "gso_notifications"

// Notification kinds.
const (
	NotifyRequestApproved   = "request_approved"
	NotifyRequestRejected   = "request_rejected"
	NotifyItemIssued        = "item_issued"
	NotifyItemDueSoon       = "item_due_soon"
	NotifyItemOverdue       = "item_overdue"
	NotifyExtensionApproved = "extension_approved"
	NotifyExtensionRejected = "extension_rejected"
	NotifyAccountApproved   = "account_approved"
	NotifyNewRequest        = "new_request"
	NotifyLowStock          = "low_stock"
)

// Notification is an in-app message. Creation is fire-and-forget: a failed
// write never rolls back the workflow that triggered it.
type Notification struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;index;not null" json:"userId"`

	Kind    string `gorm:"size:30;not null" json:"kind"`
	Title   string `gorm:"size:200;not null" json:"title"`
	Message string `json:"message"`
	Link    string `gorm:"size:255" json:"link,omitempty"`

	RequestID      *uint `json:"requestId,omitempty"`
	BorrowedItemID *uint `json:"borrowedItemId,omitempty"`

	IsRead bool       `gorm:"not null;default:false;index" json:"isRead"`
	ReadAt *time.Time `json:"readAt,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (Notification) TableName() string { return NotificationTable }
