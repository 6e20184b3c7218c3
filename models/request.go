package models

import "time"

const RequestTable = "gso_supply_requests"
const RequestCounterTable = "gso_request_counters"

// Request lifecycle. pending -> approved|rejected; approved -> issued|cancelled;
// issued -> partially_returned|returned (equipment) or terminal (consumable).
// A status never regresses.
const (
	RequestPending           = "pending"
	RequestApproved          = "approved"
	RequestRejected          = "rejected"
	RequestIssued            = "issued"
	RequestPartiallyReturned = "partially_returned"
	RequestReturned          = "returned"
	RequestCancelled         = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// SupplyRequest is one line item asking for quantity N of a supply,
// optionally pinned to a specific instance. Requests created together share
// a BatchGroupID and are actioned together.
type SupplyRequest struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	RequestCode  string  `gorm:"size:50;uniqueIndex;not null" json:"requestCode"`
	BatchGroupID *string `gorm:"type:uuid;index" json:"batchGroupId,omitempty"`

	RequesterID string `gorm:"type:uuid;index;not null" json:"requesterId"`
	SupplyID    uint   `gorm:"index;not null" json:"supplyId"`
	// Optional specific unit the requester asked for.
	RequestedInstanceID *uint `gorm:"index" json:"requestedInstanceId,omitempty"`
	Quantity            int   `gorm:"not null;default:1" json:"quantity"`

	Purpose  string `json:"purpose"`
	Priority string `gorm:"size:10;not null;default:'normal'" json:"priority"`
	Status   string `gorm:"size:20;index;not null;default:'pending'" json:"status"`

	NeededBy *time.Time `json:"neededBy,omitempty"`

	ReviewedByID *string    `gorm:"type:uuid" json:"reviewedById,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	ReviewNotes  string     `json:"reviewNotes,omitempty"`

	IssuedByID *string    `gorm:"type:uuid" json:"issuedById,omitempty"`
	IssuedAt   *time.Time `json:"issuedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Supply Supply `gorm:"foreignKey:SupplyID" json:"-"`
}

// RequestCounter holds the per-day sequence used for request codes. The row
// is incremented under a row lock inside the create transaction, so codes
// stay unique under concurrent creation.
type RequestCounter struct {
	Day string `gorm:"size:8;primaryKey" json:"day"`
	Seq int    `gorm:"not null;default:0" json:"seq"`
}

func (SupplyRequest) TableName() string  { return RequestTable }
func (RequestCounter) TableName() string { return RequestCounterTable }

func (r *SupplyRequest) IsBatchRequest() bool { return r.BatchGroupID != nil }

// IsTerminal reports whether no further transitions are legal.
func (r *SupplyRequest) IsTerminal() bool {
	switch r.Status {
	case RequestRejected, RequestCancelled, RequestReturned:
		return true
	}
	return false
}
