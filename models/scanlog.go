package models

import "time"

const ScanLogTable = "gso_scan_log"

// Scan types.
const (
	ScanGeneral   = "scan"
	ScanIssue     = "issue"
	ScanReturn    = "return"
	ScanInventory = "inventory"
)

// ScanLog records every token scan attempt, successful or not. A side log
// only; workflow correctness never depends on it.
type ScanLog struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	ScannedByID *string `gorm:"type:uuid;index" json:"scannedById,omitempty"`

	Token    string `gorm:"size:255;not null" json:"token"`
	ScanType string `gorm:"size:20;not null;default:'scan'" json:"scanType"`

	SupplyID   *uint `gorm:"index" json:"supplyId,omitempty"`
	InstanceID *uint `gorm:"index" json:"instanceId,omitempty"`
	RequestID  *uint `gorm:"index" json:"requestId,omitempty"`

	// No default tag: an INSERT must carry false for failed scans.
	WasSuccessful bool   `gorm:"not null" json:"wasSuccessful"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	Notes         string `json:"notes,omitempty"`

	IPAddress string    `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent string    `gorm:"size:255" json:"-"`
	ScannedAt time.Time `gorm:"index" json:"scannedAt"`
}

func (ScanLog) TableName() string { return ScanLogTable }
