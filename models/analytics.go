package models

import "time"

const AnalyticsTable = "gso_borrower_analytics"

// Reliability score weights.
const (
	onTimeWeight       = 0.5
	conditionWeight    = 0.3
	overduePenaltyCap  = 20.0
	overduePenaltyRate = 0.2
)

// BorrowerAnalytics is a per-user rolling aggregate, updated as a side
// effect of workflow transitions and recomputed after every return. The
// score is stored denormalized; the read path never recomputes it.
type BorrowerAnalytics struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`

	TotalRequests     int `gorm:"not null;default:0" json:"totalRequests"`
	ApprovedRequests  int `gorm:"not null;default:0" json:"approvedRequests"`
	RejectedRequests  int `gorm:"not null;default:0" json:"rejectedRequests"`
	CancelledRequests int `gorm:"not null;default:0" json:"cancelledRequests"`

	TotalBorrows  int `gorm:"not null;default:0" json:"totalBorrows"`
	ActiveBorrows int `gorm:"not null;default:0" json:"activeBorrows"`

	OnTimeReturns    int `gorm:"not null;default:0" json:"onTimeReturns"`
	LateReturns      int `gorm:"not null;default:0" json:"lateReturns"`
	TotalOverdueDays int `gorm:"not null;default:0" json:"totalOverdueDays"`

	GoodConditionReturns int `gorm:"not null;default:0" json:"goodConditionReturns"`
	DamagedReturns       int `gorm:"not null;default:0" json:"damagedReturns"`
	LostItems            int `gorm:"not null;default:0" json:"lostItems"`

	ReliabilityScore float64 `gorm:"not null;default:100" json:"reliabilityScore"`

	LastRequestAt *time.Time `json:"lastRequestAt,omitempty"`
	LastBorrowAt  *time.Time `json:"lastBorrowAt,omitempty"`
	LastReturnAt  *time.Time `json:"lastReturnAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (BorrowerAnalytics) TableName() string { return AnalyticsTable }

// OnTimeRate is the percentage of returns made by the deadline. Users with
// no returns yet start perfect at 100.
func (a *BorrowerAnalytics) OnTimeRate() float64 {
	total := a.OnTimeReturns + a.LateReturns
	if total == 0 {
		return 100
	}
	return float64(a.OnTimeReturns) / float64(total) * 100
}

// DamageRate is the percentage of returns that came back damaged or lost.
func (a *BorrowerAnalytics) DamageRate() float64 {
	total := a.GoodConditionReturns + a.DamagedReturns + a.LostItems
	if total == 0 {
		return 0
	}
	return float64(a.DamagedReturns+a.LostItems) / float64(total) * 100
}

// ApprovalRate is the percentage of requests that were approved.
func (a *BorrowerAnalytics) ApprovalRate() float64 {
	if a.TotalRequests == 0 {
		return 0
	}
	return float64(a.ApprovedRequests) / float64(a.TotalRequests) * 100
}

// RecalculateReliability recomputes the weighted 0-100 score:
// on-time rate at 50%, condition at 30%, minus an overdue-severity penalty
// capped at 20 points weighted at 20%.
func (a *BorrowerAnalytics) RecalculateReliability() {
	onTime := a.OnTimeRate() * onTimeWeight
	condition := (100 - a.DamageRate()) * conditionWeight

	avgOverdue := float64(a.TotalOverdueDays) / float64(max(a.LateReturns, 1))
	penalty := min(avgOverdue*2, overduePenaltyCap) * overduePenaltyRate

	score := onTime + condition - penalty
	a.ReliabilityScore = max(0, min(100, score))
}
