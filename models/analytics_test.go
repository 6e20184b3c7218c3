package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReliabilityFreshUser(t *testing.T) {
	a := &BorrowerAnalytics{}
	a.RecalculateReliability()
	// No history: perfect on-time (50) plus perfect condition (30).
	assert.InDelta(t, 80.0, a.ReliabilityScore, 0.001)
}

func TestReliabilityPerfectBorrower(t *testing.T) {
	a := &BorrowerAnalytics{
		OnTimeReturns:        10,
		GoodConditionReturns: 10,
	}
	a.RecalculateReliability()
	assert.InDelta(t, 80.0, a.ReliabilityScore, 0.001)
	assert.InDelta(t, 100.0, a.OnTimeRate(), 0.001)
	assert.InDelta(t, 0.0, a.DamageRate(), 0.001)
}

func TestReliabilityMixedHistory(t *testing.T) {
	a := &BorrowerAnalytics{
		OnTimeReturns:        1,
		LateReturns:          1,
		TotalOverdueDays:     4,
		GoodConditionReturns: 2,
	}
	a.RecalculateReliability()
	// on-time 50% -> 25, condition 100% -> 30, penalty min(4*2,20)*0.2 = 1.6.
	assert.InDelta(t, 53.4, a.ReliabilityScore, 0.001)
}

func TestReliabilityOverduePenaltyCapped(t *testing.T) {
	a := &BorrowerAnalytics{
		LateReturns:          1,
		TotalOverdueDays:     365,
		GoodConditionReturns: 1,
	}
	a.RecalculateReliability()
	// on-time 0, condition 30, penalty capped at 20*0.2 = 4.
	assert.InDelta(t, 26.0, a.ReliabilityScore, 0.001)
}

func TestReliabilityClampedAtZero(t *testing.T) {
	a := &BorrowerAnalytics{
		LateReturns:      5,
		TotalOverdueDays: 100,
		LostItems:        5,
	}
	a.RecalculateReliability()
	assert.GreaterOrEqual(t, a.ReliabilityScore, 0.0)
	assert.LessOrEqual(t, a.ReliabilityScore, 100.0)
	assert.InDelta(t, 0.0, a.ReliabilityScore, 0.001)
}

func TestApprovalRate(t *testing.T) {
	a := &BorrowerAnalytics{}
	assert.InDelta(t, 0.0, a.ApprovalRate(), 0.001)

	a.TotalRequests = 4
	a.ApprovedRequests = 3
	assert.InDelta(t, 75.0, a.ApprovalRate(), 0.001)
}
