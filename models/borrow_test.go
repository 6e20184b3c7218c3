package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOverdue(t *testing.T) {
	b := &BorrowedItem{ReturnDeadline: time.Now().Add(24 * time.Hour)}
	assert.False(t, b.IsOverdue())
	assert.Equal(t, 0, b.OverdueDays())

	b.ReturnDeadline = time.Now().AddDate(0, 0, -2)
	assert.True(t, b.IsOverdue())
	assert.Equal(t, 2, b.OverdueDays())
}

func TestReturnedItemIsNeverOverdue(t *testing.T) {
	returned := time.Now()
	b := &BorrowedItem{
		ReturnDeadline: time.Now().AddDate(0, 0, -5),
		ReturnedAt:     &returned,
	}
	assert.False(t, b.IsOverdue())
	assert.Equal(t, 0, b.OverdueDays())
	assert.Nil(t, b.DaysUntilDue())
}

func TestDaysUntilDue(t *testing.T) {
	b := &BorrowedItem{ReturnDeadline: time.Now().Add(72*time.Hour + time.Minute)}
	d := b.DaysUntilDue()
	require.NotNil(t, d)
	assert.Equal(t, 3, *d)
}
