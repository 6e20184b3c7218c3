package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gso_supply_tracker/models"
)

func TestCreateRequestCodeSequence(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 50)

	day := time.Now().UTC().Format("20060102")
	first, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 2, Purpose: "office"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("REQ-%s-0001", day), first.RequestCode)
	assert.Equal(t, models.RequestPending, first.Status)

	second, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 1, Purpose: "office"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("REQ-%s-0002", day), second.RequestCode)
}

func TestCreateRequestValidation(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 10)

	_, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 0, Purpose: "x"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 1})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: 9999, Quantity: 1, Purpose: "x"})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 1, Purpose: "x", Priority: "asap"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestApproveIsNotIdempotent(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 10)

	req, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 1, Purpose: "x"})
	require.NoError(t, err)

	approved, err := r.ApproveRequest(ctx, req.ID, staff, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.Equal(t, staff.ID, *approved.ReviewedByID)

	_, err = r.ApproveRequest(ctx, req.ID, staff, "again")
	assert.Equal(t, KindStateConflict, KindOf(err))

	_, err = r.RejectRequest(ctx, req.ID, staff, "too late")
	assert.Equal(t, KindStateConflict, KindOf(err))
}

func TestCancelRequestPermissions(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	other := seedUser(t, r, models.RoleMember)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 10)

	req, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 1, Purpose: "x"})
	require.NoError(t, err)

	_, err = r.CancelRequest(ctx, req.ID, other)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	cancelled, err := r.CancelRequest(ctx, req.ID, member)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, cancelled.Status)

	_, err = r.CancelRequest(ctx, req.ID, member)
	assert.Equal(t, KindStateConflict, KindOf(err))
}

func TestOverdueItemsBlockNewRequests(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, _ := seedApprovedEquipmentRequest(t, r, member, staff, 1, 1)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Push the deadline into the past.
	require.NoError(t, r.DB.Model(&models.BorrowedItem{}).
		Where("id = ?", items[0].ID).
		Update("return_deadline", time.Now().UTC().AddDate(0, 0, -2)).Error)

	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 10)
	_, err = r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 1, Purpose: "x"})
	assert.Equal(t, KindOverdueBlock, KindOf(err))

	// Returning the overdue item lifts the block.
	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: items[0].ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)
	_, err = r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 1, Purpose: "x"})
	assert.NoError(t, err)
}

func TestBatchCreateAndReview(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	cat := seedCategory(t, r, false)
	s1 := seedSupply(t, r, cat, 10)
	s2 := seedSupply(t, r, cat, 10)

	reqs, err := r.CreateBatch(ctx, member, []CreateRequestInput{
		{SupplyID: s1.ID, Quantity: 2, Purpose: "x"},
		{SupplyID: s2.ID, Quantity: 1, Purpose: "x"},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, *reqs[0].BatchGroupID, *reqs[1].BatchGroupID)

	res, err := r.ApproveBatch(ctx, *reqs[0].BatchGroupID, staff, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Empty(t, res.Errors)

	// Nothing pending left, so a second sweep is a not-found.
	_, err = r.ApproveBatch(ctx, *reqs[0].BatchGroupID, staff, "")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestBatchCreateAtomic(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 10)

	_, err := r.CreateBatch(ctx, member, []CreateRequestInput{
		{SupplyID: s.ID, Quantity: 1, Purpose: "x"},
		{SupplyID: 9999, Quantity: 1, Purpose: "x"},
	})
	assert.Equal(t, KindNotFound, KindOf(err))

	var n int64
	require.NoError(t, r.DB.Model(&models.SupplyRequest{}).Count(&n).Error)
	assert.Zero(t, n, "failed batch create must not leave partial rows")
}
