package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gso_supply_tracker/models"
	"gso_supply_tracker/qr"
)

func TestResolveScanSupply(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	staff := seedUser(t, r, models.RoleStaff)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 5)

	res, err := r.ResolveScan(ctx, qr.SupplyToken(s), models.ScanInventory, staff)
	require.NoError(t, err)
	require.NotNil(t, res.Supply)
	assert.Equal(t, s.ID, res.Supply.ID)
	assert.Equal(t, qr.KindSupply, res.Ref.Kind)
}

func TestResolveScanReturnFindsOpenBorrow(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, _ := seedApprovedEquipmentRequest(t, r, member, staff, 1, 1)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)

	inst, err := r.FindInstanceByID(ctx, items[0].InstanceID)
	require.NoError(t, err)

	res, err := r.ResolveScan(ctx, qr.InstanceToken(inst), models.ScanReturn, staff)
	require.NoError(t, err)
	require.NotNil(t, res.OpenBorrow)
	assert.Equal(t, items[0].ID, res.OpenBorrow.ID)

	// After the return, a return-type scan of the same unit fails.
	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: items[0].ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)
	_, err = r.ResolveScan(ctx, qr.InstanceToken(inst), models.ScanReturn, staff)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestResolveScanLogsFailures(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	staff := seedUser(t, r, models.RoleStaff)

	_, err := r.ResolveScan(ctx, "STICKER-9", "", staff)
	assert.Equal(t, KindValidation, KindOf(err))

	scans, total, err := r.ListScans(ctx, "", true, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.False(t, scans[0].WasSuccessful)
	assert.Equal(t, "STICKER-9", scans[0].Token)
	assert.NotEmpty(t, scans[0].ErrorMessage)
}

func TestResolveScanBatch(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 10)

	reqs, err := r.CreateBatch(ctx, member, []CreateRequestInput{
		{SupplyID: s.ID, Quantity: 1, Purpose: "x"},
		{SupplyID: s.ID, Quantity: 2, Purpose: "x"},
	})
	require.NoError(t, err)

	res, err := r.ResolveScan(ctx, qr.BatchToken(*reqs[0].BatchGroupID), models.ScanIssue, staff)
	require.NoError(t, err)
	assert.Len(t, res.Batch, 2)
}
