package db

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gso_supply_tracker/models"
)

func TestIssueConsumableDecrementsStock(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 10)

	req, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 4, Purpose: "x"})
	require.NoError(t, err)
	_, err = r.ApproveRequest(ctx, req.ID, staff, "")
	require.NoError(t, err)

	issued, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RequestIssued, issued.Status)
	assert.Empty(t, items, "consumables create no borrowed items")

	fresh, err := r.FindSupplyByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, fresh.Quantity)

	// One IN for initial stock, one OUT for the issue.
	txs, total, err := r.ListTransactions(ctx, LedgerQuery{SupplyID: s.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, models.TxOut, txs[0].TransactionType)
	assert.Equal(t, -4, txs[0].Quantity)
	assert.Equal(t, 10, txs[0].PreviousQuantity)
	assert.Equal(t, 6, txs[0].NewQuantity)
}

func TestIssueConsumableInsufficientStock(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 3)

	req, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 5, Purpose: "x"})
	require.NoError(t, err)
	_, err = r.ApproveRequest(ctx, req.ID, staff, "")
	require.NoError(t, err)

	_, _, err = r.IssueRequest(ctx, req.ID, staff, nil)
	assert.Equal(t, KindInsufficientStock, KindOf(err))

	// The failed issue leaves everything untouched.
	fresh, err := r.FindSupplyByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Quantity)
	stale, err := r.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, stale.Status)
}

func TestIssueEquipmentFlipsInstance(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, s := seedApprovedEquipmentRequest(t, r, member, staff, 1, 2)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)

	inst, err := r.FindInstanceByID(ctx, items[0].InstanceID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceBorrowed, inst.Status)
	assert.Equal(t, member.ID, *inst.LastBorrowedByID)

	// Deadline comes from the supply's default window.
	wantDeadline := time.Now().UTC().AddDate(0, 0, s.DefaultBorrowDays)
	assert.WithinDuration(t, wantDeadline, items[0].ReturnDeadline, time.Minute)

	a, err := r.GetAnalytics(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.TotalBorrows)
	assert.Equal(t, 1, a.ActiveBorrows)
}

func TestIssueEquipmentNoAvailableUnits(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, _ := seedApprovedEquipmentRequest(t, r, member, staff, 2, 1)
	_, _, err := r.IssueRequest(ctx, req.ID, staff, nil)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
}

func TestProcessReturnGood(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, _ := seedApprovedEquipmentRequest(t, r, member, staff, 1, 1)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)

	item, err := r.ProcessReturn(ctx, ReturnInput{
		BorrowedItemID: items[0].ID,
		Condition:      models.ReturnGood,
	}, staff)
	require.NoError(t, err)
	require.NotNil(t, item.ReturnedAt)
	assert.Equal(t, models.ReturnGood, item.ReturnStatus)

	inst, err := r.FindInstanceByID(ctx, item.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceAvailable, inst.Status)

	fresh, err := r.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestReturned, fresh.Status)

	a, err := r.GetAnalytics(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.ActiveBorrows)
	assert.Equal(t, 1, a.OnTimeReturns)
	assert.Equal(t, 1, a.GoodConditionReturns)

	// Second return of the same item must conflict.
	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: item.ID, Condition: models.ReturnGood}, staff)
	assert.Equal(t, KindStateConflict, KindOf(err))
}

func TestProcessReturnDamagedWritesPenalty(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, s := seedApprovedEquipmentRequest(t, r, member, staff, 1, 1)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)

	penalty := decimal.NewFromFloat(150.50)
	item, err := r.ProcessReturn(ctx, ReturnInput{
		BorrowedItemID: items[0].ID,
		Condition:      models.ReturnDamaged,
		Notes:          "cracked screen",
		PenaltyAmount:  &penalty,
	}, staff)
	require.NoError(t, err)

	inst, err := r.FindInstanceByID(ctx, item.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceDamaged, inst.Status)
	assert.Equal(t, "cracked screen", inst.ConditionNotes)

	adjs, total, err := r.ListAdjustments(ctx, s.ID, true, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, models.AdjustDamage, adjs[0].Reason)
	assert.Equal(t, member.ID, *adjs[0].ResponsibleUserID)
	assert.True(t, penalty.Equal(*adjs[0].PenaltyAmount))

	a, err := r.GetAnalytics(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.DamagedReturns)
}

func TestProcessReturnLostReducesOwnedCount(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, s := seedApprovedEquipmentRequest(t, r, member, staff, 1, 2)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)

	before, err := r.FindSupplyByID(ctx, s.ID)
	require.NoError(t, err)

	item, err := r.ProcessReturn(ctx, ReturnInput{
		BorrowedItemID: items[0].ID,
		Condition:      models.ReturnLost,
	}, staff)
	require.NoError(t, err)

	inst, err := r.FindInstanceByID(ctx, item.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceLost, inst.Status)

	after, err := r.FindSupplyByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Quantity-1, after.Quantity)

	a, err := r.GetAnalytics(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.LostItems)
}

func TestLateReturnCountsOverdueDays(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, _ := seedApprovedEquipmentRequest(t, r, member, staff, 1, 1)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)

	require.NoError(t, r.DB.Model(&models.BorrowedItem{}).
		Where("id = ?", items[0].ID).
		Update("return_deadline", time.Now().UTC().AddDate(0, 0, -3)).Error)

	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: items[0].ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)

	a, err := r.GetAnalytics(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.LateReturns)
	assert.Equal(t, 0, a.OnTimeReturns)
	assert.Equal(t, 3, a.TotalOverdueDays)
	assert.Less(t, a.ReliabilityScore, 80.0)
}

func TestBatchReturnSweep(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	cat := seedCategory(t, r, true)
	s1 := seedSupply(t, r, cat, 0)
	s2 := seedSupply(t, r, cat, 0)
	seedInstance(t, r, s1)
	seedInstance(t, r, s2)

	reqs, err := r.CreateBatch(ctx, member, []CreateRequestInput{
		{SupplyID: s1.ID, Quantity: 1, Purpose: "x"},
		{SupplyID: s2.ID, Quantity: 1, Purpose: "x"},
	})
	require.NoError(t, err)
	batchID := *reqs[0].BatchGroupID

	res, err := r.ApproveBatch(ctx, batchID, staff, "")
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)

	res, err = r.IssueBatch(ctx, batchID, staff)
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)

	items, _, err := r.ListBorrows(ctx, BorrowQuery{BorrowerID: member.ID, OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 2)

	// First return: the untouched sibling flips to partially returned.
	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: items[0].ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)
	siblings, err := r.ListBatchRequests(ctx, batchID)
	require.NoError(t, err)
	for _, sib := range siblings {
		assert.Contains(t, []string{models.RequestReturned, models.RequestPartiallyReturned}, sib.Status)
	}

	// Second return closes the whole batch.
	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: items[1].ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)
	siblings, err = r.ListBatchRequests(ctx, batchID)
	require.NoError(t, err)
	for _, sib := range siblings {
		assert.Equal(t, models.RequestReturned, sib.Status)
	}
}

func TestBatchSweepMarksUnissuedSiblingPartial(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	cat := seedCategory(t, r, true)
	s1 := seedSupply(t, r, cat, 0)
	s2 := seedSupply(t, r, cat, 0)
	seedInstance(t, r, s1)
	seedInstance(t, r, s2)

	reqs, err := r.CreateBatch(ctx, member, []CreateRequestInput{
		{SupplyID: s1.ID, Quantity: 1, Purpose: "x"},
		{SupplyID: s2.ID, Quantity: 1, Purpose: "x"},
	})
	require.NoError(t, err)
	batchID := *reqs[0].BatchGroupID

	_, err = r.ApproveBatch(ctx, batchID, staff, "")
	require.NoError(t, err)

	// Only the first sibling goes out; the second stays approved.
	_, items, err := r.IssueRequest(ctx, reqs[0].ID, staff, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: items[0].ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)

	returned, err := r.FindRequestByID(ctx, reqs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestReturned, returned.Status)

	// A never-issued sibling holds the batch at partially returned.
	unissued, err := r.FindRequestByID(ctx, reqs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPartiallyReturned, unissued.Status)
}

func TestBatchSweepKeepsConsumableSiblingPartial(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	equipCat := seedCategory(t, r, true)
	consCat := seedCategory(t, r, false)
	gear := seedSupply(t, r, equipCat, 0)
	paper := seedSupply(t, r, consCat, 20)
	seedInstance(t, r, gear)

	reqs, err := r.CreateBatch(ctx, member, []CreateRequestInput{
		{SupplyID: gear.ID, Quantity: 1, Purpose: "x"},
		{SupplyID: paper.ID, Quantity: 5, Purpose: "x"},
	})
	require.NoError(t, err)
	batchID := *reqs[0].BatchGroupID

	_, err = r.ApproveBatch(ctx, batchID, staff, "")
	require.NoError(t, err)
	res, err := r.IssueBatch(ctx, batchID, staff)
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)

	items, _, err := r.ListBorrows(ctx, BorrowQuery{BorrowerID: member.ID, OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1, "the consumable sibling creates no borrowed items")

	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: items[0].ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)

	gearReq, err := r.FindRequestByID(ctx, reqs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestReturned, gearReq.Status)

	// The consumable sibling was handed out, not returned, so it is marked
	// partially returned and keeps the batch from closing as returned.
	paperReq, err := r.FindRequestByID(ctx, reqs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPartiallyReturned, paperReq.Status)
}

func TestReturnBatchClosesEverything(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	cat := seedCategory(t, r, true)
	s1 := seedSupply(t, r, cat, 0)
	s2 := seedSupply(t, r, cat, 0)
	seedInstance(t, r, s1)
	seedInstance(t, r, s2)

	reqs, err := r.CreateBatch(ctx, member, []CreateRequestInput{
		{SupplyID: s1.ID, Quantity: 1, Purpose: "x"},
		{SupplyID: s2.ID, Quantity: 1, Purpose: "x"},
	})
	require.NoError(t, err)
	batchID := *reqs[0].BatchGroupID

	_, err = r.ApproveBatch(ctx, batchID, staff, "")
	require.NoError(t, err)
	_, err = r.IssueBatch(ctx, batchID, staff)
	require.NoError(t, err)

	res, err := r.ReturnBatch(ctx, batchID, models.ReturnGood, "", staff)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)

	siblings, err := r.ListBatchRequests(ctx, batchID)
	require.NoError(t, err)
	for _, sib := range siblings {
		assert.Equal(t, models.RequestReturned, sib.Status)
	}

	// Everything is back, so a second sweep finds nothing open.
	_, err = r.ReturnBatch(ctx, batchID, models.ReturnGood, "", staff)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestIssueBelowMinLevelNotifiesLowStock(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	r.Notifier = NewRepo(r.DB).Notifier

	cat := seedCategory(t, r, false)
	s := seedSupply(t, r, cat, 5) // min level 2

	req, err := r.CreateRequest(ctx, member, CreateRequestInput{SupplyID: s.ID, Quantity: 4, Purpose: "x"})
	require.NoError(t, err)
	_, err = r.ApproveRequest(ctx, req.ID, staff, "")
	require.NoError(t, err)
	_, _, err = r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)

	notes, _, err := r.ListNotifications(ctx, staff.ID, true, 1, 20)
	require.NoError(t, err)
	var kinds []string
	for _, n := range notes {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, models.NotifyLowStock)
}

func TestReturnManyPartialSuccess(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)

	req, _ := seedApprovedEquipmentRequest(t, r, member, staff, 1, 1)
	_, items, err := r.IssueRequest(ctx, req.ID, staff, nil)
	require.NoError(t, err)

	res := r.ReturnMany(ctx, []ReturnInput{
		{BorrowedItemID: items[0].ID, Condition: models.ReturnGood},
		{BorrowedItemID: 9999, Condition: models.ReturnGood},
	}, staff)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Errors, 1)
}
