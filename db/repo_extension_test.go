package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gso_supply_tracker/models"
)

func issueOneItem(t *testing.T, r *Repo, member, staff *models.User) *models.BorrowedItem {
	t.Helper()
	req, _ := seedApprovedEquipmentRequest(t, r, member, staff, 1, 1)
	_, items, err := r.IssueRequest(context.Background(), req.ID, staff, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return &items[0]
}

func TestExtensionOnePendingPerItem(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	item := issueOneItem(t, r, member, staff)

	_, err := r.RequestExtension(ctx, item.ID, 3, "need more time", member)
	require.NoError(t, err)

	_, err = r.RequestExtension(ctx, item.ID, 2, "and more", member)
	assert.Equal(t, KindStateConflict, KindOf(err))
}

func TestExtensionBorrowerOnly(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	other := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	item := issueOneItem(t, r, member, staff)

	_, err := r.RequestExtension(ctx, item.ID, 3, "", other)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	_, err = r.RequestExtension(ctx, item.ID, 0, "", member)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestApproveExtensionUsesOriginalDeadline(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	item := issueOneItem(t, r, member, staff)

	ext, err := r.RequestExtension(ctx, item.ID, 5, "", member)
	require.NoError(t, err)

	approved, err := r.ApproveExtension(ctx, ext.ID, staff, "")
	require.NoError(t, err)
	require.NotNil(t, approved.NewDeadline)

	// Granted days count from the deadline at request time, not from the
	// moment staff acted.
	want := ext.OriginalDeadline.AddDate(0, 0, 5)
	assert.WithinDuration(t, want, *approved.NewDeadline, time.Second)

	fresh, err := r.FindBorrowedItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, want, fresh.ReturnDeadline, time.Second)

	// A second extension may now be requested and stacks on the new deadline.
	ext2, err := r.RequestExtension(ctx, item.ID, 2, "", member)
	require.NoError(t, err)
	assert.WithinDuration(t, want, ext2.OriginalDeadline, time.Second)
}

func TestExtensionAfterReturnConflicts(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	item := issueOneItem(t, r, member, staff)

	ext, err := r.RequestExtension(ctx, item.ID, 3, "", member)
	require.NoError(t, err)

	_, err = r.ProcessReturn(ctx, ReturnInput{BorrowedItemID: item.ID, Condition: models.ReturnGood}, staff)
	require.NoError(t, err)

	_, err = r.ApproveExtension(ctx, ext.ID, staff, "")
	assert.Equal(t, KindStateConflict, KindOf(err))

	_, err = r.RequestExtension(ctx, item.ID, 3, "", member)
	assert.Equal(t, KindStateConflict, KindOf(err))
}

func TestRejectExtensionKeepsDeadline(t *testing.T) {
	r := setupTestDB(t)
	ctx := context.Background()
	member := seedUser(t, r, models.RoleMember)
	staff := seedUser(t, r, models.RoleStaff)
	item := issueOneItem(t, r, member, staff)

	ext, err := r.RequestExtension(ctx, item.ID, 3, "", member)
	require.NoError(t, err)

	rejected, err := r.RejectExtension(ctx, ext.ID, staff, "no")
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionRejected, rejected.Status)
	assert.Nil(t, rejected.NewDeadline)

	fresh, err := r.FindBorrowedItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, ext.OriginalDeadline, fresh.ReturnDeadline, time.Second)
}
