package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gso_supply_tracker/models"
)

func setupTestDB(t *testing.T) *Repo {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	r := NewRepo(conn)
	r.Notifier = NopNotifier{}
	return r
}

var userSeq int

func seedUser(t *testing.T, r *Repo, role string) *models.User {
	t.Helper()
	userSeq++
	u, err := r.RegisterUser(context.Background(), fmt.Sprintf("user%d", userSeq), "", nil)
	require.NoError(t, err)
	require.NoError(t, r.DB.Model(u).Updates(map[string]interface{}{
		"role":            role,
		"approval_status": models.ApprovalApproved,
	}).Error)
	u.Role = role
	u.ApprovalStatus = models.ApprovalApproved
	return u
}

func seedCategory(t *testing.T, r *Repo, equipment bool) *models.SupplyCategory {
	t.Helper()
	name := "Consumables"
	if equipment {
		name = "Equipment"
	}
	cat := &models.SupplyCategory{Name: fmt.Sprintf("%s %d", name, userSeq), IsEquipment: equipment}
	userSeq++
	require.NoError(t, r.CreateCategory(context.Background(), cat))
	return cat
}

func seedSupply(t *testing.T, r *Repo, cat *models.SupplyCategory, qty int) *models.Supply {
	t.Helper()
	s := &models.Supply{
		Name:              fmt.Sprintf("Supply %d", userSeq),
		CategoryID:        cat.ID,
		Quantity:          qty,
		MinStockLevel:     2,
		DefaultBorrowDays: 3,
		Unit:              "pcs",
	}
	userSeq++
	require.NoError(t, r.CreateSupply(context.Background(), s, nil))
	return s
}

func seedInstance(t *testing.T, r *Repo, s *models.Supply) *models.EquipmentInstance {
	t.Helper()
	inst := &models.EquipmentInstance{
		SupplyID:     s.ID,
		InstanceCode: fmt.Sprintf("EQ-%d-%d", s.ID, userSeq),
	}
	userSeq++
	require.NoError(t, r.CreateInstance(context.Background(), inst, nil))
	return inst
}

// seedApprovedEquipmentRequest walks a request up to approved against one
// fresh equipment supply with n instances.
func seedApprovedEquipmentRequest(t *testing.T, r *Repo, member, staff *models.User, qty, instances int) (*models.SupplyRequest, *models.Supply) {
	t.Helper()
	ctx := context.Background()
	cat := seedCategory(t, r, true)
	s := seedSupply(t, r, cat, 0)
	for i := 0; i < instances; i++ {
		seedInstance(t, r, s)
	}
	req, err := r.CreateRequest(ctx, member, CreateRequestInput{
		SupplyID: s.ID,
		Quantity: qty,
		Purpose:  "field work",
	})
	require.NoError(t, err)
	req, err = r.ApproveRequest(ctx, req.ID, staff, "")
	require.NoError(t, err)
	return req, s
}
