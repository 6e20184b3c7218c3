package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gso_supply_tracker/models"
)

// analyticsForUpdate fetches the per-user aggregate row under lock,
// creating it lazily on first touch.
func analyticsForUpdate(tx *gorm.DB, userID string) (*models.BorrowerAnalytics, error) {
	var a models.BorrowerAnalytics
	err := forUpdate(tx).
		First(&a, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a = models.BorrowerAnalytics{UserID: userID, ReliabilityScore: 100}
		if err := tx.Create(&a).Error; err != nil {
			return nil, err
		}
		return &a, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// bumpRequestAnalytics counts n new requests against the user.
func bumpRequestAnalytics(tx *gorm.DB, userID string, n int, now time.Time) error {
	a, err := analyticsForUpdate(tx, userID)
	if err != nil {
		return err
	}
	return tx.Model(a).Updates(map[string]interface{}{
		"total_requests":  gorm.Expr("total_requests + ?", n),
		"last_request_at": now,
	}).Error
}

// bumpAnalyticsCounter increments one named counter column by one.
func bumpAnalyticsCounter(tx *gorm.DB, userID, column string, now time.Time) error {
	a, err := analyticsForUpdate(tx, userID)
	if err != nil {
		return err
	}
	return tx.Model(a).Updates(map[string]interface{}{
		column:       gorm.Expr(column+" + 1"),
		"updated_at": now,
	}).Error
}

// bumpBorrowAnalytics counts a fresh issuance.
func bumpBorrowAnalytics(tx *gorm.DB, userID string, now time.Time) error {
	a, err := analyticsForUpdate(tx, userID)
	if err != nil {
		return err
	}
	return tx.Model(a).Updates(map[string]interface{}{
		"total_borrows":  gorm.Expr("total_borrows + 1"),
		"active_borrows": gorm.Expr("active_borrows + 1"),
		"last_borrow_at": now,
	}).Error
}

// applyReturnAnalytics folds one completed return into the aggregate and
// recomputes the reliability score in the same transaction. Late is judged
// at the moment of return, not at read time.
func applyReturnAnalytics(tx *gorm.DB, userID string, late bool, overdueDays int, returnStatus string, now time.Time) error {
	a, err := analyticsForUpdate(tx, userID)
	if err != nil {
		return err
	}
	if a.ActiveBorrows > 0 {
		a.ActiveBorrows--
	}
	if late {
		a.LateReturns++
		a.TotalOverdueDays += overdueDays
	} else {
		a.OnTimeReturns++
	}
	switch returnStatus {
	case models.ReturnDamaged:
		a.DamagedReturns++
	case models.ReturnLost:
		a.LostItems++
	default:
		a.GoodConditionReturns++
	}
	a.RecalculateReliability()
	a.LastReturnAt = &now
	return tx.Save(a).Error
}

// GetAnalytics returns the aggregate row for a user, a fresh zero-history
// row (score 100) if they have none yet.
func (r *Repo) GetAnalytics(ctx context.Context, userID string) (*models.BorrowerAnalytics, error) {
	var a models.BorrowerAnalytics
	err := r.DB.WithContext(ctx).First(&a, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.BorrowerAnalytics{UserID: userID, ReliabilityScore: 100}, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnalytics pages the aggregate rows worst-score-first so staff see
// problem borrowers on page one.
func (r *Repo) ListAnalytics(ctx context.Context, page, size int) ([]models.BorrowerAnalytics, int64, error) {
	page, size = clampPage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.BorrowerAnalytics{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.BorrowerAnalytics
	err := tx.Order("reliability_score ASC, total_borrows DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	return rows, total, err
}

// DashboardStats is the staff landing-page summary.
type DashboardStats struct {
	PendingRequests int64 `json:"pendingRequests"`
	ActiveBorrows   int64 `json:"activeBorrows"`
	OverdueItems    int64 `json:"overdueItems"`
	LowStock        int64 `json:"lowStock"`
	OutOfStock      int64 `json:"outOfStock"`
	PendingAccounts int64 `json:"pendingAccounts"`
}

func (r *Repo) GetDashboardStats(ctx context.Context) (DashboardStats, error) {
	var st DashboardStats
	conn := r.DB.WithContext(ctx)
	now := time.Now().UTC()

	counts := []struct {
		dst *int64
		tx  *gorm.DB
	}{
		{&st.PendingRequests, conn.Model(&models.SupplyRequest{}).Where("status = ?", models.RequestPending)},
		{&st.ActiveBorrows, conn.Model(&models.BorrowedItem{}).Where("returned_at IS NULL")},
		{&st.OverdueItems, conn.Model(&models.BorrowedItem{}).Where("returned_at IS NULL AND return_deadline < ?", now)},
		{&st.LowStock, conn.Model(&models.Supply{}).Where("is_active = ? AND quantity > 0 AND quantity <= min_stock_level", true)},
		{&st.OutOfStock, conn.Model(&models.Supply{}).Where("is_active = ? AND quantity = 0", true)},
		{&st.PendingAccounts, conn.Model(&models.User{}).Where("approval_status = ?", models.ApprovalPending)},
	}
	for _, c := range counts {
		if err := c.tx.Count(c.dst).Error; err != nil {
			return DashboardStats{}, err
		}
	}
	return st, nil
}
