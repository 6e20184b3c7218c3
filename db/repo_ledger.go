package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"gso_supply_tracker/models"
)

// auditTx appends an audit entry inside the caller's transaction so a
// privileged action and its trail commit together.
func auditTx(tx *gorm.DB, actor *models.User, action, entityType string, entityID *uint, description string) error {
	entry := models.AuditLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if actor != nil {
		entry.UserID = &actor.ID
		entry.Username = actor.Username
	} else {
		entry.Username = "system"
	}
	return tx.Create(&entry).Error
}

// recordTransaction appends one ledger row inside the caller's transaction.
func recordTransaction(tx *gorm.DB, entry *models.InventoryTransaction) error {
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}
	return tx.Create(entry).Error
}

type LedgerQuery struct {
	SupplyID uint
	Type     string
	Page     int
	Size     int
}

func (r *Repo) ListTransactions(ctx context.Context, q LedgerQuery) ([]models.InventoryTransaction, int64, error) {
	q.Page, q.Size = clampPage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.InventoryTransaction{})
	if q.SupplyID != 0 {
		tx = tx.Where("supply_id = ?", q.SupplyID)
	}
	if q.Type != "" {
		tx = tx.Where("transaction_type = ?", q.Type)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.InventoryTransaction
	err := tx.Order("performed_at DESC").
		Offset((q.Page - 1) * q.Size).Limit(q.Size).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repo) ListAdjustments(ctx context.Context, supplyID uint, penaltiesOnly bool, page, size int) ([]models.StockAdjustment, int64, error) {
	page, size = clampPage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.StockAdjustment{})
	if supplyID != 0 {
		tx = tx.Where("supply_id = ?", supplyID)
	}
	if penaltiesOnly {
		tx = tx.Where("is_penalty = ?", true)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.StockAdjustment
	err := tx.Order("adjusted_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repo) ListAuditLog(ctx context.Context, entityType, action string, page, size int) ([]models.AuditLog, int64, error) {
	page, size = clampPage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.AuditLog{})
	if entityType != "" {
		tx = tx.Where("entity_type = ?", entityType)
	}
	if action != "" {
		tx = tx.Where("action = ?", action)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AuditLog
	err := tx.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	return rows, total, err
}
