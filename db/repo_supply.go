package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gso_supply_tracker/models"
)

// Categories

func (r *Repo) CreateCategory(ctx context.Context, c *models.SupplyCategory) error {
	if strings.TrimSpace(c.Name) == "" {
		return errf(KindValidation, "category name is required")
	}
	c.IsActive = true
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *Repo) ListCategories(ctx context.Context) ([]models.SupplyCategory, error) {
	var cs []models.SupplyCategory
	err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&cs).Error
	return cs, err
}

// Supplies

// CreateSupply records the initial stock as an adjustment ledger entry so
// quantity history starts at row one.
func (r *Repo) CreateSupply(ctx context.Context, s *models.Supply, actor *models.User) error {
	if strings.TrimSpace(s.Name) == "" {
		return errf(KindValidation, "supply name is required")
	}
	if s.Quantity < 0 {
		return errf(KindValidation, "quantity must not be negative")
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.SupplyCategory
		if err := tx.First(&cat, s.CategoryID).Error; err != nil {
			return notFoundOr(err, "category %d not found", s.CategoryID)
		}
		// Consumability follows the category, always.
		s.IsConsumable = !cat.IsEquipment
		s.IsActive = true
		if actor != nil {
			s.CreatedByID = &actor.ID
		}
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		if s.Quantity > 0 {
			if err := recordTransaction(tx, &models.InventoryTransaction{
				SupplyID:         s.ID,
				TransactionType:  models.TxIn,
				Quantity:         s.Quantity,
				PreviousQuantity: 0,
				NewQuantity:      s.Quantity,
				Notes:            "Initial stock",
				PerformedByID:    s.CreatedByID,
			}); err != nil {
				return err
			}
		}
		return auditTx(tx, actor, models.AuditCreate, "supply", &s.ID,
			fmt.Sprintf("Created supply %s", s.Name))
	})
}

func (r *Repo) FindSupplyByID(ctx context.Context, id uint) (*models.Supply, error) {
	var s models.Supply
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, notFoundOr(err, "supply %d not found", id)
	}
	return &s, nil
}

type SupplyQuery struct {
	Q          string
	CategoryID uint
	Stock      string // "", "low", "out", "available"
	Page       int
	Size       int
}

func (r *Repo) ListSupplies(ctx context.Context, q SupplyQuery) ([]models.Supply, int64, error) {
	q.Page, q.Size = clampPage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.Supply{}).Where("is_active = ?", true)
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ?", like)
	}
	if q.CategoryID != 0 {
		tx = tx.Where("category_id = ?", q.CategoryID)
	}
	switch q.Stock {
	case "low":
		tx = tx.Where("quantity > 0 AND quantity <= min_stock_level")
	case "out":
		tx = tx.Where("quantity = 0")
	case "available":
		tx = tx.Where("quantity > 0")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Supply
	err := tx.Order("category_id, name").
		Offset((q.Page - 1) * q.Size).Limit(q.Size).
		Find(&rows).Error
	return rows, total, err
}

// AvailableQuantity counts available instances for equipment and reads the
// raw quantity for consumables.
func (r *Repo) AvailableQuantity(ctx context.Context, s *models.Supply) (int, error) {
	if s.IsConsumable {
		return s.Quantity, nil
	}
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.EquipmentInstance{}).
		Where("supply_id = ? AND status = ? AND is_active = ?", s.ID, models.InstanceAvailable, true).
		Count(&n).Error
	return int(n), err
}

// SupplyUpdate carries the editable fields. Quantity is absent on purpose:
// stock only moves through restock, adjust, issue and return.
type SupplyUpdate struct {
	Name              *string
	Description       *string
	MinStockLevel     *int
	DefaultBorrowDays *int
	Unit              *string
}

func (r *Repo) UpdateSupply(ctx context.Context, id uint, in SupplyUpdate, actor *models.User) (*models.Supply, error) {
	var s models.Supply
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&s, "id = ? AND is_active = ?", id, true).Error; err != nil {
			return notFoundOr(err, "supply %d not found", id)
		}
		updates := map[string]interface{}{}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return errf(KindValidation, "supply name is required")
			}
			updates["name"] = *in.Name
			s.Name = *in.Name
		}
		if in.Description != nil {
			updates["description"] = *in.Description
			s.Description = *in.Description
		}
		if in.MinStockLevel != nil {
			if *in.MinStockLevel < 0 {
				return errf(KindValidation, "min stock level must not be negative")
			}
			updates["min_stock_level"] = *in.MinStockLevel
			s.MinStockLevel = *in.MinStockLevel
		}
		if in.DefaultBorrowDays != nil {
			if *in.DefaultBorrowDays <= 0 {
				return errf(KindValidation, "default borrow days must be positive")
			}
			updates["default_borrow_days"] = *in.DefaultBorrowDays
			s.DefaultBorrowDays = *in.DefaultBorrowDays
		}
		if in.Unit != nil {
			updates["unit"] = *in.Unit
			s.Unit = *in.Unit
		}
		if len(updates) == 0 {
			return errf(KindValidation, "nothing to update")
		}
		if err := tx.Model(&s).Updates(updates).Error; err != nil {
			return err
		}
		return auditTx(tx, actor, models.AuditUpdate, "supply", &s.ID,
			fmt.Sprintf("Updated supply %s", s.Name))
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeactivateSupply soft-deletes. Rows stay referenceable by history.
func (r *Repo) DeactivateSupply(ctx context.Context, id uint, actor *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.Supply
		if err := tx.First(&s, id).Error; err != nil {
			return notFoundOr(err, "supply %d not found", id)
		}
		if !s.IsActive {
			return errf(KindStateConflict, "supply %s is already inactive", s.Name)
		}
		if err := tx.Model(&s).Update("is_active", false).Error; err != nil {
			return err
		}
		return auditTx(tx, actor, models.AuditUpdate, "supply", &s.ID,
			fmt.Sprintf("Deactivated supply %s", s.Name))
	})
}

// RestockSupply adds stock under the supply row lock and writes the IN
// ledger entry in the same transaction.
func (r *Repo) RestockSupply(ctx context.Context, id uint, amount int, notes string, actor *models.User) (*models.Supply, error) {
	if amount <= 0 {
		return nil, errf(KindValidation, "restock amount must be positive")
	}
	var s models.Supply
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&s, "id = ? AND is_active = ?", id, true).Error; err != nil {
			return notFoundOr(err, "supply %d not found", id)
		}
		prev := s.Quantity
		s.Quantity += amount
		if err := tx.Model(&s).Update("quantity", s.Quantity).Error; err != nil {
			return err
		}
		if err := recordTransaction(tx, &models.InventoryTransaction{
			SupplyID:         s.ID,
			TransactionType:  models.TxIn,
			Quantity:         amount,
			PreviousQuantity: prev,
			NewQuantity:      s.Quantity,
			Notes:            notes,
			PerformedByID:    actorID(actor),
		}); err != nil {
			return err
		}
		return auditTx(tx, actor, models.AuditUpdate, "supply", &s.ID,
			fmt.Sprintf("Restocked %s by %d", s.Name, amount))
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AdjustStock applies a manual correction (positive or negative) with a
// StockAdjustment record. Quantity can never go below zero.
func (r *Repo) AdjustStock(ctx context.Context, id uint, delta int, reason, description string, actor *models.User) (*models.Supply, error) {
	if delta == 0 {
		return nil, errf(KindValidation, "adjustment delta must be non-zero")
	}
	var s models.Supply
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&s, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "supply %d not found", id)
		}
		prev := s.Quantity
		next := prev + delta
		if next < 0 {
			return errf(KindInsufficientStock, "adjustment would drop %s below zero (%d%+d)", s.Name, prev, delta)
		}
		s.Quantity = next
		if err := tx.Model(&s).Update("quantity", next).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.StockAdjustment{
			SupplyID:     s.ID,
			Reason:       reason,
			Quantity:     delta,
			Description:  description,
			AdjustedByID: actorID(actor),
		}).Error; err != nil {
			return err
		}
		if err := recordTransaction(tx, &models.InventoryTransaction{
			SupplyID:         s.ID,
			TransactionType:  models.TxAdjustment,
			Quantity:         delta,
			PreviousQuantity: prev,
			NewQuantity:      next,
			Notes:            description,
			PerformedByID:    actorID(actor),
		}); err != nil {
			return err
		}
		return auditTx(tx, actor, models.AuditUpdate, "supply", &s.ID,
			fmt.Sprintf("Adjusted %s by %+d (%s)", s.Name, delta, reason))
	})
	if err != nil {
		return nil, err
	}
	if delta < 0 && s.Quantity <= s.MinStockLevel {
		r.notifyLowStock(ctx, &s)
	}
	return &s, nil
}

// notifyLowStock tells staff a supply dropped to or under its minimum.
func (r *Repo) notifyLowStock(ctx context.Context, s *models.Supply) {
	r.Notifier.NotifyStaff(ctx, models.Notification{
		Kind:    models.NotifyLowStock,
		Title:   "Low Stock",
		Message: fmt.Sprintf("%s is down to %d %s (minimum %d).", s.Name, s.Quantity, s.Unit, s.MinStockLevel),
		Link:    fmt.Sprintf("/supplies/%d", s.ID),
	})
}

// Equipment instances

func (r *Repo) CreateInstance(ctx context.Context, inst *models.EquipmentInstance, actor *models.User) error {
	if strings.TrimSpace(inst.InstanceCode) == "" {
		return errf(KindValidation, "instance code is required")
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.Supply
		if err := tx.First(&s, inst.SupplyID).Error; err != nil {
			return notFoundOr(err, "supply %d not found", inst.SupplyID)
		}
		if s.IsConsumable {
			return errf(KindValidation, "%s is consumable; instances track equipment only", s.Name)
		}
		inst.Status = models.InstanceAvailable
		inst.IsActive = true
		if err := tx.Create(inst).Error; err != nil {
			return err
		}
		// The supply's quantity mirrors the owned unit count for equipment.
		if err := tx.Model(&s).Update("quantity", gorm.Expr("quantity + 1")).Error; err != nil {
			return err
		}
		return auditTx(tx, actor, models.AuditCreate, "instance", &inst.ID,
			fmt.Sprintf("Registered instance %s of %s", inst.InstanceCode, s.Name))
	})
}

func (r *Repo) FindInstanceByID(ctx context.Context, id uint) (*models.EquipmentInstance, error) {
	var inst models.EquipmentInstance
	if err := r.DB.WithContext(ctx).First(&inst, id).Error; err != nil {
		return nil, notFoundOr(err, "instance %d not found", id)
	}
	return &inst, nil
}

func (r *Repo) ListInstances(ctx context.Context, supplyID uint, status string) ([]models.EquipmentInstance, error) {
	tx := r.DB.WithContext(ctx).Where("is_active = ?", true)
	if supplyID != 0 {
		tx = tx.Where("supply_id = ?", supplyID)
	}
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var rows []models.EquipmentInstance
	err := tx.Order("supply_id, instance_code").Find(&rows).Error
	return rows, err
}

// SetInstanceMaintenance moves an instance between available and
// maintenance, or retires it. Borrowed units must come back first.
func (r *Repo) SetInstanceMaintenance(ctx context.Context, id uint, target string, notes string, actor *models.User) (*models.EquipmentInstance, error) {
	switch target {
	case models.InstanceAvailable, models.InstanceMaintenance, models.InstanceRetired:
	default:
		return nil, errf(KindValidation, "cannot move an instance to %q manually", target)
	}
	var inst models.EquipmentInstance
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&inst, id).Error; err != nil {
			return notFoundOr(err, "instance %d not found", id)
		}
		if inst.Status == models.InstanceBorrowed {
			return errf(KindStateConflict, "%s is borrowed; process the return first", inst.InstanceCode)
		}
		if inst.Status == target {
			return errf(KindStateConflict, "%s is already %s", inst.InstanceCode, target)
		}
		updates := map[string]interface{}{"status": target}
		if notes != "" {
			updates["condition_notes"] = notes
		}
		if err := tx.Model(&inst).Updates(updates).Error; err != nil {
			return err
		}
		inst.Status = target
		return auditTx(tx, actor, models.AuditUpdate, "instance", &inst.ID,
			fmt.Sprintf("Instance %s -> %s", inst.InstanceCode, target))
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func actorID(u *models.User) *string {
	if u == nil {
		return nil
	}
	return &u.ID
}
