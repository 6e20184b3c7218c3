package db

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gso_supply_tracker/models"
)

// IssueRequest hands out an approved request. Consumables decrement stock
// and end the request there; equipment creates one borrowed item per unit
// and flips the instances to borrowed. The whole issuance is one
// transaction against locked rows.
//
// instanceIDs lets staff pick specific units at the counter. When empty the
// requested instance (if any) is used, then available units are picked in
// code order.
func (r *Repo) IssueRequest(ctx context.Context, id uint, issuer *models.User, instanceIDs []uint) (*models.SupplyRequest, []models.BorrowedItem, error) {
	var req models.SupplyRequest
	var supply models.Supply
	var issued []models.BorrowedItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&req, id).Error; err != nil {
			return notFoundOr(err, "request %d not found", id)
		}
		if req.Status != models.RequestApproved {
			return errf(KindStateConflict, "request %s is %s, not approved", req.RequestCode, req.Status)
		}

		if err := forUpdate(tx).
			First(&supply, req.SupplyID).Error; err != nil {
			return notFoundOr(err, "supply %d not found", req.SupplyID)
		}

		now := time.Now().UTC()
		if supply.IsConsumable {
			if err := issueConsumable(tx, &req, &supply, issuer, now); err != nil {
				return err
			}
		} else {
			items, err := issueEquipment(tx, &req, &supply, issuer, instanceIDs, now)
			if err != nil {
				return err
			}
			issued = items
		}

		updates := map[string]interface{}{
			"status":       models.RequestIssued,
			"issued_by_id": issuer.ID,
			"issued_at":    now,
		}
		if err := tx.Model(&req).Updates(updates).Error; err != nil {
			return err
		}
		req.Status = models.RequestIssued
		req.IssuedByID = &issuer.ID
		req.IssuedAt = &now

		return auditTx(tx, issuer, models.AuditIssue, "request", &req.ID,
			fmt.Sprintf("Issued request %s (%d x %s)", req.RequestCode, req.Quantity, supply.Name))
	})
	if err != nil {
		return nil, nil, err
	}

	msg := fmt.Sprintf("Your request %s has been issued.", req.RequestCode)
	if len(issued) > 0 {
		msg = fmt.Sprintf("Your request %s has been issued. Return deadline: %s.",
			req.RequestCode, issued[0].ReturnDeadline.Format("Jan 2, 2006"))
	}
	r.Notifier.Notify(ctx, &models.Notification{
		UserID:    req.RequesterID,
		Kind:      models.NotifyItemIssued,
		Title:     "Items Issued",
		Message:   msg,
		Link:      fmt.Sprintf("/requests/%d", req.ID),
		RequestID: &req.ID,
	})
	if supply.IsConsumable && supply.Quantity <= supply.MinStockLevel {
		r.notifyLowStock(ctx, &supply)
	}
	return &req, issued, nil
}

func issueConsumable(tx *gorm.DB, req *models.SupplyRequest, supply *models.Supply, issuer *models.User, now time.Time) error {
	if supply.Quantity < req.Quantity {
		return errf(KindInsufficientStock, "only %d %s of %s in stock, %d requested",
			supply.Quantity, supply.Unit, supply.Name, req.Quantity)
	}
	prev := supply.Quantity
	supply.Quantity -= req.Quantity
	if err := tx.Model(supply).Update("quantity", supply.Quantity).Error; err != nil {
		return err
	}
	return recordTransaction(tx, &models.InventoryTransaction{
		SupplyID:         supply.ID,
		TransactionType:  models.TxOut,
		Quantity:         -req.Quantity,
		PreviousQuantity: prev,
		NewQuantity:      supply.Quantity,
		ReferenceCode:    req.RequestCode,
		RequestID:        &req.ID,
		PerformedByID:    &issuer.ID,
		PerformedAt:      now,
	})
}

func issueEquipment(tx *gorm.DB, req *models.SupplyRequest, supply *models.Supply, issuer *models.User, instanceIDs []uint, now time.Time) ([]models.BorrowedItem, error) {
	if len(instanceIDs) == 0 && req.RequestedInstanceID != nil {
		instanceIDs = []uint{*req.RequestedInstanceID}
	}
	if len(instanceIDs) > req.Quantity {
		return nil, errf(KindValidation, "%d instances selected for a request of %d", len(instanceIDs), req.Quantity)
	}

	instances, err := lockIssuableInstances(tx, req, supply, instanceIDs)
	if err != nil {
		return nil, err
	}

	deadline := now.AddDate(0, 0, supply.DefaultBorrowDays)

	var availBefore int64
	if err := tx.Model(&models.EquipmentInstance{}).
		Where("supply_id = ? AND status = ? AND is_active = ?", supply.ID, models.InstanceAvailable, true).
		Count(&availBefore).Error; err != nil {
		return nil, err
	}

	items := make([]models.BorrowedItem, 0, len(instances))
	for i := range instances {
		inst := &instances[i]
		item := models.BorrowedItem{
			RequestID:      req.ID,
			InstanceID:     inst.ID,
			BorrowerID:     req.RequesterID,
			BorrowedAt:     now,
			ReturnDeadline: deadline,
			ReturnStatus:   models.ReturnPending,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, err
		}
		if err := tx.Model(inst).Updates(map[string]interface{}{
			"status":              models.InstanceBorrowed,
			"last_borrowed_at":    now,
			"last_borrowed_by_id": req.RequesterID,
		}).Error; err != nil {
			return nil, err
		}
		if err := recordTransaction(tx, &models.InventoryTransaction{
			SupplyID:         supply.ID,
			InstanceID:       &inst.ID,
			TransactionType:  models.TxOut,
			Quantity:         -1,
			PreviousQuantity: int(availBefore) - i,
			NewQuantity:      int(availBefore) - i - 1,
			ReferenceCode:    req.RequestCode,
			RequestID:        &req.ID,
			BorrowedItemID:   &item.ID,
			Notes:            "Borrowed " + inst.InstanceCode,
			PerformedByID:    &issuer.ID,
			PerformedAt:      now,
		}); err != nil {
			return nil, err
		}
		if err := bumpBorrowAnalytics(tx, req.RequesterID, now); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// lockIssuableInstances resolves and locks the units an equipment issuance
// will hand out, validating each one against the request's supply.
func lockIssuableInstances(tx *gorm.DB, req *models.SupplyRequest, supply *models.Supply, instanceIDs []uint) ([]models.EquipmentInstance, error) {
	var instances []models.EquipmentInstance
	if len(instanceIDs) > 0 {
		for _, instID := range instanceIDs {
			var inst models.EquipmentInstance
			if err := forUpdate(tx).
				First(&inst, "id = ? AND is_active = ?", instID, true).Error; err != nil {
				return nil, notFoundOr(err, "instance %d not found", instID)
			}
			if inst.SupplyID != supply.ID {
				return nil, errf(KindValidation, "instance %s does not belong to %s", inst.InstanceCode, supply.Name)
			}
			if inst.Status != models.InstanceAvailable {
				return nil, errf(KindStateConflict, "instance %s is %s, not available", inst.InstanceCode, inst.Status)
			}
			instances = append(instances, inst)
		}
	}
	if missing := req.Quantity - len(instances); missing > 0 {
		var picked []models.EquipmentInstance
		q := forUpdate(tx).
			Where("supply_id = ? AND status = ? AND is_active = ?", supply.ID, models.InstanceAvailable, true)
		for _, inst := range instances {
			q = q.Where("id <> ?", inst.ID)
		}
		if err := q.Order("instance_code").Limit(missing).Find(&picked).Error; err != nil {
			return nil, err
		}
		if len(picked) < missing {
			return nil, errf(KindInsufficientStock, "only %d unit(s) of %s available, %d requested",
				len(instances)+len(picked), supply.Name, req.Quantity)
		}
		instances = append(instances, picked...)
	}
	return instances, nil
}

// IssueBatch issues every approved sibling in the batch, auto-picking
// instances. Partial success.
func (r *Repo) IssueBatch(ctx context.Context, batchID string, issuer *models.User) (BatchResult, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.SupplyRequest{}).
		Where("batch_group_id = ? AND status = ?", batchID, models.RequestApproved).
		Pluck("id", &ids).Error
	if err != nil {
		return BatchResult{}, err
	}
	if len(ids) == 0 {
		return BatchResult{}, errf(KindNotFound, "no approved requests in batch %s", batchID)
	}
	var res BatchResult
	for _, id := range ids {
		if _, _, err := r.IssueRequest(ctx, id, issuer, nil); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("request %d: %v", id, err))
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

// ReturnInput describes one item coming back to the counter.
type ReturnInput struct {
	BorrowedItemID uint
	Condition      string // good, damaged, lost
	Notes          string
	PenaltyAmount  *decimal.Decimal
}

// ProcessReturn closes one borrowing episode: stamps the return, moves the
// instance to its post-return status, writes the ledger and any penalty
// adjustment, folds the outcome into the borrower's analytics and sweeps
// request and batch statuses. One transaction; returning twice conflicts.
func (r *Repo) ProcessReturn(ctx context.Context, in ReturnInput, receiver *models.User) (*models.BorrowedItem, error) {
	switch in.Condition {
	case models.ReturnGood, models.ReturnDamaged, models.ReturnLost:
	default:
		return nil, errf(KindValidation, "unknown return condition %q", in.Condition)
	}

	var item models.BorrowedItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&item, in.BorrowedItemID).Error; err != nil {
			return notFoundOr(err, "borrowed item %d not found", in.BorrowedItemID)
		}
		if item.ReturnedAt != nil {
			return errf(KindStateConflict, "item %d was already returned on %s",
				item.ID, item.ReturnedAt.Format("2006-01-02"))
		}

		now := time.Now().UTC()
		late := now.After(item.ReturnDeadline)
		overdueDays := 0
		if late {
			overdueDays = int(now.Sub(item.ReturnDeadline).Hours() / 24)
		}

		if err := tx.Model(&item).Updates(map[string]interface{}{
			"returned_at":    now,
			"return_status":  in.Condition,
			"return_notes":   in.Notes,
			"received_by_id": receiver.ID,
		}).Error; err != nil {
			return err
		}
		item.ReturnedAt = &now
		item.ReturnStatus = in.Condition
		item.ReturnNotes = in.Notes
		item.ReceivedByID = &receiver.ID

		var inst models.EquipmentInstance
		if err := forUpdate(tx).
			First(&inst, item.InstanceID).Error; err != nil {
			return err
		}
		if err := settleInstance(tx, &item, &inst, in, receiver, now); err != nil {
			return err
		}

		if err := applyReturnAnalytics(tx, item.BorrowerID, late, overdueDays, in.Condition, now); err != nil {
			return err
		}
		if err := sweepRequestCompletion(tx, item.RequestID); err != nil {
			return err
		}

		desc := fmt.Sprintf("Returned %s (%s)", inst.InstanceCode, in.Condition)
		if late {
			desc += fmt.Sprintf(", %d day(s) overdue", overdueDays)
		}
		return auditTx(tx, receiver, models.AuditReturn, "borrow", &item.ID, desc)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// settleInstance moves the returned unit to its post-return status and
// writes the ledger and penalty rows for damage or loss.
func settleInstance(tx *gorm.DB, item *models.BorrowedItem, inst *models.EquipmentInstance, in ReturnInput, receiver *models.User, now time.Time) error {
	updates := map[string]interface{}{"last_returned_at": now}
	txType := models.TxReturn
	switch in.Condition {
	case models.ReturnGood:
		updates["status"] = models.InstanceAvailable
	case models.ReturnDamaged:
		updates["status"] = models.InstanceDamaged
		if in.Notes != "" {
			updates["condition_notes"] = in.Notes
		}
		txType = models.TxDamage
	case models.ReturnLost:
		updates["status"] = models.InstanceLost
		txType = models.TxLoss
	}
	if err := tx.Model(inst).Updates(updates).Error; err != nil {
		return err
	}

	var supply models.Supply
	if err := forUpdate(tx).
		First(&supply, inst.SupplyID).Error; err != nil {
		return err
	}
	prev := supply.Quantity
	next := prev
	if in.Condition == models.ReturnLost {
		// A lost unit leaves the owned count.
		if next > 0 {
			next--
		}
		if err := tx.Model(&supply).Update("quantity", next).Error; err != nil {
			return err
		}
	}
	if err := recordTransaction(tx, &models.InventoryTransaction{
		SupplyID:         supply.ID,
		InstanceID:       &inst.ID,
		TransactionType:  txType,
		Quantity:         quantityDelta(in.Condition),
		PreviousQuantity: prev,
		NewQuantity:      next,
		RequestID:        &item.RequestID,
		BorrowedItemID:   &item.ID,
		Notes:            in.Notes,
		PerformedByID:    &receiver.ID,
		PerformedAt:      now,
	}); err != nil {
		return err
	}

	if in.Condition == models.ReturnDamaged || in.Condition == models.ReturnLost {
		reason := models.AdjustDamage
		if in.Condition == models.ReturnLost {
			reason = models.AdjustLoss
		}
		return tx.Create(&models.StockAdjustment{
			SupplyID:          supply.ID,
			InstanceID:        &inst.ID,
			Reason:            reason,
			Quantity:          -1,
			Description:       in.Notes,
			IsPenalty:         true,
			PenaltyAmount:     in.PenaltyAmount,
			ResponsibleUserID: &item.BorrowerID,
			BorrowedItemID:    &item.ID,
			AdjustedByID:      &receiver.ID,
			AdjustedAt:        now,
		}).Error
	}
	return nil
}

func quantityDelta(condition string) int {
	if condition == models.ReturnLost {
		return -1
	}
	return 1
}

// sweepRequestCompletion recomputes the request status from its borrowed
// items, then propagates across the batch. A sibling with borrowed items is
// complete once every item is back; a sibling with none (a consumable, or a
// request never issued) is complete only if its own status is returned. A
// fully complete batch closes as returned; otherwise still-open issued and
// approved siblings are marked partially returned.
func sweepRequestCompletion(tx *gorm.DB, requestID uint) error {
	var req models.SupplyRequest
	if err := forUpdate(tx).
		First(&req, requestID).Error; err != nil {
		return err
	}

	var open int64
	if err := tx.Model(&models.BorrowedItem{}).
		Where("request_id = ? AND returned_at IS NULL", req.ID).
		Count(&open).Error; err != nil {
		return err
	}
	req.Status = models.RequestReturned
	if open > 0 {
		req.Status = models.RequestPartiallyReturned
	}
	if err := tx.Model(&models.SupplyRequest{}).
		Where("id = ?", req.ID).
		Update("status", req.Status).Error; err != nil {
		return err
	}

	if req.BatchGroupID == nil {
		return nil
	}

	var siblings []models.SupplyRequest
	if err := tx.Where("batch_group_id = ?", *req.BatchGroupID).
		Find(&siblings).Error; err != nil {
		return err
	}
	ids := make([]uint, 0, len(siblings))
	for _, sib := range siblings {
		ids = append(ids, sib.ID)
	}

	type itemTally struct {
		RequestID uint
		Total     int64
		Open      int64
	}
	var tallies []itemTally
	err := tx.Model(&models.BorrowedItem{}).
		Select("request_id, COUNT(*) AS total, SUM(CASE WHEN returned_at IS NULL THEN 1 ELSE 0 END) AS open").
		Where("request_id IN ?", ids).
		Group("request_id").
		Scan(&tallies).Error
	if err != nil {
		return err
	}
	byRequest := make(map[uint]itemTally, len(tallies))
	for _, t := range tallies {
		byRequest[t.RequestID] = t
	}

	allReturned := true
	for _, sib := range siblings {
		status := sib.Status
		if sib.ID == req.ID {
			status = req.Status
		}
		if t, ok := byRequest[sib.ID]; ok && t.Total > 0 {
			if t.Open > 0 {
				allReturned = false
			}
		} else if status != models.RequestReturned {
			allReturned = false
		}
	}

	if allReturned {
		return tx.Model(&models.SupplyRequest{}).
			Where("batch_group_id = ?", *req.BatchGroupID).
			Update("status", models.RequestReturned).Error
	}
	return tx.Model(&models.SupplyRequest{}).
		Where("batch_group_id = ? AND status IN ?", *req.BatchGroupID,
			[]string{models.RequestIssued, models.RequestApproved}).
		Update("status", models.RequestPartiallyReturned).Error
}

// ReturnMany processes a stack of returns at the counter. Partial success.
func (r *Repo) ReturnMany(ctx context.Context, inputs []ReturnInput, receiver *models.User) BatchResult {
	var res BatchResult
	for _, in := range inputs {
		if _, err := r.ProcessReturn(ctx, in, receiver); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("item %d: %v", in.BorrowedItemID, err))
			continue
		}
		res.Succeeded++
	}
	return res
}

// ReturnBatch closes every still-open item across a batch with one shared
// condition. Partial success.
func (r *Repo) ReturnBatch(ctx context.Context, batchID, condition, notes string, receiver *models.User) (BatchResult, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.BorrowedItem{}).
		Joins("JOIN "+models.RequestTable+" sr ON sr.id = "+models.BorrowTable+".request_id").
		Where("sr.batch_group_id = ? AND returned_at IS NULL", batchID).
		Pluck(models.BorrowTable+".id", &ids).Error
	if err != nil {
		return BatchResult{}, err
	}
	if len(ids) == 0 {
		return BatchResult{}, errf(KindNotFound, "no open items in batch %s", batchID)
	}
	inputs := make([]ReturnInput, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, ReturnInput{BorrowedItemID: id, Condition: condition, Notes: notes})
	}
	return r.ReturnMany(ctx, inputs, receiver), nil
}

func (r *Repo) FindBorrowedItemByID(ctx context.Context, id uint) (*models.BorrowedItem, error) {
	var item models.BorrowedItem
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, notFoundOr(err, "borrowed item %d not found", id)
	}
	return &item, nil
}

// FindOpenBorrowByInstance resolves the single open borrow for a scanned
// unit. The partial unique index guarantees at most one.
func (r *Repo) FindOpenBorrowByInstance(ctx context.Context, instanceID uint) (*models.BorrowedItem, error) {
	var item models.BorrowedItem
	err := r.DB.WithContext(ctx).
		Where("instance_id = ? AND returned_at IS NULL", instanceID).
		First(&item).Error
	if err != nil {
		return nil, notFoundOr(err, "instance %d has no open borrow", instanceID)
	}
	return &item, nil
}

type BorrowQuery struct {
	BorrowerID    string
	RequestID     uint
	OverdueOnly   bool
	DueWithinDays int
	OpenOnly      bool
	Page          int
	Size          int
}

func (r *Repo) ListBorrows(ctx context.Context, q BorrowQuery) ([]models.BorrowedItem, int64, error) {
	q.Page, q.Size = clampPage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.BorrowedItem{})
	if q.BorrowerID != "" {
		tx = tx.Where("borrower_id = ?", q.BorrowerID)
	}
	if q.RequestID != 0 {
		tx = tx.Where("request_id = ?", q.RequestID)
	}
	now := time.Now().UTC()
	if q.OpenOnly || q.OverdueOnly || q.DueWithinDays > 0 {
		tx = tx.Where("returned_at IS NULL")
	}
	if q.OverdueOnly {
		tx = tx.Where("return_deadline < ?", now)
	}
	if q.DueWithinDays > 0 {
		tx = tx.Where("return_deadline >= ? AND return_deadline < ?",
			now, now.AddDate(0, 0, q.DueWithinDays))
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.BorrowedItem
	err := tx.Order("return_deadline").
		Offset((q.Page - 1) * q.Size).Limit(q.Size).
		Find(&rows).Error
	return rows, total, err
}

// NotifyDueSoonAndOverdue is the reminder sweep, run from a ticker in main.
// It notifies each borrower about items due within the window and items
// already overdue. Repeat runs re-notify; there is no dedupe window yet.
func (r *Repo) NotifyDueSoonAndOverdue(ctx context.Context, dueWithinDays int) (int, error) {
	now := time.Now().UTC()
	var open []models.BorrowedItem
	err := r.DB.WithContext(ctx).
		Where("returned_at IS NULL AND return_deadline < ?", now.AddDate(0, 0, dueWithinDays)).
		Find(&open).Error
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range open {
		item := &open[i]
		note := models.Notification{
			UserID:         item.BorrowerID,
			Link:           "/borrows",
			BorrowedItemID: &item.ID,
		}
		if now.After(item.ReturnDeadline) {
			note.Kind = models.NotifyItemOverdue
			note.Title = "Item Overdue"
			note.Message = fmt.Sprintf("An item you borrowed is %d day(s) overdue. Return it to lift the request block.", item.OverdueDays())
		} else {
			note.Kind = models.NotifyItemDueSoon
			note.Title = "Return Due Soon"
			note.Message = fmt.Sprintf("An item you borrowed is due on %s.", item.ReturnDeadline.Format("Jan 2, 2006"))
		}
		r.Notifier.Notify(ctx, &note)
		sent++
	}
	return sent, nil
}
