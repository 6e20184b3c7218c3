package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gso_supply_tracker/models"
)

// CreateRequestInput is one line item. Either a consumable ask for Quantity
// of SupplyID, or an equipment ask optionally pinned to InstanceID.
type CreateRequestInput struct {
	SupplyID   uint
	InstanceID *uint
	Quantity   int
	Purpose    string
	Priority   string
	NeededBy   *time.Time
}

// BatchResult is the partial-success report for batch operations: each item
// is attempted independently, never an all-or-nothing rollback across the
// batch.
type BatchResult struct {
	Succeeded int      `json:"succeeded"`
	Errors    []string `json:"errors,omitempty"`
}

// nextRequestCode allocates REQ-YYYYMMDD-NNNN from the per-day counter row,
// locked for update so concurrent creations cannot mint the same code.
func nextRequestCode(tx *gorm.DB, now time.Time) (string, error) {
	day := now.Format("20060102")

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RequestCounter{Day: day, Seq: 0}).Error; err != nil {
		return "", err
	}
	var counter models.RequestCounter
	if err := forUpdate(tx).
		First(&counter, "day = ?", day).Error; err != nil {
		return "", err
	}
	counter.Seq++
	if err := tx.Model(&counter).Update("seq", counter.Seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("REQ-%s-%04d", day, counter.Seq), nil
}

// hasOverdueItems reports whether the user is holding anything past its
// deadline. An overdue item blocks all new requests system-wide.
func hasOverdueItems(tx *gorm.DB, userID string, now time.Time) (bool, error) {
	var n int64
	err := tx.Model(&models.BorrowedItem{}).
		Where("borrower_id = ? AND returned_at IS NULL AND return_deadline < ?", userID, now).
		Count(&n).Error
	return n > 0, err
}

func validPriority(p string) bool {
	switch p {
	case models.PriorityLow, models.PriorityNormal, models.PriorityHigh, models.PriorityUrgent:
		return true
	}
	return false
}

// createRequestTx builds one request row inside an open transaction. Shared
// by the single and batch create paths.
func createRequestTx(tx *gorm.DB, requester *models.User, in CreateRequestInput, batchID *string, now time.Time) (*models.SupplyRequest, error) {
	if in.Quantity <= 0 {
		return nil, errf(KindValidation, "quantity must be positive")
	}
	if strings.TrimSpace(in.Purpose) == "" {
		return nil, errf(KindValidation, "purpose is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}
	if !validPriority(in.Priority) {
		return nil, errf(KindValidation, "unknown priority %q", in.Priority)
	}

	var supply models.Supply
	if err := tx.First(&supply, "id = ? AND is_active = ?", in.SupplyID, true).Error; err != nil {
		return nil, notFoundOr(err, "supply %d not found", in.SupplyID)
	}
	if in.InstanceID != nil {
		var inst models.EquipmentInstance
		if err := tx.First(&inst, "id = ? AND is_active = ?", *in.InstanceID, true).Error; err != nil {
			return nil, notFoundOr(err, "instance %d not found", *in.InstanceID)
		}
		if inst.SupplyID != supply.ID {
			return nil, errf(KindValidation, "instance %s does not belong to %s", inst.InstanceCode, supply.Name)
		}
	}

	code, err := nextRequestCode(tx, now)
	if err != nil {
		return nil, err
	}

	req := &models.SupplyRequest{
		RequestCode:         code,
		BatchGroupID:        batchID,
		RequesterID:         requester.ID,
		SupplyID:            supply.ID,
		RequestedInstanceID: in.InstanceID,
		Quantity:            in.Quantity,
		Purpose:             in.Purpose,
		Priority:            in.Priority,
		Status:              models.RequestPending,
		NeededBy:            in.NeededBy,
	}
	if err := tx.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// CreateRequest submits a single request. Fails with an overdue block if
// the requester is still holding overdue items.
func (r *Repo) CreateRequest(ctx context.Context, requester *models.User, in CreateRequestInput) (*models.SupplyRequest, error) {
	var req *models.SupplyRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		blocked, err := hasOverdueItems(tx, requester.ID, now)
		if err != nil {
			return err
		}
		if blocked {
			return errf(KindOverdueBlock, "you have overdue items; return them before making new requests")
		}
		req, err = createRequestTx(tx, requester, in, nil, now)
		if err != nil {
			return err
		}
		if err := bumpRequestAnalytics(tx, requester.ID, 1, now); err != nil {
			return err
		}
		return auditTx(tx, requester, models.AuditCreate, "request", &req.ID,
			"Created supply request "+req.RequestCode)
	})
	if err != nil {
		return nil, err
	}
	r.Notifier.NotifyStaff(ctx, models.Notification{
		Kind:      models.NotifyNewRequest,
		Title:     "New Request",
		Message:   fmt.Sprintf("New %s priority request %s from %s.", req.Priority, req.RequestCode, requester.DisplayName),
		Link:      "/requests/pending",
		RequestID: &req.ID,
	})
	return req, nil
}

// CreateBatch submits several line items under one batch group id. The
// create itself is atomic; later approval/issue/return act per item.
func (r *Repo) CreateBatch(ctx context.Context, requester *models.User, items []CreateRequestInput) ([]models.SupplyRequest, error) {
	if len(items) == 0 {
		return nil, errf(KindValidation, "select at least one item")
	}
	batchID := uuid.NewString()
	var created []models.SupplyRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		blocked, err := hasOverdueItems(tx, requester.ID, now)
		if err != nil {
			return err
		}
		if blocked {
			return errf(KindOverdueBlock, "you have overdue items; return them before making new requests")
		}
		for _, in := range items {
			req, err := createRequestTx(tx, requester, in, &batchID, now)
			if err != nil {
				return err
			}
			created = append(created, *req)
		}
		if err := bumpRequestAnalytics(tx, requester.ID, len(created), now); err != nil {
			return err
		}
		first := created[0]
		return auditTx(tx, requester, models.AuditCreate, "request", &first.ID,
			fmt.Sprintf("Created batch of %d requests (%s)", len(created), batchID))
	})
	if err != nil {
		return nil, err
	}
	first := created[0]
	r.Notifier.NotifyStaff(ctx, models.Notification{
		Kind:      models.NotifyNewRequest,
		Title:     "New Batch Request",
		Message:   fmt.Sprintf("New batch of %d items from %s (ref %s).", len(created), requester.DisplayName, first.RequestCode),
		Link:      "/requests/pending",
		RequestID: &first.ID,
	})
	return created, nil
}

// ApproveRequest moves pending -> approved. Any other starting state is a
// conflict, including re-approving.
func (r *Repo) ApproveRequest(ctx context.Context, id uint, reviewer *models.User, notes string) (*models.SupplyRequest, error) {
	req, err := r.reviewRequest(ctx, id, reviewer, notes, models.RequestApproved)
	if err != nil {
		return nil, err
	}
	r.Notifier.Notify(ctx, &models.Notification{
		UserID:    req.RequesterID,
		Kind:      models.NotifyRequestApproved,
		Title:     "Request Approved",
		Message:   fmt.Sprintf("Your request %s has been approved. Please proceed to the supply office for pickup.", req.RequestCode),
		Link:      fmt.Sprintf("/requests/%d", req.ID),
		RequestID: &req.ID,
	})
	return req, nil
}

// RejectRequest moves pending -> rejected. Terminal.
func (r *Repo) RejectRequest(ctx context.Context, id uint, reviewer *models.User, notes string) (*models.SupplyRequest, error) {
	req, err := r.reviewRequest(ctx, id, reviewer, notes, models.RequestRejected)
	if err != nil {
		return nil, err
	}
	reason := req.ReviewNotes
	if reason == "" {
		reason = "No reason provided."
	}
	r.Notifier.Notify(ctx, &models.Notification{
		UserID:    req.RequesterID,
		Kind:      models.NotifyRequestRejected,
		Title:     "Request Rejected",
		Message:   fmt.Sprintf("Your request %s has been rejected. Reason: %s", req.RequestCode, reason),
		Link:      fmt.Sprintf("/requests/%d", req.ID),
		RequestID: &req.ID,
	})
	return req, nil
}

func (r *Repo) reviewRequest(ctx context.Context, id uint, reviewer *models.User, notes, target string) (*models.SupplyRequest, error) {
	var req models.SupplyRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&req, id).Error; err != nil {
			return notFoundOr(err, "request %d not found", id)
		}
		if req.Status != models.RequestPending {
			return errf(KindStateConflict, "request %s is %s, not pending", req.RequestCode, req.Status)
		}
		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":         target,
			"reviewed_by_id": reviewer.ID,
			"reviewed_at":    now,
			"review_notes":   notes,
		}
		if err := tx.Model(&req).Updates(updates).Error; err != nil {
			return err
		}
		req.Status = target
		req.ReviewedByID = &reviewer.ID
		req.ReviewedAt = &now
		req.ReviewNotes = notes

		action, field, verb := models.AuditApprove, "approved_requests", "Approved"
		if target == models.RequestRejected {
			action, field, verb = models.AuditReject, "rejected_requests", "Rejected"
		}
		if err := bumpAnalyticsCounter(tx, req.RequesterID, field, now); err != nil {
			return err
		}
		return auditTx(tx, reviewer, action, "request", &req.ID,
			fmt.Sprintf("%s request %s", verb, req.RequestCode))
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CancelRequest lets the requester withdraw a pending or approved request.
func (r *Repo) CancelRequest(ctx context.Context, id uint, actor *models.User) (*models.SupplyRequest, error) {
	var req models.SupplyRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&req, id).Error; err != nil {
			return notFoundOr(err, "request %d not found", id)
		}
		if req.RequesterID != actor.ID && !actor.IsStaff() {
			return errf(KindPermissionDenied, "only the requester can cancel %s", req.RequestCode)
		}
		if req.Status != models.RequestPending && req.Status != models.RequestApproved {
			return errf(KindStateConflict, "request %s is %s and can no longer be cancelled", req.RequestCode, req.Status)
		}
		if err := tx.Model(&req).Update("status", models.RequestCancelled).Error; err != nil {
			return err
		}
		req.Status = models.RequestCancelled
		now := time.Now().UTC()
		if err := bumpAnalyticsCounter(tx, req.RequesterID, "cancelled_requests", now); err != nil {
			return err
		}
		return auditTx(tx, actor, models.AuditCancel, "request", &req.ID,
			"Cancelled request "+req.RequestCode)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ApproveBatch approves every pending sibling in the batch. Partial
// success: a sibling that cannot be approved is reported, not fatal.
func (r *Repo) ApproveBatch(ctx context.Context, batchID string, reviewer *models.User, notes string) (BatchResult, error) {
	return r.reviewBatch(ctx, batchID, reviewer, notes, true)
}

func (r *Repo) RejectBatch(ctx context.Context, batchID string, reviewer *models.User, notes string) (BatchResult, error) {
	return r.reviewBatch(ctx, batchID, reviewer, notes, false)
}

func (r *Repo) reviewBatch(ctx context.Context, batchID string, reviewer *models.User, notes string, approve bool) (BatchResult, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.SupplyRequest{}).
		Where("batch_group_id = ? AND status = ?", batchID, models.RequestPending).
		Pluck("id", &ids).Error
	if err != nil {
		return BatchResult{}, err
	}
	if len(ids) == 0 {
		return BatchResult{}, errf(KindNotFound, "no pending requests in batch %s", batchID)
	}
	var res BatchResult
	for _, id := range ids {
		var opErr error
		if approve {
			_, opErr = r.ApproveRequest(ctx, id, reviewer, notes)
		} else {
			_, opErr = r.RejectRequest(ctx, id, reviewer, notes)
		}
		if opErr != nil {
			res.Errors = append(res.Errors, opErr.Error())
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

// ReviewMany applies approve/reject to an arbitrary id list (the staff
// multi-select path), collecting per-item errors.
func (r *Repo) ReviewMany(ctx context.Context, ids []uint, reviewer *models.User, notes string, approve bool) BatchResult {
	var res BatchResult
	for _, id := range ids {
		var opErr error
		if approve {
			_, opErr = r.ApproveRequest(ctx, id, reviewer, notes)
		} else {
			_, opErr = r.RejectRequest(ctx, id, reviewer, notes)
		}
		if opErr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("request %d: %v", id, opErr))
			continue
		}
		res.Succeeded++
	}
	return res
}

func (r *Repo) FindRequestByID(ctx context.Context, id uint) (*models.SupplyRequest, error) {
	var req models.SupplyRequest
	if err := r.DB.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, notFoundOr(err, "request %d not found", id)
	}
	return &req, nil
}

func (r *Repo) ListBatchRequests(ctx context.Context, batchID string) ([]models.SupplyRequest, error) {
	var rows []models.SupplyRequest
	err := r.DB.WithContext(ctx).
		Where("batch_group_id = ?", batchID).
		Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errf(KindNotFound, "batch %s not found", batchID)
	}
	return rows, nil
}

type RequestQuery struct {
	RequesterID string
	Status      string
	Priority    string
	Page        int
	Size        int
}

func (r *Repo) ListRequests(ctx context.Context, q RequestQuery) ([]models.SupplyRequest, int64, error) {
	q.Page, q.Size = clampPage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.SupplyRequest{})
	if q.RequesterID != "" {
		tx = tx.Where("requester_id = ?", q.RequesterID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Priority != "" {
		tx = tx.Where("priority = ?", q.Priority)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.SupplyRequest
	err := tx.Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).Limit(q.Size).
		Find(&rows).Error
	return rows, total, err
}
