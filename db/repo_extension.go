package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gso_supply_tracker/models"
)

// RequestExtension asks for more days on an open borrow. Only the borrower
// may ask, the item must still be out, and only one pending extension may
// exist per item (backed by a partial unique index).
func (r *Repo) RequestExtension(ctx context.Context, borrowedItemID uint, days int, reason string, requester *models.User) (*models.ExtensionRequest, error) {
	if days <= 0 {
		return nil, errf(KindValidation, "requested days must be positive")
	}
	var ext models.ExtensionRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.BorrowedItem
		if err := forUpdate(tx).
			First(&item, borrowedItemID).Error; err != nil {
			return notFoundOr(err, "borrowed item %d not found", borrowedItemID)
		}
		if item.BorrowerID != requester.ID {
			return errf(KindPermissionDenied, "only the borrower can request an extension")
		}
		if item.ReturnedAt != nil {
			return errf(KindStateConflict, "item %d has already been returned", item.ID)
		}

		var pending int64
		if err := tx.Model(&models.ExtensionRequest{}).
			Where("borrowed_item_id = ? AND status = ?", item.ID, models.ExtensionPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errf(KindStateConflict, "an extension for item %d is already pending", item.ID)
		}

		ext = models.ExtensionRequest{
			BorrowedItemID:   item.ID,
			RequestedDays:    days,
			Reason:           reason,
			OriginalDeadline: item.ReturnDeadline,
			Status:           models.ExtensionPending,
			RequestedByID:    requester.ID,
		}
		if err := tx.Create(&ext).Error; err != nil {
			return err
		}
		return auditTx(tx, requester, models.AuditCreate, "extension", &ext.ID,
			fmt.Sprintf("Requested %d more day(s) on item %d", days, item.ID))
	})
	if err != nil {
		return nil, err
	}
	r.Notifier.NotifyStaff(ctx, models.Notification{
		Kind:           models.NotifyNewRequest,
		Title:          "Extension Requested",
		Message:        fmt.Sprintf("%s asked for %d more day(s) on a borrowed item.", requester.DisplayName, days),
		Link:           "/extensions/pending",
		BorrowedItemID: &borrowedItemID,
	})
	return &ext, nil
}

// ApproveExtension grants OriginalDeadline + RequestedDays. The granted
// deadline does not depend on when the review happens.
func (r *Repo) ApproveExtension(ctx context.Context, id uint, reviewer *models.User, notes string) (*models.ExtensionRequest, error) {
	var ext models.ExtensionRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&ext, id).Error; err != nil {
			return notFoundOr(err, "extension %d not found", id)
		}
		if ext.Status != models.ExtensionPending {
			return errf(KindStateConflict, "extension %d is %s, not pending", ext.ID, ext.Status)
		}

		var item models.BorrowedItem
		if err := forUpdate(tx).
			First(&item, ext.BorrowedItemID).Error; err != nil {
			return err
		}
		if item.ReturnedAt != nil {
			return errf(KindStateConflict, "item %d has already been returned", item.ID)
		}

		now := time.Now().UTC()
		newDeadline := ext.OriginalDeadline.AddDate(0, 0, ext.RequestedDays)
		if err := tx.Model(&item).Update("return_deadline", newDeadline).Error; err != nil {
			return err
		}
		if err := tx.Model(&ext).Updates(map[string]interface{}{
			"status":         models.ExtensionApproved,
			"new_deadline":   newDeadline,
			"reviewed_by_id": reviewer.ID,
			"reviewed_at":    now,
			"review_notes":   notes,
		}).Error; err != nil {
			return err
		}
		ext.Status = models.ExtensionApproved
		ext.NewDeadline = &newDeadline
		ext.ReviewedByID = &reviewer.ID
		ext.ReviewedAt = &now
		ext.ReviewNotes = notes

		return auditTx(tx, reviewer, models.AuditApprove, "extension", &ext.ID,
			fmt.Sprintf("Extended item %d to %s", item.ID, newDeadline.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}
	r.Notifier.Notify(ctx, &models.Notification{
		UserID:         ext.RequestedByID,
		Kind:           models.NotifyExtensionApproved,
		Title:          "Extension Approved",
		Message:        fmt.Sprintf("Your extension was approved. New deadline: %s.", ext.NewDeadline.Format("Jan 2, 2006")),
		Link:           "/borrows",
		BorrowedItemID: &ext.BorrowedItemID,
	})
	return &ext, nil
}

// RejectExtension declines the ask; the deadline stands.
func (r *Repo) RejectExtension(ctx context.Context, id uint, reviewer *models.User, notes string) (*models.ExtensionRequest, error) {
	var ext models.ExtensionRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&ext, id).Error; err != nil {
			return notFoundOr(err, "extension %d not found", id)
		}
		if ext.Status != models.ExtensionPending {
			return errf(KindStateConflict, "extension %d is %s, not pending", ext.ID, ext.Status)
		}
		now := time.Now().UTC()
		if err := tx.Model(&ext).Updates(map[string]interface{}{
			"status":         models.ExtensionRejected,
			"reviewed_by_id": reviewer.ID,
			"reviewed_at":    now,
			"review_notes":   notes,
		}).Error; err != nil {
			return err
		}
		ext.Status = models.ExtensionRejected
		ext.ReviewedByID = &reviewer.ID
		ext.ReviewedAt = &now
		ext.ReviewNotes = notes
		return auditTx(tx, reviewer, models.AuditReject, "extension", &ext.ID,
			fmt.Sprintf("Rejected extension on item %d", ext.BorrowedItemID))
	})
	if err != nil {
		return nil, err
	}
	r.Notifier.Notify(ctx, &models.Notification{
		UserID:         ext.RequestedByID,
		Kind:           models.NotifyExtensionRejected,
		Title:          "Extension Rejected",
		Message:        fmt.Sprintf("Your extension was rejected. The deadline remains %s.", ext.OriginalDeadline.Format("Jan 2, 2006")),
		Link:           "/borrows",
		BorrowedItemID: &ext.BorrowedItemID,
	})
	return &ext, nil
}

func (r *Repo) ListExtensions(ctx context.Context, status, requesterID string, page, size int) ([]models.ExtensionRequest, int64, error) {
	page, size = clampPage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.ExtensionRequest{})
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	if requesterID != "" {
		tx = tx.Where("requested_by_id = ?", requesterID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ExtensionRequest
	err := tx.Order("created_at").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	return rows, total, err
}
