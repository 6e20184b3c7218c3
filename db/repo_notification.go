package db

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"gso_supply_tracker/models"
)

// dbNotifier writes notifications outside any workflow transaction.
// Failures are logged and dropped; the workflow already committed.
type dbNotifier struct{ db *gorm.DB }

func (n *dbNotifier) Notify(ctx context.Context, note *models.Notification) {
	if err := n.db.WithContext(ctx).Create(note).Error; err != nil {
		log.Printf("notify %s to %s failed: %v", note.Kind, note.UserID, err)
	}
}

// NotifyStaff fans one notification out to every approved staff account.
func (n *dbNotifier) NotifyStaff(ctx context.Context, note models.Notification) {
	var staff []models.User
	err := n.db.WithContext(ctx).
		Where("role IN ? AND approval_status = ?",
			[]string{models.RoleStaff, models.RoleAdmin}, models.ApprovalApproved).
		Find(&staff).Error
	if err != nil {
		log.Printf("notify staff (%s) failed: %v", note.Kind, err)
		return
	}
	for _, u := range staff {
		out := note
		out.UserID = u.ID
		n.Notify(ctx, &out)
	}
}

// NopNotifier discards everything. For tests.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, n *models.Notification)     {}
func (NopNotifier) NotifyStaff(ctx context.Context, n models.Notification) {}

func (r *Repo) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page, size int) ([]models.Notification, int64, error) {
	page, size = clampPage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Notification
	err := tx.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repo) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (r *Repo) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errf(KindNotFound, "no unread notification %d", id)
	}
	return nil
}

func (r *Repo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
