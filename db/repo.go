package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gso_supply_tracker/models"
)

// Notifier delivers in-app notifications. Workflow methods call it after
// their transaction commits; failures are logged by the implementation and
// never surface into the workflow result.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
	NotifyStaff(ctx context.Context, n models.Notification)
}

type Repo struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewRepo(conn *gorm.DB) *Repo {
	r := &Repo{DB: conn}
	r.Notifier = &dbNotifier{db: conn}
	return r
}

// Users

func (r *Repo) RegisterUser(ctx context.Context, username, displayName string, departmentID *uint) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errf(KindValidation, "username is required")
	}
	if displayName == "" {
		displayName = username
	}
	u := &models.User{
		ID:             uuid.NewString(),
		Username:       username,
		DisplayName:    displayName,
		Role:           models.RoleMember,
		ApprovalStatus: models.ApprovalPending,
		DepartmentID:   departmentID,
	}
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// ApproveUser flips a pending account to approved and tells the user.
func (r *Repo) ApproveUser(ctx context.Context, userID string, approver *models.User) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return notFoundOr(err, "user %s not found", userID)
		}
		if u.ApprovalStatus != models.ApprovalPending {
			return errf(KindStateConflict, "account of %s is already %s", u.Username, u.ApprovalStatus)
		}
		if err := tx.Model(&u).Update("approval_status", models.ApprovalApproved).Error; err != nil {
			return err
		}
		u.ApprovalStatus = models.ApprovalApproved
		return auditTx(tx, approver, models.AuditApprove, "user", nil,
			"Approved account "+u.Username)
	})
	if err != nil {
		return nil, err
	}
	r.Notifier.Notify(ctx, &models.Notification{
		UserID:  u.ID,
		Kind:    models.NotifyAccountApproved,
		Title:   "Account Approved",
		Message: "Welcome! Your account has been approved. You can now start making supply requests.",
		Link:    "/",
	})
	return &u, nil
}

func (r *Repo) RejectUser(ctx context.Context, userID string, approver *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return notFoundOr(err, "user %s not found", userID)
		}
		if u.ApprovalStatus != models.ApprovalPending {
			return errf(KindStateConflict, "account of %s is already %s", u.Username, u.ApprovalStatus)
		}
		if err := tx.Model(&u).Update("approval_status", models.ApprovalRejected).Error; err != nil {
			return err
		}
		return auditTx(tx, approver, models.AuditReject, "user", nil,
			"Rejected account "+u.Username)
	})
}

func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user %s not found", id)
	}
	return &u, nil
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFoundOr(err, "user %q not found", username)
	}
	return &u, nil
}

func (r *Repo) TouchUserLogin(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": time.Now().UTC(),
			"last_seen_at":  time.Now().UTC(),
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
		}).Error
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", time.Now().UTC()).Error
}

type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q, status string, page, size int) (ListUsersResult, error) {
	page, size = clampPage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}
	if status != "" {
		tx = tx.Where("approval_status = ?", status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}
	var users []models.User
	if err := tx.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

// SetUserRole changes a user's role. Admin-only at the route layer.
func (r *Repo) SetUserRole(ctx context.Context, userID, role string, actor *models.User) error {
	switch role {
	case models.RoleAdmin, models.RoleStaff, models.RoleMember:
	default:
		return errf(KindValidation, "unknown role %q", role)
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return notFoundOr(err, "user %s not found", userID)
		}
		if err := tx.Model(&u).Update("role", role).Error; err != nil {
			return err
		}
		return auditTx(tx, actor, models.AuditUpdate, "user", nil,
			"Set role of "+u.Username+" to "+role)
	})
}

// PromoteToAdmin force-approves and promotes in one step. Bootstrap path.
func (r *Repo) PromoteToAdmin(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"role":            models.RoleAdmin,
			"approval_status": models.ApprovalApproved,
		}).Error
}

func (r *Repo) FindOrCreateUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.RegisterUser(ctx, username, username, nil)
	}
	return &u, err
}

// Departments

func (r *Repo) CreateDepartment(ctx context.Context, d *models.Department) error {
	if strings.TrimSpace(d.Code) == "" || strings.TrimSpace(d.Name) == "" {
		return errf(KindValidation, "department code and name are required")
	}
	d.IsActive = true
	return r.DB.WithContext(ctx).Create(d).Error
}

func (r *Repo) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var ds []models.Department
	err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&ds).Error
	return ds, err
}

func clampPage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	return page, size
}
