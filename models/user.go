package models

import "time"

const UserTable = "gso_users"
const DepartmentTable = "gso_departments"

// Roles. Staff process requests and manage stock, members only request.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleMember = "member"
)

// Account approval states. New registrations start pending.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	DisplayName string `gorm:"size:255;not null" json:"displayName"`

	Role           string `gorm:"size:20;not null;default:'member'" json:"role"`
	ApprovalStatus string `gorm:"size:20;not null;default:'pending'" json:"approvalStatus"`
	DepartmentID   *uint  `gorm:"index" json:"departmentId,omitempty"`
	Phone          string `gorm:"size:20" json:"phone,omitempty"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Department) TableName() string { return DepartmentTable }
func (User) TableName() string       { return UserTable }

func (u *User) IsApproved() bool { return u.ApprovalStatus == ApprovalApproved }

// IsStaff reports whether the user may process requests and mutate stock.
func (u *User) IsStaff() bool { return u.Role == RoleStaff || u.Role == RoleAdmin }
