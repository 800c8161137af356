package rbac

import (
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/auth"
)

var (
	ErrRoleNotFound     = internal.ErrRoleNotFound
	ErrPermissionDenied = internal.ErrPermissionDenied
)

// Built-in role names. Levels come from the auth package so middleware and
// services agree on what "manager or above" means.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleSalesRep = "sales_rep"
)

// Wildcard resource/action. A permission row of ("*", "*") grants everything.
const Wildcard = "*"

// Resources that permissions are granted against.
const (
	ResourceOrganizations = "organizations"
	ResourceContacts      = "contacts"
	ResourceInteractions  = "interactions"
	ResourceOpportunities = "opportunities"
	ResourceProducts      = "products"
	ResourceReports       = "reports"
	ResourceUsers         = "users"
)

const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

type Role struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"uniqueIndex"`
	Level       int       `json:"level"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Role) TableName() string {
	return "roles"
}

type Permission struct {
	ID       int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (Permission) TableName() string {
	return "permissions"
}

// Flatten renders the permission in the "resource:action" form carried on the
// request context. The full wildcard collapses to a single "*".
func (p Permission) Flatten() string {
	if p.Resource == Wildcard {
		return auth.PermissionWildcard
	}
	return auth.PermissionString(p.Resource, p.Action)
}

type RolePermission struct {
	RoleID       int64 `gorm:"column:role_id"`
	PermissionID int64 `gorm:"column:permission_id"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// UserRole is a role grant. Grants can expire and can be switched off without
// deleting the row; expired or inactive grants confer nothing.
type UserRole struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     int64      `json:"user_id" gorm:"column:user_id;index"`
	RoleID     int64      `json:"role_id" gorm:"column:role_id"`
	AssignedBy *int64     `json:"assigned_by,omitempty" gorm:"column:assigned_by"`
	AssignedAt time.Time  `json:"assigned_at" gorm:"column:assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	IsActive   bool       `json:"is_active" gorm:"column:is_active"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// Effective reports whether the grant currently confers its role.
func (ur *UserRole) Effective(now time.Time) bool {
	if !ur.IsActive {
		return false
	}
	if ur.ExpiresAt != nil && !now.Before(*ur.ExpiresAt) {
		return false
	}
	return true
}

// LevelForRole maps a built-in role name to its level. Unknown roles sit at
// the bottom.
func LevelForRole(name string) int {
	switch name {
	case RoleAdmin:
		return auth.LevelAdmin
	case RoleManager:
		return auth.LevelManager
	case RoleSalesRep:
		return auth.LevelSalesRep
	default:
		return 0
	}
}
