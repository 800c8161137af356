package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal/rbac"
)

type RBACRepository struct {
	db *gorm.DB
}

func NewRBACRepository(db *gorm.DB) *RBACRepository {
	return &RBACRepository{db: db}
}

func (r *RBACRepository) GetRoleByID(id int64) (*rbac.Role, error) {
	var role rbac.Role
	if err := r.db.Where("id = ?", id).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *RBACRepository) GetRoleByName(name string) (*rbac.Role, error) {
	var role rbac.Role
	if err := r.db.Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *RBACRepository) ListRoles() ([]*rbac.Role, error) {
	var roles []*rbac.Role
	if err := r.db.Order("level DESC, name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RBACRepository) ListUserRoles(userID int64) ([]*rbac.UserRole, error) {
	var grants []*rbac.UserRole
	if err := r.db.Where("user_id = ?", userID).Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *RBACRepository) PermissionsForRoles(roleIDs []int64) ([]*rbac.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var perms []*rbac.Permission
	err := r.db.
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id IN ?", roleIDs).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *RBACRepository) AssignRole(ur *rbac.UserRole) error {
	// Reactivate an existing grant for the same pair instead of duplicating it.
	var existing rbac.UserRole
	err := r.db.Where("user_id = ? AND role_id = ?", ur.UserID, ur.RoleID).First(&existing).Error
	if err == nil {
		return r.db.Model(&rbac.UserRole{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"is_active":   true,
				"assigned_by": ur.AssignedBy,
				"assigned_at": ur.AssignedAt,
				"expires_at":  ur.ExpiresAt,
			}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(ur).Error
}

func (r *RBACRepository) RevokeRole(userID, roleID int64) error {
	result := r.db.Model(&rbac.UserRole{}).
		Where("user_id = ? AND role_id = ? AND is_active = true", userID, roleID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}
