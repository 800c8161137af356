package rbac

import (
	"log/slog"
	"sort"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/auth"
)

type RepositoryAPI interface {
	GetRoleByID(id int64) (*Role, error)
	GetRoleByName(name string) (*Role, error)
	ListRoles() ([]*Role, error)
	ListUserRoles(userID int64) ([]*UserRole, error)
	PermissionsForRoles(roleIDs []int64) ([]*Permission, error)
	AssignRole(ur *UserRole) error
	RevokeRole(userID, roleID int64) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// effectiveRoles returns the roles a user currently holds, dropping inactive
// and expired grants.
func (s *Service) effectiveRoles(userID int64) ([]*Role, error) {
	grants, err := s.repo.ListUserRoles(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var roles []*Role
	for _, g := range grants {
		if !g.Effective(now) {
			continue
		}
		role, err := s.repo.GetRoleByID(g.RoleID)
		if err != nil {
			s.logger.Warn("grant references missing role", "role_id", g.RoleID, "user_id", userID)
			continue
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// PermissionsForUser returns the deduplicated union of permissions across all
// of the user's effective roles, flattened for the request context. A user
// with no roles gets an empty set, not an error.
func (s *Service) PermissionsForUser(userID int64) ([]string, error) {
	roles, err := s.effectiveRoles(userID)
	if err != nil {
		s.logger.Error("PermissionsForUser: failed to load roles", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	if len(roles) == 0 {
		return []string{}, nil
	}

	roleIDs := make([]int64, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}

	perms, err := s.repo.PermissionsForRoles(roleIDs)
	if err != nil {
		s.logger.Error("PermissionsForUser: failed to load permissions", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to load permissions", err)
	}

	seen := make(map[string]struct{}, len(perms))
	flattened := make([]string, 0, len(perms))
	for _, p := range perms {
		f := p.Flatten()
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		flattened = append(flattened, f)
	}
	sort.Strings(flattened)
	return flattened, nil
}

// MaxLevelForUser returns the highest level among the user's effective roles,
// zero when the user holds none.
func (s *Service) MaxLevelForUser(userID int64) (int, error) {
	roles, err := s.effectiveRoles(userID)
	if err != nil {
		s.logger.Error("MaxLevelForUser: failed to load roles", "error", err, "user_id", userID)
		return 0, internal.NewInternalError("failed to load roles", err)
	}

	maxLevel := 0
	for _, r := range roles {
		if r.Level > maxLevel {
			maxLevel = r.Level
		}
	}
	return maxLevel, nil
}

// HasPermission checks a single resource/action pair for a user.
func (s *Service) HasPermission(userID int64, resource, action string) (bool, error) {
	perms, err := s.PermissionsForUser(userID)
	if err != nil {
		return false, err
	}

	want := auth.PermissionString(resource, action)
	for _, p := range perms {
		if p == auth.PermissionWildcard || p == want {
			return true, nil
		}
	}
	return false, nil
}

// CanAccessOwned decides whether the actor may operate on a record owned by
// another user. Owners always may; otherwise manager level is required.
func CanAccessOwned(actor *auth.User, ownerID int64) bool {
	if actor == nil {
		return false
	}
	if actor.ID == ownerID {
		return true
	}
	return actor.IsManager()
}

// ListRoles returns all defined roles.
func (s *Service) ListRoles() ([]*Role, error) {
	roles, err := s.repo.ListRoles()
	if err != nil {
		s.logger.Error("ListRoles: failed", "error", err)
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return roles, nil
}

// RolesForUser returns the user's effective roles.
func (s *Service) RolesForUser(userID int64) ([]*Role, error) {
	return s.effectiveRoles(userID)
}

// AssignRole grants a role to a user, optionally with an expiry.
func (s *Service) AssignRole(dto AssignRoleDTO, actor int64) (*UserRole, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role, err := s.repo.GetRoleByName(dto.RoleName)
	if err != nil {
		return nil, ErrRoleNotFound
	}

	grant := &UserRole{
		UserID:     dto.UserID,
		RoleID:     role.ID,
		AssignedBy: &actor,
		AssignedAt: time.Now(),
		ExpiresAt:  dto.ExpiresAt,
		IsActive:   true,
	}

	if err := s.repo.AssignRole(grant); err != nil {
		s.logger.Error("AssignRole: failed", "error", err, "user_id", dto.UserID, "role", dto.RoleName)
		return nil, internal.NewInternalError("failed to assign role", err)
	}

	s.logger.Info("role assigned", "user_id", dto.UserID, "role", dto.RoleName, "assigned_by", actor)
	return grant, nil
}

// RevokeRole removes a role grant from a user.
func (s *Service) RevokeRole(userID int64, roleName string, actor int64) error {
	role, err := s.repo.GetRoleByName(roleName)
	if err != nil {
		return ErrRoleNotFound
	}

	if err := s.repo.RevokeRole(userID, role.ID); err != nil {
		s.logger.Error("RevokeRole: failed", "error", err, "user_id", userID, "role", roleName)
		return internal.NewInternalError("failed to revoke role", err)
	}

	s.logger.Info("role revoked", "user_id", userID, "role", roleName, "revoked_by", actor)
	return nil
}
