package user

import (
	"log/slog"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/rbac"
)

type RepositoryAPI interface {
	Create(u *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	List(filter ListFilter) ([]*User, error)
	Update(u *User) error
	UpdatePassword(id int64, passwordHash string) error
	SoftDelete(id int64) error
}

// RoleAssigner grants the initial role when a user is created.
type RoleAssigner interface {
	AssignRole(dto rbac.AssignRoleDTO, actor int64) (*rbac.UserRole, error)
}

// SessionInvalidator terminates all of a user's sessions after a password
// change or deactivation.
type SessionInvalidator interface {
	InvalidateAll(userID int64) error
}

type Service struct {
	repo       RepositoryAPI
	roles      RoleAssigner
	sessions   SessionInvalidator
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, roles RoleAssigner, sessions SessionInvalidator, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		roles:      roles,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// CreateUser registers a user and grants their starting role.
func (s *Service) CreateUser(dto CreateUserDTO, actor int64) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, internal.NewConflictError("a user with this email already exists", internal.ErrCodeDuplicateEmail)
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("CreateUser: failed to hash password", "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	now := time.Now()
	u := &User{
		Email:        dto.Email,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		PasswordHash: hash,
		Territory:    dto.Territory,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("CreateUser: failed to persist", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	if _, err := s.roles.AssignRole(rbac.AssignRoleDTO{UserID: u.ID, RoleName: dto.RoleName}, actor); err != nil {
		s.logger.Error("CreateUser: failed to assign role", "error", err, "user_id", u.ID, "role", dto.RoleName)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "email", u.Email, "role", dto.RoleName, "created_by", actor)
	return u, nil
}

func (s *Service) GetUser(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) ListUsers(filter ListFilter) ([]*User, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	users, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("ListUsers: failed", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}
	return users, nil
}

func (s *Service) UpdateUser(id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.Territory != nil {
		u.Territory = *dto.Territory
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("UpdateUser: failed", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return u, nil
}

// ChangePassword verifies the current password, stores the new hash and kills
// every session the user has so stolen tokens stop working.
func (s *Service) ChangePassword(id int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return ErrNotFound
	}

	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return internal.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		s.logger.Error("ChangePassword: failed to hash password", "error", err, "user_id", id)
		return internal.NewInternalError("failed to change password", err)
	}

	if err := s.repo.UpdatePassword(id, hash); err != nil {
		s.logger.Error("ChangePassword: failed to persist", "error", err, "user_id", id)
		return internal.NewInternalError("failed to change password", err)
	}

	if err := s.sessions.InvalidateAll(id); err != nil {
		s.logger.Warn("ChangePassword: failed to invalidate sessions", "error", err, "user_id", id)
	}

	s.logger.Info("password changed", "user_id", id)
	return nil
}

// DeactivateUser disables login and terminates active sessions. Records owned
// by the user stay in place.
func (s *Service) DeactivateUser(id int64, actor int64) error {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return ErrNotFound
	}

	u.Deactivate()
	if err := s.repo.Update(u); err != nil {
		s.logger.Error("DeactivateUser: failed", "error", err, "user_id", id)
		return internal.NewInternalError("failed to deactivate user", err)
	}

	if err := s.sessions.InvalidateAll(id); err != nil {
		s.logger.Warn("DeactivateUser: failed to invalidate sessions", "error", err, "user_id", id)
	}

	s.logger.Info("user deactivated", "user_id", id, "deactivated_by", actor)
	return nil
}
