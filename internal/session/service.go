package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/krwhynot/pantry-crm/internal"
)

type RepositoryAPI interface {
	Create(s *Session) error
	GetByID(id string) (*Session, error)
	ListByUser(userID int64) ([]*Session, error)
	CountActiveByUser(userID int64) (int64, error)
	Touch(id string, at time.Time) error
	Rotate(oldID, newID string, expiresAt time.Time, at time.Time) error
	Invalidate(id string, at time.Time) error
	InvalidateAllForUser(userID int64, at time.Time) error
	OldestActiveForUser(userID int64) (*Session, error)
	DeleteExpiredBefore(cutoff time.Time) (int64, error)
}

type Config struct {
	TTL             time.Duration
	MaxPerUser      int
	RotateOnRefresh bool
	EnforceIPMatch  bool
}

type Service struct {
	repo   RepositoryAPI
	cfg    Config
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, cfg Config, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 5
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// Create opens a new session for the user. When the user is already at the
// per-user cap the least recently active session is invalidated to make room.
func (s *Service) Create(userID int64, ipAddress, userAgent string) (*Session, error) {
	now := time.Now()

	count, err := s.repo.CountActiveByUser(userID)
	if err != nil {
		s.logger.Error("Create: failed to count sessions", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to create session", err)
	}

	for count >= int64(s.cfg.MaxPerUser) {
		oldest, err := s.repo.OldestActiveForUser(userID)
		if err != nil {
			s.logger.Error("Create: failed to find oldest session", "error", err, "user_id", userID)
			return nil, internal.NewInternalError("failed to create session", err)
		}
		if err := s.repo.Invalidate(oldest.ID, now); err != nil {
			s.logger.Error("Create: failed to evict session", "error", err, "session_id", oldest.ID)
			return nil, internal.NewInternalError("failed to create session", err)
		}
		s.logger.Info("evicted least recently active session", "user_id", userID, "session_id", oldest.ID)
		count--
	}

	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(s.cfg.TTL),
	}

	if err := s.repo.Create(sess); err != nil {
		s.logger.Error("Create: failed to persist session", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to create session", err)
	}

	return sess, nil
}

// Validate checks that the session exists, has not expired and has not been
// invalidated. On success the session's last activity time is bumped.
func (s *Service) Validate(id string) (*Session, error) {
	sess, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	if sess.InvalidatedAt != nil {
		return nil, ErrInvalidated
	}
	if !now.Before(sess.ExpiresAt) {
		return nil, ErrInvalidated
	}

	if err := s.repo.Touch(sess.ID, now); err != nil {
		s.logger.Warn("Validate: failed to touch session", "error", err, "session_id", sess.ID)
	}

	return sess, nil
}

// Refresh extends the session when a refresh token is exchanged. If rotation
// is enabled the session gets a new ID and the old one stops working. If IP
// enforcement is enabled the request must come from the address the session
// was opened from.
func (s *Service) Refresh(id, ipAddress string) (*Session, error) {
	sess, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	if !sess.Valid(now) {
		return nil, ErrInvalidated
	}

	if s.cfg.EnforceIPMatch && sess.IPAddress != "" && sess.IPAddress != ipAddress {
		s.logger.Warn("refresh rejected: IP mismatch", "session_id", sess.ID, "session_ip", sess.IPAddress, "request_ip", ipAddress)
		return nil, ErrIPMismatch
	}

	newExpiry := now.Add(s.cfg.TTL)

	if s.cfg.RotateOnRefresh {
		newID := uuid.NewString()
		if err := s.repo.Rotate(sess.ID, newID, newExpiry, now); err != nil {
			s.logger.Error("Refresh: failed to rotate session", "error", err, "session_id", sess.ID)
			return nil, internal.NewInternalError("failed to refresh session", err)
		}
		sess.ID = newID
	} else {
		if err := s.repo.Touch(sess.ID, now); err != nil {
			s.logger.Error("Refresh: failed to touch session", "error", err, "session_id", sess.ID)
			return nil, internal.NewInternalError("failed to refresh session", err)
		}
	}

	sess.LastActiveAt = now
	sess.ExpiresAt = newExpiry
	return sess, nil
}

// Invalidate terminates a single session.
func (s *Service) Invalidate(id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Invalidate(id, time.Now()); err != nil {
		s.logger.Error("Invalidate: failed", "error", err, "session_id", id)
		return internal.NewInternalError("failed to invalidate session", err)
	}
	return nil
}

// InvalidateAll terminates every session a user has, e.g. on password change.
func (s *Service) InvalidateAll(userID int64) error {
	if err := s.repo.InvalidateAllForUser(userID, time.Now()); err != nil {
		s.logger.Error("InvalidateAll: failed", "error", err, "user_id", userID)
		return internal.NewInternalError("failed to invalidate sessions", err)
	}
	return nil
}

// ListForUser returns a user's sessions, newest activity first.
func (s *Service) ListForUser(userID int64) ([]*Session, error) {
	sessions, err := s.repo.ListByUser(userID)
	if err != nil {
		s.logger.Error("ListForUser: failed", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to list sessions", err)
	}
	return sessions, nil
}

// GetForUser fetches a session and verifies it belongs to the given user.
// Sessions owned by other users are reported as not found.
func (s *Service) GetForUser(userID int64, sessionID string) (*Session, error) {
	sess, err := s.repo.GetByID(sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if sess.UserID != userID {
		return nil, ErrNotFound
	}
	return sess, nil
}

// SweepExpired removes sessions that expired before the cutoff. Called from
// the background worker, not from request paths.
func (s *Service) SweepExpired(cutoff time.Time) (int64, error) {
	removed, err := s.repo.DeleteExpiredBefore(cutoff)
	if err != nil {
		s.logger.Error("SweepExpired: failed", "error", err)
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("swept expired sessions", "removed", removed)
	}
	return removed, nil
}
