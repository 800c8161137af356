package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal/session"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(s *session.Session) error {
	return r.db.Create(s).Error
}

func (r *SessionRepository) GetByID(id string) (*session.Session, error) {
	var s session.Session
	if err := r.db.Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) ListByUser(userID int64) ([]*session.Session, error) {
	var sessions []*session.Session
	err := r.db.
		Where("user_id = ? AND invalidated_at IS NULL", userID).
		Order("last_active_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) CountActiveByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&session.Session{}).
		Where("user_id = ? AND invalidated_at IS NULL AND expires_at > ?", userID, time.Now()).
		Count(&count).Error
	return count, err
}

func (r *SessionRepository) Touch(id string, at time.Time) error {
	return r.db.Model(&session.Session{}).
		Where("id = ?", id).
		Update("last_active_at", at).Error
}

func (r *SessionRepository) Rotate(oldID, newID string, expiresAt time.Time, at time.Time) error {
	result := r.db.Model(&session.Session{}).
		Where("id = ? AND invalidated_at IS NULL", oldID).
		Updates(map[string]interface{}{
			"id":             newID,
			"last_active_at": at,
			"expires_at":     expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) Invalidate(id string, at time.Time) error {
	result := r.db.Model(&session.Session{}).
		Where("id = ? AND invalidated_at IS NULL", id).
		Update("invalidated_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) InvalidateAllForUser(userID int64, at time.Time) error {
	return r.db.Model(&session.Session{}).
		Where("user_id = ? AND invalidated_at IS NULL", userID).
		Update("invalidated_at", at).Error
}

func (r *SessionRepository) OldestActiveForUser(userID int64) (*session.Session, error) {
	var s session.Session
	err := r.db.
		Where("user_id = ? AND invalidated_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("last_active_at ASC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) DeleteExpiredBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("expires_at < ?", cutoff).
		Delete(&session.Session{})
	return result.RowsAffected, result.Error
}
