package session

import (
	"time"

	"github.com/krwhynot/pantry-crm/internal"
)

var (
	ErrNotFound    = internal.ErrSessionNotFound
	ErrInvalidated = internal.ErrSessionInvalidated
	ErrIPMismatch  = internal.ErrSessionIPMismatch
)

// Session tracks a single authenticated device for a user. The session ID is
// embedded in refresh token claims so a stolen token dies with its session.
type Session struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid"`
	UserID        int64      `json:"user_id" gorm:"column:user_id;index"`
	IPAddress     string     `json:"ip_address" gorm:"column:ip_address"`
	UserAgent     string     `json:"user_agent" gorm:"column:user_agent"`
	CreatedAt     time.Time  `json:"created_at" gorm:"column:created_at"`
	LastActiveAt  time.Time  `json:"last_active_at" gorm:"column:last_active_at"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"column:expires_at"`
	InvalidatedAt *time.Time `json:"invalidated_at,omitempty" gorm:"column:invalidated_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// Valid reports whether the session can still be used at the given instant.
func (s *Session) Valid(now time.Time) bool {
	if s.InvalidatedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}
