package auth

import (
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentialsByEmail(email string) (int64, string, bool, error) {
	var (
		userID       int64
		passwordHash string
		isActive     bool
	)
	query := `SELECT id, password_hash, is_active FROM users WHERE email = ? AND deleted_at IS NULL`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash, &isActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", false, internal.ErrUserNotFound
		}
		return 0, "", false, err
	}
	return userID, passwordHash, isActive, nil
}

func (r *Repository) GetUserByID(userID int64) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, email, first_name || ' ' || last_name AS name FROM users WHERE id = ? AND is_active = true AND deleted_at IS NULL`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email, &user.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(userID int64, at time.Time) error {
	return r.db.Exec(`UPDATE users SET last_login_at = ? WHERE id = ?`, at, userID).Error
}
