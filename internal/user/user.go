package user

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal"
)

var ErrNotFound = internal.ErrUserNotFound

type User struct {
	ID           int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string         `json:"email" gorm:"uniqueIndex"`
	FirstName    string         `json:"first_name" gorm:"column:first_name"`
	LastName     string         `json:"last_name" gorm:"column:last_name"`
	PasswordHash string         `json:"-" gorm:"column:password_hash"`
	Territory    string         `json:"territory,omitempty" gorm:"column:territory"`
	IsActive     bool           `json:"is_active" gorm:"column:is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty" gorm:"column:last_login_at"`
	CreatedAt    time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) Deactivate() {
	u.IsActive = false
	u.UpdatedAt = time.Now()
}
