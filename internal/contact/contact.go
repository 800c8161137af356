package contact

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal"
)

var (
	ErrNotFound    = internal.ErrContactNotFound
	ErrOrgMismatch = internal.ErrContactOrgMismatch
)

const (
	MethodEmail    = "email"
	MethodPhone    = "phone"
	MethodSMS      = "sms"
	MethodInPerson = "in_person"
)

// ContactMethods is the set of accepted preferred_contact_method values.
var ContactMethods = []string{MethodEmail, MethodPhone, MethodSMS, MethodInPerson}

// Contact is a person at a customer or prospect organization. Each
// organization has at most one primary contact.
type Contact struct {
	ID              int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrganizationID  int64          `json:"organization_id" gorm:"column:organization_id;index"`
	FirstName       string         `json:"first_name" gorm:"column:first_name"`
	LastName        string         `json:"last_name" gorm:"column:last_name"`
	Email           string         `json:"email,omitempty" gorm:"column:email"`
	Phone           string         `json:"phone,omitempty" gorm:"column:phone"`
	Position        string         `json:"position,omitempty" gorm:"column:position"`
	IsPrimary       bool           `json:"is_primary" gorm:"column:is_primary"`
	IsDecisionMaker bool           `json:"is_decision_maker" gorm:"column:is_decision_maker"`
	PreferredMethod string         `json:"preferred_contact_method,omitempty" gorm:"column:preferred_contact_method"`
	Notes           string         `json:"notes,omitempty" gorm:"column:notes"`
	IsActive        bool           `json:"is_active" gorm:"column:is_active"`
	CreatedBy       int64          `json:"created_by" gorm:"column:created_by"`
	UpdatedBy       int64          `json:"updated_by" gorm:"column:updated_by"`
	CreatedAt       time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Contact) Deactivate(actor int64) {
	now := time.Now()
	c.IsActive = false
	c.UpdatedBy = actor
	c.UpdatedAt = now
	c.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
}
