package interaction

import (
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal"
)

var (
	ErrNotFound = internal.ErrInteractionNotFound
	ErrFinal    = internal.ErrInteractionFinal
)

// Interaction types.
const (
	TypeEmail    = "email"
	TypePhone    = "phone"
	TypeMeeting  = "meeting"
	TypeSMS      = "sms"
	TypeNote     = "note"
	TypeTask     = "task"
	TypeFollowUp = "follow_up"
)

var Types = []string{TypeEmail, TypePhone, TypeMeeting, TypeSMS, TypeNote, TypeTask, TypeFollowUp}

// SchedulableTypes are planned ahead of time, so their interaction_at must
// not sit in the past. The other types log contact that already happened.
var SchedulableTypes = []string{TypeMeeting, TypeTask, TypeFollowUp}

func IsSchedulable(t string) bool {
	for _, s := range SchedulableTypes {
		if t == s {
			return true
		}
	}
	return false
}

// Interaction statuses. Completed and cancelled are terminal.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var Statuses = []string{StatusScheduled, StatusCompleted, StatusCancelled}

type Interaction struct {
	ID               int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrganizationID   int64          `json:"organization_id" gorm:"column:organization_id;index"`
	ContactID        *int64         `json:"contact_id,omitempty" gorm:"column:contact_id"`
	OpportunityID    *int64         `json:"opportunity_id,omitempty" gorm:"column:opportunity_id"`
	Type             string         `json:"type" gorm:"column:type"`
	Subject          string         `json:"subject" gorm:"column:subject"`
	Description      string         `json:"description,omitempty" gorm:"column:description"`
	Status           string         `json:"status" gorm:"column:status"`
	Outcome          string         `json:"outcome,omitempty" gorm:"column:outcome"`
	InteractionAt    time.Time      `json:"interaction_at" gorm:"column:interaction_at;index"`
	DurationMinutes  int            `json:"duration_minutes,omitempty" gorm:"column:duration_minutes"`
	FollowUpRequired bool           `json:"follow_up_required" gorm:"column:follow_up_required"`
	FollowUpDate     *time.Time     `json:"follow_up_date,omitempty" gorm:"column:follow_up_date"`
	IsActive         bool           `json:"is_active" gorm:"column:is_active"`
	CreatedBy        int64          `json:"created_by" gorm:"column:created_by"`
	UpdatedBy        int64          `json:"updated_by" gorm:"column:updated_by"`
	CreatedAt        time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (Interaction) TableName() string {
	return "interactions"
}

// IsFinal reports whether the interaction reached a terminal status.
func (i *Interaction) IsFinal() bool {
	return i.Status == StatusCompleted || i.Status == StatusCancelled
}

func IsValidType(t string) bool {
	for _, valid := range Types {
		if t == valid {
			return true
		}
	}
	return false
}
