package opportunity

import (
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal"
)

var (
	ErrNotFound        = internal.ErrOpportunityNotFound
	ErrClosed          = internal.ErrOpportunityClosed
	ErrInvalidStage    = internal.ErrInvalidStage
	ErrCloseDateInPast = internal.ErrCloseDateInPast
)

// Pipeline stages in order. Probability is fixed per stage and never set
// directly by callers.
const (
	StageProspecting   = "prospecting"
	StageQualification = "qualification"
	StageProposal      = "proposal"
	StageNegotiation   = "negotiation"
	StageClosedWon     = "closed_won"
	StageClosedLost    = "closed_lost"
)

var stageProbabilities = map[string]int{
	StageProspecting:   10,
	StageQualification: 25,
	StageProposal:      50,
	StageNegotiation:   75,
	StageClosedWon:     100,
	StageClosedLost:    0,
}

// Stages lists the valid stages in pipeline order.
var Stages = []string{
	StageProspecting,
	StageQualification,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

// ProbabilityForStage returns the fixed probability for a stage. The second
// return is false for unknown stages.
func ProbabilityForStage(stage string) (int, bool) {
	p, ok := stageProbabilities[stage]
	return p, ok
}

func IsValidStage(stage string) bool {
	_, ok := stageProbabilities[stage]
	return ok
}

func IsClosedStage(stage string) bool {
	return stage == StageClosedWon || stage == StageClosedLost
}

type Opportunity struct {
	ID                int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrganizationID    int64          `json:"organization_id" gorm:"column:organization_id;index"`
	ContactID         *int64         `json:"contact_id,omitempty" gorm:"column:contact_id"`
	Name              string         `json:"name" gorm:"column:name"`
	Stage             string         `json:"stage" gorm:"column:stage"`
	Probability       int            `json:"probability" gorm:"column:probability"`
	ValueCents        int64          `json:"value_cents" gorm:"column:value_cents"`
	ExpectedCloseDate *time.Time     `json:"expected_close_date,omitempty" gorm:"column:expected_close_date"`
	ActualCloseDate   *time.Time     `json:"actual_close_date,omitempty" gorm:"column:actual_close_date"`
	Notes             string         `json:"notes,omitempty" gorm:"column:notes"`
	IsActive          bool           `json:"is_active" gorm:"column:is_active"`
	CreatedBy         int64          `json:"created_by" gorm:"column:created_by"`
	UpdatedBy         int64          `json:"updated_by" gorm:"column:updated_by"`
	CreatedAt         time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}

func (o *Opportunity) IsClosed() bool {
	return IsClosedStage(o.Stage)
}

// StageHistory is the append-only log of stage transitions. Rows are never
// updated or deleted.
type StageHistory struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	OpportunityID int64     `json:"opportunity_id" gorm:"column:opportunity_id;index"`
	FromStage     string    `json:"from_stage" gorm:"column:from_stage"`
	ToStage       string    `json:"to_stage" gorm:"column:to_stage"`
	Reason        string    `json:"reason,omitempty" gorm:"column:reason"`
	Probability   int       `json:"probability" gorm:"column:probability"`
	ChangedBy     int64     `json:"changed_by" gorm:"column:changed_by"`
	ChangedAt     time.Time `json:"changed_at" gorm:"column:changed_at"`
}

func (StageHistory) TableName() string {
	return "opportunity_stage_history"
}
