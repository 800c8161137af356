package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOpportunityStageChanged = "opportunity.stage_changed"
	EventTypeOpportunityWon          = "opportunity.won"
	EventTypeInteractionCompleted    = "interaction.completed"
	EventTypeFollowUpScheduled       = "interaction.follow_up_scheduled"
)

type OpportunityStageChangedEvent struct {
	BaseEvent
	OpportunityID int64  `json:"opportunity_id"`
	FromStage     string `json:"from_stage"`
	ToStage       string `json:"to_stage"`
	Probability   int    `json:"probability"`
	ChangedBy     int64  `json:"changed_by"`
}

func NewOpportunityStageChangedEvent(opportunityID int64, fromStage, toStage string, probability int, changedBy int64) *OpportunityStageChangedEvent {
	return &OpportunityStageChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOpportunityStageChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"opportunity_id": opportunityID,
				"from_stage":     fromStage,
				"to_stage":       toStage,
				"probability":    probability,
				"changed_by":     changedBy,
			},
		},
		OpportunityID: opportunityID,
		FromStage:     fromStage,
		ToStage:       toStage,
		Probability:   probability,
		ChangedBy:     changedBy,
	}
}

type OpportunityWonEvent struct {
	BaseEvent
	OpportunityID  int64 `json:"opportunity_id"`
	OrganizationID int64 `json:"organization_id"`
	ValueCents     int64 `json:"value_cents"`
	WonBy          int64 `json:"won_by"`
}

func NewOpportunityWonEvent(opportunityID, organizationID, valueCents, wonBy int64) *OpportunityWonEvent {
	return &OpportunityWonEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOpportunityWon,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"opportunity_id":  opportunityID,
				"organization_id": organizationID,
				"value_cents":     valueCents,
				"won_by":          wonBy,
			},
		},
		OpportunityID:  opportunityID,
		OrganizationID: organizationID,
		ValueCents:     valueCents,
		WonBy:          wonBy,
	}
}

type InteractionCompletedEvent struct {
	BaseEvent
	InteractionID  int64  `json:"interaction_id"`
	OrganizationID int64  `json:"organization_id"`
	Outcome        string `json:"outcome"`
	CompletedBy    int64  `json:"completed_by"`
}

func NewInteractionCompletedEvent(interactionID, organizationID int64, outcome string, completedBy int64) *InteractionCompletedEvent {
	return &InteractionCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInteractionCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"interaction_id":  interactionID,
				"organization_id": organizationID,
				"outcome":         outcome,
				"completed_by":    completedBy,
			},
		},
		InteractionID:  interactionID,
		OrganizationID: organizationID,
		Outcome:        outcome,
		CompletedBy:    completedBy,
	}
}

type FollowUpScheduledEvent struct {
	BaseEvent
	InteractionID int64     `json:"interaction_id"`
	UserID        int64     `json:"user_id"`
	DueAt         time.Time `json:"due_at"`
}

func NewFollowUpScheduledEvent(interactionID, userID int64, dueAt time.Time) *FollowUpScheduledEvent {
	return &FollowUpScheduledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeFollowUpScheduled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"interaction_id": interactionID,
				"user_id":        userID,
				"due_at":         dueAt,
			},
		},
		InteractionID: interactionID,
		UserID:        userID,
		DueAt:         dueAt,
	}
}
