package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeFollowUpReminder = "crm:follow_up_reminder"
	TypeSessionSweep     = "crm:session_sweep"
)

type FollowUpReminderPayload struct {
	InteractionID int64     `json:"interaction_id"`
	UserID        int64     `json:"user_id"`
	DueAt         time.Time `json:"due_at"`
}

func NewFollowUpReminderTask(interactionID, userID int64, dueAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(FollowUpReminderPayload{
		InteractionID: interactionID,
		UserID:        userID,
		DueAt:         dueAt,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFollowUpReminder, payload), nil
}

type SessionSweepPayload struct {
	Cutoff time.Time `json:"cutoff"`
}

func NewSessionSweepTask(cutoff time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(SessionSweepPayload{Cutoff: cutoff})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSessionSweep, payload), nil
}
