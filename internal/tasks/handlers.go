package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SessionSweeper is implemented by the session service.
type SessionSweeper interface {
	SweepExpired(cutoff time.Time) (int64, error)
}

// InteractionLookup checks that a follow-up still makes sense before the
// reminder fires.
type InteractionLookup interface {
	FollowUpStillPending(interactionID int64) (bool, error)
}

type Handlers struct {
	sessions     SessionSweeper
	interactions InteractionLookup
	logger       *slog.Logger
}

func NewHandlers(sessions SessionSweeper, interactions InteractionLookup, logger *slog.Logger) *Handlers {
	return &Handlers{
		sessions:     sessions,
		interactions: interactions,
		logger:       logger,
	}
}

// Register wires the handlers onto an asynq mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeFollowUpReminder, h.HandleFollowUpReminder)
	mux.HandleFunc(TypeSessionSweep, h.HandleSessionSweep)
}

// HandleFollowUpReminder fires when a scheduled follow-up comes due. Reminders
// for interactions that were completed or cancelled in the meantime are
// dropped silently.
func (h *Handlers) HandleFollowUpReminder(ctx context.Context, t *asynq.Task) error {
	var payload FollowUpReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal follow-up payload: %w: %w", err, asynq.SkipRetry)
	}

	pending, err := h.interactions.FollowUpStillPending(payload.InteractionID)
	if err != nil {
		return fmt.Errorf("check follow-up state: %w", err)
	}
	if !pending {
		h.logger.Info("follow-up no longer pending, dropping reminder",
			"interaction_id", payload.InteractionID)
		return nil
	}

	h.logger.Info("follow-up due",
		"interaction_id", payload.InteractionID,
		"user_id", payload.UserID,
		"due_at", payload.DueAt)
	return nil
}

func (h *Handlers) HandleSessionSweep(ctx context.Context, t *asynq.Task) error {
	var payload SessionSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal sweep payload: %w: %w", err, asynq.SkipRetry)
	}

	cutoff := payload.Cutoff
	if cutoff.IsZero() {
		cutoff = time.Now()
	}

	removed, err := h.sessions.SweepExpired(cutoff)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}

	h.logger.Info("session sweep finished", "removed", removed, "cutoff", cutoff)
	return nil
}
