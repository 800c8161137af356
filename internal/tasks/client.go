package tasks

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues background work onto the Redis-backed queue.
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewClient(redisAddr, redisPassword string, redisDB int, logger *slog.Logger) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		}),
		logger: logger,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ScheduleFollowUpReminder queues a reminder that fires when the follow-up
// comes due. Reminders in the past fire immediately.
func (c *Client) ScheduleFollowUpReminder(interactionID, userID int64, dueAt time.Time) error {
	task, err := NewFollowUpReminderTask(interactionID, userID, dueAt)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue("reminders"),
		asynq.MaxRetry(3),
	}
	if dueAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(dueAt))
	}

	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		c.logger.Error("failed to enqueue follow-up reminder", "error", err, "interaction_id", interactionID)
		return err
	}

	c.logger.Info("follow-up reminder scheduled",
		"task_id", info.ID,
		"interaction_id", interactionID,
		"user_id", userID,
		"due_at", dueAt)
	return nil
}

// EnqueueSessionSweep queues an immediate sweep of expired sessions.
func (c *Client) EnqueueSessionSweep(cutoff time.Time) error {
	task, err := NewSessionSweepTask(cutoff)
	if err != nil {
		return err
	}

	info, err := c.client.Enqueue(task, asynq.Queue("maintenance"))
	if err != nil {
		c.logger.Error("failed to enqueue session sweep", "error", err)
		return err
	}

	c.logger.Info("session sweep enqueued", "task_id", info.ID, "cutoff", cutoff)
	return nil
}
