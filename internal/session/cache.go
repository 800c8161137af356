package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "session:"

// CachedRepository is a read-through cache in front of the database-backed
// repository. Lookups by ID hit Redis first; every write invalidates or
// refreshes the cached copy. Cache failures degrade to database reads.
type CachedRepository struct {
	inner  RepositoryAPI
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRepository(inner RepositoryAPI, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedRepository) key(id string) string {
	return cacheKeyPrefix + id
}

func (c *CachedRepository) GetByID(id string) (*Session, error) {
	ctx := context.Background()

	if data, err := c.client.Get(ctx, c.key(id)).Bytes(); err == nil {
		var s Session
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
		c.logger.Warn("cache entry corrupt, falling back to database", "session_id", id)
	}

	s, err := c.inner.GetByID(id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, s)
	return s, nil
}

func (c *CachedRepository) store(ctx context.Context, s *Session) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(s.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache session", "error", err, "session_id", s.ID)
	}
}

func (c *CachedRepository) drop(ids ...string) {
	ctx := context.Background()
	for _, id := range ids {
		if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
			c.logger.Warn("failed to drop cached session", "error", err, "session_id", id)
		}
	}
}

func (c *CachedRepository) Create(s *Session) error {
	if err := c.inner.Create(s); err != nil {
		return err
	}
	c.store(context.Background(), s)
	return nil
}

func (c *CachedRepository) ListByUser(userID int64) ([]*Session, error) {
	return c.inner.ListByUser(userID)
}

func (c *CachedRepository) CountActiveByUser(userID int64) (int64, error) {
	return c.inner.CountActiveByUser(userID)
}

func (c *CachedRepository) Touch(id string, at time.Time) error {
	if err := c.inner.Touch(id, at); err != nil {
		return err
	}
	c.drop(id)
	return nil
}

func (c *CachedRepository) Rotate(oldID, newID string, expiresAt time.Time, at time.Time) error {
	if err := c.inner.Rotate(oldID, newID, expiresAt, at); err != nil {
		return err
	}
	c.drop(oldID, newID)
	return nil
}

func (c *CachedRepository) Invalidate(id string, at time.Time) error {
	if err := c.inner.Invalidate(id, at); err != nil {
		return err
	}
	c.drop(id)
	return nil
}

func (c *CachedRepository) InvalidateAllForUser(userID int64, at time.Time) error {
	sessions, listErr := c.inner.ListByUser(userID)
	if err := c.inner.InvalidateAllForUser(userID, at); err != nil {
		return err
	}
	if listErr == nil {
		for _, s := range sessions {
			c.drop(s.ID)
		}
	}
	return nil
}

func (c *CachedRepository) OldestActiveForUser(userID int64) (*Session, error) {
	return c.inner.OldestActiveForUser(userID)
}

func (c *CachedRepository) DeleteExpiredBefore(cutoff time.Time) (int64, error) {
	return c.inner.DeleteExpiredBefore(cutoff)
}
