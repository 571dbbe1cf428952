// Package cache holds projected event views in Redis so repeated reads of the
// same event in the same display zone skip the database. Entries are dropped
// whenever the underlying event changes, so a hit is always current.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"eventtrail/internal/event/projection"
	platformredis "eventtrail/internal/platform/redis"
)

const keyPrefix = "eventtrail:projection"

// Cache stores rendered event projections keyed by event and display zone.
// A nil *Cache is valid and disables caching.
type Cache struct {
	client *platformredis.Client
	ttl    time.Duration
}

// New builds a projection cache. Returns nil when the client is nil so callers
// can wire an unconfigured Redis straight through.
func New(client *platformredis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func key(eventID uuid.UUID, zone string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, eventID, zone)
}

// Get returns the cached projection for the event in the given zone, or nil
// on a miss. Cache failures are returned so the caller can log and fall
// through to the store.
func (c *Cache) Get(ctx context.Context, eventID uuid.UUID, zone string) (*projection.DisplayEvent, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, key(eventID, zone)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var view projection.DisplayEvent
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &view, nil
}

// Set stores the projection under its event and display zone.
func (c *Cache) Set(ctx context.Context, view *projection.DisplayEvent) error {
	if c == nil || view == nil {
		return nil
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(view.ID, view.DisplayZone), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops every zone's projection of the event. Called after any
// mutation so stale views never outlive the change that made them stale.
func (c *Cache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	if c == nil {
		return nil
	}
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, eventID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
