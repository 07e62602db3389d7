package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"verification-service/models"
)

// OutcomeRecord is the cached terminal result for a reference.
type OutcomeRecord struct {
	Outcome      models.Outcome              `json:"outcome"`
	Snapshot     *models.TransactionSnapshot `json:"snapshot,omitempty"`
	AttemptsUsed int                         `json:"attempts_used"`
	RecordedAt   time.Time                   `json:"recorded_at"`
}

// OutcomeCache remembers terminal outcomes so a reference that has already
// been verified short-circuits instead of re-entering the polling loop.
type OutcomeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOutcomeCache creates a cache over the given redis client.
func NewOutcomeCache(client *redis.Client, ttl time.Duration) *OutcomeCache {
	return &OutcomeCache{client: client, ttl: ttl}
}

// Get returns the cached terminal record for a reference, or nil on a miss.
// Redis errors are returned so the caller can degrade to polling.
func (c *OutcomeCache) Get(ctx context.Context, reference string) (*OutcomeRecord, error) {
	cached, err := c.client.Get(ctx, key(reference)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record OutcomeRecord
	if err := json.Unmarshal([]byte(cached), &record); err != nil {
		return nil, err
	}
	if !record.Outcome.Terminal() {
		// Only terminal outcomes are trustworthy across sessions.
		return nil, nil
	}
	return &record, nil
}

// Set stores a terminal record for a reference. Non-terminal outcomes are
// ignored.
func (c *OutcomeCache) Set(ctx context.Context, reference string, record OutcomeRecord) error {
	if !record.Outcome.Terminal() {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(reference), payload, c.ttl).Err()
}

func key(reference string) string {
	return fmt.Sprintf("verification:outcome:%s", reference)
}
