package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

// MatchCache stores computed match results keyed by candidate, job and job
// version. Bumping the job version abandons stale entries without any
// explicit invalidation; they simply age out through the TTL.
type MatchCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMatchCache(addr, password string, db int, ttl time.Duration) *MatchCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MatchCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (c *MatchCache) Get(ctx context.Context, candidateID, jobID string, jobVersion int64) (*domain.MatchResult, bool, error) {
	raw, err := c.client.Get(ctx, matchKey(candidateID, jobID, jobVersion)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get match: %w", err)
	}

	var result domain.MatchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached match: %w", err)
	}
	return &result, true, nil
}

func (c *MatchCache) Set(ctx context.Context, result domain.MatchResult, jobVersion int64) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal match result: %w", err)
	}
	if err := c.client.Set(ctx, matchKey(result.CandidateID, result.JobID, jobVersion), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set match: %w", err)
	}
	return nil
}

func (c *MatchCache) Close() error {
	return c.client.Close()
}

func (c *MatchCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func matchKey(candidateID, jobID string, jobVersion int64) string {
	return fmt.Sprintf("match:%s:%s:v%d", candidateID, jobID, jobVersion)
}
