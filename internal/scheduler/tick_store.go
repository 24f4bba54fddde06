package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"leadflow_backend/internal/leads/pipeline"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTickKey     = "leadflow:dispatch:ticks"
	defaultTickHistory = 50
)

// TickStore keeps the most recent dispatcher tick results in a capped Redis list.
type TickStore struct {
	rdb     *redis.Client
	key     string
	history int64
}

func NewTickStore(rdb *redis.Client) *TickStore {
	return &TickStore{rdb: rdb, key: defaultTickKey, history: defaultTickHistory}
}

// Save pushes result as the newest entry and trims the list.
func (s *TickStore) Save(ctx context.Context, result pipeline.TickResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode tick result: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.history-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save tick result: %w", err)
	}
	return nil
}

// Last returns the newest result; ok is false when no tick has been recorded.
func (s *TickStore) Last(ctx context.Context) (pipeline.TickResult, bool, error) {
	results, err := s.Recent(ctx, 1)
	if err != nil || len(results) == 0 {
		return pipeline.TickResult{}, false, err
	}
	return results[0], true, nil
}

// Recent returns up to n results, newest first.
func (s *TickStore) Recent(ctx context.Context, n int) ([]pipeline.TickResult, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.rdb.LRange(ctx, s.key, 0, int64(n)-1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tick results: %w", err)
	}

	results := make([]pipeline.TickResult, 0, len(raw))
	for _, item := range raw {
		var r pipeline.TickResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode tick result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}
