package scheduler

import (
	"context"
	"testing"
	"time"

	"leadflow_backend/internal/leads/pipeline"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *TickStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTickStore(rdb)
}

func TestTickStoreLastEmpty(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Last(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTickStoreKeepsNewestFirstAndTrims(t *testing.T) {
	store := newTestStore(t)
	store.history = 3
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Save(ctx, pipeline.TickResult{
			OK:        i != 4,
			TickID:    string(rune('a' + i - 1)),
			Claimed:   i,
			StartedAt: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}

	last, ok, err := store.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "e", last.TickID)
	assert.Equal(t, 5, last.Claimed)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"e", "d", "c"}, []string{recent[0].TickID, recent[1].TickID, recent[2].TickID})
	assert.False(t, recent[1].OK)
}

func TestRedisOptionsTLSInsecure(t *testing.T) {
	opt, err := redisOptions("rediss://user:pw@cache.internal:6380/2", true)
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)

	plain, err := redisClientOpt("redis://localhost:6379/0", false)
	require.NoError(t, err)
	assert.Nil(t, plain.TLSConfig)

	_, err = redisOptions("://nope", false)
	assert.Error(t, err)
}
