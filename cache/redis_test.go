package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo-collect/config"
)

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisStoreLifecycle(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	s := NewRedisStore(config.RedisConfig{Addr: addr}, time.Minute)
	defer s.Close()
	require.NoError(t, s.Ping(ctx))

	ref := "test-" + uuid.NewString()
	defer s.Clear(ctx, ref)

	cached, err := s.CheckOrSetInProgress(ctx, ref)
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = s.CheckOrSetInProgress(ctx, ref)
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, s.SetCompleted(ctx, ref, []byte(`{"state":"Failed"}`)))
	cached, err = s.CheckOrSetInProgress(ctx, ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"Failed"}`, string(cached))

	require.NoError(t, s.Clear(ctx, ref))
	cached, err = s.CheckOrSetInProgress(ctx, ref)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
