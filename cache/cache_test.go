package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo-collect/config"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	cached, err := s.CheckOrSetInProgress(ctx, "INV-1")
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = s.CheckOrSetInProgress(ctx, "INV-1")
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, s.SetCompleted(ctx, "INV-1", []byte(`{"state":"Successful"}`)))
	cached, err = s.CheckOrSetInProgress(ctx, "INV-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"Successful"}`, string(cached))

	require.NoError(t, s.Clear(ctx, "INV-1"))
	cached, err = s.CheckOrSetInProgress(ctx, "INV-1")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestMemoryStoreInProgressExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(2 * time.Minute)
	s.now = func() time.Time { return now }

	_, err := s.CheckOrSetInProgress(ctx, "INV-2")
	require.NoError(t, err)

	now = now.Add(3 * time.Minute)
	_, err = s.CheckOrSetInProgress(ctx, "INV-2")
	assert.NoError(t, err, "stale marker from a crashed request is ignored")
}

func TestMemoryStoreOnlyOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CheckOrSetInProgress(ctx, "INV-3"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestInProgressExpiryCoversPollingBudget(t *testing.T) {
	cfg := config.Default()
	cfg.Poll = config.PollConfig{Retries: 3, Interval: 5 * time.Second}
	cfg.HTTP.Timeout = 30 * time.Second

	got := InProgressExpiry(cfg)
	assert.Equal(t, 7*30*time.Second+15*time.Second, got)
	assert.Greater(t, got, time.Duration(cfg.Poll.Retries)*cfg.Poll.Interval)
}

func TestMemoryStoreSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }
	s.sweepEvery = 10

	for i := 0; i < 1000; i++ {
		ref := fmt.Sprintf("INV-%d", i)
		_, err := s.CheckOrSetInProgress(ctx, ref)
		require.NoError(t, err)
		require.NoError(t, s.SetCompleted(ctx, ref, []byte(`{"state":"Successful"}`)))
	}
	require.Equal(t, 1000, s.Len())

	now = now.Add(CompletedExpiry + 24*time.Hour)
	for i := 0; i < 10; i++ {
		_, err := s.CheckOrSetInProgress(ctx, fmt.Sprintf("NEW-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 10, s.Len())
}

func TestMemoryStoreDropsExpiredEntryOnAccess(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }
	s.sweepEvery = 0

	require.NoError(t, s.SetCompleted(ctx, "INV-1", []byte(`{}`)))
	now = now.Add(CompletedExpiry + time.Second)

	cached, err := s.CheckOrSetInProgress(ctx, "INV-1")
	require.NoError(t, err)
	assert.Nil(t, cached)
	assert.Equal(t, 1, s.Len())
}

func TestInProgressExpiryNeverZero(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Timeout = 0
	cfg.Poll.Interval = 0

	ttl := InProgressExpiry(cfg)
	assert.Equal(t, MinInProgressExpiry, ttl)

	ctx := context.Background()
	s := NewMemoryStore(ttl)
	_, err := s.CheckOrSetInProgress(ctx, "INV-1")
	require.NoError(t, err)
	_, err = s.CheckOrSetInProgress(ctx, "INV-1")
	assert.ErrorIs(t, err, ErrInProgress)

	// a zero TTL passed directly still keeps the guard
	zero := NewMemoryStore(0)
	_, err = zero.CheckOrSetInProgress(ctx, "INV-2")
	require.NoError(t, err)
	_, err = zero.CheckOrSetInProgress(ctx, "INV-2")
	assert.ErrorIs(t, err, ErrInProgress)
}

func TestInProgressExpiryCoversPaymentTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.PaymentTimeout = 20 * time.Minute
	assert.Equal(t, 20*time.Minute, InProgressExpiry(cfg))
}

func TestRedisKeyNamespace(t *testing.T) {
	assert.Equal(t, "momo:ref:INV-1", key("INV-1"))
}
