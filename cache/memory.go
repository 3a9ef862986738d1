package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time
}

// defaultSweepEvery is how many markers are set between sweeps of expired
// entries.
const defaultSweepEvery = 128

// MemoryStore is the process-local IdempotencyStore used when no Redis
// address is configured.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]entry
	inProgress time.Duration
	now        func() time.Time
	sweepEvery int
	sets       int
}

func NewMemoryStore(inProgress time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]entry),
		inProgress: max(inProgress, MinInProgressExpiry),
		now:        time.Now,
		sweepEvery: defaultSweepEvery,
	}
}

// Len reports the number of stored references, expired ones included until
// the next sweep.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) sweep(now time.Time) {
	for ref, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, ref)
		}
	}
}

func (m *MemoryStore) CheckOrSetInProgress(ctx context.Context, reference string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[reference]; ok {
		if now.Before(e.expires) {
			if string(e.value) == StatusInProgress {
				return nil, ErrInProgress
			}
			return e.value, nil
		}
		delete(m.entries, reference)
	}

	m.sets++
	if m.sweepEvery > 0 && m.sets%m.sweepEvery == 0 {
		m.sweep(now)
	}
	m.entries[reference] = entry{value: []byte(StatusInProgress), expires: now.Add(m.inProgress)}
	return nil, nil
}

func (m *MemoryStore) SetCompleted(ctx context.Context, reference string, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[reference] = entry{value: result, expires: m.now().Add(CompletedExpiry)}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, reference)
	return nil
}
