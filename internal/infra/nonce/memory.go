package nonce

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = time.Hour

type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
}

type MemoryStoreConfig struct {
	Now func() time.Time
}

// NewMemoryStore returns a process-local replay cache. It is only correct for
// a single running instance; use the redis store when running more than one.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MemoryStore{
		now:     cfg.Now,
		entries: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Has(_ context.Context, nonce string) (bool, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.entries[nonce]
	return ok && now.Before(expiry), nil
}

func (m *MemoryStore) Admit(_ context.Context, nonce string, expiry time.Time) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[nonce]; ok && now.Before(existing) {
		return false, nil
	}
	m.entries[nonce] = expiry
	return true, nil
}

// StartSweeper removes expired entries on a fixed interval until ctx is
// cancelled. The goroutine holds no resources that would delay shutdown.
func (m *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *MemoryStore) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for nonce, expiry := range m.entries {
		if now.After(expiry) {
			delete(m.entries, nonce)
		}
	}
}

func (m *MemoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
