package repository

import (
	"context"
	"sync"
	"time"
)

type quotaEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryQuotaStore is a process-local QuotaStore.
type MemoryQuotaStore struct {
	mu      sync.Mutex
	entries map[string]*quotaEntry
	now     func() time.Time
}

func NewMemoryQuotaStore() *MemoryQuotaStore {
	return &MemoryQuotaStore{
		entries: make(map[string]*quotaEntry),
		now:     time.Now,
	}
}

func (r *MemoryQuotaStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &quotaEntry{expiresAt: now.Add(window)}
		r.entries[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

// Sweep drops expired windows.
func (r *MemoryQuotaStore) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}
