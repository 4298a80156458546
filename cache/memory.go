// Package cache provides calendar.MonthCache implementations: an in-process
// TTL cache for single-instance deployments and tests, and a Redis-backed
// cache for shared deployments. Both are advisory: a miss or a cache failure
// only costs a store query.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/warp/calendar-engine/calendar"
)

// DefaultTTL bounds staleness if an eviction is ever missed.
const DefaultTTL = 10 * time.Minute

// =============================================================================
// MEMORY CACHE - In-process TTL cache
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[memoryKey]memoryEntry
	ttl     time.Duration

	// now is the clock; replaced in tests to exercise expiry.
	now func() time.Time
}

type memoryKey struct {
	user calendar.UserID
	ym   calendar.YearMonth
}

type memoryEntry struct {
	items     []calendar.Item
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[memoryKey]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, userID calendar.UserID, ym calendar.YearMonth) ([]calendar.Item, bool) {
	key := memoryKey{user: userID, ym: ym}

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		// Lazy expiry: drop the stale entry on the read that finds it.
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	items := make([]calendar.Item, len(entry.items))
	copy(items, entry.items)
	return items, true
}

func (m *Memory) Put(_ context.Context, userID calendar.UserID, ym calendar.YearMonth, items []calendar.Item) {
	stored := make([]calendar.Item, len(items))
	copy(stored, items)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey{user: userID, ym: ym}] = memoryEntry{
		items:     stored,
		expiresAt: m.now().Add(m.ttl),
	}
}

func (m *Memory) Evict(_ context.Context, userID calendar.UserID, ym calendar.YearMonth) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memoryKey{user: userID, ym: ym})
}
