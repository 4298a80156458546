package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/calendar-engine/calendar"
)

func TestMemory_PutGetEvict(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	ym := calendar.YearMonth{Year: 2024, Month: time.May}

	_, ok := m.Get(ctx, 1, ym)
	assert.False(t, ok)

	m.Put(ctx, 1, ym, []calendar.Item{{Title: "a"}})
	items, ok := m.Get(ctx, 1, ym)
	require.True(t, ok)
	assert.Equal(t, "a", items[0].Title)

	// Entries are keyed by user.
	_, ok = m.Get(ctx, 2, ym)
	assert.False(t, ok)

	m.Evict(ctx, 1, ym)
	_, ok = m.Get(ctx, 1, ym)
	assert.False(t, ok)
}

func TestMemory_TTLExpiry(t *testing.T) {
	// GIVEN: An entry written at T
	// WHEN: The clock passes T+TTL
	// THEN: The entry reads as a miss and is dropped

	m := NewMemory(10 * time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	ym := calendar.YearMonth{Year: 2024, Month: time.May}
	m.Put(ctx, 1, ym, []calendar.Item{{Title: "a"}})

	now = now.Add(9 * time.Minute)
	_, ok := m.Get(ctx, 1, ym)
	assert.True(t, ok, "still fresh just before the TTL")

	now = now.Add(2 * time.Minute)
	_, ok = m.Get(ctx, 1, ym)
	assert.False(t, ok, "expired after the TTL")

	m.mu.RLock()
	_, present := m.entries[memoryKey{user: 1, ym: ym}]
	m.mu.RUnlock()
	assert.False(t, present, "expired entry is dropped on read")
}

func TestMemory_ReturnsCopies(t *testing.T) {
	// A caller mutating the returned slice must not poison the cache.
	m := NewMemory(0)
	ctx := context.Background()
	ym := calendar.YearMonth{Year: 2024, Month: time.May}

	m.Put(ctx, 1, ym, []calendar.Item{{Title: "a"}})

	items, ok := m.Get(ctx, 1, ym)
	require.True(t, ok)
	items[0].Title = "mutated"

	again, ok := m.Get(ctx, 1, ym)
	require.True(t, ok)
	assert.Equal(t, "a", again[0].Title)
}
