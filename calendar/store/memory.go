// Package store provides calendar.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/calendar-engine/calendar"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	items         map[calendar.ItemID]calendar.Item
	rules         map[calendar.RuleID]calendar.Rule
	notifications map[calendar.NotificationID]calendar.Notification

	nextItemID         calendar.ItemID
	nextRuleID         calendar.RuleID
	nextNotificationID calendar.NotificationID
}

func NewMemory() *Memory {
	return &Memory{
		items:         make(map[calendar.ItemID]calendar.Item),
		rules:         make(map[calendar.RuleID]calendar.Rule),
		notifications: make(map[calendar.NotificationID]calendar.Notification),
	}
}

// -----------------------------------------------------------------------------
// Items
// -----------------------------------------------------------------------------

func (m *Memory) SaveItem(_ context.Context, item *calendar.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveItemLocked(item)
}

func (m *Memory) SaveItems(_ context.Context, items []*calendar.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		if err := m.saveItemLocked(item); err != nil {
			return err
		}
	}
	return nil
}

// saveItemLocked mirrors the SQL store's unique rule-occurrence index on the
// insert path: a plain insert of a second occurrence for the same
// (user, rule, date) fails the same way the constraint would. Updates are
// not re-checked; sweep tests rely on that to fabricate historical
// duplicates.
func (m *Memory) saveItemLocked(item *calendar.Item) error {
	now := time.Now().UTC()
	if item.ID == 0 {
		if item.RuleID != nil {
			for _, it := range m.items {
				if it.UserID == item.UserID && it.RuleID != nil && *it.RuleID == *item.RuleID && it.Date.Equal(item.Date) {
					return fmt.Errorf("occurrence for rule %d on %s already exists", *item.RuleID, item.Date)
				}
			}
		}
		m.nextItemID++
		item.ID = m.nextItemID
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	m.items[item.ID] = *item
	return nil
}

func (m *Memory) GetItem(_ context.Context, userID calendar.UserID, id calendar.ItemID) (*calendar.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok || item.UserID != userID {
		return nil, nil
	}
	return &item, nil
}

func (m *Memory) FindItemsByDay(ctx context.Context, userID calendar.UserID, date calendar.Date) ([]calendar.Item, error) {
	return m.FindItemsByRange(ctx, userID, date, date)
}

func (m *Memory) FindItemsByRange(_ context.Context, userID calendar.UserID, from, to calendar.Date) ([]calendar.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectItemsLocked(func(it calendar.Item) bool {
		return it.UserID == userID && it.Date.AfterOrEqual(from) && it.Date.BeforeOrEqual(to)
	}), nil
}

func (m *Memory) FindItemsByRangeAndCategory(_ context.Context, userID calendar.UserID, from, to calendar.Date, cat calendar.Category) ([]calendar.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectItemsLocked(func(it calendar.Item) bool {
		return it.UserID == userID && it.Category == cat &&
			it.Date.AfterOrEqual(from) && it.Date.BeforeOrEqual(to)
	}), nil
}

func (m *Memory) FindItemsByRule(_ context.Context, userID calendar.UserID, ruleID calendar.RuleID, from, to calendar.Date) ([]calendar.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectItemsLocked(func(it calendar.Item) bool {
		return it.UserID == userID && it.RuleID != nil && *it.RuleID == ruleID &&
			it.Date.AfterOrEqual(from) && it.Date.BeforeOrEqual(to)
	}), nil
}

// InsertItemIfAbsent inserts a rule occurrence unless one already exists for
// the same (user, rule, date). The check and insert happen under one lock,
// mirroring the unique index the SQL store relies on.
func (m *Memory) InsertItemIfAbsent(_ context.Context, item *calendar.Item) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.RuleID != nil {
		for _, it := range m.items {
			if it.UserID == item.UserID && it.RuleID != nil && *it.RuleID == *item.RuleID && it.Date.Equal(item.Date) {
				return false, nil
			}
		}
	}
	if err := m.saveItemLocked(item); err != nil {
		return false, err
	}
	return true, nil
}

// InsertHolidayIfAbsent inserts a generated holiday unless one already exists
// for the same (user, date, category, title).
func (m *Memory) InsertHolidayIfAbsent(_ context.Context, item *calendar.Item) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.UserID == item.UserID && it.Source.IsSystemHoliday() &&
			it.Date.Equal(item.Date) && it.Category == item.Category && it.Title == item.Title {
			return false, nil
		}
	}
	if err := m.saveItemLocked(item); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) FindItemsBySource(_ context.Context, sources ...calendar.Source) ([]calendar.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectItemsLocked(func(it calendar.Item) bool {
		for _, src := range sources {
			if it.Source == src {
				return true
			}
		}
		return false
	}), nil
}

func (m *Memory) FindUnnotifiedByDay(_ context.Context, date calendar.Date, cat calendar.Category) ([]calendar.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectItemsLocked(func(it calendar.Item) bool {
		return !it.Notified && it.Category == cat && it.Date.Equal(date)
	}), nil
}

func (m *Memory) DeleteItem(_ context.Context, id calendar.ItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *Memory) DeleteItems(_ context.Context, ids []calendar.ItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.items, id)
	}
	return nil
}

// selectItemsLocked returns matching items ordered by (date, startTime, id)
// so day and month listings come out in schedule order; items without a
// start time sort first within their day.
func (m *Memory) selectItemsLocked(match func(calendar.Item) bool) []calendar.Item {
	var result []calendar.Item
	for _, it := range m.items {
		if match(it) {
			result = append(result, it)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// -----------------------------------------------------------------------------
// Rules
// -----------------------------------------------------------------------------

func (m *Memory) SaveRule(_ context.Context, rule *calendar.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule.ID == 0 {
		m.nextRuleID++
		rule.ID = m.nextRuleID
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = time.Now().UTC()
		}
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *Memory) GetRule(_ context.Context, id calendar.RuleID) (*calendar.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (m *Memory) FindActiveRules(_ context.Context, userID calendar.UserID) ([]calendar.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectRulesLocked(func(r calendar.Rule) bool {
		return r.UserID == userID && r.Active
	}), nil
}

func (m *Memory) FindRulesBySignature(_ context.Context, sig calendar.Signature) ([]calendar.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectRulesLocked(func(r calendar.Rule) bool {
		return r.Signature() == sig
	}), nil
}

func (m *Memory) AllRules(_ context.Context) ([]calendar.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectRulesLocked(func(calendar.Rule) bool { return true }), nil
}

// selectRulesLocked orders by (createdAt, id): the earliest-created rule is
// first, which is what signature lookups rely on.
func (m *Memory) selectRulesLocked(match func(calendar.Rule) bool) []calendar.Rule {
	var result []calendar.Rule
	for _, r := range m.rules {
		if match(r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// -----------------------------------------------------------------------------
// Notifications
// -----------------------------------------------------------------------------

func (m *Memory) SaveNotification(_ context.Context, n *calendar.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == 0 {
		m.nextNotificationID++
		n.ID = m.nextNotificationID
		n.CreatedAt = time.Now().UTC()
	}
	m.notifications[n.ID] = *n
	return nil
}

func (m *Memory) GetNotification(_ context.Context, userID calendar.UserID, id calendar.NotificationID) (*calendar.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return nil, nil
	}
	return &n, nil
}

func (m *Memory) FindNotifications(_ context.Context, userID calendar.UserID, unreadOnly bool) ([]calendar.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []calendar.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, n)
	}
	// Newest first, matching the SQL store's ordering.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}
