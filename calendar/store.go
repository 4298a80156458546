/*
store.go - Persistence and cache interfaces for the calendar engine

PURPOSE:
  Defines the contract between the domain logic and its collaborators:
  the relational store (system of record), the month read cache, and the
  event fan-out surface. Different implementations can use SQLite,
  PostgreSQL, or in-memory storage.

KEY INTERFACES:
  ItemStore:         Calendar entry persistence and queries
  RuleStore:         Recurring rule persistence and signature lookup
  NotificationStore: Notification records
  MonthCache:        Per-(user, month) read cache

CONDITIONAL INSERTS:
  InsertItemIfAbsent and InsertHolidayIfAbsent MUST be backed by a
  uniqueness guarantee in the implementation (a unique index, or an
  equivalent check under the store's lock). A conflicting insert reports
  (false, nil) - "already exists, no-op". This removes the classic
  check-then-insert race from concurrent month materialization instead of
  repairing it after the fact.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite with partial unique indexes
  - calendar/store: in-memory store for tests

SEE ALSO:
  - materializer.go: main consumer of the conditional inserts
  - cache/: MonthCache implementations
*/
package calendar

import "context"

// WideStart and WideEnd bound "all time" queries, e.g. when the
// deduplication sweep or unsubscribe logic needs every linked item.
var (
	WideStart = NewDate(1900, 1, 1)
	WideEnd   = NewDate(3000, 1, 1)
)

// ItemStore persists calendar items.
type ItemStore interface {
	// SaveItem inserts (ID == 0, assigning a new ID) or updates an item.
	// Inserting a rule-linked item that collides with an existing
	// (user, rule, date) occurrence fails; callers that may race the
	// materializer use InsertItemIfAbsent instead.
	SaveItem(ctx context.Context, item *Item) error

	// SaveItems upserts a batch.
	SaveItems(ctx context.Context, items []*Item) error

	// GetItem returns the item owned by user, or nil if absent.
	GetItem(ctx context.Context, userID UserID, id ItemID) (*Item, error)

	// FindItemsByDay returns a user's items on one date, ordered by
	// (startTime, id).
	FindItemsByDay(ctx context.Context, userID UserID, date Date) ([]Item, error)

	// FindItemsByRange returns items in [from, to], ordered by
	// (date, startTime, id).
	FindItemsByRange(ctx context.Context, userID UserID, from, to Date) ([]Item, error)

	// FindItemsByRangeAndCategory is FindItemsByRange filtered to one category.
	FindItemsByRangeAndCategory(ctx context.Context, userID UserID, from, to Date, cat Category) ([]Item, error)

	// FindItemsByRule returns items linked to a rule in [from, to],
	// ordered by (date, startTime, id).
	FindItemsByRule(ctx context.Context, userID UserID, ruleID RuleID, from, to Date) ([]Item, error)

	// InsertItemIfAbsent inserts a rule-linked item unless one already
	// exists for (user, rule, date). Reports whether a row was created.
	InsertItemIfAbsent(ctx context.Context, item *Item) (bool, error)

	// InsertHolidayIfAbsent inserts a holiday item unless one already
	// exists for (user, date, category, title).
	InsertHolidayIfAbsent(ctx context.Context, item *Item) (bool, error)

	// FindItemsBySource returns all items carrying any of the given
	// source tags, across all users, ordered by id.
	FindItemsBySource(ctx context.Context, sources ...Source) ([]Item, error)

	// FindUnnotifiedByDay returns items of one category on a date that
	// have not been notified yet, across all users.
	FindUnnotifiedByDay(ctx context.Context, date Date, cat Category) ([]Item, error)

	DeleteItem(ctx context.Context, id ItemID) error
	DeleteItems(ctx context.Context, ids []ItemID) error
}

// RuleStore persists recurring rules.
type RuleStore interface {
	// SaveRule inserts (ID == 0) or updates a rule.
	SaveRule(ctx context.Context, rule *Rule) error

	// GetRule returns a rule by ID, or nil if absent.
	GetRule(ctx context.Context, id RuleID) (*Rule, error)

	// FindActiveRules returns a user's active rules ordered by
	// (createdAt, id).
	FindActiveRules(ctx context.Context, userID UserID) ([]Rule, error)

	// FindRulesBySignature returns every rule matching the signature,
	// active or not, ordered by (createdAt, id) so the earliest-created
	// rule wins ties.
	FindRulesBySignature(ctx context.Context, sig Signature) ([]Rule, error)

	// AllRules returns every rule ordered by (createdAt, id). Sweep use.
	AllRules(ctx context.Context) ([]Rule, error)
}

// NotificationStore persists notification records.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *Notification) error
	GetNotification(ctx context.Context, userID UserID, id NotificationID) (*Notification, error)
	FindNotifications(ctx context.Context, userID UserID, unreadOnly bool) ([]Notification, error)
}

// Store is the full persistence surface the engine consumes.
type Store interface {
	ItemStore
	RuleStore
	NotificationStore
}

// MonthCache is the advisory per-(user, month) read cache. The store is
// authoritative; implementations fail open (any backend error is a miss)
// and bound staleness with a TTL independent of explicit eviction.
type MonthCache interface {
	Get(ctx context.Context, userID UserID, ym YearMonth) ([]Item, bool)
	Put(ctx context.Context, userID UserID, ym YearMonth, items []Item)
	Evict(ctx context.Context, userID UserID, ym YearMonth)
}
