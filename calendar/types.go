/*
Package calendar provides the core calendar occurrence engine.

PURPOSE:
  This package contains the domain types and algorithms behind a personal
  calendar/finance tracker: recurring rules (subscriptions), lazily
  materialized occurrences, holiday generation, month-level read caching,
  and the deduplication sweep that repairs historical duplicates.

KEY CONCEPTS IN THIS FILE (types.go):
  - Rule: A recurring obligation (e.g. a monthly subscription) with a
    frequency and schedule anchors. Identified across edits by its Signature.
  - Item: A concrete, date-anchored calendar entry. Covers user events,
    generated holidays, and rule occurrences.
  - Notification: A user-facing record created on every mutation.
  - Source: Explicit provenance tag on each item (who created it), used to
    protect system-generated holidays from user edits.

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for monetary amounts to avoid
     floating-point errors.
  2. Type Safety: Strong typing for user/item/rule identifiers.
  3. Explicit provenance: Items carry a Source tag decided at creation
     time; no title sniffing to recognize system entries.
  4. At-most-once materialization: a rule-linked item is unique per
     (user, rule, date); a holiday item per (user, date, category, title).

SEE ALSO:
  - recurrence.go: Occurrence enumeration for rules
  - holiday.go: Norwegian holiday generation
  - materializer.go: Lazy month materialization
  - service.go: Write path, propagation and unsubscribe semantics
  - sweep.go: Duplicate repair pass
*/
package calendar

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID int64
type ItemID int64
type RuleID int64
type NotificationID int64

// =============================================================================
// ENUMS
// =============================================================================

// Category classifies what kind of entry an item is.
type Category string

const (
	CategorySchool    Category = "SCHOOL"
	CategoryWorkout   Category = "WORKOUT"
	CategoryMainMeal  Category = "MAIN_MEAL"
	CategoryJob       Category = "JOB"
	CategoryFixedCost Category = "FIXED_COST"
	CategoryOther     Category = "OTHER"
)

// Source records who created an item. System holidays are recognized by
// their source tag, never by parsing titles.
type Source string

const (
	SourceUser          Source = "USER"
	SourceHolidayMajor  Source = "HOLIDAY_MAJOR"
	SourceHolidayMinor  Source = "HOLIDAY_MINOR"
	SourceRuleGenerated Source = "RULE_GENERATED"
)

// IsSystemHoliday reports whether the source marks a generated holiday entry.
func (s Source) IsSystemHoliday() bool {
	return s == SourceHolidayMajor || s == SourceHolidayMinor
}

type Importance string

const (
	ImportanceLow      Importance = "LOW"
	ImportanceMedium   Importance = "MEDIUM"
	ImportanceHigh     Importance = "HIGH"
	ImportanceCritical Importance = "CRITICAL"
)

// Frequency is how often a rule recurs.
type Frequency string

const (
	FreqMonthly Frequency = "MONTHLY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqYearly  Frequency = "YEARLY"
)

// OrDefault maps an unset or unknown frequency to MONTHLY.
func (f Frequency) OrDefault() Frequency {
	switch f {
	case FreqMonthly, FreqWeekly, FreqYearly:
		return f
	default:
		return FreqMonthly
	}
}

// =============================================================================
// RULE - A recurring obligation
// =============================================================================

// Rule describes a recurring obligation owned by one user.
//
// Anchor semantics depend on Frequency:
//   - MONTHLY: DayOfMonth is the anchor day; DayOfWeek and MonthOfYear are nil.
//   - WEEKLY:  DayOfWeek (1=Monday..7=Sunday) anchors; DayOfMonth is pinned
//     to 1 so it never drifts the signature; MonthOfYear is nil.
//   - YEARLY:  MonthOfYear and DayOfMonth anchor; DayOfWeek is nil.
type Rule struct {
	ID          RuleID
	UserID      UserID
	Title       string
	Amount      decimal.Decimal
	Frequency   Frequency
	DayOfMonth  int
	DayOfWeek   *int
	MonthOfYear *int
	Active      bool
	CreatedAt   time.Time
}

// Signature is the natural key identifying "the same" rule across edits and
// duplicates. At most one ACTIVE rule per signature should exist; the
// deduplication sweep restores this invariant when violated.
type Signature struct {
	UserID      UserID
	Title       string
	Amount      string
	Frequency   Frequency
	DayOfMonth  int
	DayOfWeek   int // 0 when unset
	MonthOfYear int // 0 when unset
}

func (r Rule) Signature() Signature {
	sig := Signature{
		UserID:     r.UserID,
		Title:      r.Title,
		Amount:     r.Amount.String(),
		Frequency:  r.Frequency.OrDefault(),
		DayOfMonth: r.DayOfMonth,
	}
	if r.DayOfWeek != nil {
		sig.DayOfWeek = *r.DayOfWeek
	}
	if r.MonthOfYear != nil {
		sig.MonthOfYear = *r.MonthOfYear
	}
	return sig
}

// =============================================================================
// ITEM - A concrete, date-anchored calendar entry
// =============================================================================

// Item is one row on the calendar: a user event, a generated holiday, or a
// materialized rule occurrence. Times are optional "HH:MM" strings.
type Item struct {
	ID         ItemID
	UserID     UserID
	Date       Date
	StartTime  string
	EndTime    string
	Category   Category
	Importance Importance
	Title      string
	Log        string
	Done       bool
	Amount     *decimal.Decimal
	Source     Source
	RuleID     *RuleID
	Notified   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// NOTIFICATION - User-facing record of something that happened
// =============================================================================

type NotificationType string

const (
	NotifyItemCreated NotificationType = "ITEM_CREATED"
	NotifyItemUpdated NotificationType = "ITEM_UPDATED"
	NotifyItemDeleted NotificationType = "ITEM_DELETED"
	NotifyUpcoming    NotificationType = "UPCOMING"
)

type Notification struct {
	ID         NotificationID
	UserID     UserID
	Type       NotificationType
	Importance Importance
	Message    string
	ItemID     *ItemID
	Read       bool
	CreatedAt  time.Time
}

// =============================================================================
// EVENTS - Logical mutation events for downstream fan-out
// =============================================================================

type EventKind string

const (
	EventItemCreated EventKind = "ITEM_CREATED"
	EventItemUpdated EventKind = "ITEM_UPDATED"
	EventItemDeleted EventKind = "ITEM_DELETED"
)

// EventPublisher receives one logical event per entry mutation. Delivery is
// fire-and-forget: implementations must never return failures into the
// mutation path.
type EventPublisher interface {
	ItemEvent(kind EventKind, item Item)
	NotificationCreated(n Notification)
}

// NopPublisher discards all events. Useful in tests and tools.
type NopPublisher struct{}

func (NopPublisher) ItemEvent(EventKind, Item)         {}
func (NopPublisher) NotificationCreated(Notification)  {}
