/*
materializer.go - Lazy month materialization

PURPOSE:
  Ensures that all recurrence-derived calendar items exist for a requested
  (user, month) window before it is read: one linked item per rule
  occurrence, one holiday item per generated holiday.

IDEMPOTENCE & CONCURRENCY:
  EnsureMonth is safe to call repeatedly and concurrently for the same or
  different keys. Uniqueness is enforced by the store's conditional
  inserts, so two racing callers for the same month cannot both create the
  same occurrence: the loser's insert is a no-op. The deduplication sweep
  remains in place to repair rows that predate this guarantee.

CACHE DISCIPLINE:
  The month cache key is evicted only after at least one insert actually
  happened, and always after the store writes (write-then-evict).

SEE ALSO:
  - recurrence.go, holiday.go: the pure generators
  - sweep.go: repair pass for historical duplicates
*/
package calendar

import (
	"context"
	"fmt"
)

// Materializer generates missing occurrence items for a month on demand.
type Materializer struct {
	Store Store
	Cache MonthCache
}

// EnsureMonth materializes all rule occurrences and holidays for the
// user's month. Idempotent.
func (m *Materializer) EnsureMonth(ctx context.Context, userID UserID, ym YearMonth) error {
	createdRules, err := m.ensureRuleOccurrences(ctx, userID, ym)
	if err != nil {
		return err
	}
	createdHolidays, err := m.ensureHolidays(ctx, userID, ym)
	if err != nil {
		return err
	}
	if createdRules || createdHolidays {
		m.Cache.Evict(ctx, userID, ym)
	}
	return nil
}

func (m *Materializer) ensureRuleOccurrences(ctx context.Context, userID UserID, ym YearMonth) (bool, error) {
	rules, err := m.Store.FindActiveRules(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load active rules: %w", err)
	}

	created := false
	for _, rule := range rules {
		rule := rule
		for _, date := range OccurrencesInMonth(rule, ym) {
			item := occurrenceItem(rule, date)
			ok, err := m.Store.InsertItemIfAbsent(ctx, &item)
			if err != nil {
				return created, fmt.Errorf("materialize rule %d on %s: %w", rule.ID, date, err)
			}
			created = created || ok
		}
	}
	return created, nil
}

func (m *Materializer) ensureHolidays(ctx context.Context, userID UserID, ym YearMonth) (bool, error) {
	created := false
	for _, h := range HolidaysInMonth(ym) {
		item := holidayItem(userID, h)
		ok, err := m.Store.InsertHolidayIfAbsent(ctx, &item)
		if err != nil {
			return created, fmt.Errorf("materialize holiday %s: %w", h.Code, err)
		}
		created = created || ok
	}
	return created, nil
}

// occurrenceItem builds the concrete item for one rule occurrence. Title
// and amount are copied from the rule at insertion time; later rule edits
// reach existing items only through explicit propagation.
func occurrenceItem(rule Rule, date Date) Item {
	amount := rule.Amount
	ruleID := rule.ID
	return Item{
		UserID:     rule.UserID,
		Date:       date,
		Category:   CategoryFixedCost,
		Importance: ImportanceMedium,
		Title:      rule.Title,
		Amount:     &amount,
		Source:     SourceRuleGenerated,
		RuleID:     &ruleID,
	}
}

func holidayItem(userID UserID, h Holiday) Item {
	return Item{
		UserID:     userID,
		Date:       h.Date,
		Category:   CategoryOther,
		Importance: ImportanceLow,
		Title:      h.Title,
		Source:     h.Source,
	}
}
