/*
Deduplication sweep.

PURPOSE:
  Repairs duplicates that predate the unique-constrained insert path:
  - duplicate generated holidays on the same (user, date, title),
  - multiple active rules sharing one signature,
  - multiple occurrences of one rule on the same date.

  The sweep is a maintenance pass, run at startup and on a schedule. It is
  best-effort: a failing pass is reported but never stops the others, and
  the caller decides how to log the outcome.
*/
package calendar

import (
	"context"
	"errors"
	"sort"
)

// =============================================================================
// SWEEP
// =============================================================================

type Sweep struct {
	Store Store
	Cache MonthCache
}

// SweepStats summarizes what one sweep run removed.
type SweepStats struct {
	HolidaysRemoved  int
	ItemsRemoved     int
	RulesDeactivated int
	MonthsEvicted    int
}

// Run executes the three passes and evicts every month the sweep changed.
// Passes run independently; the returned error joins any pass failures.
func (s *Sweep) Run(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	touched := make(map[monthKey]struct{})

	errHolidays := s.dedupHolidays(ctx, &stats, touched)
	errRules := s.dedupRules(ctx, &stats, touched)
	errItems := s.dedupRuleItems(ctx, &stats, touched)

	for key := range touched {
		s.Cache.Evict(ctx, key.user, key.ym)
		stats.MonthsEvicted++
	}
	return stats, errors.Join(errHolidays, errRules, errItems)
}

type monthKey struct {
	user UserID
	ym   YearMonth
}

// dedupHolidays keeps the earliest-inserted holiday item per
// (user, date, title) and removes the rest.
func (s *Sweep) dedupHolidays(ctx context.Context, stats *SweepStats, touched map[monthKey]struct{}) error {
	holidays, err := s.Store.FindItemsBySource(ctx, SourceHolidayMajor, SourceHolidayMinor)
	if err != nil {
		return err
	}

	type holidayKey struct {
		user  UserID
		date  Date
		title string
	}
	best := make(map[holidayKey]ItemID)
	for _, it := range holidays {
		key := holidayKey{user: it.UserID, date: it.Date, title: it.Title}
		if keep, ok := best[key]; !ok || it.ID < keep {
			best[key] = it.ID
		}
	}

	var doomed []ItemID
	for _, it := range holidays {
		key := holidayKey{user: it.UserID, date: it.Date, title: it.Title}
		if it.ID != best[key] {
			doomed = append(doomed, it.ID)
			touched[monthKey{user: it.UserID, ym: it.Date.YearMonth()}] = struct{}{}
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	if err := s.Store.DeleteItems(ctx, doomed); err != nil {
		return err
	}
	stats.HolidaysRemoved += len(doomed)
	return nil
}

// dedupRules keeps the earliest-created rule per signature, active or not;
// every later duplicate is deactivated and all of its occurrences removed.
func (s *Sweep) dedupRules(ctx context.Context, stats *SweepStats, touched map[monthKey]struct{}) error {
	rules, err := s.Store.AllRules(ctx)
	if err != nil {
		return err
	}

	bySig := make(map[Signature][]Rule)
	for _, r := range rules {
		sig := r.Signature()
		bySig[sig] = append(bySig[sig], r)
	}

	var firstErr error
	for _, group := range bySig {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		for _, dup := range group[1:] {
			if err := s.retireRule(ctx, dup, stats, touched); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Sweep) retireRule(ctx context.Context, rule Rule, stats *SweepStats, touched map[monthKey]struct{}) error {
	items, err := s.Store.FindItemsByRule(ctx, rule.UserID, rule.ID, WideStart, WideEnd)
	if err != nil {
		return err
	}
	ids := make([]ItemID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
		touched[monthKey{user: it.UserID, ym: it.Date.YearMonth()}] = struct{}{}
	}
	if len(ids) > 0 {
		if err := s.Store.DeleteItems(ctx, ids); err != nil {
			return err
		}
		stats.ItemsRemoved += len(ids)
	}
	if rule.Active {
		rule.Active = false
		if err := s.Store.SaveRule(ctx, &rule); err != nil {
			return err
		}
		stats.RulesDeactivated++
	}
	return nil
}

// dedupRuleItems removes extra occurrences of a single rule landing on the
// same date, keeping the earliest-inserted one.
func (s *Sweep) dedupRuleItems(ctx context.Context, stats *SweepStats, touched map[monthKey]struct{}) error {
	rules, err := s.Store.AllRules(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, rule := range rules {
		items, err := s.Store.FindItemsByRule(ctx, rule.UserID, rule.ID, WideStart, WideEnd)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		best := make(map[Date]ItemID)
		for _, it := range items {
			if keep, ok := best[it.Date]; !ok || it.ID < keep {
				best[it.Date] = it.ID
			}
		}
		var doomed []ItemID
		for _, it := range items {
			if it.ID != best[it.Date] {
				doomed = append(doomed, it.ID)
				touched[monthKey{user: it.UserID, ym: it.Date.YearMonth()}] = struct{}{}
			}
		}
		if len(doomed) == 0 {
			continue
		}
		if err := s.Store.DeleteItems(ctx, doomed); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		stats.ItemsRemoved += len(doomed)
	}
	return firstErr
}
