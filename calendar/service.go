/*
Calendar write path and read path.

PURPOSE:
  Service is the single entry point for calendar item mutations and queries.
  It owns the rules that make them safe:
  - Reads materialize the requested month first (rule occurrences + holidays).
  - Every write evicts the month caches it touched, after the write.
  - FIXED_COST items are backed by a recurring Rule; editing one occurrence
    edits the rule and propagates title/amount to occurrences from today
    forward. Past occurrences are historical record and never change.
  - Deleting a rule-linked occurrence unsubscribes: the rule is deactivated
    and all its occurrences dated today or later are removed.
  - System-generated holiday items cannot be edited or deleted.

SEE ALSO:
  - materializer.go: EnsureMonth
  - store.go: Persistence and cache contracts
*/
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store         Store
	Cache         MonthCache
	Events        EventPublisher
	Notifications *NotificationService
	Log           *logrus.Logger

	// Now returns the current day; injected so the today-forward propagation
	// boundary is testable.
	Now func() Date

	mat *Materializer
}

func NewService(store Store, cache MonthCache, events EventPublisher, notifications *NotificationService, log *logrus.Logger) *Service {
	return &Service{
		Store:         store,
		Cache:         cache,
		Events:        events,
		Notifications: notifications,
		Log:           log,
		Now:           Today,
		mat:           &Materializer{Store: store, Cache: cache},
	}
}

// ItemInput carries the user-editable fields of a calendar item.
type ItemInput struct {
	Date       Date
	StartTime  string
	EndTime    string
	Category   Category
	Importance Importance
	Title      string
	Log        string
	Done       *bool
	Amount     *decimal.Decimal

	// Frequency only matters for FIXED_COST items; empty means "keep the
	// linked rule's frequency" on update and MONTHLY on create.
	Frequency Frequency
}

// =============================================================================
// READS
// =============================================================================

// ListDay returns the user's items on one day, materializing the surrounding
// month first so rule occurrences and holidays exist before they are read.
func (s *Service) ListDay(ctx context.Context, userID UserID, date Date, cat *Category) ([]Item, error) {
	if err := s.ensureFor(ctx, userID, date.YearMonth(), cat); err != nil {
		return nil, err
	}
	if cat != nil {
		return s.Store.FindItemsByRangeAndCategory(ctx, userID, date, date, *cat)
	}
	return s.Store.FindItemsByDay(ctx, userID, date)
}

// ListMonth returns the user's items for one month. Only the unfiltered
// variant is served from (and written to) the month cache; category-filtered
// queries always hit the store.
func (s *Service) ListMonth(ctx context.Context, userID UserID, ym YearMonth, cat *Category) ([]Item, error) {
	if err := s.ensureFor(ctx, userID, ym, cat); err != nil {
		return nil, err
	}
	if cat != nil {
		return s.Store.FindItemsByRangeAndCategory(ctx, userID, ym.First(), ym.Last(), *cat)
	}
	if items, ok := s.Cache.Get(ctx, userID, ym); ok {
		return items, nil
	}
	items, err := s.Store.FindItemsByRange(ctx, userID, ym.First(), ym.Last())
	if err != nil {
		return nil, err
	}
	s.Cache.Put(ctx, userID, ym, items)
	return items, nil
}

// EnsureMonth materializes rule occurrences and holidays for one month.
func (s *Service) EnsureMonth(ctx context.Context, userID UserID, ym YearMonth) error {
	return s.mat.EnsureMonth(ctx, userID, ym)
}

// ensureFor runs materialization when generated content (rule occurrences
// or holidays) can appear in the response. EnsureMonth is idempotent, so
// running it for unfiltered reads on every request is safe.
func (s *Service) ensureFor(ctx context.Context, userID UserID, ym YearMonth, cat *Category) error {
	if cat == nil || *cat == CategoryFixedCost || *cat == CategoryOther {
		return s.mat.EnsureMonth(ctx, userID, ym)
	}
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

// Create adds a new user item. A FIXED_COST item is linked to a recurring
// rule: an existing active-or-inactive rule with the same signature is
// reused (and reactivated), otherwise a new rule is created.
func (s *Service) Create(ctx context.Context, userID UserID, in ItemInput) (*Item, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	item := &Item{
		UserID:     userID,
		Date:       in.Date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Category:   in.Category,
		Importance: importanceOrMedium(in.Importance),
		Title:      in.Title,
		Log:        in.Log,
		Amount:     in.Amount,
		Source:     SourceUser,
	}
	if in.Done != nil {
		item.Done = *in.Done
	}
	if in.Category == CategoryFixedCost {
		rule, err := s.resolveRule(ctx, userID, nil, in)
		if err != nil {
			return nil, err
		}
		rid := rule.ID
		item.RuleID = &rid
		created, err := s.Store.InsertItemIfAbsent(ctx, item)
		if err != nil {
			return nil, err
		}
		if !created {
			// The materializer already generated an occurrence for this
			// rule and date. Creating it again converges on the existing
			// row instead of tripping the uniqueness constraint.
			existing, err := s.Store.FindItemsByRule(ctx, userID, rule.ID, in.Date, in.Date)
			if err != nil {
				return nil, err
			}
			if len(existing) == 0 {
				return nil, fmt.Errorf("occurrence for rule %d on %s disappeared during create", rule.ID, in.Date)
			}
			item.ID = existing[0].ID
			item.CreatedAt = existing[0].CreatedAt
			if err := s.Store.SaveItem(ctx, item); err != nil {
				return nil, err
			}
		}
	} else if err := s.Store.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	s.Cache.Evict(ctx, userID, item.Date.YearMonth())
	s.emit(ctx, EventItemCreated, *item, NotifyItemCreated,
		fmt.Sprintf("Created %s on %s: %s", item.Category, item.Date, item.Title))
	return item, nil
}

// Update edits an existing item. For FIXED_COST items the linked rule is
// updated in place and the new title/amount propagate to every occurrence of
// the rule dated today or later; months touched by propagation are evicted.
func (s *Service) Update(ctx context.Context, userID UserID, id ItemID, in ItemInput) (*Item, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	item, err := s.Store.GetItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("calendar item %d: %w", id, ErrNotFound)
	}
	if item.Source.IsSystemHoliday() {
		return nil, fmt.Errorf("item %d is a generated holiday: %w", id, ErrProtectedItem)
	}

	oldMonth := item.Date.YearMonth()
	item.Date = in.Date
	item.StartTime = in.StartTime
	item.EndTime = in.EndTime
	item.Category = in.Category
	item.Importance = importanceOrMedium(in.Importance)
	item.Title = in.Title
	item.Log = in.Log
	item.Amount = in.Amount
	if in.Done != nil {
		item.Done = *in.Done
	}

	touched := map[YearMonth]struct{}{oldMonth: {}, item.Date.YearMonth(): {}}

	if in.Category == CategoryFixedCost {
		var current *Rule
		if item.RuleID != nil {
			current, err = s.Store.GetRule(ctx, *item.RuleID)
			if err != nil {
				return nil, err
			}
		}
		rule, err := s.resolveRule(ctx, userID, current, in)
		if err != nil {
			return nil, err
		}
		rid := rule.ID
		item.RuleID = &rid
		// A date move can land on a date the rule already covers with a
		// materialized occurrence; the edited item replaces it, otherwise
		// the save would violate the per-rule-per-date uniqueness.
		onDate, err := s.Store.FindItemsByRule(ctx, userID, rule.ID, item.Date, item.Date)
		if err != nil {
			return nil, err
		}
		for _, other := range onDate {
			if other.ID == item.ID {
				continue
			}
			if err := s.Store.DeleteItem(ctx, other.ID); err != nil {
				return nil, err
			}
		}
		if err := s.Store.SaveItem(ctx, item); err != nil {
			return nil, err
		}
		months, err := s.propagate(ctx, userID, *rule)
		if err != nil {
			return nil, err
		}
		for _, ym := range months {
			touched[ym] = struct{}{}
		}
	} else {
		// Changing category away from FIXED_COST detaches the occurrence;
		// the rule itself stays active.
		item.RuleID = nil
		if err := s.Store.SaveItem(ctx, item); err != nil {
			return nil, err
		}
	}

	for ym := range touched {
		s.Cache.Evict(ctx, userID, ym)
	}
	s.emit(ctx, EventItemUpdated, *item, NotifyItemUpdated,
		fmt.Sprintf("Updated %s on %s: %s", item.Category, item.Date, item.Title))
	return item, nil
}

// Delete removes an item. Deleting a rule-linked FIXED_COST occurrence is an
// unsubscribe: the rule is deactivated and every occurrence dated today or
// later is removed with it. Occurrences in the past stay untouched, even the
// one that was clicked.
func (s *Service) Delete(ctx context.Context, userID UserID, id ItemID) error {
	item, err := s.Store.GetItem(ctx, userID, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("calendar item %d: %w", id, ErrNotFound)
	}
	if item.Source.IsSystemHoliday() {
		return fmt.Errorf("item %d is a generated holiday: %w", id, ErrProtectedItem)
	}

	if item.Category == CategoryFixedCost && item.RuleID != nil {
		return s.unsubscribe(ctx, userID, item)
	}

	month := item.Date.YearMonth()
	if err := s.Store.DeleteItem(ctx, item.ID); err != nil {
		return err
	}
	s.Cache.Evict(ctx, userID, month)
	s.emit(ctx, EventItemDeleted, *item, NotifyItemDeleted,
		fmt.Sprintf("Deleted %s on %s: %s", item.Category, item.Date, item.Title))
	return nil
}

// =============================================================================
// RULE RESOLUTION, PROPAGATION, UNSUBSCRIBE
// =============================================================================

// resolveRule returns the rule backing a FIXED_COST item.
//
// With no current rule (create, or an unlinked item), an existing rule with
// the same signature is reused and reactivated; the earliest-created match
// wins when duplicates exist. Otherwise a new rule is created.
//
// With a current rule (the item is already linked), the rule is updated in
// place so all its occurrences stay attached to the same rule ID.
func (s *Service) resolveRule(ctx context.Context, userID UserID, current *Rule, in ItemInput) (*Rule, error) {
	freq := in.Frequency
	if freq == "" && current != nil {
		freq = current.Frequency
	}
	freq = freq.OrDefault()

	// Anchors derive from the item's date per frequency. WEEKLY pins
	// DayOfMonth to 1 so occurrences in different weeks share a signature.
	dayOfMonth := 1
	var dayOfWeek, monthOfYear *int
	switch freq {
	case FreqWeekly:
		dow := in.Date.ISOWeekday()
		dayOfWeek = &dow
	case FreqYearly:
		mo := int(in.Date.Month())
		monthOfYear = &mo
		dayOfMonth = in.Date.Day()
	default:
		dayOfMonth = in.Date.Day()
	}

	amount := decimal.Zero
	if in.Amount != nil {
		amount = *in.Amount
	}

	if current != nil {
		current.Title = in.Title
		current.Amount = amount
		current.Frequency = freq
		current.DayOfMonth = dayOfMonth
		current.DayOfWeek = dayOfWeek
		current.MonthOfYear = monthOfYear
		current.Active = true
		if err := s.Store.SaveRule(ctx, current); err != nil {
			return nil, err
		}
		return current, nil
	}

	candidate := Rule{
		UserID:      userID,
		Title:       in.Title,
		Amount:      amount,
		Frequency:   freq,
		DayOfMonth:  dayOfMonth,
		DayOfWeek:   dayOfWeek,
		MonthOfYear: monthOfYear,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	matches, err := s.Store.FindRulesBySignature(ctx, candidate.Signature())
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		rule := matches[0]
		rule.Active = true
		if err := s.Store.SaveRule(ctx, &rule); err != nil {
			return nil, err
		}
		return &rule, nil
	}
	if err := s.Store.SaveRule(ctx, &candidate); err != nil {
		return nil, err
	}
	return &candidate, nil
}

// propagate copies the rule's title and amount onto every occurrence dated
// today or later and reports the months it touched.
func (s *Service) propagate(ctx context.Context, userID UserID, rule Rule) ([]YearMonth, error) {
	future, err := s.Store.FindItemsByRule(ctx, userID, rule.ID, s.Now(), WideEnd)
	if err != nil {
		return nil, err
	}
	months := make(map[YearMonth]struct{})
	updated := make([]*Item, 0, len(future))
	for i := range future {
		it := future[i]
		it.Title = rule.Title
		amt := rule.Amount
		it.Amount = &amt
		updated = append(updated, &it)
		months[it.Date.YearMonth()] = struct{}{}
	}
	if len(updated) > 0 {
		if err := s.Store.SaveItems(ctx, updated); err != nil {
			return nil, err
		}
	}
	result := make([]YearMonth, 0, len(months))
	for ym := range months {
		result = append(result, ym)
	}
	return result, nil
}

func (s *Service) unsubscribe(ctx context.Context, userID UserID, item *Item) error {
	rule, err := s.Store.GetRule(ctx, *item.RuleID)
	if err != nil {
		return err
	}
	if rule == nil {
		// Dangling link; fall back to a plain delete.
		if err := s.Store.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		s.Cache.Evict(ctx, userID, item.Date.YearMonth())
		return nil
	}

	// Only the today-forward window is cleared. When the clicked occurrence
	// is dated in the past it stays behind as historical record; the rule
	// still deactivates.
	future, err := s.Store.FindItemsByRule(ctx, userID, rule.ID, s.Now(), WideEnd)
	if err != nil {
		return err
	}
	ids := make([]ItemID, 0, len(future))
	months := make(map[YearMonth]struct{})
	for _, it := range future {
		ids = append(ids, it.ID)
		months[it.Date.YearMonth()] = struct{}{}
	}
	if len(ids) > 0 {
		if err := s.Store.DeleteItems(ctx, ids); err != nil {
			return err
		}
	}
	rule.Active = false
	if err := s.Store.SaveRule(ctx, rule); err != nil {
		return err
	}
	for ym := range months {
		s.Cache.Evict(ctx, userID, ym)
	}
	s.emit(ctx, EventItemDeleted, *item, NotifyItemDeleted,
		fmt.Sprintf("Unsubscribed from %s: %s", item.Category, rule.Title))
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// emit publishes the mutation event and records a notification. Both are
// fire-and-forget; the mutation already succeeded.
func (s *Service) emit(ctx context.Context, kind EventKind, item Item, nt NotificationType, msg string) {
	s.Events.ItemEvent(kind, item)
	id := item.ID
	s.Notifications.Record(ctx, Notification{
		UserID:     item.UserID,
		Type:       nt,
		Importance: item.Importance,
		Message:    msg,
		ItemID:     &id,
	})
}

func importanceOrMedium(imp Importance) Importance {
	switch imp {
	case ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical:
		return imp
	default:
		return ImportanceMedium
	}
}

var validCategories = map[Category]struct{}{
	CategorySchool:    {},
	CategoryWorkout:   {},
	CategoryMainMeal:  {},
	CategoryJob:       {},
	CategoryFixedCost: {},
	CategoryOther:     {},
}

func validateInput(in ItemInput) error {
	if in.Date.IsZero() {
		return invalidf("date", "required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return invalidf("title", "required")
	}
	if _, ok := validCategories[in.Category]; !ok {
		return invalidf("category", "unknown category %q", in.Category)
	}
	start, err := parseClock(in.StartTime)
	if err != nil {
		return invalidf("startTime", "invalid time %q, want HH:MM", in.StartTime)
	}
	end, err := parseClock(in.EndTime)
	if err != nil {
		return invalidf("endTime", "invalid time %q, want HH:MM", in.EndTime)
	}
	if in.StartTime != "" && in.EndTime != "" && end.Before(start) {
		return invalidf("endTime", "must not be before startTime")
	}
	if in.Category == CategoryFixedCost && in.Amount == nil {
		return invalidf("amount", "required for %s items", CategoryFixedCost)
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("15:04", s)
}
