package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/calendar-engine/cache"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/calendar/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*calendar.Service, *store.Memory, *cache.Memory) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	st := store.NewMemory()
	ca := cache.NewMemory(0)
	notifications := calendar.NewNotificationService(st, calendar.NopPublisher{}, log)
	svc := calendar.NewService(st, ca, calendar.NopPublisher{}, notifications, log)
	svc.Now = func() calendar.Date { return calendar.NewDate(2024, time.May, 1) }
	return svc, st, ca
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func fixedCostInput(title string, date calendar.Date, amt int64) calendar.ItemInput {
	return calendar.ItemInput{
		Date:      date,
		Category:  calendar.CategoryFixedCost,
		Title:     title,
		Amount:    amount(amt),
		Frequency: calendar.FreqMonthly,
	}
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_PlainItem(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	item, err := svc.Create(ctx, user, calendar.ItemInput{
		Date:      calendar.NewDate(2024, time.May, 10),
		Category:  calendar.CategoryJob,
		Title:     "Standup",
		StartTime: "09:00",
		EndTime:   "09:15",
	})
	require.NoError(t, err)

	assert.Equal(t, calendar.SourceUser, item.Source)
	assert.Equal(t, calendar.ImportanceMedium, item.Importance, "unset importance defaults to MEDIUM")
	assert.Nil(t, item.RuleID)

	stored, err := st.GetItem(ctx, user, item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Standup", stored.Title)
}

func TestCreate_FixedCostCreatesRule(t *testing.T) {
	// GIVEN: No rules
	// WHEN: Creating a FIXED_COST item
	// THEN: A monthly rule anchored on the item's day appears, linked to it

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	item, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.May, 15), 129))
	require.NoError(t, err)
	require.NotNil(t, item.RuleID)

	rule, err := st.GetRule(ctx, *item.RuleID)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "Netflix", rule.Title)
	assert.True(t, rule.Active)
	assert.Equal(t, calendar.FreqMonthly, rule.Frequency)
	assert.Equal(t, 15, rule.DayOfMonth)
	assert.True(t, rule.Amount.Equal(decimal.NewFromInt(129)))
}

func TestCreate_FixedCostReusesRuleWithSameSignature(t *testing.T) {
	// GIVEN: An existing rule from a previous FIXED_COST item
	// WHEN: Creating another item with an identical signature
	// THEN: The existing rule is reused instead of duplicated

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	first, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.May, 15), 129))
	require.NoError(t, err)
	second, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.June, 15), 129))
	require.NoError(t, err)

	assert.Equal(t, *first.RuleID, *second.RuleID)

	rules, err := st.AllRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestCreate_FixedCostConvergesOnMaterializedOccurrence(t *testing.T) {
	// GIVEN: A rule whose June occurrence the materializer already generated
	// WHEN: The user creates the same subscription on that June date
	// THEN: The create succeeds by adopting the existing occurrence
	//       instead of failing on the per-rule-per-date uniqueness

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	first, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.May, 15), 129))
	require.NoError(t, err)
	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.June}))

	second, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.June, 15), 129))
	require.NoError(t, err)
	assert.Equal(t, *first.RuleID, *second.RuleID)
	assert.Equal(t, calendar.SourceUser, second.Source, "the adopted occurrence now belongs to the user")

	june, err := st.FindItemsByRule(ctx, user, *first.RuleID, calendar.NewDate(2024, time.June, 15), calendar.NewDate(2024, time.June, 15))
	require.NoError(t, err)
	require.Len(t, june, 1, "no duplicate occurrence on the date")
	assert.Equal(t, second.ID, june[0].ID)
}

func TestCreate_WeeklyFixedCostPinsDayOfMonth(t *testing.T) {
	// GIVEN: A weekly FIXED_COST created on a Wednesday
	// THEN: The rule anchors on the weekday and pins day-of-month to 1,
	//       so another week's occurrence maps to the same rule

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	in := fixedCostInput("Cleaner", calendar.NewDate(2024, time.May, 15), 500) // a Wednesday
	in.Frequency = calendar.FreqWeekly
	item, err := svc.Create(ctx, user, in)
	require.NoError(t, err)

	rule, err := st.GetRule(ctx, *item.RuleID)
	require.NoError(t, err)
	assert.Equal(t, 1, rule.DayOfMonth)
	require.NotNil(t, rule.DayOfWeek)
	assert.Equal(t, 3, *rule.DayOfWeek)

	in2 := fixedCostInput("Cleaner", calendar.NewDate(2024, time.May, 22), 500) // next Wednesday
	in2.Frequency = calendar.FreqWeekly
	item2, err := svc.Create(ctx, user, in2)
	require.NoError(t, err)
	assert.Equal(t, *item.RuleID, *item2.RuleID)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	cases := map[string]calendar.ItemInput{
		"missing title": {
			Date:     calendar.NewDate(2024, time.May, 10),
			Category: calendar.CategoryJob,
		},
		"missing date": {
			Category: calendar.CategoryJob,
			Title:    "x",
		},
		"unknown category": {
			Date:     calendar.NewDate(2024, time.May, 10),
			Category: "PARTY",
			Title:    "x",
		},
		"bad start time": {
			Date:      calendar.NewDate(2024, time.May, 10),
			Category:  calendar.CategoryJob,
			Title:     "x",
			StartTime: "25:99",
		},
		"end before start": {
			Date:      calendar.NewDate(2024, time.May, 10),
			Category:  calendar.CategoryJob,
			Title:     "x",
			StartTime: "14:00",
			EndTime:   "09:00",
		},
		"fixed cost without amount": {
			Date:     calendar.NewDate(2024, time.May, 10),
			Category: calendar.CategoryFixedCost,
			Title:    "x",
		},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, user, in)
			assert.ErrorIs(t, err, calendar.ErrValidation)
		})
	}
}

// =============================================================================
// READS AND CACHE COHERENCE
// =============================================================================

func TestListMonth_CachesAndStaysCoherent(t *testing.T) {
	// GIVEN: A month served (and cached) once
	// WHEN: A new item is created in that month
	// THEN: The next read reflects it; the write evicted the stale entry

	svc, _, ca := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)
	may := calendar.YearMonth{Year: 2024, Month: time.May}

	first, err := svc.ListMonth(ctx, user, may, nil)
	require.NoError(t, err)
	_, ok := ca.Get(ctx, user, may)
	assert.True(t, ok, "unfiltered month read populates the cache")

	_, err = svc.Create(ctx, user, calendar.ItemInput{
		Date:     calendar.NewDate(2024, time.May, 10),
		Category: calendar.CategoryJob,
		Title:    "Interview",
	})
	require.NoError(t, err)

	second, err := svc.ListMonth(ctx, user, may, nil)
	require.NoError(t, err)
	assert.Len(t, second, len(first)+1)
}

func TestListMonth_CategoryFilterBypassesCache(t *testing.T) {
	svc, _, ca := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)
	may := calendar.YearMonth{Year: 2024, Month: time.May}

	cat := calendar.CategoryFixedCost
	_, err := svc.ListMonth(ctx, user, may, &cat)
	require.NoError(t, err)

	_, ok := ca.Get(ctx, user, may)
	assert.False(t, ok, "filtered reads must not populate the month cache")
}

func TestListDay_MaterializesHolidays(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	items, err := svc.ListDay(ctx, user, calendar.NewDate(2024, time.May, 17), nil)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Helligdag: 17. mai", items[0].Title)
	assert.Equal(t, calendar.SourceHolidayMajor, items[0].Source)
}

func TestListDay_OrderedByStartTime(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)
	day := calendar.NewDate(2024, time.May, 10)

	for _, start := range []string{"13:00", "", "09:00"} {
		_, err := svc.Create(ctx, user, calendar.ItemInput{
			Date:      day,
			Category:  calendar.CategoryJob,
			Title:     "slot",
			StartTime: start,
		})
		require.NoError(t, err)
	}

	items, err := svc.ListDay(ctx, user, day, nil)
	require.NoError(t, err)

	var starts []string
	for _, it := range items {
		starts = append(starts, it.StartTime)
	}
	assert.Equal(t, []string{"", "09:00", "13:00"}, starts, "items without a start time come first")
}

// =============================================================================
// UPDATE AND PROPAGATION
// =============================================================================

func TestUpdate_FixedCostPropagatesForwardOnly(t *testing.T) {
	// GIVEN: A rule with occurrences in April, May and June; today is May 1
	// WHEN: Renaming and repricing the May occurrence
	// THEN: May and June occurrences change; April stays historical

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	created, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.May, 15), 129))
	require.NoError(t, err)
	ruleID := *created.RuleID

	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.April}))
	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.June}))

	in := fixedCostInput("Netflix Premium", calendar.NewDate(2024, time.May, 15), 169)
	_, err = svc.Update(ctx, user, created.ID, in)
	require.NoError(t, err)

	occurrences, err := st.FindItemsByRule(ctx, user, ruleID, calendar.WideStart, calendar.WideEnd)
	require.NoError(t, err)
	require.Len(t, occurrences, 3)

	april, may, june := occurrences[0], occurrences[1], occurrences[2]

	assert.Equal(t, "Netflix", april.Title, "past occurrence must stay untouched")
	assert.True(t, april.Amount.Equal(decimal.NewFromInt(129)))

	assert.Equal(t, "Netflix Premium", may.Title)
	assert.True(t, may.Amount.Equal(decimal.NewFromInt(169)))
	assert.Equal(t, "Netflix Premium", june.Title)
	assert.True(t, june.Amount.Equal(decimal.NewFromInt(169)))

	rule, err := st.GetRule(ctx, ruleID)
	require.NoError(t, err)
	assert.Equal(t, "Netflix Premium", rule.Title, "the rule itself is edited in place")
	assert.True(t, rule.Amount.Equal(decimal.NewFromInt(169)))
}

func TestUpdate_FixedCostDateMoveReplacesMaterializedOccurrence(t *testing.T) {
	// GIVEN: A materialized June occurrence of the rule
	// WHEN: Moving the May occurrence onto that June date
	// THEN: The edited item replaces the materialized one; no duplicate

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	created, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.May, 15), 129))
	require.NoError(t, err)
	ruleID := *created.RuleID
	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.June}))

	_, err = svc.Update(ctx, user, created.ID, fixedCostInput("Netflix", calendar.NewDate(2024, time.June, 15), 129))
	require.NoError(t, err)

	occurrences, err := st.FindItemsByRule(ctx, user, ruleID, calendar.WideStart, calendar.WideEnd)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, created.ID, occurrences[0].ID)
	assert.Equal(t, calendar.NewDate(2024, time.June, 15), occurrences[0].Date)
}

func TestUpdate_MonthMoveEvictsBothMonths(t *testing.T) {
	svc, _, ca := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)
	may := calendar.YearMonth{Year: 2024, Month: time.May}
	june := calendar.YearMonth{Year: 2024, Month: time.June}

	item, err := svc.Create(ctx, user, calendar.ItemInput{
		Date:     calendar.NewDate(2024, time.May, 10),
		Category: calendar.CategoryJob,
		Title:    "Interview",
	})
	require.NoError(t, err)

	// Warm both month caches.
	_, err = svc.ListMonth(ctx, user, may, nil)
	require.NoError(t, err)
	_, err = svc.ListMonth(ctx, user, june, nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, user, item.ID, calendar.ItemInput{
		Date:     calendar.NewDate(2024, time.June, 10),
		Category: calendar.CategoryJob,
		Title:    "Interview",
	})
	require.NoError(t, err)

	_, okMay := ca.Get(ctx, user, may)
	_, okJune := ca.Get(ctx, user, june)
	assert.False(t, okMay, "old month evicted")
	assert.False(t, okJune, "new month evicted")
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, 9999, calendar.ItemInput{
		Date:     calendar.NewDate(2024, time.May, 10),
		Category: calendar.CategoryJob,
		Title:    "x",
	})
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}

// =============================================================================
// DELETE AND UNSUBSCRIBE
// =============================================================================

func TestDelete_PlainItem(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	item, err := svc.Create(ctx, user, calendar.ItemInput{
		Date:     calendar.NewDate(2024, time.May, 10),
		Category: calendar.CategoryJob,
		Title:    "Interview",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user, item.ID))

	stored, err := st.GetItem(ctx, user, item.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestDelete_FixedCostUnsubscribes(t *testing.T) {
	// GIVEN: A rule with April, May and June occurrences; today is May 1
	// WHEN: Deleting the May occurrence
	// THEN: The rule deactivates, May and June go away, April survives

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	created, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.May, 15), 129))
	require.NoError(t, err)
	ruleID := *created.RuleID

	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.April}))
	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.June}))

	require.NoError(t, svc.Delete(ctx, user, created.ID))

	rule, err := st.GetRule(ctx, ruleID)
	require.NoError(t, err)
	assert.False(t, rule.Active)

	remaining, err := st.FindItemsByRule(ctx, user, ruleID, calendar.WideStart, calendar.WideEnd)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, calendar.NewDate(2024, time.April, 15), remaining[0].Date)

	// A deactivated rule stops materializing.
	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.July}))
	after, err := st.FindItemsByRule(ctx, user, ruleID, calendar.WideStart, calendar.WideEnd)
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestDelete_PastOccurrenceStaysAsHistory(t *testing.T) {
	// GIVEN: A rule with an April occurrence; today is May 1
	// WHEN: Deleting the April occurrence
	// THEN: The rule deactivates and future occurrences go away, but the
	//       clicked past occurrence itself is kept

	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	created, err := svc.Create(ctx, user, fixedCostInput("Netflix", calendar.NewDate(2024, time.April, 15), 129))
	require.NoError(t, err)
	ruleID := *created.RuleID
	require.NoError(t, svc.EnsureMonth(ctx, user, calendar.YearMonth{Year: 2024, Month: time.May}))

	require.NoError(t, svc.Delete(ctx, user, created.ID))

	rule, err := st.GetRule(ctx, ruleID)
	require.NoError(t, err)
	assert.False(t, rule.Active)

	remaining, err := st.FindItemsByRule(ctx, user, ruleID, calendar.WideStart, calendar.WideEnd)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, calendar.NewDate(2024, time.April, 15), remaining[0].Date)
	assert.Equal(t, created.ID, remaining[0].ID)
}

func TestHolidayItemsAreProtected(t *testing.T) {
	// GIVEN: A materialized holiday item
	// WHEN: Trying to update or delete it
	// THEN: Both are refused

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	items, err := svc.ListDay(ctx, user, calendar.NewDate(2024, time.May, 17), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	holiday := items[0]

	_, err = svc.Update(ctx, user, holiday.ID, calendar.ItemInput{
		Date:     holiday.Date,
		Category: calendar.CategoryOther,
		Title:    "My day now",
	})
	assert.ErrorIs(t, err, calendar.ErrProtectedItem)

	err = svc.Delete(ctx, user, holiday.ID)
	assert.ErrorIs(t, err, calendar.ErrProtectedItem)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestMutationsRecordNotifications(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	user := calendar.UserID(1)

	item, err := svc.Create(ctx, user, calendar.ItemInput{
		Date:     calendar.NewDate(2024, time.May, 10),
		Category: calendar.CategoryJob,
		Title:    "Interview",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, user, item.ID))

	notifications, err := st.FindNotifications(ctx, user, false)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	// Newest first.
	assert.Equal(t, calendar.NotifyItemDeleted, notifications[0].Type)
	assert.Equal(t, calendar.NotifyItemCreated, notifications[1].Type)
}
