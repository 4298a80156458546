package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/calendar-engine/calendar"
)

// =============================================================================
// MONTHLY RULES
// =============================================================================

func TestOccurrencesInMonth_Monthly_PlainDay(t *testing.T) {
	// GIVEN: A monthly rule anchored on day 15
	// WHEN: Enumerating occurrences for May 2024
	// THEN: Exactly one occurrence, on May 15

	rule := calendar.Rule{Frequency: calendar.FreqMonthly, DayOfMonth: 15}

	dates := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.May})

	require.Len(t, dates, 1)
	assert.Equal(t, calendar.NewDate(2024, time.May, 15), dates[0])
}

func TestOccurrencesInMonth_Monthly_ClampsToMonthEnd(t *testing.T) {
	// GIVEN: A monthly rule anchored on day 31
	// WHEN: Enumerating for months shorter than 31 days
	// THEN: The occurrence clamps to the month's last day

	rule := calendar.Rule{Frequency: calendar.FreqMonthly, DayOfMonth: 31}

	feb := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.February})
	require.Len(t, feb, 1)
	assert.Equal(t, calendar.NewDate(2024, time.February, 29), feb[0], "leap February clamps to 29")

	feb23 := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2023, Month: time.February})
	require.Len(t, feb23, 1)
	assert.Equal(t, calendar.NewDate(2023, time.February, 28), feb23[0])

	apr := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.April})
	require.Len(t, apr, 1)
	assert.Equal(t, calendar.NewDate(2024, time.April, 30), apr[0])
}

func TestOccurrencesInMonth_UnknownFrequencyDefaultsToMonthly(t *testing.T) {
	// GIVEN: A rule with an empty frequency
	// WHEN: Enumerating occurrences
	// THEN: It behaves like a monthly rule

	rule := calendar.Rule{Frequency: "", DayOfMonth: 10}

	dates := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.June})

	require.Len(t, dates, 1)
	assert.Equal(t, calendar.NewDate(2024, time.June, 10), dates[0])
}

// =============================================================================
// WEEKLY RULES
// =============================================================================

func TestOccurrencesInMonth_Weekly_EveryWednesday(t *testing.T) {
	// GIVEN: A weekly rule anchored on Wednesday (ISO day 3)
	// WHEN: Enumerating for May 2024 (May 1st is a Wednesday)
	// THEN: All five Wednesdays of the month appear, in order

	wednesday := 3
	rule := calendar.Rule{Frequency: calendar.FreqWeekly, DayOfMonth: 1, DayOfWeek: &wednesday}

	dates := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.May})

	expected := []calendar.Date{
		calendar.NewDate(2024, time.May, 1),
		calendar.NewDate(2024, time.May, 8),
		calendar.NewDate(2024, time.May, 15),
		calendar.NewDate(2024, time.May, 22),
		calendar.NewDate(2024, time.May, 29),
	}
	assert.Equal(t, expected, dates)
}

func TestOccurrencesInMonth_Weekly_SundayAnchor(t *testing.T) {
	// GIVEN: A weekly rule anchored on Sunday (ISO day 7)
	// WHEN: Enumerating for February 2024
	// THEN: The four Sundays appear

	sunday := 7
	rule := calendar.Rule{Frequency: calendar.FreqWeekly, DayOfMonth: 1, DayOfWeek: &sunday}

	dates := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.February})

	expected := []calendar.Date{
		calendar.NewDate(2024, time.February, 4),
		calendar.NewDate(2024, time.February, 11),
		calendar.NewDate(2024, time.February, 18),
		calendar.NewDate(2024, time.February, 25),
	}
	assert.Equal(t, expected, dates)
}

func TestOccurrencesInMonth_Weekly_NilAnchorDefaultsToMonday(t *testing.T) {
	// GIVEN: A weekly rule with no day-of-week anchor
	// WHEN: Enumerating for May 2024
	// THEN: Mondays are used

	rule := calendar.Rule{Frequency: calendar.FreqWeekly, DayOfMonth: 1}

	dates := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.May})

	require.NotEmpty(t, dates)
	assert.Equal(t, calendar.NewDate(2024, time.May, 6), dates[0])
	for _, d := range dates {
		assert.Equal(t, 1, d.ISOWeekday())
	}
}

// =============================================================================
// YEARLY RULES
// =============================================================================

func TestOccurrencesInMonth_Yearly_GatesOnMonth(t *testing.T) {
	// GIVEN: A yearly rule anchored on June 15
	// WHEN: Enumerating June and May
	// THEN: June has the single occurrence, May has none

	june := 6
	rule := calendar.Rule{Frequency: calendar.FreqYearly, DayOfMonth: 15, MonthOfYear: &june}

	inJune := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.June})
	require.Len(t, inJune, 1)
	assert.Equal(t, calendar.NewDate(2024, time.June, 15), inJune[0])

	inMay := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.May})
	assert.Empty(t, inMay)
}

func TestOccurrencesInMonth_Yearly_ClampsInvalidDay(t *testing.T) {
	// GIVEN: A yearly rule anchored on February 30
	// WHEN: Enumerating February
	// THEN: The occurrence clamps to the month's last day

	feb := 2
	rule := calendar.Rule{Frequency: calendar.FreqYearly, DayOfMonth: 30, MonthOfYear: &feb}

	dates := calendar.OccurrencesInMonth(rule, calendar.YearMonth{Year: 2024, Month: time.February})

	require.Len(t, dates, 1)
	assert.Equal(t, calendar.NewDate(2024, time.February, 29), dates[0])
}
