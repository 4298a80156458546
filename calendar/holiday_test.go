package calendar_test

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/calendar-engine/calendar"
)

// =============================================================================
// EASTER COMPUTATION
// =============================================================================

func TestEasterSunday_KnownYears(t *testing.T) {
	cases := map[int]calendar.Date{
		2000: calendar.NewDate(2000, time.April, 23),
		2016: calendar.NewDate(2016, time.March, 27),
		2024: calendar.NewDate(2024, time.March, 31),
		2025: calendar.NewDate(2025, time.April, 20),
		2026: calendar.NewDate(2026, time.April, 5),
		2038: calendar.NewDate(2038, time.April, 25),
	}

	for year, want := range cases {
		assert.Equal(t, want, calendar.EasterSunday(year), "easter %d", year)
	}
}

// =============================================================================
// HOLIDAY GENERATION
// =============================================================================

func TestHolidaysForYear_EasterRelativeDates(t *testing.T) {
	// GIVEN: The 2024 holiday calendar (Easter on March 31)
	// THEN: The movable holidays land on their Easter-relative days

	byCode := make(map[string]calendar.Holiday)
	for _, h := range calendar.HolidaysForYear(2024) {
		byCode[h.Code] = h
	}

	assert.Equal(t, calendar.NewDate(2024, time.March, 24), byCode["PALM_SUNDAY"].Date)
	assert.Equal(t, calendar.NewDate(2024, time.March, 28), byCode["MAUNDY_THURSDAY"].Date)
	assert.Equal(t, calendar.NewDate(2024, time.March, 29), byCode["GOOD_FRIDAY"].Date)
	assert.Equal(t, calendar.NewDate(2024, time.April, 1), byCode["EASTER_MONDAY"].Date)
	assert.Equal(t, calendar.NewDate(2024, time.May, 9), byCode["ASCENSION_DAY"].Date)
	assert.Equal(t, calendar.NewDate(2024, time.May, 19), byCode["PENTECOST"].Date)
	assert.Equal(t, calendar.NewDate(2024, time.May, 20), byCode["PENTECOST_MONDAY"].Date)
}

func TestHolidaysForYear_TitlesAndSources(t *testing.T) {
	// GIVEN: The generated holidays
	// THEN: Majors carry the "Helligdag: " prefix and the major source,
	//       minors carry "Merkedag: " and the minor source

	byCode := make(map[string]calendar.Holiday)
	for _, h := range calendar.HolidaysForYear(2024) {
		byCode[h.Code] = h
	}

	goodFriday := byCode["GOOD_FRIDAY"]
	assert.Equal(t, "Helligdag: Langfredag", goodFriday.Title)
	assert.Equal(t, calendar.SourceHolidayMajor, goodFriday.Source)

	christmasEve := byCode["CHRISTMAS_EVE"]
	assert.Equal(t, "Merkedag: Julaften", christmasEve.Title)
	assert.Equal(t, calendar.SourceHolidayMinor, christmasEve.Source)

	constitution := byCode["CONSTITUTION_DAY"]
	assert.Equal(t, calendar.NewDate(2024, time.May, 17), constitution.Date)
	assert.Equal(t, "Helligdag: 17. mai", constitution.Title)
}

func TestHolidaysForYear_SortedAndComplete(t *testing.T) {
	holidays := calendar.HolidaysForYear(2025)

	assert.Len(t, holidays, 16, "8 fixed + 8 easter-relative")
	sorted := sort.SliceIsSorted(holidays, func(i, j int) bool {
		if !holidays[i].Date.Equal(holidays[j].Date) {
			return holidays[i].Date.Before(holidays[j].Date)
		}
		return holidays[i].Code < holidays[j].Code
	})
	assert.True(t, sorted, "holidays must be ordered by (date, code)")
}

func TestHolidaysInMonth_FiltersToMonth(t *testing.T) {
	// GIVEN: March 2024 (Palm Sunday through Easter Sunday)
	// WHEN: Filtering the year down to the month
	// THEN: Only the four March holidays remain

	holidays := calendar.HolidaysInMonth(calendar.YearMonth{Year: 2024, Month: time.March})

	require.Len(t, holidays, 4)
	codes := make([]string, len(holidays))
	for i, h := range holidays {
		codes[i] = h.Code
		assert.Equal(t, time.March, h.Date.Month())
	}
	assert.Equal(t, []string{"PALM_SUNDAY", "MAUNDY_THURSDAY", "GOOD_FRIDAY", "EASTER_SUNDAY"}, codes)
}

func TestHolidaysInMonth_December(t *testing.T) {
	holidays := calendar.HolidaysInMonth(calendar.YearMonth{Year: 2024, Month: time.December})

	require.Len(t, holidays, 4)
	assert.Equal(t, calendar.NewDate(2024, time.December, 24), holidays[0].Date)
	assert.Equal(t, calendar.SourceHolidayMinor, holidays[0].Source)
	assert.Equal(t, calendar.NewDate(2024, time.December, 31), holidays[3].Date)
}
