/*
holiday.go - Norwegian holiday calendar

PURPOSE:
  Generates the fixed and Easter-relative holidays for one year. Pure
  computation; the materializer turns these into per-user calendar items.

HOLIDAY CLASSES:
  Major ("Helligdag:") - red-letter public holidays
  Minor ("Merkedag:")  - commemorative days
  The class is carried as an explicit Source tag on each holiday; the
  Norwegian title prefix is kept for display only.

EASTER:
  Computed with the anonymous Gregorian algorithm (Meeus/Jones/Butcher).
  Integer arithmetic only, bit-reproducible across platforms.
*/
package calendar

import (
	"sort"
	"time"
)

// Holiday is one generated holiday occurrence.
type Holiday struct {
	Code   string
	Date   Date
	Title  string
	Source Source
}

// HolidaysForYear returns all Norwegian holidays for a year, sorted by
// (date, code). Stable ordering matters: duplicate suppression keys on
// (date, title) and ties must resolve deterministically.
func HolidaysForYear(year int) []Holiday {
	major := func(code string, d Date, name string) Holiday {
		return Holiday{Code: code, Date: d, Title: "Helligdag: " + name, Source: SourceHolidayMajor}
	}
	minor := func(code string, d Date, name string) Holiday {
		return Holiday{Code: code, Date: d, Title: "Merkedag: " + name, Source: SourceHolidayMinor}
	}

	out := []Holiday{
		major("NEW_YEAR", NewDate(year, time.January, 1), "1. nyttårsdag"),
		major("LABOUR_DAY", NewDate(year, time.May, 1), "1. mai"),
		minor("LIBERATION_DAY", NewDate(year, time.May, 8), "Frigjøringsdagen"),
		major("CONSTITUTION_DAY", NewDate(year, time.May, 17), "17. mai"),
		minor("CHRISTMAS_EVE", NewDate(year, time.December, 24), "Julaften"),
		major("CHRISTMAS_DAY", NewDate(year, time.December, 25), "1. juledag"),
		major("BOXING_DAY", NewDate(year, time.December, 26), "2. juledag"),
		minor("NEW_YEARS_EVE", NewDate(year, time.December, 31), "Nyttårsaften"),
	}

	easter := EasterSunday(year)
	out = append(out,
		major("PALM_SUNDAY", easter.AddDays(-7), "Palmesøndag"),
		major("MAUNDY_THURSDAY", easter.AddDays(-3), "Skjærtorsdag"),
		major("GOOD_FRIDAY", easter.AddDays(-2), "Langfredag"),
		major("EASTER_SUNDAY", easter, "1. påskedag"),
		major("EASTER_MONDAY", easter.AddDays(1), "2. påskedag"),
		major("ASCENSION_DAY", easter.AddDays(39), "Kristi himmelfartsdag"),
		major("PENTECOST", easter.AddDays(49), "1. pinsedag"),
		major("PENTECOST_MONDAY", easter.AddDays(50), "2. pinsedag"),
	)

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// HolidaysInMonth filters the year's holidays to one month.
func HolidaysInMonth(ym YearMonth) []Holiday {
	var out []Holiday
	for _, h := range HolidaysForYear(ym.Year) {
		if ym.Contains(h.Date) {
			out = append(out, h)
		}
	}
	return out
}

// EasterSunday computes Gregorian Easter via the anonymous
// Meeus/Jones/Butcher algorithm. Go's integer division truncates toward
// zero, matching the algorithm's requirements for positive years.
func EasterSunday(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return NewDate(year, time.Month(month), day)
}
