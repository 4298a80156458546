package calendar

// =============================================================================
// RECURRENCE ENGINE - Pure occurrence enumeration for one month
// =============================================================================

// OccurrencesInMonth computes the dates on which a rule falls due within the
// given month, in ascending order. Pure and deterministic; no I/O.
//
// MONTHLY rules clamp into short months: day 31 lands on Feb 28/29 rather
// than being skipped. YEARLY rules clamp the same way once the month
// matches. WEEKLY rules enumerate every matching weekday of the month.
// An unset or unknown frequency is treated as MONTHLY.
func OccurrencesInMonth(rule Rule, ym YearMonth) []Date {
	switch rule.Frequency.OrDefault() {
	case FreqWeekly:
		return weeklyOccurrences(rule, ym)
	case FreqYearly:
		if rule.MonthOfYear == nil || *rule.MonthOfYear != int(ym.Month) {
			return nil
		}
		return []Date{clampedDay(rule.DayOfMonth, ym)}
	default:
		return []Date{clampedDay(rule.DayOfMonth, ym)}
	}
}

func clampedDay(dayOfMonth int, ym YearMonth) Date {
	day := dayOfMonth
	if day < 1 {
		day = 1
	}
	if max := ym.Days(); day > max {
		day = max
	}
	return NewDate(ym.Year, ym.Month, day)
}

func weeklyOccurrences(rule Rule, ym YearMonth) []Date {
	anchor := 1 // Monday when unset
	if rule.DayOfWeek != nil && *rule.DayOfWeek >= 1 && *rule.DayOfWeek <= 7 {
		anchor = *rule.DayOfWeek
	}

	// First matching weekday on/after the 1st, then step by 7 days.
	cursor := ym.First()
	offset := (anchor - cursor.ISOWeekday() + 7) % 7
	cursor = cursor.AddDays(offset)

	var dates []Date
	for ym.Contains(cursor) {
		dates = append(dates, cursor)
		cursor = cursor.AddDays(7)
	}
	return dates
}
