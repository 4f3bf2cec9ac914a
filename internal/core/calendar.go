package core

import "time"

// IsClosed reports whether the salon is closed on d: every Monday, plus the
// 1st and 3rd Tuesday of the month.
func IsClosed(d Date) bool {
	switch d.Weekday() {
	case time.Monday:
		return true
	case time.Tuesday:
		n := TuesdayOrdinal(d)
		return n == 1 || n == 3
	default:
		return false
	}
}

// TuesdayOrdinal counts the Tuesdays from day 1 up to and including d.
// For a Tuesday this is its occurrence within the month.
func TuesdayOrdinal(d Date) int {
	first := d.Month().First()
	count := 0
	for day := first; !day.After(d); day = day.AddDays(1) {
		if day.Weekday() == time.Tuesday {
			count++
		}
	}
	return count
}

// IsBusinessDay is the complement of IsClosed.
func IsBusinessDay(d Date) bool { return !IsClosed(d) }

// ClosedDays lists the closed days of the month in order.
func ClosedDays(m Month) []Date {
	var out []Date
	for _, d := range m.Dates() {
		if IsClosed(d) {
			out = append(out, d)
		}
	}
	return out
}

// BusinessDays returns the number of open days in the month.
func BusinessDays(m Month) int {
	return m.Days() - len(ClosedDays(m))
}

// BusinessDaysBetween counts open days in the inclusive range [from, to].
// An inverted range counts zero.
func BusinessDaysBetween(from, to Date) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDays(1) {
		if !IsClosed(d) {
			n++
		}
	}
	return n
}
