package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DayKeyLayout   = "2006-01-02"
	MonthKeyLayout = "2006-01"
)

var (
	ErrInvalidDayKey   = errors.New("invalid day key")
	ErrInvalidMonthKey = errors.New("invalid month key")
)

type (
	// Date is a calendar date without a time-of-day component. The wrapped
	// time is always midnight UTC so arithmetic never depends on the process
	// time zone.
	Date struct {
		time.Time
	}

	// Month identifies a displayed calendar month.
	Month struct {
		Year  int
		Month time.Month
	}
)

// NewDate creates a new Date from year, month, day. Out-of-range values are
// normalised the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the local calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDayKey parses a YYYY-MM-DD key. Keys that time.Parse would accept
// but that do not round-trip (e.g. single-digit parts) are rejected.
func ParseDayKey(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DayKeyLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	d := NewDate(t.Year(), t.Month(), t.Day())
	if d.Key() != s {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	return d, nil
}

// Key returns the canonical YYYY-MM-DD identity of the date.
func (d Date) Key() string {
	return d.Format(DayKeyLayout)
}

// Month returns the calendar month the date belongs to.
func (d Date) Month() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	if h, m, s := d.Clock(); h != 0 || m != 0 || s != 0 || d.Location() != time.UTC {
		return errors.New("date must not carry a time of day")
	}
	return nil
}

// ParseMonthKey parses a YYYY-MM key.
func ParseMonthKey(s string) (Month, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

// Key returns the YYYY-MM key of the month.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first day of the month.
func (m Month) First() Date { return NewDate(m.Year, m.Month, 1) }

// Last returns the last day of the month.
func (m Month) Last() Date { return NewDate(m.Year, m.Month+1, 0) }

// Days returns the number of days in the month.
func (m Month) Days() int { return m.Last().Day() }

// Day returns the given day of the month.
func (m Month) Day(day int) Date { return NewDate(m.Year, m.Month, day) }

// Add returns the month n months away.
func (m Month) Add(n int) Month {
	return NewDate(m.Year, m.Month+time.Month(n), 1).Month()
}

// Contains reports whether d falls in the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Time.Month() == m.Month
}

// Dates returns every day of the month in order.
func (m Month) Dates() []Date {
	n := m.Days()
	out := make([]Date, n)
	for i := 0; i < n; i++ {
		out[i] = m.Day(i + 1)
	}
	return out
}
