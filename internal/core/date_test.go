package core

import (
	"errors"
	"testing"
	"time"
)

func TestDayKeyRoundTrip(t *testing.T) {
	for d := NewDate(2023, 12, 25); d.Before(NewDate(2025, 3, 10)); d = d.AddDays(1) {
		got, err := ParseDayKey(d.Key())
		if err != nil {
			t.Fatalf("parse %s: %v", d.Key(), err)
		}
		if got.Year() != d.Year() || got.Time.Month() != d.Time.Month() || got.Day() != d.Day() {
			t.Fatalf("round trip %s -> %s", d.Key(), got.Key())
		}
		if !got.Equal(d.Time) {
			t.Fatalf("round trip not equal: %v vs %v", got, d)
		}
	}
}

func TestParseDayKeyRejects(t *testing.T) {
	for _, in := range []string{"", "2025-9-1", "2025-02-30", "2025/09/01", "abcd-ef-gh", "2025-13-01"} {
		if _, err := ParseDayKey(in); !errors.Is(err, ErrInvalidDayKey) {
			t.Fatalf("%q expected ErrInvalidDayKey, got %v", in, err)
		}
	}
}

func TestDateOfIgnoresTimeOfDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2025-09-01 23:30 in Tokyo is still the 1st locally, the 1st in UTC is 14:30.
	instant := time.Date(2025, 9, 1, 23, 30, 0, 0, tokyo)
	d := DateOf(instant, tokyo)
	if d.Key() != "2025-09-01" {
		t.Fatalf("DateOf = %s, want 2025-09-01", d.Key())
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if DateOf(time.Date(2025, 9, 1, 1, 0, 0, 0, tokyo), time.UTC).Key() != "2025-08-31" {
		t.Fatalf("UTC view of early Tokyo morning should be previous day")
	}
}

func TestMonth(t *testing.T) {
	m, err := ParseMonthKey("2024-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Days() != 29 {
		t.Fatalf("days = %d, want 29", m.Days())
	}
	if m.Add(-2).Key() != "2023-12" || m.Add(11).Key() != "2025-01" {
		t.Fatalf("add: %s %s", m.Add(-2).Key(), m.Add(11).Key())
	}
	if len(m.Dates()) != 29 || m.Dates()[28].Key() != "2024-02-29" {
		t.Fatalf("dates wrong")
	}
	if !m.Contains(NewDate(2024, 2, 1)) || m.Contains(NewDate(2024, 3, 1)) {
		t.Fatalf("contains wrong")
	}
	for _, bad := range []string{"2024-2", "2024-00", "24-02", "2024-13", ""} {
		if _, err := ParseMonthKey(bad); !errors.Is(err, ErrInvalidMonthKey) {
			t.Fatalf("%q expected ErrInvalidMonthKey, got %v", bad, err)
		}
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
	if err := (Date{Time: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}).Validate(); err == nil {
		t.Fatalf("expected error for time of day")
	}
}
