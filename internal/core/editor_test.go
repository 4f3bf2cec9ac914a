package core

import (
	"errors"
	"testing"
)

func TestAdjustCount(t *testing.T) {
	cases := []struct {
		name    string
		counts  map[string]int
		staffID string
		delta   int
		want    int
		err     error
	}{
		{"increment from empty", map[string]int{}, "a", 1, 1, nil},
		{"increment below cap", map[string]int{"a": 10, "b": 9}, "b", 1, 10, nil},
		{"increment at cap", map[string]int{"a": 10, "b": 10}, "a", 1, 0, ErrCapReached},
		{"decrement at zero", map[string]int{"a": 0}, "a", -1, 0, ErrNegativeCount},
		{"decrement at cap", map[string]int{"a": 20}, "a", -1, 19, nil},
		{"empty staff", map[string]int{}, " ", 1, 0, ErrEmptyStaffID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := len(tc.counts)
			got, err := AdjustCount(tc.counts, tc.staffID, tc.delta, MaxDailyCount)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got[tc.staffID] != tc.want {
				t.Fatalf("count = %d, want %d", got[tc.staffID], tc.want)
			}
			if len(tc.counts) != before {
				t.Fatalf("input map was modified")
			}
		})
	}
}

func TestDayEditorCap(t *testing.T) {
	staff := []Staff{{ID: "a", Name: "Staff A", Active: true}, {ID: "b", Name: "Staff B", Sort: 1, Active: true}}
	e := NewDayEditor(NewDayRecord(NewDate(2025, 9, 3)), staff)

	for i := 0; i < MaxDailyCount; i++ {
		id := "a"
		if i%2 == 1 {
			id = "b"
		}
		if err := e.Increment(id); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if e.Total() != MaxDailyCount {
		t.Fatalf("total = %d, want %d", e.Total(), MaxDailyCount)
	}
	if err := e.Increment("b"); !errors.Is(err, ErrCapReached) {
		t.Fatalf("expected cap reached, got %v", err)
	}
	if e.Counts["b"] != 10 {
		t.Fatalf("rejected increment changed the count: %d", e.Counts["b"])
	}
	if err := e.Decrement("a"); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := e.Increment("b"); err != nil {
		t.Fatalf("increment after decrement: %v", err)
	}
	if err := e.SetCount("a", 21); !errors.Is(err, ErrCountOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if err := e.SetCount("a", 0); err != nil {
		t.Fatalf("set count: %v", err)
	}
	if e.Total() != 11 {
		t.Fatalf("total = %d, want 11", e.Total())
	}
}

func TestDayEditorRecord(t *testing.T) {
	d := NewDate(2025, 9, 3)
	stored := NewDayRecord(d)
	stored.Entries["retired"] = StaffEntry{Count: 2, Memo: "walk-in"}
	stored.Memo = "  busy  "

	staff := []Staff{{ID: "a", Name: "Staff A", Active: true}}
	e := NewDayEditor(stored, staff)
	if e.Counts["a"] != 0 || e.Counts["retired"] != 2 {
		t.Fatalf("seeded counts wrong: %v", e.Counts)
	}
	if err := e.Increment("a"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	e.StaffMemos["a"] = " colour "

	rec := e.Record()
	if rec.Total() != 3 || rec.Total() != e.Total() {
		t.Fatalf("record total = %d, editor total = %d", rec.Total(), e.Total())
	}
	if rec.Memo != "busy" {
		t.Fatalf("memo = %q", rec.Memo)
	}
	if rec.Entries["a"].Memo != "colour" {
		t.Fatalf("staff memo = %q", rec.Entries["a"].Memo)
	}
	if rec.Entries["retired"].Memo != "walk-in" {
		t.Fatalf("existing staff memo lost")
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	e.Counts["a"] = 0
	delete(e.StaffMemos, "a")
	if _, ok := e.Record().Entries["a"]; ok {
		t.Fatalf("zero entries must be dropped")
	}
}
