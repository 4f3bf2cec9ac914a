package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCapReached    = errors.New("daily cap reached")
	ErrNegativeCount = errors.New("count cannot go below zero")
)

// AdjustCount applies delta to one staff member's count and returns a new
// map; counts is never modified. Increments that would push the total past
// max are rejected with ErrCapReached, decrements below zero with
// ErrNegativeCount.
func AdjustCount(counts map[string]int, staffID string, delta, max int) (map[string]int, error) {
	if strings.TrimSpace(staffID) == "" {
		return nil, ErrEmptyStaffID
	}
	next := counts[staffID] + delta
	if next < 0 {
		return nil, ErrNegativeCount
	}
	if delta > 0 && sumCounts(counts)+delta > max {
		return nil, fmt.Errorf("%w: total %d, max %d", ErrCapReached, sumCounts(counts), max)
	}
	out := make(map[string]int, len(counts)+1)
	for id, c := range counts {
		out[id] = c
	}
	out[staffID] = next
	return out, nil
}

func sumCounts(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// DayEditor holds the edit buffer for one day.
type DayEditor struct {
	Date       Date
	Counts     map[string]int
	StaffMemos map[string]string
	Memo       string
	Sales      Sales
	Customers  Customers
	Max        int
}

// NewDayEditor seeds an editor from the stored record. Every staff member
// in staff gets a count, defaulting to 0; counts already recorded for
// other ids (inactive staff, unassigned) are kept so they are not lost on
// save.
func NewDayEditor(rec DayRecord, staff []Staff) *DayEditor {
	e := &DayEditor{
		Date:       rec.Date,
		Counts:     make(map[string]int, len(staff)+len(rec.Entries)),
		StaffMemos: make(map[string]string),
		Memo:       rec.Memo,
		Sales:      rec.Sales,
		Customers:  rec.Customers,
		Max:        MaxDailyCount,
	}
	for _, s := range staff {
		e.Counts[s.ID] = 0
	}
	for id, entry := range rec.Entries {
		e.Counts[id] = entry.Count
		if entry.Memo != "" {
			e.StaffMemos[id] = entry.Memo
		}
	}
	return e
}

// Total is the running sum of per-staff counts.
func (e *DayEditor) Total() int { return sumCounts(e.Counts) }

// Increment adds one reservation for staffID.
func (e *DayEditor) Increment(staffID string) error { return e.adjust(staffID, 1) }

// Decrement removes one reservation for staffID.
func (e *DayEditor) Decrement(staffID string) error { return e.adjust(staffID, -1) }

// SetCount sets staffID's count directly, subject to the same cap.
func (e *DayEditor) SetCount(staffID string, n int) error {
	if n < 0 || n > e.Max {
		return fmt.Errorf("%w: %d", ErrCountOutOfRange, n)
	}
	return e.adjust(staffID, n-e.Counts[staffID])
}

func (e *DayEditor) adjust(staffID string, delta int) error {
	if delta == 0 {
		return nil
	}
	next, err := AdjustCount(e.Counts, staffID, delta, e.Max)
	if err != nil {
		return err
	}
	e.Counts = next
	return nil
}

// Record builds the day record to persist. The total is implied by the
// entries so counts and total are always written together.
func (e *DayEditor) Record() DayRecord {
	rec := NewDayRecord(e.Date)
	rec.Memo = strings.TrimSpace(e.Memo)
	rec.Sales = e.Sales
	rec.Customers = e.Customers
	for id, c := range e.Counts {
		rec.Entries[id] = StaffEntry{Count: c, Memo: e.StaffMemos[id]}
	}
	for id, memo := range e.StaffMemos {
		if _, ok := rec.Entries[id]; !ok {
			rec.Entries[id] = StaffEntry{Memo: memo}
		}
	}
	return rec.Normalize()
}
