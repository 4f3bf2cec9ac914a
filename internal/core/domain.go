package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// MaxDailyCount caps the reservations recorded for a single day.
	MaxDailyCount = 20

	// UnassignedStaffID holds counts that are not attributed to a staff
	// member, including totals imported from the flat count+memo schema.
	UnassignedStaffID = "_"

	maxMemoLength = 1000
	maxNameLength = 50
)

type (
	Staff struct {
		ID     string
		Name   string
		Sort   int
		Active bool
	}

	StaffEntry struct {
		Count int
		Memo  string
	}

	// Sales is split between services and retail, in yen.
	Sales struct {
		Service Yen
		Retail  Yen
	}

	Customers struct {
		New    int
		Repeat int
	}

	// DayRecord is the canonical per-day record. The day total is always
	// derived from Entries and never stored on its own.
	DayRecord struct {
		Date      Date
		Memo      string
		Entries   map[string]StaffEntry
		Sales     Sales
		Customers Customers
		UpdatedAt time.Time
	}
)

var (
	ErrCountOutOfRange   = errors.New("count out of range")
	ErrTotalOutOfRange   = errors.New("total exceeds daily cap")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrNegativeCustomers = errors.New("negative customer count")
	ErrMemoTooLong       = errors.New("memo too long")
	ErrEmptyStaffName    = errors.New("empty staff name")
	ErrStaffNameTooLong  = errors.New("staff name too long")
	ErrEmptyStaffID      = errors.New("empty staff id")
)

// Total returns the sum of the customers split.
func (c Customers) Total() int { return c.New + c.Repeat }

// Total returns service plus retail sales.
func (s Sales) Total() Yen { return s.Service + s.Retail }

func (s Staff) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyStaffID
	}
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return ErrEmptyStaffName
	}
	if len([]rune(name)) > maxNameLength {
		return ErrStaffNameTooLong
	}
	return nil
}

// NewDayRecord returns an empty record for d.
func NewDayRecord(d Date) DayRecord {
	return DayRecord{Date: d, Entries: map[string]StaffEntry{}}
}

// FlatDayRecord builds a record from the flat count+memo schema, storing
// the count under the unassigned entry.
func FlatDayRecord(d Date, count int, memo string) DayRecord {
	r := NewDayRecord(d)
	r.Memo = memo
	if count != 0 {
		r.Entries[UnassignedStaffID] = StaffEntry{Count: count}
	}
	return r
}

// Key returns the day key of the record.
func (r DayRecord) Key() string { return r.Date.Key() }

// Total is the derived reservation total for the day.
func (r DayRecord) Total() int {
	total := 0
	for _, e := range r.Entries {
		total += e.Count
	}
	return total
}

// HasMemo reports whether the shared memo or any staff memo is non-blank.
func (r DayRecord) HasMemo() bool {
	if strings.TrimSpace(r.Memo) != "" {
		return true
	}
	for _, e := range r.Entries {
		if strings.TrimSpace(e.Memo) != "" {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the record carries no data at all.
func (r DayRecord) IsEmpty() bool {
	return r.Total() == 0 && !r.HasMemo() && r.Sales.Total() == 0 && r.Customers.Total() == 0
}

// Count returns the count recorded for a staff member, 0 when absent.
func (r DayRecord) Count(staffID string) int {
	return r.Entries[staffID].Count
}

// StaffIDs returns the entry keys in a stable order.
func (r DayRecord) StaffIDs() []string {
	ids := make([]string, 0, len(r.Entries))
	for id := range r.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Normalize trims memos and drops entries that carry neither a count nor a
// memo, so that storage never holds zero rows.
func (r DayRecord) Normalize() DayRecord {
	out := r
	out.Memo = strings.TrimSpace(r.Memo)
	out.Entries = make(map[string]StaffEntry, len(r.Entries))
	for id, e := range r.Entries {
		e.Memo = strings.TrimSpace(e.Memo)
		if e.Count == 0 && e.Memo == "" {
			continue
		}
		out.Entries[id] = e
	}
	return out
}

func (r DayRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len([]rune(r.Memo)) > maxMemoLength {
		return ErrMemoTooLong
	}
	for id, e := range r.Entries {
		if strings.TrimSpace(id) == "" {
			return ErrEmptyStaffID
		}
		if e.Count < 0 || e.Count > MaxDailyCount {
			return fmt.Errorf("%w: staff %s has %d", ErrCountOutOfRange, id, e.Count)
		}
		if len([]rune(e.Memo)) > maxMemoLength {
			return ErrMemoTooLong
		}
	}
	if total := r.Total(); total > MaxDailyCount {
		return fmt.Errorf("%w: %d > %d", ErrTotalOutOfRange, total, MaxDailyCount)
	}
	if r.Sales.Service < 0 || r.Sales.Retail < 0 {
		return ErrNegativeAmount
	}
	if r.Customers.New < 0 || r.Customers.Repeat < 0 {
		return ErrNegativeCustomers
	}
	return nil
}

// ClampCount clamps n into [0, MaxDailyCount].
func ClampCount(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxDailyCount {
		return MaxDailyCount
	}
	return n
}

// SortStaff orders staff ascending by Sort, then by name.
func SortStaff(staff []Staff) {
	sort.SliceStable(staff, func(i, j int) bool {
		if staff[i].Sort != staff[j].Sort {
			return staff[i].Sort < staff[j].Sort
		}
		return staff[i].Name < staff[j].Name
	})
}

// ActiveStaff filters out deactivated staff, keeping order.
func ActiveStaff(staff []Staff) []Staff {
	out := make([]Staff, 0, len(staff))
	for _, s := range staff {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}
