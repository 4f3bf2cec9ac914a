package core

import "time"

type (
	// DayCell is one rendered day of the month grid.
	DayCell struct {
		Key     string
		Day     int
		Weekday time.Weekday
		Closed  bool
		Today   bool
		Total   int
		HasMemo bool
	}

	// CalendarView is the explicit view-model for a displayed month.
	CalendarView struct {
		Month         Month
		LeadingBlanks int
		Cells         []DayCell
		Staff         []Staff
		Summary       MonthSummary
	}
)

// BuildCalendarView lays out the month grid Sunday-first and attaches the
// month summary.
func BuildCalendarView(m Month, records []DayRecord, staff []Staff, goal Goal, opts AggregateOptions) CalendarView {
	byKey := make(map[string]DayRecord, len(records))
	for _, r := range records {
		byKey[r.Key()] = r
	}

	v := CalendarView{
		Month:         m,
		LeadingBlanks: int(m.First().Weekday()),
		Cells:         make([]DayCell, 0, m.Days()),
		Staff:         ActiveStaff(staff),
		Summary:       Aggregate(m, records, goal, opts),
	}
	for _, d := range m.Dates() {
		rec := byKey[d.Key()]
		v.Cells = append(v.Cells, DayCell{
			Key:     d.Key(),
			Day:     d.Day(),
			Weekday: d.Weekday(),
			Closed:  IsClosed(d),
			Today:   d.Equal(opts.AsOf.Time),
			Total:   rec.Total(),
			HasMemo: rec.HasMemo(),
		})
	}
	return v
}

// Prev returns the previous month's key for navigation.
func (v CalendarView) Prev() string { return v.Month.Add(-1).Key() }

// Next returns the next month's key for navigation.
func (v CalendarView) Next() string { return v.Month.Add(1).Key() }
