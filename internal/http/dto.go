package http

import (
	"time"

	"saloncal/internal/core"
)

// JSON shapes of the /api routes. Core types carry no wire tags.
type (
	entryJSON struct {
		Count int    `json:"count"`
		Memo  string `json:"memo,omitempty"`
	}

	salesJSON struct {
		Service int64 `json:"service"`
		Retail  int64 `json:"retail"`
		Total   int64 `json:"total"`
	}

	customersJSON struct {
		New    int `json:"new"`
		Repeat int `json:"repeat"`
		Total  int `json:"total"`
	}

	dayJSON struct {
		Date      string               `json:"date"`
		Closed    bool                 `json:"closed"`
		Total     int                  `json:"total"`
		Memo      string               `json:"memo"`
		Entries   map[string]entryJSON `json:"entries"`
		Sales     salesJSON            `json:"sales"`
		Customers customersJSON        `json:"customers"`
		UpdatedAt *time.Time           `json:"updated_at,omitempty"`
	}

	staffJSON struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Sort   int    `json:"sort"`
		Active bool   `json:"active"`
	}

	summaryJSON struct {
		Month                  string        `json:"month"`
		GoalCustomers          int           `json:"goal_customers"`
		GoalUnitPrice          int64         `json:"goal_unit_price"`
		GoalSales              int64         `json:"goal_sales"`
		RecordedDays           int           `json:"recorded_days"`
		Reservations           int           `json:"reservations"`
		Sales                  salesJSON     `json:"sales"`
		Customers              customersJSON `json:"customers"`
		UnitPrice              int64         `json:"unit_price"`
		BusinessDays           int           `json:"business_days"`
		ElapsedBusinessDays    int           `json:"elapsed_business_days"`
		RemainingBusinessDays  int           `json:"remaining_business_days"`
		GapSales               int64         `json:"gap_sales"`
		GapCustomers           int           `json:"gap_customers"`
		RequiredApplicable     bool          `json:"required_applicable"`
		RequiredDailySales     int64         `json:"required_daily_sales"`
		RequiredDailyCustomers int           `json:"required_daily_customers"`
		ExpectedSales          int64         `json:"expected_sales"`
		ExpectedCustomers      int           `json:"expected_customers"`
		OnPace                 bool          `json:"on_pace"`
		CustomersOnPace        bool          `json:"customers_on_pace"`
		PaceRatio              float64       `json:"pace_ratio"`
	}

	cellJSON struct {
		Date    string `json:"date"`
		Day     int    `json:"day"`
		Weekday int    `json:"weekday"`
		Closed  bool   `json:"closed"`
		Today   bool   `json:"today"`
		Total   int    `json:"total"`
		HasMemo bool   `json:"has_memo"`
	}

	monthJSON struct {
		Month         string      `json:"month"`
		Prev          string      `json:"prev"`
		Next          string      `json:"next"`
		LeadingBlanks int         `json:"leading_blanks"`
		Cells         []cellJSON  `json:"cells"`
		Staff         []staffJSON `json:"staff"`
		Summary       summaryJSON `json:"summary"`
	}
)

func toDayJSON(rec core.DayRecord) dayJSON {
	out := dayJSON{
		Date:    rec.Key(),
		Closed:  core.IsClosed(rec.Date),
		Total:   rec.Total(),
		Memo:    rec.Memo,
		Entries: make(map[string]entryJSON, len(rec.Entries)),
		Sales:   toSalesJSON(rec.Sales),
		Customers: customersJSON{
			New: rec.Customers.New, Repeat: rec.Customers.Repeat, Total: rec.Customers.Total(),
		},
	}
	for id, e := range rec.Entries {
		out.Entries[id] = entryJSON{Count: e.Count, Memo: e.Memo}
	}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func toSalesJSON(s core.Sales) salesJSON {
	return salesJSON{Service: int64(s.Service), Retail: int64(s.Retail), Total: int64(s.Total())}
}

func toStaffJSON(staff []core.Staff) []staffJSON {
	out := make([]staffJSON, 0, len(staff))
	for _, st := range staff {
		out = append(out, toStaffItem(st))
	}
	return out
}

func toStaffItem(st core.Staff) staffJSON {
	return staffJSON{ID: st.ID, Name: st.Name, Sort: st.Sort, Active: st.Active}
}

func toSummaryJSON(s core.MonthSummary) summaryJSON {
	return summaryJSON{
		Month:                  s.Month.Key(),
		GoalCustomers:          s.Goal.Customers,
		GoalUnitPrice:          int64(s.Goal.UnitPrice),
		GoalSales:              int64(s.Goal.Sales()),
		RecordedDays:           s.RecordedDays,
		Reservations:           s.Reservations,
		Sales:                  toSalesJSON(s.Sales),
		Customers:              customersJSON{New: s.Customers.New, Repeat: s.Customers.Repeat, Total: s.Customers.Total()},
		UnitPrice:              int64(s.UnitPrice),
		BusinessDays:           s.BusinessDays,
		ElapsedBusinessDays:    s.ElapsedBusinessDays,
		RemainingBusinessDays:  s.RemainingBusinessDays,
		GapSales:               int64(s.GapSales),
		GapCustomers:           s.GapCustomers,
		RequiredApplicable:     s.RequiredApplicable,
		RequiredDailySales:     int64(s.RequiredDailySales),
		RequiredDailyCustomers: s.RequiredDailyCustomers,
		ExpectedSales:          int64(s.ExpectedSales),
		ExpectedCustomers:      s.ExpectedCustomers,
		OnPace:                 s.OnPace,
		CustomersOnPace:        s.CustomersOnPace,
		PaceRatio:              s.PaceRatio,
	}
}

func toMonthJSON(v core.CalendarView) monthJSON {
	out := monthJSON{
		Month:         v.Month.Key(),
		Prev:          v.Prev(),
		Next:          v.Next(),
		LeadingBlanks: v.LeadingBlanks,
		Cells:         make([]cellJSON, 0, len(v.Cells)),
		Staff:         toStaffJSON(v.Staff),
		Summary:       toSummaryJSON(v.Summary),
	}
	for _, c := range v.Cells {
		out.Cells = append(out.Cells, cellJSON{
			Date: c.Key, Day: c.Day, Weekday: int(c.Weekday),
			Closed: c.Closed, Today: c.Today, Total: c.Total, HasMemo: c.HasMemo,
		})
	}
	return out
}
