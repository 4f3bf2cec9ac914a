package core

// Goal is the fixed monthly target. Goal sales are derived.
type Goal struct {
	Customers int
	UnitPrice Yen
}

// DefaultGoal is the salon's standing monthly target.
var DefaultGoal = Goal{Customers: 200, UnitPrice: 7500}

// Sales returns customers × unit price.
func (g Goal) Sales() Yen { return Yen(g.Customers) * g.UnitPrice }

// AggregateOptions controls how "now" is placed inside the month.
type AggregateOptions struct {
	AsOf         Date
	IncludeToday bool
}

// MonthSummary is the month-to-date KPI block. It is derived, never stored.
type MonthSummary struct {
	Month Month
	Goal  Goal

	RecordedDays int
	Reservations int
	Sales        Sales
	Customers    Customers
	UnitPrice    Yen

	BusinessDays          int
	ElapsedBusinessDays   int
	RemainingBusinessDays int

	GapSales     Yen
	GapCustomers int

	// RequiredApplicable is false when no business days remain; the
	// required-per-day figures are then not meaningful.
	RequiredApplicable     bool
	RequiredDailySales     Yen
	RequiredDailyCustomers int

	ExpectedSales     Yen
	ExpectedCustomers int
	OnPace            bool
	CustomersOnPace   bool
	PaceRatio         float64
}

// Aggregate folds the day records of a month into a MonthSummary. Records
// outside m are ignored.
func Aggregate(m Month, records []DayRecord, goal Goal, opts AggregateOptions) MonthSummary {
	s := MonthSummary{Month: m, Goal: goal}

	for _, r := range records {
		if !m.Contains(r.Date) {
			continue
		}
		if !r.IsEmpty() {
			s.RecordedDays++
		}
		s.Reservations += r.Total()
		s.Sales.Service += r.Sales.Service
		s.Sales.Retail += r.Sales.Retail
		s.Customers.New += r.Customers.New
		s.Customers.Repeat += r.Customers.Repeat
	}

	if c := s.Customers.Total(); c > 0 {
		s.UnitPrice = s.Sales.Total() / Yen(c)
	}

	s.BusinessDays = BusinessDays(m)
	s.RemainingBusinessDays = RemainingBusinessDays(m, opts.AsOf, opts.IncludeToday)
	s.ElapsedBusinessDays = s.BusinessDays - s.RemainingBusinessDays

	goalSales := goal.Sales()
	actualSales := s.Sales.Total()
	actualCustomers := s.Customers.Total()

	if gap := goalSales - actualSales; gap > 0 {
		s.GapSales = gap
	}
	if gap := goal.Customers - actualCustomers; gap > 0 {
		s.GapCustomers = gap
	}

	if s.RemainingBusinessDays > 0 {
		s.RequiredApplicable = true
		rem := s.RemainingBusinessDays
		s.RequiredDailySales = Yen(ceilDiv(int64(s.GapSales), int64(rem)))
		s.RequiredDailyCustomers = int(ceilDiv(int64(s.GapCustomers), int64(rem)))
	}

	denom := int64(s.BusinessDays)
	if denom == 0 {
		denom = 1
	}
	elapsed := int64(s.ElapsedBusinessDays)
	s.ExpectedSales = Yen(int64(goalSales) * elapsed / denom)
	s.ExpectedCustomers = int(int64(goal.Customers) * elapsed / denom)
	s.OnPace = actualSales >= s.ExpectedSales
	s.CustomersOnPace = actualCustomers >= s.ExpectedCustomers
	if s.ExpectedSales > 0 {
		s.PaceRatio = float64(actualSales) / float64(s.ExpectedSales)
	}

	return s
}

// RemainingBusinessDays counts business days from asOf to the end of m.
// asOf itself is counted only when includeToday is set. A month entirely in
// the past has none left; a month entirely in the future has all of them.
func RemainingBusinessDays(m Month, asOf Date, includeToday bool) int {
	first, last := m.First(), m.Last()
	switch {
	case asOf.After(last):
		return 0
	case asOf.Before(first):
		return BusinessDays(m)
	}
	start := asOf
	if !includeToday {
		start = asOf.AddDays(1)
	}
	return BusinessDaysBetween(start, last)
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
