package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"saloncal/internal/core"
)

const (
	daysSheet    = "Bookings"
	summarySheet = "Summary"
)

// WriteXLSX writes a workbook with the per-staff day table, closed days
// shaded, and a second sheet holding the month summary.
func WriteXLSX(w io.Writer, data MonthData) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(daysSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	staff, unassigned := staffColumns(data)
	header := richHeader(staff, unassigned)
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(daysSheet, cell, v)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	closedStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#6B7280"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("closed style: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetCellStyle(daysSheet, "A1", lastCol+"1", headerStyle)

	days := byKey(data.Records)
	for r, d := range data.Month.Dates() {
		row := r + 2
		for c, v := range richRow(d, days[d.Key()], staff, unassigned) {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(daysSheet, cell, v)
		}
		if core.IsClosed(d) {
			from, _ := excelize.CoordinatesToCellName(1, row)
			to, _ := excelize.CoordinatesToCellName(len(header), row)
			_ = f.SetCellStyle(daysSheet, from, to, closedStyle)
		}
	}

	_ = f.SetColWidth(daysSheet, "A", "A", 12)
	_ = f.SetColWidth(daysSheet, "B", lastCol, 12)
	_ = f.SetColWidth(daysSheet, lastCol, lastCol, 40)
	_ = f.SetPanes(daysSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := writeSummarySheet(f, data.Summary, headerStyle); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s core.MonthSummary, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	required := func(v any) any {
		if !s.RequiredApplicable {
			return "n/a"
		}
		return v
	}
	rows := [][]any{
		{"metric", "value"},
		{"month", s.Month.Key()},
		{"reservations", s.Reservations},
		{"service_sales", int64(s.Sales.Service)},
		{"retail_sales", int64(s.Sales.Retail)},
		{"total_sales", int64(s.Sales.Total())},
		{"customers", s.Customers.Total()},
		{"unit_price", int64(s.UnitPrice)},
		{"goal_sales", int64(s.Goal.Sales())},
		{"goal_customers", s.Goal.Customers},
		{"business_days", s.BusinessDays},
		{"remaining_business_days", s.RemainingBusinessDays},
		{"gap_sales", int64(s.GapSales)},
		{"gap_customers", s.GapCustomers},
		{"required_daily_sales", required(int64(s.RequiredDailySales))},
		{"required_daily_customers", required(s.RequiredDailyCustomers)},
		{"expected_sales", int64(s.ExpectedSales)},
		{"on_pace", s.OnPace},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
	}
	_ = f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)
	_ = f.SetColWidth(summarySheet, "A", "A", 28)
	_ = f.SetColWidth(summarySheet, "B", "B", 16)
	return nil
}
