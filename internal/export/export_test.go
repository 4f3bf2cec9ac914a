package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"saloncal/internal/core"
)

func septData(t *testing.T) MonthData {
	t.Helper()
	m, err := core.ParseMonthKey("2025-09")
	if err != nil {
		t.Fatal(err)
	}
	r1 := core.NewDayRecord(core.NewDate(2025, 9, 3))
	r1.Memo = `walk-in "VIP"`
	r1.Entries["a"] = core.StaffEntry{Count: 3}
	r1.Entries["b"] = core.StaffEntry{Count: 2}
	r1.Sales = core.Sales{Service: 40000, Retail: 2000}
	r1.Customers = core.Customers{New: 1, Repeat: 4}
	r2 := core.FlatDayRecord(core.NewDate(2025, 9, 4), 6, "legacy")

	records := []core.DayRecord{r1, r2}
	staff := []core.Staff{
		{ID: "b", Name: "Staff B", Sort: 2, Active: false},
		{ID: "a", Name: "Staff A", Sort: 1, Active: true},
	}
	opts := core.AggregateOptions{AsOf: core.NewDate(2025, 9, 13)}
	return MonthData{
		Month:   m,
		Records: records,
		Staff:   staff,
		Summary: core.Aggregate(m, records, core.DefaultGoal, opts),
	}
}

func TestFileName(t *testing.T) {
	m, _ := core.ParseMonthKey("2025-09")
	if got := FileName(m, "csv"); got != "bookings_2025-09.csv" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestWriteSimpleCSV(t *testing.T) {
	data := septData(t)
	var buf bytes.Buffer
	if err := WriteSimpleCSV(&buf, data.Month, data.Records); err != nil {
		t.Fatalf("WriteSimpleCSV: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if len(lines) != data.Month.Days()+1 {
		t.Fatalf("rows = %d, want %d", len(lines), data.Month.Days()+1)
	}
	if lines[0] != "date,count,memo" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != `2025-09-01,0,""` {
		t.Fatalf("empty day row = %q", lines[1])
	}
	if lines[3] != `2025-09-03,5,"walk-in ""VIP"""` {
		t.Fatalf("escaped row = %q", lines[3])
	}
	if lines[4] != `2025-09-04,6,"legacy"` {
		t.Fatalf("flat row = %q", lines[4])
	}
}

func TestWriteStaffCSV(t *testing.T) {
	data := septData(t)
	var buf bytes.Buffer
	if err := WriteStaffCSV(&buf, data); err != nil {
		t.Fatalf("WriteStaffCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 31 {
		t.Fatalf("rows = %d, want 31", len(rows))
	}
	wantHeader := "date,total,Staff A,Staff B,unassigned,service_sales,retail_sales,new_customers,repeat_customers,memo"
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Fatalf("header = %q", got)
	}
	r := rows[3]
	if r[0] != "2025-09-03" || r[1] != "5" || r[2] != "3" || r[3] != "2" || r[4] != "0" || r[5] != "40000" || r[9] != `walk-in "VIP"` {
		t.Fatalf("row = %v", r)
	}
	if rows[4][4] != "6" {
		t.Fatalf("unassigned column = %v", rows[4])
	}
}

func TestWriteXLSX(t *testing.T) {
	data := septData(t)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, data); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(daysSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 31 {
		t.Fatalf("rows = %d, want 31", len(rows))
	}
	if rows[0][0] != "date" || rows[3][1] != "5" {
		t.Fatalf("unexpected cells: %v / %v", rows[0], rows[3])
	}
	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != daysSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	v, err := f.GetCellValue(summarySheet, "B6")
	if err != nil || v != "42000" {
		t.Fatalf("total_sales cell = %q, %v", v, err)
	}
}
