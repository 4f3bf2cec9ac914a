// Package export renders a month of day records as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"saloncal/internal/core"
)

// MonthData is everything one export needs.
type MonthData struct {
	Month   core.Month
	Records []core.DayRecord
	// Staff gives the per-staff column order; inactive staff still get a
	// column so history is not lost.
	Staff   []core.Staff
	Summary core.MonthSummary
}

// FileName returns bookings_<YYYY-MM>.<ext>.
func FileName(m core.Month, ext string) string {
	return fmt.Sprintf("bookings_%s.%s", m.Key(), ext)
}

func byKey(records []core.DayRecord) map[string]core.DayRecord {
	out := make(map[string]core.DayRecord, len(records))
	for _, r := range records {
		out[r.Key()] = r
	}
	return out
}

// WriteSimpleCSV writes the date,count,memo layout: one row per calendar
// day plus the header, newline separated. The memo is always quoted with
// embedded quotes doubled.
func WriteSimpleCSV(w io.Writer, m core.Month, records []core.DayRecord) error {
	days := byKey(records)
	var b strings.Builder
	b.WriteString("date,count,memo")
	for _, d := range m.Dates() {
		rec := days[d.Key()]
		b.WriteByte('\n')
		b.WriteString(d.Key())
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(rec.Total()))
		b.WriteString(`,"`)
		b.WriteString(strings.ReplaceAll(rec.Memo, `"`, `""`))
		b.WriteByte('"')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// staffColumns returns the staff to give columns to and whether an extra
// unassigned column is needed.
func staffColumns(data MonthData) ([]core.Staff, bool) {
	staff := append([]core.Staff(nil), data.Staff...)
	core.SortStaff(staff)
	unassigned := false
	for _, r := range data.Records {
		if r.Count(core.UnassignedStaffID) > 0 {
			unassigned = true
			break
		}
	}
	return staff, unassigned
}

func richHeader(staff []core.Staff, unassigned bool) []string {
	header := []string{"date", "total"}
	for _, s := range staff {
		header = append(header, s.Name)
	}
	if unassigned {
		header = append(header, "unassigned")
	}
	return append(header, "service_sales", "retail_sales", "new_customers", "repeat_customers", "memo")
}

func richRow(d core.Date, rec core.DayRecord, staff []core.Staff, unassigned bool) []any {
	row := []any{d.Key(), rec.Total()}
	for _, s := range staff {
		row = append(row, rec.Count(s.ID))
	}
	if unassigned {
		row = append(row, rec.Count(core.UnassignedStaffID))
	}
	return append(row,
		int64(rec.Sales.Service),
		int64(rec.Sales.Retail),
		rec.Customers.New,
		rec.Customers.Repeat,
		rec.Memo,
	)
}

// WriteStaffCSV writes the per-staff layout with sales and customer columns.
func WriteStaffCSV(w io.Writer, data MonthData) error {
	staff, unassigned := staffColumns(data)
	days := byKey(data.Records)

	cw := csv.NewWriter(w)
	if err := cw.Write(richHeader(staff, unassigned)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, d := range data.Month.Dates() {
		values := richRow(d, days[d.Key()], staff, unassigned)
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = fmt.Sprint(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", d.Key(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}
