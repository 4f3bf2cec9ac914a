package google

import (
	"fmt"
	"strconv"
	"strings"

	"saloncal/internal/core"
)

// Row layout of the mirror sheet.
var headerColumns = []string{"date", "total", "service_sales", "retail_sales", "new_customers", "repeat_customers", "memo"}

const lastColumn = "G"

func headerRow() []any {
	out := make([]any, len(headerColumns))
	for i, h := range headerColumns {
		out[i] = h
	}
	return out
}

// dayRowValues renders rec in header order. Counts and amounts are sent as
// numbers so the sheet can sum them.
func dayRowValues(rec core.DayRecord) []any {
	return []any{
		rec.Key(),
		rec.Total(),
		int64(rec.Sales.Service),
		int64(rec.Sales.Retail),
		rec.Customers.New,
		rec.Customers.Repeat,
		rec.Memo,
	}
}

// findDayRow returns the 1-based sheet row holding key in column A, or -1.
// The first row is the header and never matches.
func findDayRow(colA []string, key string) int {
	for i := 1; i < len(colA); i++ {
		if strings.TrimSpace(colA[i]) == key {
			return i + 1
		}
	}
	return -1
}

// rowError reports a sheet row that could not be read back.
type rowError struct {
	Row int
	Err error
}

// parseDayRows reads mirrored rows back, locating columns by header so a
// reordered sheet still parses. Rows outside m are dropped.
func parseDayRows(values [][]interface{}, m core.Month) ([]core.DayRecord, []rowError) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make([]int, len(headerColumns))
	for i, h := range headerColumns {
		cols[i] = indexOf(headers, h)
	}
	if cols[0] == -1 {
		return nil, []rowError{{Row: 1, Err: fmt.Errorf("unexpected header: %v", headers)}}
	}

	var out []core.DayRecord
	var bad []rowError
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if strings.TrimSpace(safeGet(row, cols[0])) == "" {
			continue
		}
		ordered := make([]string, len(cols))
		for j, c := range cols {
			ordered[j] = safeGet(row, c)
		}
		rec, err := parseDayRow(ordered)
		if err != nil {
			bad = append(bad, rowError{Row: i + 1, Err: err})
			continue
		}
		if m.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out, bad
}

// parseDayRow reads one row in header order. The staff split is not part
// of the sheet, so the total lands on the unassigned entry.
func parseDayRow(row []string) (core.DayRecord, error) {
	d, err := core.ParseDayKey(strings.TrimSpace(safeGet(row, 0)))
	if err != nil {
		return core.DayRecord{}, err
	}
	total, err := parseCount(safeGet(row, 1))
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("total: %w", err)
	}
	rec := core.FlatDayRecord(d, total, safeGet(row, 6))
	if rec.Sales.Service, err = core.ParseYen(safeGet(row, 2)); err != nil {
		return core.DayRecord{}, fmt.Errorf("service_sales: %w", err)
	}
	if rec.Sales.Retail, err = core.ParseYen(safeGet(row, 3)); err != nil {
		return core.DayRecord{}, fmt.Errorf("retail_sales: %w", err)
	}
	if rec.Customers.New, err = parseCount(safeGet(row, 4)); err != nil {
		return core.DayRecord{}, fmt.Errorf("new_customers: %w", err)
	}
	if rec.Customers.Repeat, err = parseCount(safeGet(row, 5)); err != nil {
		return core.DayRecord{}, fmt.Errorf("repeat_customers: %w", err)
	}
	return rec, rec.Validate()
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return n, nil
}

// a1 builds an A1 range, quoting the sheet title.
func a1(sheet, rng string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			// Unformatted numbers arrive as float64; avoid exponent notation.
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
