package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type DayRecordRow struct {
	DateKey         string
	Memo            string
	ServiceSales    int64
	RetailSales     int64
	NewCustomers    int64
	RepeatCustomers int64
	UpdatedAt       string
	SyncedAt        sql.NullString
}

type StaffEntryRow struct {
	DateKey string
	StaffID string
	Count   int64
	Memo    string
}

type StaffRow struct {
	ID     string
	Name   string
	Sort   int64
	Active bool
}

const upsertDayRecord = `
INSERT INTO day_records (date_key, memo, service_sales, retail_sales, new_customers, repeat_customers, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(date_key) DO UPDATE SET
    memo = excluded.memo,
    service_sales = excluded.service_sales,
    retail_sales = excluded.retail_sales,
    new_customers = excluded.new_customers,
    repeat_customers = excluded.repeat_customers,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertDayRecord(ctx context.Context, arg DayRecordRow) error {
	_, err := q.db.ExecContext(ctx, upsertDayRecord,
		arg.DateKey, arg.Memo, arg.ServiceSales, arg.RetailSales,
		arg.NewCustomers, arg.RepeatCustomers, arg.UpdatedAt)
	return err
}

const deleteStaffEntries = `DELETE FROM staff_entries WHERE date_key = ?`

func (q *Queries) DeleteStaffEntries(ctx context.Context, dateKey string) error {
	_, err := q.db.ExecContext(ctx, deleteStaffEntries, dateKey)
	return err
}

const insertStaffEntry = `INSERT INTO staff_entries (date_key, staff_id, count, memo) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertStaffEntry(ctx context.Context, arg StaffEntryRow) error {
	_, err := q.db.ExecContext(ctx, insertStaffEntry, arg.DateKey, arg.StaffID, arg.Count, arg.Memo)
	return err
}

const getDayRecord = `
SELECT date_key, memo, service_sales, retail_sales, new_customers, repeat_customers, updated_at, synced_at
FROM day_records WHERE date_key = ?`

func (q *Queries) GetDayRecord(ctx context.Context, dateKey string) (DayRecordRow, error) {
	row := q.db.QueryRowContext(ctx, getDayRecord, dateKey)
	var i DayRecordRow
	err := row.Scan(&i.DateKey, &i.Memo, &i.ServiceSales, &i.RetailSales,
		&i.NewCustomers, &i.RepeatCustomers, &i.UpdatedAt, &i.SyncedAt)
	return i, err
}

const listDayRecords = `
SELECT date_key, memo, service_sales, retail_sales, new_customers, repeat_customers, updated_at, synced_at
FROM day_records WHERE date_key BETWEEN ? AND ? ORDER BY date_key`

func (q *Queries) ListDayRecords(ctx context.Context, from, to string) ([]DayRecordRow, error) {
	rows, err := q.db.QueryContext(ctx, listDayRecords, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DayRecordRow
	for rows.Next() {
		var i DayRecordRow
		if err := rows.Scan(&i.DateKey, &i.Memo, &i.ServiceSales, &i.RetailSales,
			&i.NewCustomers, &i.RepeatCustomers, &i.UpdatedAt, &i.SyncedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listStaffEntries = `
SELECT date_key, staff_id, count, memo FROM staff_entries
WHERE date_key BETWEEN ? AND ? ORDER BY date_key, staff_id`

func (q *Queries) ListStaffEntries(ctx context.Context, from, to string) ([]StaffEntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listStaffEntries, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StaffEntryRow
	for rows.Next() {
		var i StaffEntryRow
		if err := rows.Scan(&i.DateKey, &i.StaffID, &i.Count, &i.Memo); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listPendingSync = `
SELECT date_key FROM day_records
WHERE synced_at IS NULL OR synced_at < updated_at
ORDER BY updated_at LIMIT ?`

func (q *Queries) ListPendingSync(ctx context.Context, limit int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	return items, rows.Err()
}

const markDaySynced = `UPDATE day_records SET synced_at = ? WHERE date_key = ?`

func (q *Queries) MarkDaySynced(ctx context.Context, syncedAt, dateKey string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markDaySynced, syncedAt, dateKey)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listStaff = `SELECT id, name, sort, active FROM staffs ORDER BY sort, name`

func (q *Queries) ListStaff(ctx context.Context) ([]StaffRow, error) {
	rows, err := q.db.QueryContext(ctx, listStaff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StaffRow
	for rows.Next() {
		var i StaffRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Sort, &i.Active); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertStaff = `
INSERT INTO staffs (id, name, sort, active) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, sort = excluded.sort, active = excluded.active`

func (q *Queries) UpsertStaff(ctx context.Context, arg StaffRow) error {
	_, err := q.db.ExecContext(ctx, upsertStaff, arg.ID, arg.Name, arg.Sort, arg.Active)
	return err
}

const setStaffActive = `UPDATE staffs SET active = ? WHERE id = ?`

func (q *Queries) SetStaffActive(ctx context.Context, active bool, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setStaffActive, active, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	return value, err
}

const putSetting = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) PutSetting(ctx context.Context, key, value, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, putSetting, key, value, updatedAt)
	return err
}
