package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"saloncal/internal/core"
	"saloncal/internal/ports"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so the schema is in place
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// UpsertDay writes the day row and replaces its staff entries in one
// transaction. A failure rolls back and leaves the previous record intact.
func (r *SQLiteRepository) UpsertDay(ctx context.Context, rec core.DayRecord) error {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validate day %s: %w", rec.Key(), err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	key := rec.Key()
	if err := q.UpsertDayRecord(ctx, DayRecordRow{
		DateKey:         key,
		Memo:            rec.Memo,
		ServiceSales:    int64(rec.Sales.Service),
		RetailSales:     int64(rec.Sales.Retail),
		NewCustomers:    int64(rec.Customers.New),
		RepeatCustomers: int64(rec.Customers.Repeat),
		UpdatedAt:       formatTime(updatedAt),
	}); err != nil {
		return fmt.Errorf("upsert day record %s: %w", key, err)
	}
	if err := q.DeleteStaffEntries(ctx, key); err != nil {
		return fmt.Errorf("clear staff entries %s: %w", key, err)
	}
	for _, id := range rec.StaffIDs() {
		e := rec.Entries[id]
		if err := q.InsertStaffEntry(ctx, StaffEntryRow{
			DateKey: key,
			StaffID: id,
			Count:   int64(e.Count),
			Memo:    e.Memo,
		}); err != nil {
			return fmt.Errorf("insert staff entry %s/%s: %w", key, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit day %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Day saved to SQLite",
		"date_key", key,
		"total", rec.Total(),
		"entries", len(rec.Entries))
	return nil
}

func (r *SQLiteRepository) GetDay(ctx context.Context, d core.Date) (core.DayRecord, error) {
	row, err := r.queries.GetDayRecord(ctx, d.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return core.DayRecord{}, ports.ErrNotFound
	}
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("get day %s: %w", d.Key(), err)
	}
	entries, err := r.queries.ListStaffEntries(ctx, d.Key(), d.Key())
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("get staff entries %s: %w", d.Key(), err)
	}
	return toDayRecord(row, entries)
}

func (r *SQLiteRepository) ListDays(ctx context.Context, from, to core.Date) ([]core.DayRecord, error) {
	rows, err := r.queries.ListDayRecords(ctx, from.Key(), to.Key())
	if err != nil {
		return nil, fmt.Errorf("list days %s..%s: %w", from.Key(), to.Key(), err)
	}
	entries, err := r.queries.ListStaffEntries(ctx, from.Key(), to.Key())
	if err != nil {
		return nil, fmt.Errorf("list staff entries %s..%s: %w", from.Key(), to.Key(), err)
	}

	byDay := make(map[string][]StaffEntryRow, len(rows))
	for _, e := range entries {
		byDay[e.DateKey] = append(byDay[e.DateKey], e)
	}

	records := make([]core.DayRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toDayRecord(row, byDay[row.DateKey])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toDayRecord(row DayRecordRow, entries []StaffEntryRow) (core.DayRecord, error) {
	d, err := core.ParseDayKey(row.DateKey)
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("stored day key %q: %w", row.DateKey, err)
	}
	rec := core.NewDayRecord(d)
	rec.Memo = row.Memo
	rec.Sales = core.Sales{Service: core.Yen(row.ServiceSales), Retail: core.Yen(row.RetailSales)}
	rec.Customers = core.Customers{New: int(row.NewCustomers), Repeat: int(row.RepeatCustomers)}
	rec.UpdatedAt = parseTime(row.UpdatedAt)
	for _, e := range entries {
		rec.Entries[e.StaffID] = core.StaffEntry{Count: int(e.Count), Memo: e.Memo}
	}
	return rec, nil
}

func (r *SQLiteRepository) ListStaff(ctx context.Context) ([]core.Staff, error) {
	rows, err := r.queries.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	staff := make([]core.Staff, len(rows))
	for i, s := range rows {
		staff[i] = core.Staff{ID: s.ID, Name: s.Name, Sort: int(s.Sort), Active: s.Active}
	}
	return staff, nil
}

func (r *SQLiteRepository) UpsertStaff(ctx context.Context, s core.Staff) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate staff: %w", err)
	}
	if err := r.queries.UpsertStaff(ctx, StaffRow{ID: s.ID, Name: s.Name, Sort: int64(s.Sort), Active: s.Active}); err != nil {
		return fmt.Errorf("upsert staff %s: %w", s.ID, err)
	}
	slog.InfoContext(ctx, "Staff saved to SQLite", "staff_id", s.ID, "sort", s.Sort, "active", s.Active)
	return nil
}

func (r *SQLiteRepository) SetStaffActive(ctx context.Context, id string, active bool) error {
	n, err := r.queries.SetStaffActive(ctx, active, id)
	if err != nil {
		return fmt.Errorf("set staff %s active: %w", id, err)
	}
	if n == 0 {
		return ports.ErrStaffNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	value, err := r.queries.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrSettingMissing
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) PutSetting(ctx context.Context, key, value string) error {
	if err := r.queries.PutSetting(ctx, key, value, formatTime(r.now())); err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

// PendingSync returns days never mirrored or changed since their last mirror.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Date, error) {
	keys, err := r.queries.ListPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync days: %w", err)
	}
	dates := make([]core.Date, 0, len(keys))
	for _, k := range keys {
		d, err := core.ParseDayKey(k)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed stored day key", "date_key", k, "error", err)
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// MarkSynced records that the version of d updated at `at` reached the mirror.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, d core.Date, at time.Time) error {
	n, err := r.queries.MarkDaySynced(ctx, formatTime(at), d.Key())
	if err != nil {
		return fmt.Errorf("mark day synced: %w", err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	slog.InfoContext(ctx, "Day marked as synced", "date_key", d.Key())
	return nil
}
