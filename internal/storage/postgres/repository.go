package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saloncal/internal/core"
	"saloncal/internal/ports"
)

type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ ports.Store = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

func (r *Repository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func dateOf(t time.Time) core.Date {
	return core.NewDate(t.Year(), t.Month(), t.Day())
}

// UpsertDay writes the day row and replaces its staff entries in one
// transaction.
func (r *Repository) UpsertDay(ctx context.Context, rec core.DayRecord) error {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validate day %s: %w", rec.Key(), err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO day_records (date_key, memo, service_sales, retail_sales, new_customers, repeat_customers, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (date_key) DO UPDATE SET
				memo = EXCLUDED.memo,
				service_sales = EXCLUDED.service_sales,
				retail_sales = EXCLUDED.retail_sales,
				new_customers = EXCLUDED.new_customers,
				repeat_customers = EXCLUDED.repeat_customers,
				updated_at = EXCLUDED.updated_at
		`, rec.Date.Time, rec.Memo, int64(rec.Sales.Service), int64(rec.Sales.Retail),
			rec.Customers.New, rec.Customers.Repeat, updatedAt.UTC()); err != nil {
			return fmt.Errorf("upsert day record: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM staff_entries WHERE date_key = $1`, rec.Date.Time); err != nil {
			return fmt.Errorf("clear staff entries: %w", err)
		}

		batch := &pgx.Batch{}
		for _, id := range rec.StaffIDs() {
			e := rec.Entries[id]
			batch.Queue(`INSERT INTO staff_entries (date_key, staff_id, count, memo) VALUES ($1, $2, $3, $4)`,
				rec.Date.Time, id, e.Count, e.Memo)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert staff entries: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save day %s: %w", rec.Key(), err)
	}

	slog.InfoContext(ctx, "Day saved to Postgres",
		"date_key", rec.Key(),
		"total", rec.Total(),
		"entries", len(rec.Entries))
	return nil
}

func (r *Repository) GetDay(ctx context.Context, d core.Date) (core.DayRecord, error) {
	records, err := r.ListDays(ctx, d, d)
	if err != nil {
		return core.DayRecord{}, err
	}
	if len(records) == 0 {
		return core.DayRecord{}, ports.ErrNotFound
	}
	return records[0], nil
}

func (r *Repository) ListDays(ctx context.Context, from, to core.Date) ([]core.DayRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_key, memo, service_sales, retail_sales, new_customers, repeat_customers, updated_at
		FROM day_records
		WHERE date_key BETWEEN $1 AND $2
		ORDER BY date_key ASC
	`, from.Time, to.Time)
	if err != nil {
		return nil, fmt.Errorf("list days %s..%s: %w", from.Key(), to.Key(), err)
	}
	defer rows.Close()

	var records []core.DayRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			day                 time.Time
			memo                string
			service, retail     int64
			newCust, repeatCust int
			updatedAt           time.Time
		)
		if err := rows.Scan(&day, &memo, &service, &retail, &newCust, &repeatCust, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		rec := core.NewDayRecord(dateOf(day))
		rec.Memo = memo
		rec.Sales = core.Sales{Service: core.Yen(service), Retail: core.Yen(retail)}
		rec.Customers = core.Customers{New: newCust, Repeat: repeatCust}
		rec.UpdatedAt = updatedAt.UTC()
		index[rec.Key()] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	entryRows, err := r.pool.Query(ctx, `
		SELECT date_key, staff_id, count, memo
		FROM staff_entries
		WHERE date_key BETWEEN $1 AND $2
	`, from.Time, to.Time)
	if err != nil {
		return nil, fmt.Errorf("list staff entries: %w", err)
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var (
			day     time.Time
			staffID string
			count   int
			memo    string
		)
		if err := entryRows.Scan(&day, &staffID, &count, &memo); err != nil {
			return nil, fmt.Errorf("scan staff entry: %w", err)
		}
		if i, ok := index[dateOf(day).Key()]; ok {
			records[i].Entries[staffID] = core.StaffEntry{Count: count, Memo: memo}
		}
	}
	if err := entryRows.Err(); err != nil {
		return nil, fmt.Errorf("list staff entries: %w", err)
	}
	return records, nil
}

func (r *Repository) ListStaff(ctx context.Context) ([]core.Staff, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, sort, active FROM staffs ORDER BY sort ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()
	var items []core.Staff
	for rows.Next() {
		var s core.Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.Sort, &s.Active); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *Repository) UpsertStaff(ctx context.Context, s core.Staff) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate staff: %w", err)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staffs (id, name, sort, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, sort = EXCLUDED.sort, active = EXCLUDED.active
	`, s.ID, s.Name, s.Sort, s.Active)
	if err != nil {
		return fmt.Errorf("upsert staff %s: %w", s.ID, err)
	}
	return nil
}

func (r *Repository) SetStaffActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE staffs SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set staff %s active: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStaffNotFound
	}
	return nil
}

func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ports.ErrSettingMissing
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *Repository) PutSetting(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

func (r *Repository) PendingSync(ctx context.Context, limit int) ([]core.Date, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_key FROM day_records
		WHERE synced_at IS NULL OR synced_at < updated_at
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync days: %w", err)
	}
	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Date, error) {
		var t time.Time
		err := row.Scan(&t)
		return dateOf(t), err
	})
	if err != nil {
		return nil, fmt.Errorf("get pending sync days: %w", err)
	}
	return days, nil
}

func (r *Repository) MarkSynced(ctx context.Context, d core.Date, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE day_records SET synced_at = $1 WHERE date_key = $2`, at.UTC(), d.Time)
	if err != nil {
		return fmt.Errorf("mark day synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
