package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"saloncal/internal/amqp"
	"saloncal/internal/core"
	"saloncal/internal/metrics"
	"saloncal/internal/ports"
)

// Store is the subset of the backend the worker needs.
type Store interface {
	ports.DayStore
	ports.SyncTracker
}

// SyncWorker mirrors saved days from the store to the spreadsheet.
type SyncWorker struct {
	store     Store
	mirror    ports.DayMirror
	batchSize int
}

func NewSyncWorker(store Store, mirror ports.DayMirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleDaySaved processes a single day.saved message from AMQP
func (w *SyncWorker) HandleDaySaved(ctx context.Context, msg *amqp.DaySavedMessage) error {
	d, err := msg.Day()
	if err != nil {
		return fmt.Errorf("decode day: %w", err)
	}

	slog.InfoContext(ctx, "Processing day.saved message",
		"date_key", msg.Date,
		"timestamp", msg.Timestamp)

	return w.SyncDay(ctx, d)
}

// SyncDay mirrors the stored version of d. A day that was never saved is
// skipped rather than failed so the message is not redelivered forever.
func (w *SyncWorker) SyncDay(ctx context.Context, d core.Date) error {
	rec, err := w.store.GetDay(ctx, d)
	if errors.Is(err, ports.ErrNotFound) {
		slog.WarnContext(ctx, "Day not in store, nothing to mirror", "date_key", d.Key())
		return nil
	}
	if err != nil {
		return fmt.Errorf("get day from storage: %w", err)
	}

	ref, err := w.mirror.UpsertDayRow(ctx, rec)
	metrics.SheetSync(err)
	if err != nil {
		return fmt.Errorf("upsert day row: %w", err)
	}

	// Mark as synced at the version that was mirrored; a newer save keeps
	// the day pending.
	if err := w.store.MarkSynced(ctx, d, rec.UpdatedAt); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "date_key", d.Key(), "error", err)
		// Don't return error here - the sync actually worked
	}

	slog.InfoContext(ctx, "Successfully synced day",
		"date_key", d.Key(),
		"sheets_ref", ref,
		"total", rec.Total(),
		"sales_yen", int64(rec.Sales.Total()))

	return nil
}

// ProcessPending mirrors days saved since their last sync. This is a
// backup mechanism in case AMQP messages are lost. It returns the number
// of days synced.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.syncPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger batch of pending days at worker startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.syncPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced == 0 {
		slog.InfoContext(ctx, "No pending days found on startup")
	}
	return nil
}

func (w *SyncWorker) syncPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending days: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending days", "count", len(pending))

	successCount := 0
	errorCount := 0
	for _, d := range pending {
		if ctx.Err() != nil {
			return successCount, ctx.Err()
		}
		if err := w.SyncDay(ctx, d); err != nil {
			slog.ErrorContext(ctx, "Failed to sync day", "date_key", d.Key(), "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Pending sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return successCount, nil
}

// Mismatch describes a day whose mirrored row differs from the store.
type Mismatch struct {
	DateKey string
	Local   *core.DayRecord
	Remote  *core.DayRecord
	Reason  string
}

// VerifyMonth compares stored days in m with the mirror's rows.
func (w *SyncWorker) VerifyMonth(ctx context.Context, m core.Month, reader ports.MirrorReader) ([]Mismatch, error) {
	local, err := w.store.ListDays(ctx, m.First(), m.Last())
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	remote, err := reader.ReadMonth(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("read mirror: %w", err)
	}
	return Compare(local, remote), nil
}

// Compare matches records by day key. The staff split is not mirrored, so
// only the totals, sales, customers and memo are compared.
func Compare(local, remote []core.DayRecord) []Mismatch {
	byKey := make(map[string]core.DayRecord, len(remote))
	for _, r := range remote {
		byKey[r.Key()] = r
	}

	var out []Mismatch
	for i := range local {
		l := local[i]
		r, ok := byKey[l.Key()]
		delete(byKey, l.Key())
		if !ok {
			if !l.IsEmpty() {
				out = append(out, Mismatch{DateKey: l.Key(), Local: &l, Reason: "missing in mirror"})
			}
			continue
		}
		if reason := diffReason(l, r); reason != "" {
			rr := r
			out = append(out, Mismatch{DateKey: l.Key(), Local: &l, Remote: &rr, Reason: reason})
		}
	}
	for key, r := range byKey {
		rr := r
		out = append(out, Mismatch{DateKey: key, Remote: &rr, Reason: "missing in store"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out
}

func diffReason(l, r core.DayRecord) string {
	switch {
	case l.Total() != r.Total():
		return fmt.Sprintf("total %d != %d", l.Total(), r.Total())
	case l.Sales != r.Sales:
		return "sales differ"
	case l.Customers != r.Customers:
		return "customers differ"
	case l.Memo != r.Memo:
		return "memo differs"
	}
	return ""
}
