package ports

import (
	"context"
	"errors"
	"time"

	"saloncal/internal/core"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrStaffNotFound  = errors.New("staff not found")
	ErrSettingMissing = errors.New("setting not found")
)

// Ports for the persistence collaborators. Every backend (memory, sqlite,
// postgres) implements all of them.
type (
	DayStore interface {
		// UpsertDay writes the record and its staff entries as one unit,
		// replacing any entries previously stored for that day.
		UpsertDay(ctx context.Context, rec core.DayRecord) error
		// GetDay returns ErrNotFound when no record exists for d.
		GetDay(ctx context.Context, d core.Date) (core.DayRecord, error)
		// ListDays returns the records in the inclusive range, ordered by date.
		ListDays(ctx context.Context, from, to core.Date) ([]core.DayRecord, error)
	}

	StaffStore interface {
		// ListStaff returns every staff member ordered by sort.
		ListStaff(ctx context.Context) ([]core.Staff, error)
		UpsertStaff(ctx context.Context, s core.Staff) error
		SetStaffActive(ctx context.Context, id string, active bool) error
	}

	SettingsStore interface {
		// GetSetting returns ErrSettingMissing when the key is not stored.
		GetSetting(ctx context.Context, key string) (string, error)
		PutSetting(ctx context.Context, key, value string) error
	}

	// SyncTracker lets the mirror worker find days saved since their last
	// sync to the sheet.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]core.Date, error)
		// MarkSynced stores at, the UpdatedAt of the mirrored version; a
		// later save makes the day pending again.
		MarkSynced(ctx context.Context, d core.Date, at time.Time) error
	}

	// Store groups every port a backend provides.
	Store interface {
		DayStore
		StaffStore
		SettingsStore
		SyncTracker
		Ping(ctx context.Context) error
	}

	// DayMirror receives saved days, e.g. a spreadsheet row per day.
	DayMirror interface {
		UpsertDayRow(ctx context.Context, rec core.DayRecord) (rowRef string, err error)
	}

	// MirrorReader reads mirrored days back for comparison with the store.
	MirrorReader interface {
		ReadMonth(ctx context.Context, m core.Month) ([]core.DayRecord, error)
	}

	// DaySavedPublisher announces saved days to the sync pipeline.
	DaySavedPublisher interface {
		PublishDaySaved(ctx context.Context, d core.Date) error
	}
)
