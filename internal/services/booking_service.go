package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"saloncal/internal/cache"
	"saloncal/internal/core"
	"saloncal/internal/export"
	applog "saloncal/internal/log"
	"saloncal/internal/metrics"
	"saloncal/internal/ports"
)

// DefaultPIN unlocks settings until a PIN is stored.
const DefaultPIN = "4043"

// Options configures a BookingService.
type Options struct {
	Goal         core.Goal
	Location     *time.Location
	IncludeToday bool
	DefaultPIN   string
	UnlockTTL    time.Duration
	CacheTTL     time.Duration
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// monthData is what a month load fetches from the store.
type monthData struct {
	Records []core.DayRecord
	Staff   []core.Staff
}

// BookingService orchestrates the calendar: month views, day saves, staff
// management and the PIN gate, across the store and the sync publisher.
type BookingService struct {
	store     ports.Store
	publisher ports.DaySavedPublisher
	opts      Options

	months *cache.LRUCache[monthData]
	tokens *cache.LRUCache[time.Time]
	loads  singleflight.Group

	// genMu guards the cache generations. A load only fills the cache when
	// no invalidation happened while it was running.
	genMu     sync.Mutex
	epoch     uint64
	monthGens map[string]uint64

	// staffMu serializes sort-order rewrites.
	staffMu sync.Mutex
}

func NewBookingService(store ports.Store, publisher ports.DaySavedPublisher, opts Options) *BookingService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Goal.Customers == 0 && opts.Goal.UnitPrice == 0 {
		opts.Goal = core.DefaultGoal
	}
	if strings.TrimSpace(opts.DefaultPIN) == "" {
		opts.DefaultPIN = DefaultPIN
	}
	if opts.UnlockTTL <= 0 {
		opts.UnlockTTL = 30 * time.Minute
	}
	return &BookingService{
		store:     store,
		publisher: publisher,
		opts:      opts,
		months:    cache.NewLRUCache[monthData](24, opts.CacheTTL),
		tokens:    cache.NewLRUCache[time.Time](64, opts.UnlockTTL),
		monthGens: make(map[string]uint64),
	}
}

// Caches exposes the service caches for periodic cleanup.
func (s *BookingService) Caches() map[string]cache.Cleaner {
	return map[string]cache.Cleaner{"months": s.months, "tokens": s.tokens}
}

// Today returns the current date in the salon's time zone.
func (s *BookingService) Today() core.Date {
	return core.DateOf(s.opts.Now(), s.opts.Location)
}

// CurrentMonth returns the month containing Today.
func (s *BookingService) CurrentMonth() core.Month {
	return s.Today().Month()
}

// Goal returns the configured monthly goal.
func (s *BookingService) Goal() core.Goal { return s.opts.Goal }

func (s *BookingService) aggregateOptions() core.AggregateOptions {
	return core.AggregateOptions{AsOf: s.Today(), IncludeToday: s.opts.IncludeToday}
}

// loadMonth fetches staff and the month's records concurrently. Concurrent
// loads of the same month and generation share one fetch.
func (s *BookingService) loadMonth(ctx context.Context, m core.Month) (monthData, error) {
	key := m.Key()
	if s.opts.CacheTTL > 0 {
		if data, ok := s.months.Get(key); ok {
			metrics.CacheLookup(true)
			return data, nil
		}
		metrics.CacheLookup(false)
	}

	gen := s.generation(key)
	v, err, _ := s.loads.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		var data monthData
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			staff, err := s.store.ListStaff(gctx)
			if err != nil {
				return fmt.Errorf("list staff: %w", err)
			}
			data.Staff = staff
			return nil
		})
		g.Go(func() error {
			recs, err := s.store.ListDays(gctx, m.First(), m.Last())
			if err != nil {
				return fmt.Errorf("list days: %w", err)
			}
			data.Records = recs
			return nil
		})
		if err := g.Wait(); err != nil {
			return monthData{}, err
		}
		if s.opts.CacheTTL > 0 {
			s.storeMonth(key, gen, data)
		}
		return data, nil
	})
	if err != nil {
		return monthData{}, fmt.Errorf("load month %s: %w", key, err)
	}
	return v.(monthData), nil
}

// generation changes whenever key or every month is invalidated.
func (s *BookingService) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.epoch + s.monthGens[key]
}

// storeMonth caches data loaded at generation gen unless an invalidation
// has happened since.
func (s *BookingService) storeMonth(key string, gen uint64, data monthData) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.epoch+s.monthGens[key] != gen {
		return
	}
	s.months.Set(key, data)
}

// InvalidateMonth drops the cached data for m. Loads still in flight for m
// will not repopulate the cache.
func (s *BookingService) InvalidateMonth(m core.Month) {
	key := m.Key()
	s.genMu.Lock()
	s.monthGens[key]++
	s.months.Delete(key)
	s.genMu.Unlock()
}

func (s *BookingService) invalidateAllMonths() {
	s.genMu.Lock()
	s.epoch++
	s.months.DeleteFunc(func(string) bool { return true })
	s.genMu.Unlock()
}

// MonthView builds the grid view-model for m.
func (s *BookingService) MonthView(ctx context.Context, m core.Month) (core.CalendarView, error) {
	data, err := s.loadMonth(ctx, m)
	if err != nil {
		return core.CalendarView{}, err
	}
	return core.BuildCalendarView(m, data.Records, data.Staff, s.opts.Goal, s.aggregateOptions()), nil
}

// MonthSummary returns only the KPI block for m.
func (s *BookingService) MonthSummary(ctx context.Context, m core.Month) (core.MonthSummary, error) {
	data, err := s.loadMonth(ctx, m)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Aggregate(m, data.Records, s.opts.Goal, s.aggregateOptions()), nil
}

// GetDay returns the stored record for d, or an empty record when the day
// has never been saved.
func (s *BookingService) GetDay(ctx context.Context, d core.Date) (core.DayRecord, error) {
	rec, err := s.store.GetDay(ctx, d)
	if errors.Is(err, ports.ErrNotFound) {
		return core.NewDayRecord(d), nil
	}
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("get day %s: %w", d.Key(), err)
	}
	return rec, nil
}

// Editor seeds the day editor with the stored record and active staff.
func (s *BookingService) Editor(ctx context.Context, d core.Date) (*core.DayEditor, []core.Staff, error) {
	var (
		rec   core.DayRecord
		staff []core.Staff
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.GetDay(gctx, d)
		return err
	})
	g.Go(func() error {
		var err error
		staff, err = s.store.ListStaff(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	active := core.ActiveStaff(staff)
	return core.NewDayEditor(rec, active), active, nil
}

// SaveDay validates and stores rec as one unit, then announces it to the
// sync pipeline. A failed publish does not fail the save.
func (s *BookingService) SaveDay(ctx context.Context, rec core.DayRecord) (core.DayRecord, error) {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		if errors.Is(err, core.ErrTotalOutOfRange) || errors.Is(err, core.ErrCountOutOfRange) {
			metrics.CapRejected()
		}
		return core.DayRecord{}, err
	}
	rec.UpdatedAt = s.opts.Now().UTC()

	sl := applog.NewStructuredLogger(applog.FromContext(ctx))
	err := s.store.UpsertDay(ctx, rec)
	metrics.DaySaved(err)
	if err != nil {
		sl.LogError(ctx, "Failed to save day", err, applog.ComponentBooking, applog.OpSave,
			applog.NewFields().WithDay(rec.Key(), rec.Total(), len(rec.Entries), int64(rec.Sales.Total())))
		return core.DayRecord{}, fmt.Errorf("save day %s: %w", rec.Key(), err)
	}
	s.InvalidateMonth(rec.Date.Month())

	sl.LogDaySaved(ctx, rec.Key(), rec.Total(), len(rec.Entries), int64(rec.Sales.Total()))

	s.publish(ctx, rec.Date)
	return rec, nil
}

func (s *BookingService) publish(ctx context.Context, d core.Date) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishDaySaved(ctx, d)
	metrics.Published(err)
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish day.saved",
			"date_key", d.Key(), "error", err)
	}
}

// Adjust applies a stepper change for one staff member and saves the day.
// staffID must name an active staff member. Inactive or removed members may
// only be stepped down on a day where they already have an entry.
func (s *BookingService) Adjust(ctx context.Context, d core.Date, staffID string, delta int) (core.DayRecord, error) {
	rec, err := s.GetDay(ctx, d)
	if err != nil {
		return core.DayRecord{}, err
	}
	if err := s.checkAdjustable(ctx, rec, staffID, delta); err != nil {
		return core.DayRecord{}, err
	}
	counts := make(map[string]int, len(rec.Entries))
	for id, e := range rec.Entries {
		counts[id] = e.Count
	}
	next, err := core.AdjustCount(counts, staffID, delta, core.MaxDailyCount)
	if err != nil {
		if errors.Is(err, core.ErrCapReached) {
			metrics.CapRejected()
		}
		return core.DayRecord{}, err
	}
	entry := rec.Entries[staffID]
	entry.Count = next[staffID]
	rec.Entries[staffID] = entry
	return s.SaveDay(ctx, rec)
}

func (s *BookingService) checkAdjustable(ctx context.Context, rec core.DayRecord, staffID string, delta int) error {
	if _, ok := rec.Entries[staffID]; ok && delta < 0 {
		return nil
	}
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	for _, st := range staff {
		if st.ID == staffID && st.Active {
			return nil
		}
	}
	return fmt.Errorf("adjust %s: %w", staffID, ports.ErrStaffNotFound)
}

// ExportFormat names a download layout.
type ExportFormat string

const (
	ExportCSV      ExportFormat = "csv"
	ExportStaffCSV ExportFormat = "staff_csv"
	ExportXLSX     ExportFormat = "xlsx"
)

// ExportData gathers everything an export of m needs. Inactive staff keep
// their column.
func (s *BookingService) ExportData(ctx context.Context, m core.Month) (export.MonthData, error) {
	data, err := s.loadMonth(ctx, m)
	if err != nil {
		return export.MonthData{}, err
	}
	return export.MonthData{
		Month:   m,
		Records: data.Records,
		Staff:   data.Staff,
		Summary: core.Aggregate(m, data.Records, s.opts.Goal, s.aggregateOptions()),
	}, nil
}

// WriteExport renders m in the given format to w.
func (s *BookingService) WriteExport(ctx context.Context, w io.Writer, m core.Month, format ExportFormat) error {
	data, err := s.ExportData(ctx, m)
	if err != nil {
		return err
	}
	switch format {
	case ExportCSV:
		err = export.WriteSimpleCSV(w, m, data.Records)
	case ExportStaffCSV:
		err = export.WriteStaffCSV(w, data)
	case ExportXLSX:
		err = export.WriteXLSX(w, data)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Export failed", err,
			applog.ComponentExport, applog.OpExport, applog.NewFields().WithMonth(m.Key()))
		return fmt.Errorf("export %s: %w", m.Key(), err)
	}
	metrics.Exported(string(format))
	return nil
}

// Ready reports whether the store is reachable.
func (s *BookingService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
