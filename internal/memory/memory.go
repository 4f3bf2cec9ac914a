// Package memory is the in-process backend: the per-browser local variant
// of the calendar, and the store used by tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"saloncal/internal/core"
	"saloncal/internal/ports"
)

type Store struct {
	mu       sync.Mutex
	days     map[string]core.DayRecord
	synced   map[string]time.Time
	staff    map[string]core.Staff
	settings map[string]string
	rows     map[string]core.DayRecord
	now      func() time.Time
}

var (
	_ ports.Store        = (*Store)(nil)
	_ ports.DayMirror    = (*Store)(nil)
	_ ports.MirrorReader = (*Store)(nil)
)

func New(staff ...core.Staff) *Store {
	s := &Store{
		days:     map[string]core.DayRecord{},
		synced:   map[string]time.Time{},
		staff:    map[string]core.Staff{},
		settings: map[string]string{},
		rows:     map[string]core.DayRecord{},
		now:      time.Now,
	}
	for _, st := range staff {
		s.staff[st.ID] = st
	}
	return s
}

// NewFromFiles seeds active staff from seed_staff.txt under base, one name
// per line. Ids are derived from the line order.
func NewFromFiles(base string) *Store {
	names := readLines(filepath.Join(base, "seed_staff.txt"))
	staff := make([]core.Staff, 0, len(names))
	for i, n := range names {
		staff = append(staff, core.Staff{ID: fmt.Sprintf("seed-%d", i+1), Name: n, Sort: i + 1, Active: true})
	}
	return New(staff...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) UpsertDay(_ context.Context, rec core.DayRecord) error {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validate day %s: %w", rec.Key(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}
	s.days[rec.Key()] = cloneRecord(rec)
	return nil
}

func (s *Store) GetDay(_ context.Context, d core.Date) (core.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.days[d.Key()]
	if !ok {
		return core.DayRecord{}, ports.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *Store) ListDays(_ context.Context, from, to core.Date) ([]core.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DayRecord, 0)
	for _, rec := range s.days {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *Store) ListStaff(context.Context) ([]core.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Staff, 0, len(s.staff))
	for _, st := range s.staff {
		out = append(out, st)
	}
	core.SortStaff(out)
	return out, nil
}

func (s *Store) UpsertStaff(_ context.Context, st core.Staff) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("validate staff: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[st.ID] = st
	return nil
}

func (s *Store) SetStaffActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.staff[id]
	if !ok {
		return ports.ErrStaffNotFound
	}
	st.Active = active
	s.staff[id] = st
	return nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	if !ok {
		return "", ports.ErrSettingMissing
	}
	return v, nil
}

func (s *Store) PutSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *Store) PendingSync(_ context.Context, limit int) ([]core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []core.DayRecord
	for key, rec := range s.days {
		if at, ok := s.synced[key]; ok && !at.Before(rec.UpdatedAt) {
			continue
		}
		pending = append(pending, rec)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].UpdatedAt.Before(pending[j].UpdatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]core.Date, len(pending))
	for i, rec := range pending {
		out[i] = rec.Date
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, d core.Date, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.days[d.Key()]; !ok {
		return ports.ErrNotFound
	}
	s.synced[d.Key()] = at
	return nil
}

// UpsertDayRow mirrors a day in memory and returns a synthetic row reference.
func (s *Store) UpsertDayRow(_ context.Context, rec core.DayRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.Key()] = cloneRecord(rec)
	return "mem:" + rec.Key(), nil
}

// MirroredRow returns the row last mirrored for d.
func (s *Store) MirroredRow(d core.Date) (core.DayRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[d.Key()]
	return rec, ok
}

// ReadMonth returns the mirrored rows within m ordered by date.
func (s *Store) ReadMonth(_ context.Context, m core.Month) ([]core.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DayRecord
	for _, rec := range s.rows {
		if m.Contains(rec.Date) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func cloneRecord(rec core.DayRecord) core.DayRecord {
	out := rec
	out.Entries = make(map[string]core.StaffEntry, len(rec.Entries))
	for id, e := range rec.Entries {
		out.Entries[id] = e
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
