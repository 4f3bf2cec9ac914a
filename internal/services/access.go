package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"saloncal/internal/core"
	"saloncal/internal/pin"
	"saloncal/internal/ports"
)

// SettingPINHash is the settings key holding the Argon2id PIN hash.
const SettingPINHash = "pin_hash"

var (
	ErrWrongPIN       = errors.New("wrong pin")
	ErrLocked         = errors.New("settings are locked")
	ErrBadDirection   = errors.New("direction must be up or down")
	ErrAlreadyAtLimit = errors.New("staff already at the edge of the list")
)

// Default staff seeded on first unlock when none exist.
var defaultStaffNames = []string{"Staff A", "Staff B"}

// Unlock checks p against the stored PIN and returns a short-lived token
// for the staff and PIN settings.
func (s *BookingService) Unlock(ctx context.Context, p string) (string, error) {
	stored, err := s.store.GetSetting(ctx, SettingPINHash)
	if err != nil && !errors.Is(err, ports.ErrSettingMissing) {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	ok, err := pin.Matches(p, stored, s.opts.DefaultPIN)
	if err != nil {
		return "", fmt.Errorf("verify pin: %w", err)
	}
	if !ok {
		slog.WarnContext(ctx, "Unlock rejected")
		return "", ErrWrongPIN
	}

	if err := s.seedStaff(ctx); err != nil {
		return "", err
	}

	token := uuid.NewString()
	s.tokens.Set(token, s.opts.Now())
	slog.InfoContext(ctx, "Settings unlocked")
	return token, nil
}

// ValidToken reports whether token was issued by Unlock and has not expired.
func (s *BookingService) ValidToken(token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	_, ok := s.tokens.Get(token)
	return ok
}

// Lock revokes token.
func (s *BookingService) Lock(token string) {
	s.tokens.Delete(token)
}

func (s *BookingService) requireToken(token string) error {
	if !s.ValidToken(token) {
		return ErrLocked
	}
	return nil
}

// ChangePIN stores the hash of newPIN. It needs a valid unlock token.
func (s *BookingService) ChangePIN(ctx context.Context, token, newPIN string) error {
	if err := s.requireToken(token); err != nil {
		return err
	}
	return s.SetPIN(ctx, newPIN)
}

// SetPIN stores the hash of newPIN without a token, for the admin CLI.
func (s *BookingService) SetPIN(ctx context.Context, newPIN string) error {
	hash, err := pin.Hash(newPIN)
	if err != nil {
		return err
	}
	if err := s.store.PutSetting(ctx, SettingPINHash, hash); err != nil {
		return fmt.Errorf("store pin hash: %w", err)
	}
	slog.InfoContext(ctx, "PIN changed")
	return nil
}

func (s *BookingService) seedStaff(ctx context.Context) error {
	s.staffMu.Lock()
	defer s.staffMu.Unlock()

	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	if len(staff) > 0 {
		return nil
	}
	for i, name := range defaultStaffNames {
		st := core.Staff{ID: uuid.NewString(), Name: name, Sort: i + 1, Active: true}
		if err := s.store.UpsertStaff(ctx, st); err != nil {
			return fmt.Errorf("seed staff: %w", err)
		}
	}
	s.invalidateAllMonths()
	slog.InfoContext(ctx, "Seeded default staff", "count", len(defaultStaffNames))
	return nil
}

// ListStaff returns every staff member ordered by sort.
func (s *BookingService) ListStaff(ctx context.Context) ([]core.Staff, error) {
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	core.SortStaff(staff)
	return staff, nil
}

// AddStaff appends a new active staff member at the end of the order.
func (s *BookingService) AddStaff(ctx context.Context, token, name string) (core.Staff, error) {
	if err := s.requireToken(token); err != nil {
		return core.Staff{}, err
	}
	return s.addStaff(ctx, name)
}

func (s *BookingService) addStaff(ctx context.Context, name string) (core.Staff, error) {
	s.staffMu.Lock()
	defer s.staffMu.Unlock()

	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return core.Staff{}, fmt.Errorf("list staff: %w", err)
	}
	maxSort := 0
	for _, st := range staff {
		if st.Sort > maxSort {
			maxSort = st.Sort
		}
	}
	st := core.Staff{ID: uuid.NewString(), Name: strings.TrimSpace(name), Sort: maxSort + 1, Active: true}
	if err := st.Validate(); err != nil {
		return core.Staff{}, err
	}
	if err := s.store.UpsertStaff(ctx, st); err != nil {
		return core.Staff{}, fmt.Errorf("add staff: %w", err)
	}
	s.invalidateAllMonths()
	slog.InfoContext(ctx, "Staff added", "staff_id", st.ID, "sort", st.Sort)
	return st, nil
}

// AddStaffDirect adds a staff member without a token, for the admin CLI.
func (s *BookingService) AddStaffDirect(ctx context.Context, name string) (core.Staff, error) {
	return s.addStaff(ctx, name)
}

// MoveStaff swaps the sort order of id with its neighbour in direction
// "up" or "down".
func (s *BookingService) MoveStaff(ctx context.Context, token, id, direction string) error {
	if err := s.requireToken(token); err != nil {
		return err
	}
	var step int
	switch direction {
	case "up":
		step = -1
	case "down":
		step = 1
	default:
		return ErrBadDirection
	}

	s.staffMu.Lock()
	defer s.staffMu.Unlock()

	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	core.SortStaff(staff)
	idx := -1
	for i, st := range staff {
		if st.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ports.ErrStaffNotFound
	}
	j := idx + step
	if j < 0 || j >= len(staff) {
		return ErrAlreadyAtLimit
	}

	a, b := staff[idx], staff[j]
	a.Sort, b.Sort = b.Sort, a.Sort
	if a.Sort == b.Sort {
		// Equal sorts would not reorder; spread them apart.
		if step < 0 {
			a.Sort--
		} else {
			a.Sort++
		}
	}
	if err := s.store.UpsertStaff(ctx, a); err != nil {
		return fmt.Errorf("move staff: %w", err)
	}
	if err := s.store.UpsertStaff(ctx, b); err != nil {
		return fmt.Errorf("move staff: %w", err)
	}
	s.invalidateAllMonths()
	return nil
}

// ToggleStaff flips the active flag of id and returns the updated member.
func (s *BookingService) ToggleStaff(ctx context.Context, token, id string) (core.Staff, error) {
	if err := s.requireToken(token); err != nil {
		return core.Staff{}, err
	}

	s.staffMu.Lock()
	defer s.staffMu.Unlock()

	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return core.Staff{}, fmt.Errorf("list staff: %w", err)
	}
	for _, st := range staff {
		if st.ID != id {
			continue
		}
		st.Active = !st.Active
		if err := s.store.SetStaffActive(ctx, id, st.Active); err != nil {
			return core.Staff{}, fmt.Errorf("toggle staff: %w", err)
		}
		s.invalidateAllMonths()
		slog.InfoContext(ctx, "Staff toggled", "staff_id", id, "active", st.Active)
		return st, nil
	}
	return core.Staff{}, ports.ErrStaffNotFound
}
