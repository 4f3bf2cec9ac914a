package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"saloncal/internal/core"
	"saloncal/internal/memory"
	"saloncal/internal/services"
	"saloncal/internal/worker"
)

var cliNow = time.Date(2025, 9, 10, 3, 0, 0, 0, time.UTC)

func testDeps(t *testing.T, store *memory.Store, out *bytes.Buffer) Deps {
	t.Helper()
	svc := services.NewBookingService(store, nil, services.Options{
		Location: time.UTC,
		Now:      func() time.Time { return cliNow },
	})
	return Deps{
		Out: out,
		Now: func() time.Time { return cliNow },
		OpenService: func(context.Context) (*services.BookingService, func() error, error) {
			return svc, func() error { return nil }, nil
		},
	}
}

func run(t *testing.T, d Deps, args ...string) error {
	t.Helper()
	cmd := SetupCommands(d)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestClosedCommand(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	if err := run(t, d, "closed", "2025-09"); err != nil {
		t.Fatalf("closed: %v", err)
	}
	got := out.String()
	for _, key := range []string{"2025-09-01 Mon", "2025-09-02 Tue", "2025-09-16 Tue", "2025-09-29 Mon"} {
		if !strings.Contains(got, key) {
			t.Errorf("output missing %q:\n%s", key, got)
		}
	}
	if strings.Contains(got, "2025-09-09") {
		t.Errorf("2nd Tuesday listed as closed:\n%s", got)
	}
	if !strings.Contains(got, "business days: 23") {
		t.Errorf("business days line missing:\n%s", got)
	}
}

func TestClosedCommandDefaultsToCurrentMonth(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	if err := run(t, d, "closed"); err != nil {
		t.Fatalf("closed: %v", err)
	}
	if !strings.Contains(out.String(), "2025-09-01") {
		t.Errorf("expected September output, got:\n%s", out.String())
	}
}

func TestSummaryCommand(t *testing.T) {
	var out bytes.Buffer
	store := memory.New(core.Staff{ID: "a", Name: "Aki", Sort: 1, Active: true})
	d := testDeps(t, store, &out)

	rec := core.NewDayRecord(core.NewDate(2025, time.September, 3))
	rec.Entries["a"] = core.StaffEntry{Count: 4}
	rec.Sales = core.Sales{Service: 30000}
	rec.Customers = core.Customers{New: 1, Repeat: 3}
	if err := store.UpsertDay(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	if err := run(t, d, "summary", "2025-09"); err != nil {
		t.Fatalf("summary: %v", err)
	}
	got := out.String()
	for _, want := range []string{"2025-09", "Reservations", "¥30,000", "Needed per day"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummaryCommandRejectsBadMonth(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	err := run(t, d, "summary", "2025-9")
	if !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Errorf("error = %v, want ErrInvalidMonthKey", err)
	}
}

func TestExportToStdout(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	if err := run(t, d, "export", "2025-02", "-o", "-"); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(out.String(), "\n")
	if lines[0] != "date,count,memo" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 29 {
		t.Errorf("rows = %d, want 29", len(lines))
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	if err := run(t, d, "export", "2025-02", "--format", "pdf"); err == nil {
		t.Error("expected error for pdf format")
	}
}

func TestStaffAddAndList(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	if err := run(t, d, "staff", "add", "Mika", "Tanaka"); err != nil {
		t.Fatalf("staff add: %v", err)
	}
	if !strings.Contains(out.String(), "added Mika Tanaka") {
		t.Errorf("add output = %q", out.String())
	}

	out.Reset()
	if err := run(t, d, "staff", "list"); err != nil {
		t.Fatalf("staff list: %v", err)
	}
	if !strings.Contains(out.String(), "Mika Tanaka") {
		t.Errorf("list output missing staff:\n%s", out.String())
	}
}

func TestPinSet(t *testing.T) {
	var out bytes.Buffer
	store := memory.New()
	d := testDeps(t, store, &out)

	answers := []string{"98765", "98765"}
	d.ReadPIN = func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}

	if err := run(t, d, "pin", "set"); err != nil {
		t.Fatalf("pin set: %v", err)
	}

	svc, _, _ := d.OpenService(context.Background())
	if _, err := svc.Unlock(context.Background(), "98765"); err != nil {
		t.Errorf("unlock with new PIN: %v", err)
	}
	if _, err := svc.Unlock(context.Background(), services.DefaultPIN); !errors.Is(err, services.ErrWrongPIN) {
		t.Errorf("default PIN still accepted: %v", err)
	}
}

func TestPinSetMismatch(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	answers := []string{"1111", "2222"}
	d.ReadPIN = func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}

	if err := run(t, d, "pin", "set"); err == nil {
		t.Error("expected mismatch error")
	}
}

func TestSheetVerify(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)

	d.OpenVerifier = func(context.Context) (MonthVerifier, func() error, error) {
		verify := func(_ context.Context, m core.Month) ([]worker.Mismatch, error) {
			if m.Key() == "2025-08" {
				return nil, nil
			}
			return []worker.Mismatch{{DateKey: "2025-09-03", Reason: "missing in sheet"}}, nil
		}
		return verify, func() error { return nil }, nil
	}

	if err := run(t, d, "sheet", "verify", "2025-08"); err != nil {
		t.Errorf("clean month: %v", err)
	}
	if !strings.Contains(out.String(), "mirror matches") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := run(t, d, "sheet", "verify", "2025-09"); err == nil {
		t.Error("expected error for mismatching month")
	}
	if !strings.Contains(out.String(), "2025-09-03\tmissing in sheet") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDBVersion(t *testing.T) {
	var out bytes.Buffer
	d := testDeps(t, memory.New(), &out)
	d.SchemaVersion = func() (uint, bool, error) { return 3, false, nil }

	if err := run(t, d, "db", "version"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "version 3" {
		t.Errorf("output = %q", out.String())
	}
}
