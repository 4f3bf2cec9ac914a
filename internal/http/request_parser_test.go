package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"saloncal/internal/core"
	"saloncal/internal/ports"
	"saloncal/internal/services"
)

func mustDay(t *testing.T, key string) core.Date {
	t.Helper()
	d, err := core.ParseDayKey(key)
	if err != nil {
		t.Fatalf("ParseDayKey(%q): %v", key, err)
	}
	return d
}

func TestParseDayForm(t *testing.T) {
	d := mustDay(t, "2025-09-10")
	form := url.Values{
		"count_a":          {"3"},
		"memo_a":           {"  color \x00touch-up "},
		"count_b":          {""},
		"memo":             {"busy"},
		"service_sales":    {"¥12,500"},
		"retail_sales":     {"800"},
		"new_customers":    {"2"},
		"repeat_customers": {""},
	}

	rec, err := ParseDayForm(form, d)
	if err != nil {
		t.Fatalf("ParseDayForm() error = %v", err)
	}
	if rec.Key() != "2025-09-10" {
		t.Errorf("Key = %s", rec.Key())
	}
	if got := rec.Entries["a"]; got.Count != 3 || got.Memo != "color touch-up" {
		t.Errorf("entry a = %+v", got)
	}
	if got := rec.Entries["b"]; got.Count != 0 {
		t.Errorf("entry b = %+v", got)
	}
	if rec.Total() != 3 {
		t.Errorf("Total = %d, want 3", rec.Total())
	}
	if rec.Memo != "busy" {
		t.Errorf("Memo = %q", rec.Memo)
	}
	if rec.Sales.Service != 12500 || rec.Sales.Retail != 800 {
		t.Errorf("Sales = %+v", rec.Sales)
	}
	if rec.Customers.New != 2 || rec.Customers.Repeat != 0 {
		t.Errorf("Customers = %+v", rec.Customers)
	}
}

func TestParseDayForm_FlatCount(t *testing.T) {
	d := mustDay(t, "2025-09-10")
	rec, err := ParseDayForm(url.Values{"count": {"5"}, "memo": {"walk-ins"}}, d)
	if err != nil {
		t.Fatalf("ParseDayForm() error = %v", err)
	}
	if rec.Entries[core.UnassignedStaffID].Count != 5 {
		t.Errorf("unassigned = %+v", rec.Entries)
	}
	if rec.Memo != "walk-ins" {
		t.Errorf("Memo = %q", rec.Memo)
	}
}

func TestParseDayForm_Errors(t *testing.T) {
	d := mustDay(t, "2025-09-10")
	tests := []struct {
		name string
		form url.Values
		want error
	}{
		{"count over cap", url.Values{"count_a": {"21"}}, core.ErrCountOutOfRange},
		{"negative count", url.Values{"count_a": {"-1"}}, core.ErrCountOutOfRange},
		{"count not a number", url.Values{"count_a": {"two"}}, core.ErrCountOutOfRange},
		{"flat count over cap", url.Values{"count": {"30"}}, core.ErrCountOutOfRange},
		{"bad sales", url.Values{"service_sales": {"12.5"}}, core.ErrInvalidAmount},
		{"bad customers", url.Values{"new_customers": {"-3"}}, errInvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDayForm(tt.form, d)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDayPayloadRecord(t *testing.T) {
	d := mustDay(t, "2025-09-10")

	five := 5
	flat := dayPayload{Count: &five, Memo: "  m\x00 "}.Record(d)
	if flat.Entries[core.UnassignedStaffID].Count != 5 || flat.Memo != "m" {
		t.Errorf("flat record = %+v", flat)
	}

	rich := dayPayload{
		Count:     &five,
		Entries:   map[string]entryPayload{" a ": {Count: 2, Memo: "x"}},
		Sales:     salesPayload{Service: 3000, Retail: 500},
		Customers: customersPayload{New: 1, Repeat: 1},
	}.Record(d)
	if rich.Total() != 2 {
		t.Errorf("entries should win over count, total = %d", rich.Total())
	}
	if rich.Entries["a"].Memo != "x" {
		t.Errorf("entries = %+v", rich.Entries)
	}
	if rich.Sales.Total() != 3500 || rich.Customers.Total() != 2 {
		t.Errorf("figures = %+v %+v", rich.Sales, rich.Customers)
	}
}

func TestPayloadValidation(t *testing.T) {
	validate, _, err := newValidator()
	if err != nil {
		t.Fatal(err)
	}
	over := 21
	tests := []struct {
		name    string
		payload any
		wantErr bool
	}{
		{"valid day", dayPayload{Entries: map[string]entryPayload{"a": {Count: 20}}}, false},
		{"entry over cap", dayPayload{Entries: map[string]entryPayload{"a": {Count: 21}}}, true},
		{"empty staff key", dayPayload{Entries: map[string]entryPayload{"": {Count: 1}}}, true},
		{"flat over cap", dayPayload{Count: &over}, true},
		{"negative sales", dayPayload{Sales: salesPayload{Service: -1}}, true},
		{"adjust up", adjustPayload{StaffID: "a", Delta: 1}, false},
		{"adjust by two", adjustPayload{StaffID: "a", Delta: 2}, true},
		{"adjust without staff", adjustPayload{Delta: -1}, true},
		{"move sideways", movePayload{Direction: "left"}, true},
		{"long staff name", staffPayload{Name: strings.Repeat("x", 51)}, true},
		{"empty pin", pinPayload{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonthQuery(t *testing.T) {
	def, _ := core.ParseMonthKey("2025-09")

	m, err := monthQuery(url.Values{}, def)
	if err != nil || m.Key() != "2025-09" {
		t.Errorf("default = %v, %v", m.Key(), err)
	}

	m, err = monthQuery(url.Values{"month": {"2024-12"}}, def)
	if err != nil || m.Key() != "2024-12" {
		t.Errorf("explicit = %v, %v", m.Key(), err)
	}

	if _, err := monthQuery(url.Values{"month": {"2024-13"}}, def); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Errorf("invalid month error = %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\tend", "line1\nline2\tend"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	if !isJSON(r) {
		t.Error("expected JSON")
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if isJSON(r) {
		t.Error("form reported as JSON")
	}
}

func TestErrorStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	validate, _, _ := newValidator()
	verr := validate.Struct(adjustPayload{StaffID: "a", Delta: 3})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validator", verr, http.StatusUnprocessableEntity},
		{"bad body", fmt.Errorf("%w: eof", errBadBody), http.StatusBadRequest},
		{"locked", services.ErrLocked, http.StatusUnauthorized},
		{"wrong pin", services.ErrWrongPIN, http.StatusForbidden},
		{"not found", ports.ErrNotFound, http.StatusNotFound},
		{"staff not found", fmt.Errorf("move: %w", ports.ErrStaffNotFound), http.StatusNotFound},
		{"cap", fmt.Errorf("adjust: %w", core.ErrCapReached), http.StatusUnprocessableEntity},
		{"day key", core.ErrInvalidDayKey, http.StatusUnprocessableEntity},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := srv.errorStatus(tt.err)
			if status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
			if status == http.StatusInternalServerError && msg != "internal error" {
				t.Errorf("500 leaked message %q", msg)
			}
		})
	}
}
