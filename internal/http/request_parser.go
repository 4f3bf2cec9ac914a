// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// path parameters, the day editor form and the JSON payloads of the API.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"saloncal/internal/core"
)

const maxBodyBytes = 64 << 10

var (
	errInvalidNumber = errors.New("invalid number")
	errBadBody       = errors.New("malformed request body")
)

// Form field prefixes for per-staff editor inputs.
const (
	countFieldPrefix = "count_"
	memoFieldPrefix  = "memo_"
)

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, err
	}
	return validate, trans, nil
}

type (
	entryPayload struct {
		Count int    `json:"count" validate:"min=0,max=20"`
		Memo  string `json:"memo" validate:"max=1000"`
	}

	salesPayload struct {
		Service int64 `json:"service" validate:"min=0"`
		Retail  int64 `json:"retail" validate:"min=0"`
	}

	customersPayload struct {
		New    int `json:"new" validate:"min=0"`
		Repeat int `json:"repeat" validate:"min=0"`
	}

	// dayPayload is the JSON body of a day save. Count is the flat
	// count+memo form and is used only when Entries is empty.
	dayPayload struct {
		Memo      string                  `json:"memo" validate:"max=1000"`
		Count     *int                    `json:"count" validate:"omitempty,min=0,max=20"`
		Entries   map[string]entryPayload `json:"entries" validate:"dive,keys,required,max=64,endkeys"`
		Sales     salesPayload            `json:"sales"`
		Customers customersPayload        `json:"customers"`
	}

	adjustPayload struct {
		StaffID string `json:"staff_id" validate:"required,max=64"`
		Delta   int    `json:"delta" validate:"required,oneof=-1 1"`
	}

	pinPayload struct {
		PIN string `json:"pin" validate:"required,max=64"`
	}

	staffPayload struct {
		Name string `json:"name" validate:"required,max=50"`
	}

	movePayload struct {
		Direction string `json:"direction" validate:"required,oneof=up down"`
	}
)

// Record converts the payload to a day record for d.
func (p dayPayload) Record(d core.Date) core.DayRecord {
	var rec core.DayRecord
	if len(p.Entries) == 0 && p.Count != nil {
		rec = core.FlatDayRecord(d, *p.Count, sanitizeInput(p.Memo))
	} else {
		rec = core.NewDayRecord(d)
		rec.Memo = sanitizeInput(p.Memo)
		for id, e := range p.Entries {
			rec.Entries[strings.TrimSpace(id)] = core.StaffEntry{Count: e.Count, Memo: sanitizeInput(e.Memo)}
		}
	}
	rec.Sales = core.Sales{Service: core.Yen(p.Sales.Service), Retail: core.Yen(p.Sales.Retail)}
	rec.Customers = core.Customers{New: p.Customers.New, Repeat: p.Customers.Repeat}
	return rec
}

// decodeJSON reads at most maxBodyBytes of JSON into v and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return s.validate.Struct(v)
}

// isJSON reports whether the request body is JSON.
func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

// ParseDayForm builds a day record from the editor form. Counts arrive as
// count_<staffID>, per-staff memos as memo_<staffID>.
func ParseDayForm(form url.Values, d core.Date) (core.DayRecord, error) {
	rec := core.NewDayRecord(d)
	rec.Memo = sanitizeInput(form.Get("memo"))

	for key, vals := range form {
		if len(vals) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(key, countFieldPrefix):
			id := strings.TrimPrefix(key, countFieldPrefix)
			n, err := parseCountField(vals[0])
			if err != nil {
				return core.DayRecord{}, fmt.Errorf("%w: %s", err, key)
			}
			e := rec.Entries[id]
			e.Count = n
			rec.Entries[id] = e
		case strings.HasPrefix(key, memoFieldPrefix):
			id := strings.TrimPrefix(key, memoFieldPrefix)
			e := rec.Entries[id]
			e.Memo = sanitizeInput(vals[0])
			rec.Entries[id] = e
		}
	}

	// The flat form posts a single "count".
	if v := strings.TrimSpace(form.Get("count")); v != "" && len(rec.Entries) == 0 {
		n, err := parseCountField(v)
		if err != nil {
			return core.DayRecord{}, fmt.Errorf("%w: count", err)
		}
		rec = core.FlatDayRecord(d, n, rec.Memo)
	}

	var err error
	if rec.Sales.Service, err = core.ParseYen(form.Get("service_sales")); err != nil {
		return core.DayRecord{}, fmt.Errorf("service_sales: %w", err)
	}
	if rec.Sales.Retail, err = core.ParseYen(form.Get("retail_sales")); err != nil {
		return core.DayRecord{}, fmt.Errorf("retail_sales: %w", err)
	}
	if rec.Customers.New, err = parseIntField(form.Get("new_customers")); err != nil {
		return core.DayRecord{}, fmt.Errorf("%w: new_customers", err)
	}
	if rec.Customers.Repeat, err = parseIntField(form.Get("repeat_customers")); err != nil {
		return core.DayRecord{}, fmt.Errorf("%w: repeat_customers", err)
	}
	return rec, nil
}

func parseCountField(s string) (int, error) {
	n, err := parseIntField(s)
	if err != nil {
		return 0, core.ErrCountOutOfRange
	}
	if n < 0 || n > core.MaxDailyCount {
		return 0, core.ErrCountOutOfRange
	}
	return n, nil
}

// parseIntField parses a non-negative integer; empty input is zero.
func parseIntField(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errInvalidNumber
	}
	return n, nil
}

// dateParam reads the {date} path parameter.
func dateParam(r *http.Request) (core.Date, error) {
	return core.ParseDayKey(chi.URLParam(r, "date"))
}

// monthParam reads the {month} path parameter.
func monthParam(r *http.Request) (core.Month, error) {
	return core.ParseMonthKey(chi.URLParam(r, "month"))
}

// monthQuery reads ?month=YYYY-MM, falling back to def when absent.
func monthQuery(query url.Values, def core.Month) (core.Month, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return def, nil
	}
	return core.ParseMonthKey(v)
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// unlockToken reads the settings token from the request.
func unlockToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(unlockTokenHeader))
}
