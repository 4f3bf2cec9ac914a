package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"saloncal/internal/core"
	"saloncal/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors day records into a spreadsheet, one row per day, in a
// sheet named "<year> <base>" for the record's year.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu     sync.Mutex
	sheets map[string]bool // titles known to exist
}

var (
	_ ports.DayMirror    = (*Client)(nil)
	_ ports.MirrorReader = (*Client)(nil)
)

// Options configures NewClient. Credentials come from CredentialsJSON,
// then CredentialsFile, then GOOGLE_APPLICATION_CREDENTIALS.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// NewClient creates a Sheets client using service account credentials.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Bookings"
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     base,
		sheets:        make(map[string]bool),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// SheetName returns the sheet title used for records of the given year.
func (c *Client) SheetName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// UpsertDayRow writes rec into the row whose column A holds its date key,
// appending a new row when the day is not in the sheet yet. The returned
// reference has the form "'<sheet>'!A<n>:G<n>".
func (c *Client) UpsertDayRow(ctx context.Context, rec core.DayRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.SheetName(rec.Date.Year())
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	keys, err := c.readCol(ctx, sheet, "A:A")
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		hdr := a1(sheet, "A1:"+lastColumn+"1")
		vr := &gsheet.ValueRange{Values: [][]any{headerRow()}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, hdr, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("failed to write header in sheet %s: %w", sheet, err)
		}
		keys = []string{headerColumns[0]}
	}

	row := findDayRow(keys, rec.Key())
	if row < 0 {
		row = len(keys) + 1
	}

	ref := a1(sheet, fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
	vr := &gsheet.ValueRange{Values: [][]any{dayRowValues(rec)}}
	// RAW keeps the date key as text and memos from turning into formulas.
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", ref, err)
	}
	return ref, nil
}

// ReadMonth returns the mirrored rows that fall within m. Rows that do
// not parse are skipped with a warning.
func (c *Client) ReadMonth(ctx context.Context, m core.Month) ([]core.DayRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	sheet := c.SheetName(m.Year)
	rng := a1(sheet, "A:"+lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	recs, bad := parseDayRows(resp.Values, m)
	for _, b := range bad {
		slog.WarnContext(ctx, "Skipping unreadable sheet row", "sheet", sheet, "row", b.Row, "error", b.Err)
	}
	return recs, nil
}

// ensureSheet adds the sheet to the spreadsheet when it is missing.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheets[title] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheets[s.Properties.Title] = true
		}
	}
	if c.sheets[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet", "sheet", title)
	c.sheets[title] = true
	return nil
}

// readCol returns column values in row order; blank cells stay as "" so
// indexes map to row numbers.
func (c *Client) readCol(ctx context.Context, sheetName, col string) ([]string, error) {
	rng := a1(sheetName, col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out, nil
}
