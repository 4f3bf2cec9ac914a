//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"saloncal/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_DayRowUpsert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	saJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	saFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if saJSON == "" && saFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := NewClient(ctx, Options{
		SpreadsheetID:   spreadsheetID,
		SheetName:       "Integration",
		CredentialsJSON: saJSON,
		CredentialsFile: saFile,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	d := core.NewDate(2099, 1, 7)
	rec := core.FlatDayRecord(d, 3, "integration")

	ref1, err := client.UpsertDayRow(ctx, rec)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec.Entries[core.UnassignedStaffID] = core.StaffEntry{Count: 5}
	ref2, err := client.UpsertDayRow(ctx, rec)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if ref1 != ref2 {
		t.Fatalf("same day should reuse its row: %s vs %s", ref1, ref2)
	}

	recs, err := client.ReadMonth(ctx, d.Month())
	if err != nil {
		t.Fatalf("read month: %v", err)
	}
	for _, r := range recs {
		if r.Key() == d.Key() {
			if r.Total() != 5 {
				t.Fatalf("total = %d, want 5", r.Total())
			}
			return
		}
	}
	t.Fatalf("row for %s not read back", d.Key())
}
