package cli

import (
	"testing"
	"time"

	"saloncal/internal/config"
	"saloncal/internal/core"
	"saloncal/internal/memory"
	"saloncal/internal/services"
)

func TestServiceOptions(t *testing.T) {
	cfg := &config.Config{
		GoalCustomers: 180,
		GoalUnitPrice: 8000,
		Timezone:      "UTC",
		IncludeToday:  false,
		DefaultPIN:    "2468",
		UnlockTTL:     10 * time.Minute,
		CacheTTL:      time.Minute,
	}
	opts, err := ServiceOptions(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Goal != (core.Goal{Customers: 180, UnitPrice: 8000}) {
		t.Errorf("Goal = %+v", opts.Goal)
	}
	if opts.Location != time.UTC || opts.IncludeToday || opts.DefaultPIN != "2468" {
		t.Errorf("opts = %+v", opts)
	}

	cfg.Timezone = "Mars/Olympus"
	if _, err := ServiceOptions(cfg); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestStartCacheCleanupRegistersServiceCaches(t *testing.T) {
	svc := services.NewBookingService(memory.New(), nil, services.Options{})
	mgr := StartCacheCleanup(svc, time.Hour)
	defer mgr.Stop()

	if removed := mgr.Sweep(); removed != 0 {
		t.Errorf("Sweep() on empty caches removed %d", removed)
	}
}
