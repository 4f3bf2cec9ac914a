package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PendingSyncer mirrors one batch of pending days and reports how many
// were synced. worker.SyncWorker implements it.
type PendingSyncer interface {
	ProcessPending(ctx context.Context) (int, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending days (default: 30s)
	PollInterval time.Duration

	// MaxBackoff caps the delay after consecutive failures (default: 10m)
	MaxBackoff time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		MaxBackoff:   10 * time.Minute,
	}
}

// SyncProcessor polls the store for days saved since their last mirror
// sync. It backs up the AMQP path and replaces it when no broker is
// configured.
type SyncProcessor struct {
	syncer PendingSyncer
	config SyncProcessorConfig

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	failures int
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(syncer PendingSyncer, config SyncProcessorConfig) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.MaxBackoff < config.PollInterval {
		config.MaxBackoff = config.PollInterval
	}
	return &SyncProcessor{
		syncer: syncer,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.failures = 0
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"max_backoff", p.config.MaxBackoff)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	// Signal stop
	close(stopCh)

	// Wait for completion or context cancellation
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	// Process immediately on startup
	timer := time.NewTimer(p.processBatch(ctx))
	defer timer.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(p.processBatch(ctx))
		}
	}
}

// processBatch syncs one batch and returns the delay before the next poll.
func (p *SyncProcessor) processBatch(ctx context.Context) time.Duration {
	n, err := p.syncer.ProcessPending(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures++
		delay := p.backoff()
		slog.WarnContext(ctx, "Pending sync failed",
			"error", err,
			"consecutive_failures", p.failures,
			"retry_in", delay)
		return delay
	}
	p.failures = 0
	if n > 0 {
		slog.DebugContext(ctx, "Pending sync batch done", "synced", n)
	}
	return p.config.PollInterval
}

// backoff doubles the poll interval per consecutive failure up to MaxBackoff.
func (p *SyncProcessor) backoff() time.Duration {
	d := p.config.PollInterval
	for i := 1; i < p.failures && d < p.config.MaxBackoff; i++ {
		d *= 2
	}
	if d > p.config.MaxBackoff {
		d = p.config.MaxBackoff
	}
	return d
}
