package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	applog "chitieu/internal/log"
	"chitieu/internal/sheets"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often pending months are checked (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of months exported per poll (default: 10)
	BatchSize int

	// MaxAttempts is how often a month is tried before it is marked failed
	// (default: 5)
	MaxAttempts int

	// CleanupInterval is how often finished entries are purged (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old a finished entry must be to be purged (default: 7d)
	CleanupAge time.Duration

	// Logger receives export outcomes (default: the slog default, component export)
	Logger *applog.Logger
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MaxAttempts:     5,
		CleanupInterval: time.Hour,
		CleanupAge:      7 * 24 * time.Hour,
	}
}

// MonthReporter builds month reports. *ReportService implements it.
type MonthReporter interface {
	Month(ctx context.Context, userID string, month core.MonthKey) (core.MonthReport, error)
}

// ExportProcessor writes months queued in the store to the spreadsheet.
type ExportProcessor struct {
	queue    ledger.ExportQueue
	reports  MonthReporter
	exporter sheets.MonthExporter
	config   ExportProcessorConfig
	events   *applog.StructuredLogger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	// triggerCh asks the loop for an immediate poll
	triggerCh chan struct{}
}

func NewExportProcessor(queue ledger.ExportQueue, reports MonthReporter, exporter sheets.MonthExporter, config ExportProcessorConfig) *ExportProcessor {
	def := DefaultExportProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.CleanupAge <= 0 {
		config.CleanupAge = def.CleanupAge
	}
	logger := config.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background()).WithComponent(applog.ComponentExport)
	}
	return &ExportProcessor{
		queue:     queue,
		reports:   reports,
		exporter:  exporter,
		config:    config,
		events:    applog.NewStructuredLogger(logger),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	// months claimed by a crashed run go back to pending
	if err := p.queue.ResetStaleExports(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale exports", "error", err)
	}

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Trigger requests a poll without waiting for the next tick.
func (p *ExportProcessor) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

func (p *ExportProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-p.triggerCh:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			if err := p.queue.CleanupExports(ctx, time.Now().Add(-p.config.CleanupAge)); err != nil {
				slog.ErrorContext(ctx, "Failed to clean up finished exports", "error", err)
			}
		}
	}
}

// ProcessBatch exports one batch of pending months and returns how many
// succeeded.
func (p *ExportProcessor) ProcessBatch(ctx context.Context) int {
	jobs, err := p.queue.DequeueExports(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue exports", "error", err)
		return 0
	}
	if len(jobs) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing export batch", "count", len(jobs))

	ok := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return ok
		}
		ref, err := p.export(ctx, job)
		if err != nil {
			p.handleFailure(ctx, job, err)
			continue
		}
		if err := p.queue.MarkExported(ctx, job.UserID, job.Month); err != nil {
			slog.ErrorContext(ctx, "Failed to mark month exported",
				"user_id", job.UserID, "month", job.Month.String(), "error", err)
			continue
		}
		ok++
		p.events.LogExport(ctx, job.UserID, job.Month.String(), ref, nil)
	}
	return ok
}

func (p *ExportProcessor) export(ctx context.Context, job ledger.ExportJob) (string, error) {
	report, err := p.reports.Month(ctx, job.UserID, job.Month)
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	ref, err := p.exporter.ExportMonth(ctx, report)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return ref, nil
}

func (p *ExportProcessor) handleFailure(ctx context.Context, job ledger.ExportJob, cause error) {
	p.events.LogExport(ctx, job.UserID, job.Month.String(), "", cause)

	if err := p.queue.MarkExportFailed(ctx, job.UserID, job.Month, cause.Error(), p.config.MaxAttempts); err != nil {
		slog.ErrorContext(ctx, "Failed to record export failure",
			"user_id", job.UserID, "month", job.Month.String(), "error", err)
		return
	}
	if job.Attempts+1 >= p.config.MaxAttempts {
		slog.ErrorContext(ctx, "Month export failed permanently after max attempts",
			"user_id", job.UserID,
			"month", job.Month.String(),
			"attempts", job.Attempts+1)
	}
}

// Stats returns current queue statistics
func (p *ExportProcessor) Stats(ctx context.Context) (ledger.ExportStats, error) {
	return p.queue.ExportStats(ctx)
}
