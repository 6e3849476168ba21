// Package worker turns ledger change messages into export queue entries.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chitieu/internal/aggregate"
	"chitieu/internal/amqp"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// ExportWorker queues the months a change message touches and wakes the
// export processor.
type ExportWorker struct {
	store    ledger.Store
	trigger  func()
	location *time.Location
}

// NewExportWorker creates a worker. trigger may be nil.
func NewExportWorker(store ledger.Store, trigger func(), loc *time.Location) *ExportWorker {
	if loc == nil {
		loc = time.Local
	}
	return &ExportWorker{store: store, trigger: trigger, location: loc}
}

// HandleLedgerChanged is the AMQP handler. A returned error requeues the
// message.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	month, ok, err := msg.MonthKey()
	if err != nil {
		// validated on decode; an error here means the message was built by hand
		return fmt.Errorf("message month: %w", err)
	}

	slog.InfoContext(ctx, "Processing ledger change",
		"user_id", msg.UserID,
		"month", msg.Month,
		"kind", msg.Kind,
		"op", msg.Op)

	if ok {
		if err := w.store.MarkDirty(ctx, msg.UserID, month); err != nil {
			return fmt.Errorf("queue month export: %w", err)
		}
	} else {
		n, err := w.RequeueUser(ctx, msg.UserID)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Queued every month of user", "user_id", msg.UserID, "months", n)
	}

	if w.trigger != nil {
		w.trigger()
	}
	return nil
}

// RequeueUser queues every month in which userID has a transaction, for
// changes such as a category rename that affect all of them.
func (w *ExportWorker) RequeueUser(ctx context.Context, userID string) (int, error) {
	records, err := w.store.Snapshot(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}
	txs, _ := aggregate.Normalizer{Location: w.location}.Normalize(records)

	months := make(map[core.MonthKey]bool)
	for _, tx := range txs {
		months[core.MonthOf(tx.Date, w.location)] = true
	}
	for m := range months {
		if err := w.store.MarkDirty(ctx, userID, m); err != nil {
			return 0, fmt.Errorf("queue month %s: %w", m, err)
		}
	}
	return len(months), nil
}

// StartupExportCheck logs the queue state left by the previous run.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	stats, err := w.store.ExportStats(ctx)
	if err != nil {
		return fmt.Errorf("export stats: %w", err)
	}
	if stats.Pending+stats.Processing == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup", "failed", stats.Failed)
		return nil
	}
	slog.InfoContext(ctx, "Found pending exports on startup",
		"pending", stats.Pending,
		"processing", stats.Processing,
		"failed", stats.Failed)
	if w.trigger != nil {
		w.trigger()
	}
	return nil
}
