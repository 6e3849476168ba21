package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// Publisher sends ledger change notifications. *amqp.Client implements it.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Notifier pushes fresh month reports to live subscribers. *feed.Hub
// implements it.
type Notifier interface {
	Refresh(ctx context.Context, userID string, month core.MonthKey)
	RefreshUser(ctx context.Context, userID string)
}

// Deps are the collaborators shared by the write services. Publisher and
// Notifier are optional.
type Deps struct {
	Store     ledger.Store
	Reports   *ReportService
	Publisher Publisher
	Notifier  Notifier
	// QueueExports marks changed months for the spreadsheet export.
	QueueExports bool
	Location     *time.Location
	Now          func() time.Time
	NewID        func() string
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d Deps) location() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}

// monthsChanged runs the after-write steps for the given months. None of
// them fail the write; problems are logged.
func (d Deps) monthsChanged(ctx context.Context, userID string, kind amqp.ChangeKind, op amqp.ChangeOp, months ...core.MonthKey) {
	seen := make(map[core.MonthKey]bool, len(months))
	for _, m := range months {
		if m.IsZero() || seen[m] {
			continue
		}
		seen[m] = true

		if d.Reports != nil {
			d.Reports.Invalidate(userID, m)
		}
		if d.QueueExports {
			if err := d.Store.MarkDirty(ctx, userID, m); err != nil {
				slog.ErrorContext(ctx, "Failed to queue month export",
					"user_id", userID, "month", m.String(), "error", err)
			}
		}
		d.publish(ctx, amqp.NewLedgerChangedMessage(userID, m, kind, op))
		if d.Notifier != nil {
			d.Notifier.Refresh(ctx, userID, m)
		}
	}
}

// userChanged is monthsChanged for writes that affect every month.
func (d Deps) userChanged(ctx context.Context, userID string, kind amqp.ChangeKind, op amqp.ChangeOp) {
	if d.Reports != nil {
		d.Reports.InvalidateUser(userID)
	}
	d.publish(ctx, amqp.NewLedgerChangedMessage(userID, core.MonthKey{}, kind, op))
	if d.Notifier != nil {
		d.Notifier.RefreshUser(ctx, userID)
	}
}

func (d Deps) publish(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	if d.Publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change message")
		return
	}
	if err := d.Publisher.PublishLedgerChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"user_id", msg.UserID,
			"month", msg.Month,
			"kind", msg.Kind,
			"error", err)
	}
}
