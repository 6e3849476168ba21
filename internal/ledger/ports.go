// Package ledger declares the storage ports the services depend on. The
// sqlite repository and the in-memory store both implement them.
package ledger

import (
	"context"
	"time"

	"chitieu/internal/core"
)

// ExportStatus is the state of a month in the export queue.
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportDone       ExportStatus = "done"
	ExportFailed     ExportStatus = "failed"
)

// ExportJob is a month waiting to be written to the spreadsheet.
type ExportJob struct {
	UserID    string
	Month     core.MonthKey
	Status    ExportStatus
	Attempts  int
	LastError string
	UpdatedAt time.Time
}

// ExportStats counts queue entries per status.
type ExportStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Failed     int `json:"failed"`
}

// Ports for storage adapters.
type (
	TransactionStore interface {
		// CreateTransaction stores tx. The id must be set by the caller.
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		// UpdateTransaction replaces a stored transaction. It returns
		// core.ErrNotFound when the id does not exist for the user.
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id string) error
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		// Snapshot returns every stored record of a user keyed by id, in the
		// loosely typed shape the normalizer accepts.
		Snapshot(ctx context.Context, userID string) (map[string]core.RawRecord, error)
	}

	BudgetStore interface {
		// GetBudget returns the stored budget, or an empty one for the month
		// when nothing was saved.
		GetBudget(ctx context.Context, userID string, month core.MonthKey) (core.Budget, error)
		// SaveBudget replaces the stored budget. An empty budget is removed.
		SaveBudget(ctx context.Context, b core.Budget) error
	}

	CategoryStore interface {
		DefaultCategories(ctx context.Context) ([]core.Category, error)
		UserCategories(ctx context.Context, userID string) ([]core.Category, error)
		// SaveDefaultCategories upserts the default tier by id.
		SaveDefaultCategories(ctx context.Context, cats []core.Category) error
		// SaveUserCategories upserts categories into a user's tier by id.
		SaveUserCategories(ctx context.Context, userID string, cats []core.Category) error
		DeleteUserCategory(ctx context.Context, userID, id string) error
	}

	ExportQueue interface {
		// MarkDirty queues a month for export, resetting a finished entry.
		MarkDirty(ctx context.Context, userID string, month core.MonthKey) error
		// DequeueExports claims up to limit pending months.
		DequeueExports(ctx context.Context, limit int) ([]ExportJob, error)
		MarkExported(ctx context.Context, userID string, month core.MonthKey) error
		// MarkExportFailed records a failed attempt. The job goes back to
		// pending unless it reached maxAttempts.
		MarkExportFailed(ctx context.Context, userID string, month core.MonthKey, cause string, maxAttempts int) error
		// ResetStaleExports puts jobs left in processing back to pending.
		ResetStaleExports(ctx context.Context) error
		CleanupExports(ctx context.Context, before time.Time) error
		ExportStats(ctx context.Context) (ExportStats, error)
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionStore
		BudgetStore
		CategoryStore
		ExportQueue
		Ping(ctx context.Context) error
		Close() error
	}
)
