package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// MarkDirty implements ledger.ExportQueue. A month already being processed
// keeps its status; the processor reads the month fresh when it runs.
func (r *SQLiteRepository) MarkDirty(ctx context.Context, userID string, month core.MonthKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_queue (user_id, month, status, attempts, last_error, updated_at)
		VALUES (?, ?, 'pending', 0, '', ?)
		ON CONFLICT (user_id, month) DO UPDATE SET
			status = CASE WHEN export_queue.status = 'processing' THEN 'processing' ELSE 'pending' END,
			attempts = CASE WHEN export_queue.status = 'processing' THEN export_queue.attempts ELSE 0 END,
			last_error = '',
			updated_at = excluded.updated_at`,
		userID, month.String(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark month dirty: %w", err)
	}
	return nil
}

// DequeueExports implements ledger.ExportQueue
func (r *SQLiteRepository) DequeueExports(ctx context.Context, limit int) ([]ledger.ExportJob, error) {
	var jobs []ledger.ExportJob
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT user_id, month, attempts, last_error, updated_at FROM export_queue
			WHERE status = 'pending' ORDER BY updated_at LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("select pending exports: %w", err)
		}
		for rows.Next() {
			var (
				job     ledger.ExportJob
				month   string
				updated int64
			)
			if err := rows.Scan(&job.UserID, &month, &job.Attempts, &job.LastError, &updated); err != nil {
				rows.Close()
				return fmt.Errorf("scan export job: %w", err)
			}
			job.Month, err = core.ParseMonthKey(month)
			if err != nil {
				rows.Close()
				return fmt.Errorf("export job month %q: %w", month, err)
			}
			job.Status = ledger.ExportProcessing
			job.UpdatedAt = time.UnixMilli(updated)
			jobs = append(jobs, job)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, job := range jobs {
			if _, err := tx.ExecContext(ctx,
				`UPDATE export_queue SET status = 'processing' WHERE user_id = ? AND month = ?`,
				job.UserID, job.Month.String()); err != nil {
				return fmt.Errorf("claim export job: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkExported implements ledger.ExportQueue
func (r *SQLiteRepository) MarkExported(ctx context.Context, userID string, month core.MonthKey) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_queue SET status = 'done', last_error = '', updated_at = ?
		WHERE user_id = ? AND month = ? AND status = 'processing'`,
		time.Now().UnixMilli(), userID, month.String())
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return expectRow(res, "export "+userID+"/"+month.String())
}

// MarkExportFailed implements ledger.ExportQueue
func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, userID string, month core.MonthKey, cause string, maxAttempts int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_queue SET
			attempts = attempts + 1,
			last_error = ?,
			status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END,
			updated_at = ?
		WHERE user_id = ? AND month = ?`,
		cause, maxAttempts, time.Now().UnixMilli(), userID, month.String())
	if err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return expectRow(res, "export "+userID+"/"+month.String())
}

// ResetStaleExports implements ledger.ExportQueue
func (r *SQLiteRepository) ResetStaleExports(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_queue SET status = 'pending' WHERE status = 'processing'`)
	if err != nil {
		return fmt.Errorf("reset stale exports: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Reset stale export jobs", "count", n)
	}
	return nil
}

// CleanupExports implements ledger.ExportQueue
func (r *SQLiteRepository) CleanupExports(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM export_queue WHERE status = 'done' AND updated_at < ?`, before.UnixMilli())
	if err != nil {
		return fmt.Errorf("cleanup exports: %w", err)
	}
	return nil
}

// ExportStats implements ledger.ExportQueue
func (r *SQLiteRepository) ExportStats(ctx context.Context) (ledger.ExportStats, error) {
	var st ledger.ExportStats
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM export_queue GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("export stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return st, fmt.Errorf("scan export stats: %w", err)
		}
		switch ledger.ExportStatus(status) {
		case ledger.ExportPending:
			st.Pending = n
		case ledger.ExportProcessing:
			st.Processing = n
		case ledger.ExportDone:
			st.Done = n
		case ledger.ExportFailed:
			st.Failed = n
		}
	}
	return st, rows.Err()
}
