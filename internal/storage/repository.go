package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
	"chitieu/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction implements ledger.TransactionStore
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, date, category_id, category_name,
			category_icon, transaction_type, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount.String(), tx.Date.Format(time.RFC3339Nano),
		tx.CategoryID, tx.CategoryName, tx.CategoryIcon, string(tx.Type), tx.Note,
		millis(tx.CreatedAt), millis(tx.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"user_id", tx.UserID,
		"amount", tx.Amount.String(),
		"type", tx.Type)
	return nil
}

// UpdateTransaction implements ledger.TransactionStore
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, date = ?, category_id = ?, category_name = ?, category_icon = ?,
			transaction_type = ?, note = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		tx.Amount.String(), tx.Date.Format(time.RFC3339Nano), tx.CategoryID, tx.CategoryName,
		tx.CategoryIcon, string(tx.Type), tx.Note, millis(tx.UpdatedAt), tx.UserID, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectRow(res, "transaction "+tx.ID)
}

// DeleteTransaction implements ledger.TransactionStore
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectRow(res, "transaction "+id)
}

// GetTransaction implements ledger.TransactionStore. Rows that no longer
// satisfy the schema are reported as not found.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, date, category_id, category_name, category_icon,
			transaction_type, note, created_at, updated_at
		FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	rec, gotID, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return recordToTransaction(gotID, rec)
}

// Snapshot implements ledger.TransactionStore
func (r *SQLiteRepository) Snapshot(ctx context.Context, userID string) (map[string]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount, date, category_id, category_name, category_icon,
			transaction_type, note, created_at, updated_at
		FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.RawRecord)
	for rows.Next() {
		rec, id, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.RawRecord, string, error) {
	var (
		id, userID, categoryID, categoryName, categoryIcon, typ, note string
		amount, date                                                  sql.NullString
		createdAt, updatedAt                                          sql.NullInt64
	)
	if err := s.Scan(&id, &userID, &amount, &date, &categoryID, &categoryName, &categoryIcon,
		&typ, &note, &createdAt, &updatedAt); err != nil {
		return nil, "", err
	}

	rec := core.RawRecord{
		core.FieldUserID:          userID,
		core.FieldCategoryID:      categoryID,
		core.FieldCategoryName:    categoryName,
		core.FieldCategoryIcon:    categoryIcon,
		core.FieldTransactionType: typ,
	}
	if amount.Valid {
		rec[core.FieldAmount] = amount.String
	}
	if date.Valid {
		rec[core.FieldDate] = date.String
	}
	if note != "" {
		rec[core.FieldNote] = note
	}
	if createdAt.Valid {
		rec[core.FieldCreatedAt] = createdAt.Int64
	}
	if updatedAt.Valid {
		rec[core.FieldUpdatedAt] = updatedAt.Int64
	}
	return rec, id, nil
}

func recordToTransaction(id string, rec core.RawRecord) (core.Transaction, error) {
	amount, err := decimal.NewFromString(fmt.Sprint(rec[core.FieldAmount]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	date, err := time.Parse(time.RFC3339Nano, fmt.Sprint(rec[core.FieldDate]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	tx := core.Transaction{
		ID:           id,
		UserID:       fmt.Sprint(rec[core.FieldUserID]),
		Amount:       amount,
		Date:         date,
		CategoryID:   fmt.Sprint(rec[core.FieldCategoryID]),
		CategoryName: fmt.Sprint(rec[core.FieldCategoryName]),
		CategoryIcon: fmt.Sprint(rec[core.FieldCategoryIcon]),
		Type:         core.TransactionType(fmt.Sprint(rec[core.FieldTransactionType])),
	}
	if note, ok := rec[core.FieldNote].(string); ok {
		tx.Note = note
	}
	if ms, ok := rec[core.FieldCreatedAt].(int64); ok {
		tx.CreatedAt = time.UnixMilli(ms)
	}
	if ms, ok := rec[core.FieldUpdatedAt].(int64); ok {
		tx.UpdatedAt = time.UnixMilli(ms)
	}
	return tx, nil
}

// GetBudget implements ledger.BudgetStore
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID string, month core.MonthKey) (core.Budget, error) {
	b := core.Budget{UserID: userID, Month: month}

	var (
		total       sql.NullString
		lastUpdated sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT total, last_updated FROM budgets WHERE user_id = ? AND month = ?`,
		userID, month.String()).Scan(&total, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return b, nil
	}
	if err != nil {
		return b, fmt.Errorf("get budget: %w", err)
	}
	if total.Valid {
		d, err := decimal.NewFromString(total.String)
		if err != nil {
			return b, fmt.Errorf("parse budget total %q: %w", total.String, err)
		}
		b.Total = decimal.NewNullDecimal(d)
	}
	if lastUpdated.Valid {
		b.LastUpdated = time.UnixMilli(lastUpdated.Int64)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, amount, name, icon FROM budget_lines WHERE user_id = ? AND month = ?`,
		userID, month.String())
	if err != nil {
		return b, fmt.Errorf("get budget lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, amount, name, icon string
		if err := rows.Scan(&id, &amount, &name, &icon); err != nil {
			return b, fmt.Errorf("scan budget line: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return b, fmt.Errorf("parse budget line %s: %w", id, err)
		}
		if b.Categories == nil {
			b.Categories = make(map[string]core.BudgetLine)
		}
		b.Categories[id] = core.BudgetLine{Amount: d, Name: name, Icon: icon}
	}
	return b, rows.Err()
}

// SaveBudget implements ledger.BudgetStore
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		month := b.Month.String()
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM budget_lines WHERE user_id = ? AND month = ?`, b.UserID, month); err != nil {
			return fmt.Errorf("clear budget lines: %w", err)
		}
		if b.IsEmpty() {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM budgets WHERE user_id = ? AND month = ?`, b.UserID, month); err != nil {
				return fmt.Errorf("delete budget: %w", err)
			}
			return nil
		}

		var total any
		if b.Total.Valid {
			total = b.Total.Decimal.String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (user_id, month, total, last_updated) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, month) DO UPDATE SET total = excluded.total, last_updated = excluded.last_updated`,
			b.UserID, month, total, millis(b.LastUpdated)); err != nil {
			return fmt.Errorf("upsert budget: %w", err)
		}
		for id, line := range b.Categories {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO budget_lines (user_id, month, category_id, amount, name, icon)
				VALUES (?, ?, ?, ?, ?, ?)`,
				b.UserID, month, id, line.Amount.String(), line.Name, line.Icon); err != nil {
				return fmt.Errorf("insert budget line %s: %w", id, err)
			}
		}
		return nil
	})
}

// DefaultCategories implements ledger.CategoryStore
func (r *SQLiteRepository) DefaultCategories(ctx context.Context) ([]core.Category, error) {
	return r.listCategories(ctx, "", core.DefaultTier)
}

// UserCategories implements ledger.CategoryStore
func (r *SQLiteRepository) UserCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if userID == "" {
		return nil, core.ErrEmptyUser
	}
	return r.listCategories(ctx, userID, core.UserTier)
}

func (r *SQLiteRepository) listCategories(ctx context.Context, userID string, tier core.CategoryTier) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, icon, type, color FROM categories
		WHERE user_id = ? ORDER BY length(id), id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &typ, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		c.Tier = tier
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveDefaultCategories implements ledger.CategoryStore
func (r *SQLiteRepository) SaveDefaultCategories(ctx context.Context, cats []core.Category) error {
	return r.saveCategories(ctx, "", cats)
}

// SaveUserCategories implements ledger.CategoryStore
func (r *SQLiteRepository) SaveUserCategories(ctx context.Context, userID string, cats []core.Category) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	return r.saveCategories(ctx, userID, cats)
}

func (r *SQLiteRepository) saveCategories(ctx context.Context, userID string, cats []core.Category) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range cats {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO categories (user_id, id, name, icon, type, color) VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (user_id, id) DO UPDATE SET
					name = excluded.name, icon = excluded.icon, type = excluded.type, color = excluded.color`,
				userID, c.ID, c.Name, c.Icon, string(c.Type), c.Color); err != nil {
				return fmt.Errorf("upsert category %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Categories saved", "user_id", userID, "count", len(cats))
	return nil
}

// DeleteUserCategory implements ledger.CategoryStore
func (r *SQLiteRepository) DeleteUserCategory(ctx context.Context, userID, id string) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectRow(res, "category "+id)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func millis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}
