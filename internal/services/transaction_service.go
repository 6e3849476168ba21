package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chitieu/internal/aggregate"
	"chitieu/internal/amqp"
	"chitieu/internal/core"
)

// TransactionService validates and stores transactions, then announces the
// change for the affected months.
type TransactionService struct {
	deps Deps
}

func NewTransactionService(deps Deps) *TransactionService {
	return &TransactionService{deps: deps}
}

// Create stores tx under a new id unless one is given. A missing category
// name or icon is filled in from the user's categories.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if strings.TrimSpace(tx.ID) == "" {
		tx.ID = s.deps.newID()
	}
	now := s.deps.now()
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.fillCategory(ctx, &tx)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.deps.Store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"user_id", tx.UserID,
		"id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount.String())
	s.deps.monthsChanged(ctx, tx.UserID, amqp.KindTransaction, amqp.OpCreate, s.monthOf(tx))
	return tx, nil
}

// Update replaces every mutable field of an existing transaction.
func (s *TransactionService) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	old, err := s.deps.Store.GetTransaction(ctx, tx.UserID, tx.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", tx.ID, err)
	}
	tx.CreatedAt = old.CreatedAt
	tx.UpdatedAt = s.deps.now()
	s.fillCategory(ctx, &tx)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.deps.Store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", "user_id", tx.UserID, "id", tx.ID)
	s.deps.monthsChanged(ctx, tx.UserID, amqp.KindTransaction, amqp.OpUpdate, s.monthOf(old), s.monthOf(tx))
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	old, err := s.deps.Store.GetTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", id, err)
	}
	if err := s.deps.Store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "user_id", userID, "id", id)
	s.deps.monthsChanged(ctx, userID, amqp.KindTransaction, amqp.OpDelete, s.monthOf(old))
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.deps.Store.GetTransaction(ctx, userID, id)
}

// List returns every well-formed transaction of userID, newest first.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrEmptyUser
	}
	records, err := s.deps.Store.Snapshot(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load transactions", "user_id", userID, "error", err)
		return nil, core.ErrUnavailable
	}
	txs, dropped := aggregate.Normalizer{Location: s.deps.location()}.Normalize(records)
	if dropped > 0 {
		slog.DebugContext(ctx, "Dropped malformed transactions", "user_id", userID, "dropped", dropped)
	}
	aggregate.SortNewestFirst(txs)
	return txs, nil
}

func (s *TransactionService) monthOf(tx core.Transaction) core.MonthKey {
	return core.MonthOf(tx.Date, s.deps.location())
}

func (s *TransactionService) fillCategory(ctx context.Context, tx *core.Transaction) {
	if s.deps.Reports == nil || tx.CategoryID == "" || (tx.CategoryName != "" && tx.CategoryIcon != "") {
		return
	}
	dir, err := s.deps.Reports.Directory(ctx, tx.UserID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve category", "category_id", tx.CategoryID, "error", err)
		return
	}
	c, ok := dir.Lookup(tx.CategoryID)
	if !ok {
		return
	}
	if tx.CategoryName == "" {
		tx.CategoryName = c.Name
	}
	if tx.CategoryIcon == "" {
		tx.CategoryIcon = c.Icon
	}
}
