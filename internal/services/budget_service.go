package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
)

type BudgetService struct {
	deps Deps
}

func NewBudgetService(deps Deps) *BudgetService {
	return &BudgetService{deps: deps}
}

func (s *BudgetService) Get(ctx context.Context, userID string, month core.MonthKey) (core.Budget, error) {
	if strings.TrimSpace(userID) == "" {
		return core.Budget{}, core.ErrEmptyUser
	}
	if err := month.Validate(); err != nil {
		return core.Budget{}, err
	}
	return s.deps.Store.GetBudget(ctx, userID, month)
}

// SetTotal sets the overall amount of the month.
func (s *BudgetService) SetTotal(ctx context.Context, userID string, month core.MonthKey, amount decimal.Decimal) (core.Budget, error) {
	if amount.IsNegative() {
		return core.Budget{}, core.ErrInvalidAmount
	}
	return s.modify(ctx, userID, month, amqp.OpUpdate, func(b *core.Budget) error {
		b.Total = decimal.NewNullDecimal(amount)
		return nil
	})
}

// SetCategory sets the allocation of one category. Empty name and icon are
// taken from the category directory.
func (s *BudgetService) SetCategory(ctx context.Context, userID string, month core.MonthKey, categoryID string, amount decimal.Decimal, name, icon string) (core.Budget, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return core.Budget{}, core.ErrEmptyCategory
	}
	if amount.IsNegative() {
		return core.Budget{}, core.ErrInvalidAmount
	}
	if (name == "" || icon == "") && s.deps.Reports != nil {
		if dir, err := s.deps.Reports.Directory(ctx, userID); err == nil {
			if c, ok := dir.Lookup(categoryID); ok {
				if name == "" {
					name = c.Name
				}
				if icon == "" {
					icon = c.Icon
				}
			}
		}
	}
	return s.modify(ctx, userID, month, amqp.OpUpdate, func(b *core.Budget) error {
		if b.Categories == nil {
			b.Categories = make(map[string]core.BudgetLine)
		}
		b.Categories[categoryID] = core.BudgetLine{Amount: amount, Name: name, Icon: icon}
		return nil
	})
}

func (s *BudgetService) DeleteTotal(ctx context.Context, userID string, month core.MonthKey) (core.Budget, error) {
	return s.modify(ctx, userID, month, amqp.OpDelete, func(b *core.Budget) error {
		if !b.Total.Valid {
			return fmt.Errorf("budget total: %w", core.ErrNotFound)
		}
		b.Total = decimal.NullDecimal{}
		return nil
	})
}

func (s *BudgetService) DeleteCategory(ctx context.Context, userID string, month core.MonthKey, categoryID string) (core.Budget, error) {
	return s.modify(ctx, userID, month, amqp.OpDelete, func(b *core.Budget) error {
		if _, ok := b.Categories[categoryID]; !ok {
			return fmt.Errorf("budget category %s: %w", categoryID, core.ErrNotFound)
		}
		delete(b.Categories, categoryID)
		return nil
	})
}

// Status compares the budget of the month with its expenses.
func (s *BudgetService) Status(ctx context.Context, userID string, month core.MonthKey) (core.BudgetOverview, error) {
	report, err := s.deps.Reports.Month(ctx, userID, month)
	if err != nil {
		return core.BudgetOverview{}, err
	}
	return report.Budget, nil
}

func (s *BudgetService) modify(ctx context.Context, userID string, month core.MonthKey, op amqp.ChangeOp, apply func(b *core.Budget) error) (core.Budget, error) {
	b, err := s.Get(ctx, userID, month)
	if err != nil {
		return core.Budget{}, err
	}
	b.UserID, b.Month = userID, month
	if err := apply(&b); err != nil {
		return core.Budget{}, err
	}
	b.LastUpdated = s.deps.now()

	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.deps.Store.SaveBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget updated",
		"user_id", userID,
		"month", month.String(),
		"op", op,
		"categories", len(b.Categories),
		"total_set", b.Total.Valid)
	s.deps.monthsChanged(ctx, userID, amqp.KindBudget, op, month)
	return b, nil
}
