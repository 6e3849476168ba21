package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	// DefaultTier categories are provided by the platform and cannot be
	// changed by end users.
	DefaultTier CategoryTier = "default"
	// UserTier categories are owned by a single user.
	UserTier CategoryTier = "user"
)

type (
	TransactionType string

	CategoryTier string

	Transaction struct {
		ID           string          `json:"id"`
		UserID       string          `json:"userId,omitempty"`
		Amount       decimal.Decimal `json:"amount"`
		Date         time.Time       `json:"date"`
		CategoryID   string          `json:"categoryId"`
		CategoryName string          `json:"categoryName"`
		CategoryIcon string          `json:"categoryIcon"`
		Type         TransactionType `json:"transactionType"`
		Note         string          `json:"note,omitempty"`
		CreatedAt    time.Time       `json:"createdAt,omitempty"`
		UpdatedAt    time.Time       `json:"updatedAt,omitempty"`
	}

	Category struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Icon  string          `json:"icon"`
		Type  TransactionType `json:"type"`
		Color string          `json:"color,omitempty"`
		Tier  CategoryTier    `json:"tier"`
	}

	// BudgetLine is the allocation for one category within a monthly budget.
	BudgetLine struct {
		Amount decimal.Decimal `json:"amount"`
		Name   string          `json:"name,omitempty"`
		Icon   string          `json:"icon,omitempty"`
	}

	Budget struct {
		UserID      string                `json:"userId"`
		Month       MonthKey              `json:"month"`
		Total       decimal.NullDecimal   `json:"totalAmount"`
		Categories  map[string]BudgetLine `json:"categories,omitempty"`
		LastUpdated time.Time             `json:"lastUpdated,omitempty"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyIcon         = errors.New("empty icon")
	ErrEmptyUser         = errors.New("empty user id")
	ErrTooLong           = errors.New("value too long")
	ErrNotFound          = errors.New("not found")
	ErrImmutableCategory = errors.New("default categories cannot be modified")
	// ErrUnavailable is the only error readers of a month see when the
	// backing store fails; the cause is logged, not exposed.
	ErrUnavailable       = errors.New("unable to load transactions")
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if len(t.Note) > 500 {
		return fmt.Errorf("%w: note (max 500 characters)", ErrTooLong)
	}
	return nil
}

// IsExpense is a shorthand used by the reductions.
func (t Transaction) IsExpense() bool { return t.Type == Expense }

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 60 {
		return fmt.Errorf("%w: name (max 60 characters)", ErrTooLong)
	}
	if strings.TrimSpace(c.Icon) == "" {
		return ErrEmptyIcon
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	return nil
}

func (l BudgetLine) Validate() error {
	if l.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Total.Valid && b.Total.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	for id, line := range b.Categories {
		if strings.TrimSpace(id) == "" {
			return ErrEmptyCategory
		}
		if err := line.Validate(); err != nil {
			return fmt.Errorf("category %s: %w", id, err)
		}
	}
	return nil
}

// IsEmpty reports whether neither a total nor any category line is set.
func (b Budget) IsEmpty() bool {
	return !b.Total.Valid && len(b.Categories) == 0
}
