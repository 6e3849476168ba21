package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		ID:         "t1",
		UserID:     "u1",
		Amount:     decimal.NewFromInt(100000),
		Date:       time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC),
		CategoryID: "food",
		Type:       Expense,
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := validTransaction()
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be allowed, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrInvalidDate},
		{"unknown type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"empty category", func(tx *Transaction) { tx.CategoryID = " " }, ErrEmptyCategory},
		{"empty user", func(tx *Transaction) { tx.UserID = "" }, ErrEmptyUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	long := validTransaction()
	long.Note = strings.Repeat("x", 501)
	if err := long.Validate(); err == nil {
		t.Fatalf("expected error for long note")
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{ID: "c1", Name: "Food", Icon: "fast-food-outline", Type: Expense}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Category{
		{Name: "", Icon: "x", Type: Expense},
		{Name: "a", Icon: "", Type: Expense},
		{Name: "a", Icon: "x", Type: ""},
		{Name: strings.Repeat("a", 61), Icon: "x", Type: Income},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{
		UserID: "u1",
		Month:  NewMonthKey(2024, 5),
		Total:  decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		Categories: map[string]BudgetLine{
			"food": {Amount: decimal.NewFromInt(500)},
		},
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if b.IsEmpty() {
		t.Fatalf("budget with total should not be empty")
	}

	neg := b
	neg.Total = decimal.NewNullDecimal(decimal.NewFromInt(-5))
	if err := neg.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	badLine := b
	badLine.Categories = map[string]BudgetLine{"food": {Amount: decimal.NewFromInt(-1)}}
	if err := badLine.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for line, got %v", err)
	}

	badMonth := b
	badMonth.Month = NewMonthKey(2024, 13)
	if err := badMonth.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}

	if !(Budget{UserID: "u1", Month: NewMonthKey(2024, 5)}).IsEmpty() {
		t.Fatalf("expected empty budget")
	}
}
