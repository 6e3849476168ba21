package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:         id,
		UserID:     "u1",
		Amount:     decimal.NewFromInt(1200),
		Date:       time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC),
		CategoryID: "2",
		Type:       core.Expense,
	}
}

func TestStore_TransactionsAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	if err := s.CreateTransaction(ctx, sampleTx("a")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateTransaction(ctx, sampleTx("a")); err == nil {
		t.Fatalf("duplicate id accepted")
	}
	bad := sampleTx("b")
	bad.Amount = decimal.NewFromInt(-1)
	if err := s.CreateTransaction(ctx, bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("negative amount: %v", err)
	}

	s.PutRaw("u1", "legacy", core.RawRecord{"amount": nil, "date": "2024-05-01"})

	snap, err := s.Snapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	if snap["a"][core.FieldAmount] != "1200" {
		t.Errorf("amount field = %v", snap["a"][core.FieldAmount])
	}

	upd := sampleTx("missing")
	if err := s.UpdateTransaction(ctx, upd); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u1", "legacy"); err != nil {
		t.Fatalf("delete raw: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "u2", "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("other user read: %v", err)
	}

	s.FailReads = true
	if _, err := s.Snapshot(ctx, "u1"); err == nil {
		t.Fatalf("expected read failure")
	}
}

func TestStore_BudgetRoundTripAndEmptyRemoval(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	month := core.NewMonthKey(2024, 5)

	b, err := s.GetBudget(ctx, "u1", month)
	if err != nil || !b.IsEmpty() || b.Month != month {
		t.Fatalf("missing budget = %+v, %v", b, err)
	}

	b.Categories = map[string]core.BudgetLine{"2": {Amount: decimal.NewFromInt(300)}}
	if err := s.SaveBudget(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := s.GetBudget(ctx, "u1", month)
	got.Categories["2"] = core.BudgetLine{Amount: decimal.NewFromInt(1)}
	again, _ := s.GetBudget(ctx, "u1", month)
	if !again.Categories["2"].Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("stored budget aliased by caller")
	}

	if err := s.SaveBudget(ctx, core.Budget{UserID: "u1", Month: month}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if len(s.budgets) != 0 {
		t.Fatalf("empty budget was kept")
	}
}

func TestStore_ExportQueue(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	month := core.NewMonthKey(2024, 5)

	if err := s.MarkDirty(ctx, "u1", month); err != nil {
		t.Fatalf("mark dirty: %v", err)
	}
	jobs, _ := s.DequeueExports(ctx, 10)
	if len(jobs) != 1 || jobs[0].Status != ledger.ExportProcessing {
		t.Fatalf("dequeue = %+v", jobs)
	}
	if again, _ := s.DequeueExports(ctx, 10); len(again) != 0 {
		t.Fatalf("claimed job dequeued twice")
	}

	_ = s.MarkExportFailed(ctx, "u1", month, "boom", 2)
	st, _ := s.ExportStats(ctx)
	if st.Pending != 1 {
		t.Fatalf("after first failure stats = %+v", st)
	}
	_, _ = s.DequeueExports(ctx, 10)
	_ = s.MarkExportFailed(ctx, "u1", month, "boom", 2)
	st, _ = s.ExportStats(ctx)
	if st.Failed != 1 {
		t.Fatalf("after max attempts stats = %+v", st)
	}

	_ = s.MarkDirty(ctx, "u1", month)
	_, _ = s.DequeueExports(ctx, 10)
	_ = s.MarkExported(ctx, "u1", month)
	_ = s.CleanupExports(ctx, time.Now().Add(time.Minute))
	st, _ = s.ExportStats(ctx)
	if st != (ledger.ExportStats{}) {
		t.Fatalf("cleanup left %+v", st)
	}
}
