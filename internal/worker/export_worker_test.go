package worker

import (
	"context"
	"testing"
	"time"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
	"chitieu/internal/ledger/memory"
)

func TestExportWorker_HandleLedgerChanged(t *testing.T) {
	store := memory.New(nil)
	triggered := 0
	w := NewExportWorker(store, func() { triggered++ }, time.UTC)
	ctx := context.Background()

	msg := amqp.NewLedgerChangedMessage("u1", core.NewMonthKey(2024, 5), amqp.KindTransaction, amqp.OpCreate)
	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}

	stats, _ := store.ExportStats(ctx)
	if stats.Pending != 1 {
		t.Errorf("pending = %d, want 1", stats.Pending)
	}
	if triggered != 1 {
		t.Errorf("triggered = %d, want 1", triggered)
	}
}

func TestExportWorker_UserWideChangeQueuesEveryMonth(t *testing.T) {
	store := memory.New(nil)
	store.PutRaw("u1", "a", core.RawRecord{"amount": 1.0, "transactionType": "expense", "categoryId": "c", "date": "2024-04-30"})
	store.PutRaw("u1", "b", core.RawRecord{"amount": 2.0, "transactionType": "expense", "categoryId": "c", "date": "2024-05-01"})
	store.PutRaw("u1", "c", core.RawRecord{"amount": 3.0, "transactionType": "income", "categoryId": "c", "date": "2024-05-20"})
	store.PutRaw("u1", "bad", core.RawRecord{"amount": nil, "date": "2023-01-01"})

	w := NewExportWorker(store, nil, time.UTC)
	ctx := context.Background()

	msg := amqp.NewLedgerChangedMessage("u1", core.MonthKey{}, amqp.KindCategory, amqp.OpUpdate)
	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}
	stats, _ := store.ExportStats(ctx)
	if stats.Pending != 2 {
		t.Errorf("pending = %d, want 2", stats.Pending)
	}
}

func TestExportWorker_StoreFailureRequeues(t *testing.T) {
	store := memory.New(nil)
	store.FailReads = true
	w := NewExportWorker(store, nil, time.UTC)

	msg := amqp.NewLedgerChangedMessage("u1", core.MonthKey{}, amqp.KindCategory, amqp.OpDelete)
	if err := w.HandleLedgerChanged(context.Background(), msg); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestExportWorker_StartupExportCheck(t *testing.T) {
	store := memory.New(nil)
	ctx := context.Background()
	triggered := 0
	w := NewExportWorker(store, func() { triggered++ }, time.UTC)

	if err := w.StartupExportCheck(ctx); err != nil || triggered != 0 {
		t.Fatalf("empty queue: err %v, triggered %d", err, triggered)
	}
	_ = store.MarkDirty(ctx, "u1", core.NewMonthKey(2024, 5))
	if err := w.StartupExportCheck(ctx); err != nil || triggered != 1 {
		t.Fatalf("pending queue: err %v, triggered %d", err, triggered)
	}
}
