package main

import (
	"context"
	"testing"
	"time"

	"golang.org/x/text/language"

	"chitieu/internal/aggregate"
	"chitieu/internal/categories"
	"chitieu/internal/ledger/memory"
	"chitieu/internal/services"
	sheetsmem "chitieu/internal/sheets/memory"
)

func TestImportTransactions(t *testing.T) {
	ctx := context.Background()
	store := memory.New(categories.Defaults())
	txs := services.NewTransactionService(services.Deps{
		Store:    store,
		Reports:  services.NewReportService(store, aggregate.Pipeline{Location: time.UTC}, nil),
		Location: time.UTC,
	})

	src := sheetsmem.New("Report", language.English)
	src.SetSource([][]any{
		{"id", "date", "amount", "type", "categoryId", "note"},
		{"t1", "2024-05-03", "100000", "expense", "2", "phở"},
		{"t2", "2024-05-04", "abc", "expense", "2", ""},
		{"t3", "2024-05-05", "5000000", "income", "salary", ""},
	})

	imported, skipped, err := importTransactions(ctx, src, txs, time.UTC, "u1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported != 2 || skipped != 1 {
		t.Errorf("imported=%d skipped=%d, want 2 and 1", imported, skipped)
	}

	got, err := txs.Get(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Note != "phở" || got.CategoryName == "" {
		t.Errorf("imported tx = %+v", got)
	}

	imported, skipped, err = importTransactions(ctx, src, txs, time.UTC, "u1")
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if imported != 0 || skipped != 3 {
		t.Errorf("rerun imported=%d skipped=%d, want 0 and 3", imported, skipped)
	}
}

func TestImportTransactions_StoreUnavailable(t *testing.T) {
	store := memory.New(nil)
	store.FailReads = true
	txs := services.NewTransactionService(services.Deps{Store: store, Location: time.UTC})

	src := sheetsmem.New("Report", language.English)
	src.SetSource([][]any{
		{"id", "date", "amount", "type", "categoryId"},
		{"t1", "2024-05-03", "100000", "expense", "2"},
	})

	if _, _, err := importTransactions(context.Background(), src, txs, time.UTC, "u1"); err == nil {
		t.Fatal("expected error when the store cannot be read")
	}
}
