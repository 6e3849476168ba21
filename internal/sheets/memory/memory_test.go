package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"chitieu/internal/core"
)

func TestWorkbook_ExportMonth(t *testing.T) {
	w := New("Report", language.English)
	report := core.MonthReport{
		Month:        core.NewMonthKey(2024, 5),
		TotalExpense: decimal.NewFromInt(150000),
	}

	ref, err := w.ExportMonth(context.Background(), report)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref == "" {
		t.Fatalf("empty ref")
	}
	rows, ok := w.Sheet("2024-05 Report")
	if !ok {
		t.Fatalf("sheet not written, have %v", w.Names())
	}
	if rows[0][0] != "Category" {
		t.Errorf("header = %v", rows[0])
	}

	if _, err := w.ExportMonth(context.Background(), core.MonthReport{}); err == nil {
		t.Errorf("expected error for zero month")
	}
}

func TestWorkbook_ImportFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.tsv")
	content := "# exported\nid\tdate\tamount\ttype\tcategoryId\n" +
		"t1\t2024-05-03\t100000\texpense\t2\n" +
		"t2\t2024-05-05\t200000\tincome\tsalary\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewFromFile(path, "Report", language.English)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	recs, err := w.ImportTransactions(context.Background())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(recs) != 2 || recs["t2"][core.FieldTransactionType] != "income" {
		t.Fatalf("records = %v", recs)
	}

	if _, err := NewFromFile(filepath.Join(t.TempDir(), "missing.tsv"), "", language.English); err == nil {
		t.Errorf("expected error for missing file")
	}
}
