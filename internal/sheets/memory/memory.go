package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"chitieu/internal/core"
	"chitieu/internal/sheets"
)

// Workbook keeps sheets in memory. It stands in for the Google adapter in
// development and tests.
type Workbook struct {
	mu     sync.Mutex
	base   string
	lang   language.Tag
	sheets map[string][][]any
	// source holds the transactions sheet served by ImportTransactions.
	source [][]any
}

var (
	_ sheets.MonthExporter       = (*Workbook)(nil)
	_ sheets.TransactionImporter = (*Workbook)(nil)
)

func New(base string, lang language.Tag) *Workbook {
	return &Workbook{base: base, lang: lang, sheets: make(map[string][][]any)}
}

// NewFromFile loads the transactions sheet from a tab separated file whose
// first line holds the column names. Lines starting with # are skipped.
func NewFromFile(path, base string, lang language.Tag) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transactions file: %w", err)
	}
	defer f.Close()

	var rows [][]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var row []any
		for _, cell := range strings.Split(line, "\t") {
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transactions file: %w", err)
	}

	w := New(base, lang)
	w.source = rows
	return w, nil
}

// SetSource replaces the transactions sheet.
func (w *Workbook) SetSource(rows [][]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.source = rows
}

func (w *Workbook) ExportMonth(_ context.Context, report core.MonthReport) (string, error) {
	if err := report.Month.Validate(); err != nil {
		return "", err
	}
	rows := sheets.MonthRows(report, w.lang)
	name := sheets.SheetName(w.base, report.Month)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[name] = rows
	return fmt.Sprintf("mem:%s!A1:E%d", name, len(rows)), nil
}

func (w *Workbook) ImportTransactions(_ context.Context) (map[string]core.RawRecord, error) {
	w.mu.Lock()
	rows := w.source
	w.mu.Unlock()
	return sheets.ParseTransactionRows(rows)
}

// Sheet returns a copy of a written sheet.
func (w *Workbook) Sheet(name string) ([][]any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.sheets[name]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}

// Names lists the written sheets.
func (w *Workbook) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.sheets))
	for name := range w.sheets {
		out = append(out, name)
	}
	return out
}
