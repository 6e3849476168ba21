package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"chitieu/internal/core"
)

// Column headers of the transactions sheet read by importers.
var TransactionHeaders = []string{"id", "date", "amount", "type", "categoryId", "categoryName", "note"}

// SheetName returns "<YYYY-MM> <base>" for a month sheet.
func SheetName(base string, month core.MonthKey) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return month.String()
	}
	return month.String() + " " + base
}

// MonthRows lays out a report for a sheet: the category breakdown, the
// daily series and a summary block, separated by empty rows. Amounts are
// written as plain numbers; the formatted column uses tag's grouping.
func MonthRows(report core.MonthReport, tag language.Tag) [][]any {
	rows := [][]any{
		{"Category", "Amount", "Percentage", "Color", "Formatted"},
	}
	for _, s := range report.PieSlices {
		rows = append(rows, []any{
			s.Name,
			s.Amount.String(),
			strconv.FormatFloat(s.Percentage, 'f', 1, 64),
			s.Color,
			core.FormatAmount(s.Amount, tag),
		})
	}

	rows = append(rows, []any{}, []any{"Day", "Expense"})
	for _, p := range report.DailySeries {
		rows = append(rows, []any{p.Day, p.Amount.String()})
	}

	rows = append(rows,
		[]any{},
		[]any{"Total expense", report.TotalExpense.String(), "", "", core.FormatAmount(report.TotalExpense, tag)},
		[]any{"Income", report.Income.String(), "", "", core.FormatAmount(report.Income, tag)},
		[]any{"Balance", report.Balance.String(), "", "", core.FormatAmount(report.Balance, tag)},
		[]any{"Average per day", report.AveragePerDay.Round(2).String(), "", "", core.FormatAmount(report.AveragePerDay, tag)},
	)
	if report.Budget.BudgetSet {
		st := report.Budget.Overall.Status
		rows = append(rows, []any{"Budget", st.Budget.String(), fmt.Sprintf("%d%%", st.DisplayPercent), "", core.FormatAmount(st.Budget, tag)})
	}
	return rows
}

// ParseTransactionRows turns sheet rows into raw records keyed by id. The
// first row must name the columns; unknown columns are ignored and the
// known ones may come in any order. Rows without an id are skipped. Values
// are not validated here.
func ParseTransactionRows(values [][]any) (map[string]core.RawRecord, error) {
	out := make(map[string]core.RawRecord)
	if len(values) == 0 {
		return out, nil
	}

	header := toStrings(values[0])
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(h)] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, fmt.Errorf("unexpected transactions header: missing id; got headers=%v", header)
	}

	fields := map[string]string{
		"date":         core.FieldDate,
		"amount":       core.FieldAmount,
		"type":         core.FieldTransactionType,
		"categoryid":   core.FieldCategoryID,
		"categoryname": core.FieldCategoryName,
		"note":         core.FieldNote,
	}

	for _, raw := range values[1:] {
		row := toStrings(raw)
		id := safeGet(row, col["id"])
		if id == "" {
			continue
		}
		rec := core.RawRecord{}
		for name, field := range fields {
			i, ok := col[name]
			if !ok {
				continue
			}
			if v := safeGet(row, i); v != "" {
				rec[field] = v
			}
		}
		out[id] = rec
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
