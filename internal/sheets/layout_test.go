package sheets

import (
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"chitieu/internal/core"
)

func TestSheetName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Report", "2024-05 Report"},
		{"  Chi tiêu ", "2024-05 Chi tiêu"},
		{"", "2024-05"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := SheetName(tt.base, core.NewMonthKey(2024, 5)); got != tt.want {
				t.Errorf("SheetName(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}

func TestMonthRows(t *testing.T) {
	report := core.MonthReport{
		PieSlices: []core.PieSlice{
			{Name: "Đồ ăn", Amount: decimal.NewFromInt(1500000), Percentage: 75, Color: "#FF0000"},
			{Name: "Other", Amount: decimal.NewFromInt(500000), Percentage: 25, Color: "#FFFF00", Other: true},
		},
		DailySeries: []core.DailyPoint{
			{Day: 1, Amount: decimal.NewFromInt(2000000)},
			{Day: 2, Amount: decimal.Zero},
		},
		TotalExpense:  decimal.NewFromInt(2000000),
		Income:        decimal.NewFromInt(3000000),
		Balance:       decimal.NewFromInt(1000000),
		AveragePerDay: decimal.NewFromInt(1000000),
	}

	rows := MonthRows(report, language.English)
	// header + 2 slices + blank + header + 2 days + blank + 4 summary rows
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][0] != "Đồ ăn" || rows[1][1] != "1500000" || rows[1][2] != "75.0" || rows[1][4] != "1,500,000" {
		t.Errorf("slice row = %v", rows[1])
	}
	if rows[5][0] != 1 || rows[5][1] != "2000000" {
		t.Errorf("day row = %v", rows[5])
	}
	if rows[10][0] != "Balance" || rows[10][1] != "1000000" {
		t.Errorf("balance row = %v", rows[10])
	}

	report.Budget = core.BudgetOverview{
		BudgetSet: true,
		Overall:   core.BudgetCard{Status: core.BudgetStatus{Budget: decimal.NewFromInt(4000000), DisplayPercent: 50}},
	}
	rows = MonthRows(report, language.English)
	last := rows[len(rows)-1]
	if last[0] != "Budget" || last[2] != "50%" {
		t.Errorf("budget row = %v", last)
	}
}

func TestParseTransactionRows(t *testing.T) {
	values := [][]any{
		{"ID", "Date", "Amount", "Type", "CategoryId", "CategoryName", "Note", "Extra"},
		{"t1", "2024-05-03", "100000", "expense", "2", "Đồ ăn", "phở", "x"},
		{"t2", "2024-05-05", "200000", "income", "salary"},
		{"", "2024-05-06", "1", "expense"},
		{"t3", "", "abc"},
	}
	recs, err := ParseTransactionRows(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	t1 := recs["t1"]
	if t1[core.FieldAmount] != "100000" || t1[core.FieldCategoryName] != "Đồ ăn" || t1[core.FieldNote] != "phở" {
		t.Errorf("t1 = %v", t1)
	}
	if _, ok := recs["t2"][core.FieldCategoryName]; ok {
		t.Errorf("short row produced a category name: %v", recs["t2"])
	}
	if _, ok := recs["t3"][core.FieldDate]; ok {
		t.Errorf("empty cell should be omitted: %v", recs["t3"])
	}

	if _, err := ParseTransactionRows([][]any{{"date", "amount"}}); err == nil {
		t.Errorf("expected header error")
	}
	empty, err := ParseTransactionRows(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty input = %v, %v", empty, err)
	}
}
