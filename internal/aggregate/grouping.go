package aggregate

// This file implements the Strategy Pattern for the reduction modes. Each
// mode writes its own part of the month report.

import (
	"fmt"
	"time"

	"chitieu/internal/core"
)

// Mode names a reduction strategy.
type Mode string

const (
	ByDay      Mode = "day"
	ByCategory Mode = "category"
	ChartReady Mode = "chart"
)

// AllModes lists the built-in modes in the order the pipeline runs them.
var AllModes = []Mode{ByDay, ByCategory, ChartReady}

// Input is what every grouper receives: the transactions of one month,
// already normalized and filtered.
type Input struct {
	Month        core.MonthKey
	Location     *time.Location
	Transactions []core.Transaction
	Options      Options
}

// Grouper is the strategy interface for a reduction mode.
type Grouper interface {
	// Reduce writes the mode's output into report.
	Reduce(in Input, report *core.MonthReport)
}

// DayGrouper groups transactions per calendar day.
type DayGrouper struct{}

func (DayGrouper) Reduce(in Input, report *core.MonthReport) {
	report.ByDay = GroupByDay(in.Transactions, in.Location)
}

// CategoryGrouper sums expenses per category, plus income and balance.
type CategoryGrouper struct{}

func (CategoryGrouper) Reduce(in Input, report *core.MonthReport) {
	totals := TotalsByCategory(in.Transactions)
	report.ByCategoryTotals = totals.ByCategory
	report.TotalExpense = totals.Expense
	report.Income = totals.Income
	report.Balance = totals.Balance
}

// ChartGrouper builds pie slices and the daily series.
type ChartGrouper struct{}

func (ChartGrouper) Reduce(in Input, report *core.MonthReport) {
	chart := BuildChart(in.Transactions, in.Month, in.Location, in.Options)
	report.PieSlices = chart.PieSlices
	report.DailySeries = chart.DailySeries
	report.TotalExpense = chart.TotalExpense
	report.AveragePerDay = chart.AveragePerDay
}

// groupers maps modes to their strategies.
var groupers = map[Mode]Grouper{
	ByDay:      DayGrouper{},
	ByCategory: CategoryGrouper{},
	ChartReady: ChartGrouper{},
}

// GetGrouper returns the strategy registered for mode.
func GetGrouper(mode Mode) (Grouper, error) {
	g, ok := groupers[mode]
	if !ok {
		return nil, fmt.Errorf("unknown grouping mode: %s", mode)
	}
	return g, nil
}

// RegisterGrouper adds or replaces the strategy for mode. It is meant for
// program initialization and is not safe to call while pipelines run.
func RegisterGrouper(mode Mode, g Grouper) {
	groupers[mode] = g
}
