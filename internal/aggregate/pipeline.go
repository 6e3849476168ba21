package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// Pipeline runs normalization, the month filter, the selected groupers and
// the budget comparator, in that order.
type Pipeline struct {
	Location *time.Location
	Options  Options
	// Modes selects the groupers to run. Empty means AllModes.
	Modes []Mode
	Now   func() time.Time
}

// Request is one month worth of input for a user.
type Request struct {
	UserID  string
	Month   core.MonthKey
	Records map[string]core.RawRecord
	// Budget is optional; nil yields an empty, unset overview.
	Budget *core.Budget
}

// Run builds the month report. It only fails for an invalid month or an
// unknown grouping mode; bad records are dropped and counted.
func (p Pipeline) Run(req Request) (core.MonthReport, error) {
	if err := req.Month.Validate(); err != nil {
		return core.MonthReport{}, err
	}
	loc := p.location()
	txs, dropped := Normalizer{Location: loc}.Normalize(req.Records)
	report, err := p.RunTransactions(req.UserID, req.Month, txs, req.Budget)
	if err != nil {
		return core.MonthReport{}, err
	}
	report.Dropped = dropped
	return report, nil
}

// RunTransactions is Run for input that is already normalized.
func (p Pipeline) RunTransactions(userID string, month core.MonthKey, txs []core.Transaction, budget *core.Budget) (core.MonthReport, error) {
	loc := p.location()
	in := Input{
		Month:        month,
		Location:     loc,
		Transactions: FilterMonth(txs, month, loc),
		Options:      p.Options,
	}

	report := core.MonthReport{
		UserID:           userID,
		Month:            month,
		PieSlices:        []core.PieSlice{},
		DailySeries:      []core.DailyPoint{},
		ByCategoryTotals: map[string]decimal.Decimal{},
		ByDay:            []core.DayGroup{},
		Transactions:     len(in.Transactions),
		GeneratedAt:      p.now(),
	}

	modes := p.Modes
	if len(modes) == 0 {
		modes = AllModes
	}
	for _, mode := range modes {
		g, err := GetGrouper(mode)
		if err != nil {
			return core.MonthReport{}, err
		}
		g.Reduce(in, &report)
	}

	b := core.Budget{UserID: userID, Month: month}
	if budget != nil {
		b = *budget
		b.Month = month
	}
	report.Budget = Overview(b, report.TotalExpense, report.ByCategoryTotals)
	return report, nil
}

func (p Pipeline) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
