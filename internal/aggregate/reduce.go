package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

const (
	DefaultTopN       = 3
	DefaultOtherLabel = "Other"
	uncategorized     = "Uncategorized"
)

// DefaultPalette assigns chart colors by slice position.
var DefaultPalette = []string{
	"#FF0000", "#FFFF00", "#00008B", "#008000", "#800080",
	"#FFA500", "#FF69B4", "#ADD8E6", "#000000", "#808080",
	"#00FF00", "#0000FF", "#00FFFF", "#FF00FF", "#800000",
}

var hundred = decimal.NewFromInt(100)

// CategoryResolver finds display data for a category id.
type CategoryResolver interface {
	Lookup(id string) (core.Category, bool)
}

// Options tune the chart-ready reduction.
type Options struct {
	// TopN is how many categories keep their own slice. Zero means DefaultTopN.
	TopN int
	// OtherLabel names the bucket the remaining categories fold into.
	OtherLabel string
	Palette    []string
	// Categories, when set, names slices whose transactions carry no name.
	Categories CategoryResolver
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.OtherLabel == "" {
		o.OtherLabel = DefaultOtherLabel
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
	return o
}

// GroupByDay groups transactions by calendar day in loc. Days come newest
// first and so do the transactions inside each day.
func GroupByDay(txs []core.Transaction, loc *time.Location) []core.DayGroup {
	if loc == nil {
		loc = time.Local
	}
	index := make(map[string]int)
	var groups []core.DayGroup
	for _, tx := range txs {
		d := tx.Date.In(loc)
		key := d.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, core.DayGroup{
				Date:         key,
				Day:          d.Day(),
				ExpenseTotal: decimal.Zero,
				IncomeTotal:  decimal.Zero,
			})
		}
		g := &groups[i]
		g.Transactions = append(g.Transactions, tx)
		switch tx.Type {
		case core.Expense:
			g.ExpenseTotal = g.ExpenseTotal.Add(tx.Amount)
		case core.Income:
			g.IncomeTotal = g.IncomeTotal.Add(tx.Amount)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })
	for i := range groups {
		SortNewestFirst(groups[i].Transactions)
	}
	return groups
}

// TotalsByCategory sums expenses per category id and computes income and
// balance (income minus expense).
func TotalsByCategory(txs []core.Transaction) core.CategoryTotals {
	totals := core.CategoryTotals{
		ByCategory: make(map[string]decimal.Decimal),
		Expense:    decimal.Zero,
		Income:     decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Type {
		case core.Expense:
			totals.ByCategory[tx.CategoryID] = totals.ByCategory[tx.CategoryID].Add(tx.Amount)
			totals.Expense = totals.Expense.Add(tx.Amount)
		case core.Income:
			totals.Income = totals.Income.Add(tx.Amount)
		}
	}
	totals.Balance = totals.Income.Sub(totals.Expense)
	return totals
}

type bucket struct {
	id     string
	name   string
	icon   string
	amount decimal.Decimal
}

// BuildChart computes the pie slices (top N categories plus an Other bucket
// for the rest) and the daily expense series for month.
//
// Categories are ranked by amount with a stable sort, so ties keep the order
// in which categories first appear in txs. The Other slice is always last,
// with amount 0 when nothing was folded into it. Percentages are 0 when the
// month has no expense.
func BuildChart(txs []core.Transaction, month core.MonthKey, loc *time.Location, opts Options) core.Chart {
	opts = opts.withDefaults()
	if loc == nil {
		loc = time.Local
	}

	days := month.Days()
	daily := make([]decimal.Decimal, days+1)
	index := make(map[string]*bucket)
	var order []*bucket
	total := decimal.Zero

	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		b, ok := index[tx.CategoryID]
		if !ok {
			b = &bucket{id: tx.CategoryID, amount: decimal.Zero}
			b.name, b.icon = displayName(tx, opts.Categories)
			index[tx.CategoryID] = b
			order = append(order, b)
		}
		b.amount = b.amount.Add(tx.Amount)
		total = total.Add(tx.Amount)

		d := tx.Date.In(loc)
		if d.Year() == month.Year && int(d.Month()) == month.Month {
			daily[d.Day()] = daily[d.Day()].Add(tx.Amount)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].amount.GreaterThan(order[j].amount)
	})

	slices := make([]core.PieSlice, 0, opts.TopN+1)
	other := decimal.Zero
	for i, b := range order {
		if i < opts.TopN {
			slices = append(slices, core.PieSlice{
				CategoryID: b.id,
				Name:       b.name,
				Icon:       b.icon,
				Amount:     b.amount,
				Percentage: Percent(b.amount, total),
			})
			continue
		}
		other = other.Add(b.amount)
	}
	slices = append(slices, core.PieSlice{
		Name:       opts.OtherLabel,
		Amount:     other,
		Percentage: Percent(other, total),
		Other:      true,
	})
	for i := range slices {
		slices[i].Color = opts.Palette[i%len(opts.Palette)]
		slices[i].Label = fmt.Sprintf("%s (%.1f%%)", slices[i].Name, slices[i].Percentage)
	}

	series := make([]core.DailyPoint, days)
	for day := 1; day <= days; day++ {
		series[day-1] = core.DailyPoint{Day: day, Amount: daily[day]}
	}

	return core.Chart{
		PieSlices:     slices,
		DailySeries:   series,
		TotalExpense:  total,
		AveragePerDay: total.Div(decimal.NewFromInt(int64(days))),
	}
}

// Percent returns part/total*100, or 0 when total is zero.
func Percent(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}

func displayName(tx core.Transaction, r CategoryResolver) (string, string) {
	name, icon := tx.CategoryName, tx.CategoryIcon
	if (name == "" || icon == "") && r != nil && tx.CategoryID != "" {
		if c, ok := r.Lookup(tx.CategoryID); ok {
			if name == "" {
				name = c.Name
			}
			if icon == "" {
				icon = c.Icon
			}
		}
	}
	if name == "" {
		name = tx.CategoryID
	}
	if name == "" {
		name = uncategorized
	}
	return name, icon
}
