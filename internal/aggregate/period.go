package aggregate

import (
	"time"

	"chitieu/internal/core"
)

// FilterMonth keeps the transactions whose date, read in loc, falls in month.
// The input order is preserved. A nil loc means time.Local; bucketing is
// always done on a local calendar, never silently in UTC.
func FilterMonth(txs []core.Transaction, month core.MonthKey, loc *time.Location) []core.Transaction {
	if loc == nil {
		loc = time.Local
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		d := tx.Date.In(loc)
		if d.Year() == month.Year && int(d.Month()) == month.Month {
			out = append(out, tx)
		}
	}
	return out
}

// FilterRange keeps the transactions dated in [from, to).
func FilterRange(txs []core.Transaction, from, to time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.Before(from) && tx.Date.Before(to) {
			out = append(out, tx)
		}
	}
	return out
}
