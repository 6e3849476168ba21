// Package aggregate turns raw transaction records into the monthly views:
// a by-day calendar, category totals with balance, chart-ready slices and a
// daily series, and budget progress.
//
// The flow is a single pipeline: Normalize, FilterMonth, then one or more
// Grouper strategies writing into a core.MonthReport, then the budget
// comparator.
package aggregate

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// Layouts accepted for the date field, tried in order. The zone-less ones are
// read in the normalizer's location.
var dateLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", false},
}

// Normalizer converts stored records into validated transactions.
type Normalizer struct {
	// Location is used for dates written without an offset. Nil means time.Local.
	Location *time.Location
}

// Normalize returns the valid transactions in records, newest first (ties by
// id), and how many records were dropped. A record is dropped, never
// reported as an error, when its date is missing, not a string or not a
// calendar date, when its amount is missing, null, non numeric or negative,
// or when its transaction type is not expense or income.
func (n Normalizer) Normalize(records map[string]core.RawRecord) ([]core.Transaction, int) {
	out := make([]core.Transaction, 0, len(records))
	dropped := 0
	for id, rec := range records {
		tx, ok := n.normalizeOne(id, rec)
		if !ok {
			dropped++
			continue
		}
		out = append(out, tx)
	}
	SortNewestFirst(out)
	return out, dropped
}

// NormalizeOne validates a single record.
func (n Normalizer) NormalizeOne(id string, rec core.RawRecord) (core.Transaction, bool) {
	return n.normalizeOne(id, rec)
}

func (n Normalizer) normalizeOne(id string, rec core.RawRecord) (core.Transaction, bool) {
	if rec == nil {
		return core.Transaction{}, false
	}
	date, ok := parseDate(rec[core.FieldDate], n.location())
	if !ok {
		return core.Transaction{}, false
	}
	amount, ok := parseAmount(rec[core.FieldAmount])
	if !ok {
		return core.Transaction{}, false
	}
	typ := core.TransactionType(stringField(rec, core.FieldTransactionType))
	if !typ.Valid() {
		return core.Transaction{}, false
	}

	categoryID := stringField(rec, core.FieldCategoryID)
	if categoryID == "" {
		categoryID = stringField(rec, core.FieldCategoryLegacy)
	}

	return core.Transaction{
		ID:           id,
		UserID:       stringField(rec, core.FieldUserID),
		Amount:       amount,
		Date:         date,
		CategoryID:   categoryID,
		CategoryName: stringField(rec, core.FieldCategoryName),
		CategoryIcon: stringField(rec, core.FieldCategoryIcon),
		Type:         typ,
		Note:         stringField(rec, core.FieldNote),
		CreatedAt:    parseTimestamp(rec[core.FieldCreatedAt]),
		UpdatedAt:    parseTimestamp(rec[core.FieldUpdatedAt]),
	}, true
}

func (n Normalizer) location() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}

// SortNewestFirst orders transactions by date descending, then id ascending.
func SortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

func parseDate(v any, loc *time.Location) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
		} else {
			t, err = time.ParseInLocation(l.layout, s, loc)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseAmount(v any) (decimal.Decimal, bool) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		d = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		d = decimal.NewFromFloat(x)
	case float32:
		return parseAmount(float64(x))
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", "."))
		if s == "" {
			return decimal.Zero, false
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	default:
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func parseTimestamp(v any) time.Time {
	switch x := v.(type) {
	case float64:
		return time.UnixMilli(int64(x))
	case int64:
		return time.UnixMilli(x)
	case int:
		return time.UnixMilli(int64(x))
	case json.Number:
		if ms, err := x.Int64(); err == nil {
			return time.UnixMilli(ms)
		}
	case string:
		if ms, err := strconv.ParseInt(x, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t
		}
	}
	return time.Time{}
}

func stringField(rec core.RawRecord, key string) string {
	s, _ := rec[key].(string)
	return strings.TrimSpace(s)
}
