package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthKey identifies a calendar month. Its canonical form is "YYYY-MM".
type MonthKey struct {
	Year  int
	Month int
}

// NewMonthKey returns the key for year and month without validating it.
func NewMonthKey(year, month int) MonthKey {
	return MonthKey{Year: year, Month: month}
}

// MonthOf returns the key of the month containing t, read in loc.
func MonthOf(t time.Time, loc *time.Location) MonthKey {
	if loc != nil {
		t = t.In(loc)
	}
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonthKey accepts "YYYY-MM" and the unpadded "YYYY-M" used by budget paths.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	y, m, ok := strings.Cut(s, "-")
	if !ok || len(y) != 4 || len(m) < 1 || len(m) > 2 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	k := MonthKey{Year: year, Month: month}
	if err := k.Validate(); err != nil {
		return MonthKey{}, err
	}
	return k, nil
}

func (k MonthKey) Validate() error {
	if k.Year < 1 || k.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidMonth, k.Year)
	}
	if k.Month < 1 || k.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidMonth, k.Month)
	}
	return nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// IsZero reports whether k is the zero key.
func (k MonthKey) IsZero() bool {
	return k.Year == 0 && k.Month == 0
}

// Days returns the number of days in the month.
func (k MonthKey) Days() int {
	return time.Date(k.Year, time.Month(k.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Bounds returns [start, end) of the month in loc.
func (k MonthKey) Bounds(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Prev returns the previous month.
func (k MonthKey) Prev() MonthKey {
	if k.Month == 1 {
		return MonthKey{Year: k.Year - 1, Month: 12}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// Next returns the following month.
func (k MonthKey) Next() MonthKey {
	if k.Month == 12 {
		return MonthKey{Year: k.Year + 1, Month: 1}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// MarshalText encodes the zero key as an empty string.
func (k MonthKey) MarshalText() ([]byte, error) {
	if k.IsZero() {
		return []byte{}, nil
	}
	return []byte(k.String()), nil
}

func (k *MonthKey) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = MonthKey{}
		return nil
	}
	parsed, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
