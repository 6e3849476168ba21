// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal values so sums and splits stay exact; floats
// only appear at the presentation edge (percentages and progress ratios).
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseAmount converts a user supplied decimal string to an amount.
//
// It accepts both dot (12.5) and comma (12,5) decimal separators, the way the
// numeric keypad produces them. Zero is allowed; negative values, signs,
// exponents and grouping characters are rejected.
//
// Examples:
//
//	ParseAmount("150000")  -> 150000, nil
//	ParseAmount("12,5")    -> 12.5, nil
//	ParseAmount("-1")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.':
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if digits == 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with the grouping rules of the given
// language and no fractional digits, e.g. "1,500,000" for English.
func FormatAmount(d decimal.Decimal, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%d", d.Round(0).IntPart())
}

// FormatCurrency is FormatAmount followed by the currency symbol.
func FormatCurrency(d decimal.Decimal, tag language.Tag, symbol string) string {
	if symbol == "" {
		return FormatAmount(d, tag)
	}
	return FormatAmount(d, tag) + " " + symbol
}
