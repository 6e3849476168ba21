// Package http serves the JSON API.
//
// This file implements utilities for parsing and validating request data:
// the caller identity, path parameters and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// HeaderUserID carries the id of the authenticated user. Authentication
// itself happens in front of this service.
const HeaderUserID = "X-User-ID"

const (
	maxBodyBytes  = 1 << 20
	maxUserIDSize = 128
)

var errBadRequest = errors.New("bad request")

// UserID returns the sanitized caller id or core.ErrEmptyUser.
func UserID(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(HeaderUserID))
	if id == "" {
		return "", core.ErrEmptyUser
	}
	if len(id) > maxUserIDSize {
		return "", fmt.Errorf("%w: user id too long", errBadRequest)
	}
	return id, nil
}

// MonthParam parses the {month} path value.
func MonthParam(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.PathValue("month"))
}

// DecodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errBadRequest)
	}
	return nil
}

var dateLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", false},
}

// ParseDate accepts RFC 3339 timestamps and local date or date-time strings.
// Strings without an offset are read in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
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
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// TransactionRequest is the body of transaction create and replace calls.
type TransactionRequest struct {
	ID           string               `json:"id,omitempty"`
	Amount       decimal.NullDecimal  `json:"amount"`
	Date         string               `json:"date"`
	CategoryID   string               `json:"categoryId"`
	CategoryName string               `json:"categoryName,omitempty"`
	CategoryIcon string               `json:"categoryIcon,omitempty"`
	Type         core.TransactionType `json:"transactionType"`
	Note         string               `json:"note,omitempty"`
}

// Transaction converts the request into a transaction owned by userID.
func (req TransactionRequest) Transaction(userID string, loc *time.Location) (core.Transaction, error) {
	if !req.Amount.Valid {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	date, err := ParseDate(req.Date, loc)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:           sanitizeInput(req.ID),
		UserID:       userID,
		Amount:       req.Amount.Decimal,
		Date:         date,
		CategoryID:   sanitizeInput(req.CategoryID),
		CategoryName: sanitizeInput(req.CategoryName),
		CategoryIcon: sanitizeInput(req.CategoryIcon),
		Type:         core.TransactionType(sanitizeInput(string(req.Type))),
		Note:         sanitizeInput(req.Note),
	}, nil
}

// AmountRequest is the body of budget total and category line calls. Name
// and Icon only apply to category lines.
type AmountRequest struct {
	Amount decimal.NullDecimal `json:"amount"`
	Name   string              `json:"name,omitempty"`
	Icon   string              `json:"icon,omitempty"`
}

func (req AmountRequest) Value() (decimal.Decimal, error) {
	if !req.Amount.Valid {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return req.Amount.Decimal, nil
}

type CategoryRequest struct {
	ID    string               `json:"id,omitempty"`
	Name  string               `json:"name"`
	Icon  string               `json:"icon"`
	Type  core.TransactionType `json:"type,omitempty"`
	Color string               `json:"color,omitempty"`
}

func (req CategoryRequest) Category() core.Category {
	return core.Category{
		ID:    sanitizeInput(req.ID),
		Name:  sanitizeInput(req.Name),
		Icon:  sanitizeInput(req.Icon),
		Type:  core.TransactionType(sanitizeInput(string(req.Type))),
		Color: sanitizeInput(req.Color),
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
