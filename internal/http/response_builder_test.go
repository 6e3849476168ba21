package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

func TestResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Data(map[string]any{"amount": decimal.RequireFromString("150000.5")}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("Custom header not set")
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"data":{"amount":150000.5}}` {
		t.Errorf("Body = %s", got)
	}
}

func TestResponseBuilder_NullData(t *testing.T) {
	w := httptest.NewRecorder()
	OK(nil).Write(w)
	if got := strings.TrimSpace(w.Body.String()); got != `{"data":null}` {
		t.Errorf("Body = %s", got)
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("transaction x: %w", core.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"immutable", core.ErrImmutableCategory, http.StatusForbidden, CodeForbidden},
		{"unavailable", core.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
		{"no user", core.ErrEmptyUser, http.StatusUnauthorized, CodeUnauthorized},
		{"amount", core.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidRequest},
		{"wrapped type", fmt.Errorf("%w: %q", core.ErrInvalidType, "x"), http.StatusBadRequest, CodeInvalidRequest},
		{"too long", fmt.Errorf("%w: note", core.ErrTooLong), http.StatusBadRequest, CodeInvalidRequest},
		{"decode", fmt.Errorf("%w: empty body", errBadRequest), http.StatusBadRequest, CodeInvalidRequest},
		{"other", errors.New("disk full"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFor(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var env Envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestErrorFor_UnavailableHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFor(fmt.Errorf("sqlite: database is locked: %w", core.ErrUnavailable)).Write(w)
	if strings.Contains(w.Body.String(), "sqlite") {
		t.Errorf("cause leaked: %s", w.Body.String())
	}
}
