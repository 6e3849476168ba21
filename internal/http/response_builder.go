// Package http serves the JSON API.
//
// This file implements the Builder Pattern for API responses. Every body is
// a {data, error} envelope; errors are mapped to status codes in one place.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

func init() {
	// amounts are JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Error codes carried in ErrorBody.Code.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeRateLimited    = "rate_limited"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal"
)

// Envelope is the body of every API response.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       Envelope
}

// NewResponse creates a builder with a 200 status and null data.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.body.Data = v
	return b
}

func (b *ResponseBuilder) Error(code, message string) *ResponseBuilder {
	b.body.Error = &ErrorBody{Code: code, Message: message}
	return b
}

// StatusCode returns the status the response will be written with.
func (b *ResponseBuilder) StatusCode() int {
	return b.statusCode
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "status", b.statusCode, "error", err)
	}
}

// OK creates a 200 response carrying data.
func OK(data any) *ResponseBuilder {
	return NewResponse().Data(data)
}

// Created creates a 201 response carrying data.
func Created(data any) *ResponseBuilder {
	return NewResponse().Status(http.StatusCreated).Data(data)
}

// ErrorResponse creates an error response with the given status and code.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Error(code, message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeInvalidRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

var validationErrors = []error{
	errBadRequest,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidType,
	core.ErrInvalidMonth,
	core.ErrEmptyCategory,
	core.ErrEmptyName,
	core.ErrEmptyIcon,
	core.ErrTooLong,
}

// ErrorFor maps a service error to a response. Store failures behind a read
// surface only the generic core.ErrUnavailable message.
func ErrorFor(err error) *ResponseBuilder {
	switch {
	case errors.Is(err, core.ErrEmptyUser):
		return ErrorResponse(http.StatusUnauthorized, CodeUnauthorized, "missing "+HeaderUserID+" header")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrImmutableCategory):
		return ErrorResponse(http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, core.ErrUnavailable):
		return ErrorResponse(http.StatusServiceUnavailable, CodeUnavailable, core.ErrUnavailable.Error())
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return BadRequestError(err.Error())
		}
	}
	return InternalServerError(err.Error())
}
