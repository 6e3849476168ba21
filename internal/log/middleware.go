package log

import (
	"context"
	"log/slog"
	"net/http"
)

// Middleware stores logger in the request context when no earlier
// middleware has done so.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Value(contextKey{}).(*Logger); ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), logger)))
		})
	}
}

// ComponentMiddleware switches the request logger to component, keeping
// the request id.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := FromContext(ctx).WithComponent(component)
			if id := RequestID(ctx); id != "" {
				logger = logger.With(FieldRequestID, id)
			}
			next.ServeHTTP(w, r.WithContext(WithContext(ctx, logger)))
		})
	}
}

type requestIDKey struct{}

// WithRequestID stores the id of the current request in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// StructuredLogger logs the ledger events handlers care about.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) from(ctx context.Context) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return l
	}
	return sl.logger
}

// LogTransactionWritten records a successful transaction write.
func (sl *StructuredLogger) LogTransactionWritten(ctx context.Context, op, userID, month, id, categoryID, amount string) {
	fields := NewFields().
		WithLedger(userID, month).
		WithTransaction(id, categoryID, amount).
		WithOperation(op)
	sl.from(ctx).InfoContext(ctx, "Transaction written", fields.ToSlice()...)
}

// LogLedgerChange records a budget or category write.
func (sl *StructuredLogger) LogLedgerChange(ctx context.Context, kind, op, userID, month string) {
	fields := NewFields().
		WithLedger(userID, month).
		WithOperation(op)
	fields[FieldKind] = kind
	sl.from(ctx).InfoContext(ctx, "Ledger changed", fields.ToSlice()...)
}

// LogExport records the outcome of a month export.
func (sl *StructuredLogger) LogExport(ctx context.Context, userID, month, ref string, err error) {
	fields := NewFields().
		WithLedger(userID, month).
		WithOperation(OpExport).
		WithError(err)
	if err != nil {
		sl.from(ctx).WarnContext(ctx, "Month export failed", fields.ToSlice()...)
		return
	}
	fields[FieldSheetsRef] = ref
	sl.from(ctx).InfoContext(ctx, "Month exported", fields.ToSlice()...)
}

// LogError logs err at error level, or at warn level when clientError is
// true.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, clientError bool, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	level := slog.LevelError
	if clientError {
		level = slog.LevelWarn
	}
	sl.from(ctx).Log(ctx, level, msg, fields.ToSlice()...)
}
