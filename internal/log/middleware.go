package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the logger stored in ctx, or one backed by slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// Middleware puts logger into every request context, tagged with the request ID.
func Middleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					l = logger.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger writes the fixed-shape records the service emits per delivery.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithComponent(ComponentHTTP)
	fields[FieldClientIP] = clientIP
	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogTallied records a successful increment.
func (sl *StructuredLogger) LogTallied(ctx context.Context, deliveryID, item, month, category string, row, count int) {
	fields := NewFields().
		WithDelivery(deliveryID, "", item).
		WithTally(month, category, row, count).
		WithOperation(OpTally).
		WithComponent(ComponentLedger)
	sl.logger.Logger.InfoContext(ctx, "Booking tallied", fields.ToSlice()...)
}

// LogRejected records a delivery that was audited instead of counted.
func (sl *StructuredLogger) LogRejected(ctx context.Context, deliveryID, item, reason string, err error) {
	fields := NewFields().
		WithDelivery(deliveryID, "", item).
		WithError(err).
		WithOperation(OpTally).
		WithComponent(ComponentLedger)
	fields[FieldReason] = reason
	sl.logger.Logger.WarnContext(ctx, "Booking not tallied", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.logger.Logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
