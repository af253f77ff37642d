package http

import (
	"context"
	"log/slog"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/logging"
)

type contextKey string

const (
	principalContextKey   contextKey = "principal"
	eventIDContextKey     contextKey = "event_id"
	workOrderIDContextKey contextKey = "work_order_id"
	seriesIDContextKey    contextKey = "series_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithEventID injects the event identifier resolved from the request path.
func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDContextKey, eventID)
}

// EventIDFromContext extracts an event identifier previously associated with the context.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDContextKey).(string)
	return id, ok
}

// ContextWithWorkOrderID injects the work order identifier resolved from the request path.
func ContextWithWorkOrderID(ctx context.Context, workOrderID string) context.Context {
	return context.WithValue(ctx, workOrderIDContextKey, workOrderID)
}

// WorkOrderIDFromContext extracts a work order identifier previously associated with the context.
func WorkOrderIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(workOrderIDContextKey).(string)
	return id, ok
}

// ContextWithSeriesID injects the recurring series identifier resolved from the request path.
func ContextWithSeriesID(ctx context.Context, seriesID string) context.Context {
	return context.WithValue(ctx, seriesIDContextKey, seriesID)
}

// SeriesIDFromContext extracts a series identifier previously associated with the context.
func SeriesIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(seriesIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a request scoped logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
