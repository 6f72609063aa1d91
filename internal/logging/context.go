package logging

import (
	"context"
	"maps"
)

type contextKey struct{}

// ContextWithFields stores fields on ctx so loggers bound with WithContext
// add them to every entry. Fields already on ctx are kept; new values win.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	existing, _ := ctx.Value(contextKey{}).(map[string]any)
	merged := make(map[string]any, len(existing)+len(fields))
	maps.Copy(merged, existing)
	maps.Copy(merged, fields)
	return context.WithValue(ctx, contextKey{}, merged)
}

// ContextFields returns a copy of the fields stored by ContextWithFields.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(contextKey{}).(map[string]any)
	if len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}

// ContextWithOperation tags ctx with the replace operation and, when known,
// the report it belongs to.
func ContextWithOperation(ctx context.Context, operation, reportID string) context.Context {
	fields := map[string]any{"operation": operation}
	if reportID != "" {
		fields["report_id"] = reportID
	}
	return ContextWithFields(ctx, fields)
}
