/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import "context"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyRequestKind
)

func getStringFromContext(ctx context.Context, key ctxKey) string {
	value := ctx.Value(key)
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

// NewContextWithRequestID creates a new context with request ID.
// The ID is sent in the X-Request-ID header.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// GetRequestIDFromContext extracts request ID from the context.
func GetRequestIDFromContext(ctx context.Context) string {
	return getStringFromContext(ctx, ctxKeyRequestID)
}

// NewContextWithRequestKind creates a new context with request kind (completion, chat, etc.).
// It's used for logging and as a metrics label.
func NewContextWithRequestKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestKind, kind)
}

// GetRequestKindFromContext extracts request kind from the context.
func GetRequestKindFromContext(ctx context.Context) string {
	return getStringFromContext(ctx, ctxKeyRequestKind)
}
