// Package identity carries the verified caller identity through a request.
package identity

import (
	"context"
	"strings"
)

type ctxKey string

const identityKey ctxKey = "lifemap.identity"

// WithIdentity stores the verified identity (usually an account email).
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey, strings.TrimSpace(id))
}

// FromContext extracts the verified identity if present.
func FromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(identityKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}
