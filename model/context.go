package model

import "context"

// RequestContext carries the identity and tracing information for the lifetime
// of an authenticated request. It is immutable after construction and safe for
// concurrent reads.
type RequestContext struct {
	SessionID     string
	Subject       string
	Email         string
	Token         string
	CorrelationID string
}

// Authenticated reports whether the context carries a backend bearer token.
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.Token != ""
}

type contextKey struct{}

// WithRequestContext attaches a RequestContext to the given context.
func WithRequestContext(ctx context.Context, rctx *RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rctx)
}

// RequestContextFrom extracts the RequestContext from the context, or returns
// nil if not present.
func RequestContextFrom(ctx context.Context) *RequestContext {
	rctx, _ := ctx.Value(contextKey{}).(*RequestContext)
	return rctx
}

// MustRequestContext extracts the RequestContext from the context, panicking
// if it is not present. Safe to call in handlers that run behind the session
// middleware.
func MustRequestContext(ctx context.Context) *RequestContext {
	rctx := RequestContextFrom(ctx)
	if rctx == nil {
		panic("model: RequestContext not found in context")
	}
	return rctx
}
