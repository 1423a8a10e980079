package testutil

import (
	"net/http"
	"time"

	"middleoffice/pkg/requestcontext"
)

// WithClaims adds verified claims to the request context, as the auth
// middleware does for requests that carry a valid bearer token.
func WithClaims(req *http.Request, scope string) *http.Request {
	ctx := requestcontext.WithClaims(req.Context(), &requestcontext.Claims{
		IssuedAt: time.Now(),
		Scope:    scope,
	})
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
