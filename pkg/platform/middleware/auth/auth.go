// Package auth guards routes with bearer-token authentication.
package auth

import (
	"log/slog"
	"net/http"

	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/platform/httputil"
	"middleoffice/pkg/requestcontext"
)

// Authenticator verifies the credentials carried by a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*requestcontext.Claims, error)
}

// FailureRecorder counts rejected requests by reason. Optional.
type FailureRecorder interface {
	IncrementAuthFailure(reason string)
}

// RequireAuth rejects requests the authenticator refuses with
// {"body": {"Message": <reason>}}: 503 when the key set could not be
// obtained, 401 otherwise. Accepted claims are stored in the context.
func RequireAuth(authenticator Authenticator, recorder FailureRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, err := authenticator.Authenticate(r)
			if err != nil {
				reason := dErrors.Message(err)
				status := http.StatusUnauthorized
				if dErrors.HasCode(err, dErrors.CodeKeySetUnavailable) {
					status = http.StatusServiceUnavailable
				}
				logger.WarnContext(ctx, "unauthorized access",
					"reason", reason,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				if recorder != nil {
					recorder.IncrementAuthFailure(reason)
				}
				httputil.WriteMessage(w, status, reason)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithClaims(ctx, claims)))
		})
	}
}
