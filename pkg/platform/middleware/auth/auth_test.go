package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/requestcontext"
	"middleoffice/pkg/testutil"
)

type stubAuthenticator struct {
	claims *requestcontext.Claims
	err    error
}

func (s stubAuthenticator) Authenticate(*http.Request) (*requestcontext.Claims, error) {
	return s.claims, s.err
}

type countingRecorder struct {
	reasons []string
}

func (c *countingRecorder) IncrementAuthFailure(reason string) {
	c.reasons = append(c.reasons, reason)
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("accepted claims reach the handler", func(t *testing.T) {
		want := &requestcontext.Claims{Scope: "read", IssuedAt: time.Unix(1700000000, 0)}
		var got *requestcontext.Claims
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = requestcontext.ClaimsFrom(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})

		rr := testutil.DoRequest(RequireAuth(stubAuthenticator{claims: want}, nil, logger)(next),
			httptest.NewRequest(http.MethodGet, "/api/anys", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		require.NotNil(t, got)
		assert.Equal(t, want, got)
	})

	cases := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"no token", dErrors.New(dErrors.CodeUnauthorized, "no token provided"), http.StatusUnauthorized, "no token provided"},
		{"expired", dErrors.New(dErrors.CodeUnauthorized, "expired token"), http.StatusUnauthorized, "expired token"},
		{"invalid", dErrors.Wrap(errors.New("bad sig"), dErrors.CodeUnauthorized, "invalid token"), http.StatusUnauthorized, "invalid token"},
		{"key set down", dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeKeySetUnavailable, "key set unavailable"), http.StatusServiceUnavailable, "key set unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := &countingRecorder{}
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			})

			rr := testutil.DoRequest(RequireAuth(stubAuthenticator{err: tc.err}, recorder, logger)(next),
				httptest.NewRequest(http.MethodGet, "/api/anys", nil))
			testutil.AssertAuthMessage(t, rr, tc.status, tc.reason)
			assert.Equal(t, []string{tc.reason}, recorder.reasons)
		})
	}
}
