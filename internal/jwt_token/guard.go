// Package jwttoken verifies bearer tokens against a remotely published key set.
package jwttoken

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "middleoffice/pkg/domain-errors"
)

// Claims are the token claims exposed to callers. Scope is not interpreted.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

const (
	DefaultAlgorithm = "RS256"

	ReasonNoToken      = "no token provided"
	ReasonExpired      = "expired token"
	ReasonInvalid      = "invalid token"
	ReasonKeySetFailed = "key set unavailable"
)

// Config configures a Guard.
type Config struct {
	JWKSURL   string
	Algorithm string
	Timeout   time.Duration
}

type keySource interface {
	Fetch(ctx context.Context) (*KeySet, error)
}

// Guard authenticates one request at a time. It fetches the key set on every
// call, takes the first key without kid matching and accepts only the
// configured signing algorithm.
type Guard struct {
	keys      keySource
	algorithm string
	logger    *slog.Logger
}

// NewGuard builds a Guard fetching keys from cfg.JWKSURL.
func NewGuard(cfg Config, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = DefaultAlgorithm
	}
	return &Guard{
		keys:      NewKeySetFetcher(cfg.JWKSURL, cfg.Timeout, logger),
		algorithm: alg,
		logger:    logger,
	}
}

// Authenticate runs the full check on r's Authorization header.
func (g *Guard) Authenticate(r *http.Request) (*Claims, error) {
	values := r.Header.Values("Authorization")
	if len(values) == 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, ReasonNoToken)
	}
	return g.ValidateToken(r.Context(), ExtractToken(values[0]))
}

// ExtractToken strips leading "Bearer" markers and surrounding whitespace.
func ExtractToken(header string) string {
	token := header
	for strings.HasPrefix(token, "Bearer") {
		token = strings.TrimPrefix(token, "Bearer")
	}
	return strings.TrimSpace(token)
}

// ValidateToken verifies token against the first key of the remote set.
func (g *Guard) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	set, err := g.keys.Fetch(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "key set fetch failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeKeySetUnavailable, ReasonKeySetFailed)
	}
	key, err := firstKey(set)
	if err != nil {
		g.logger.WarnContext(ctx, "key set holds no usable key", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeKeySetUnavailable, ReasonKeySetFailed)
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{g.algorithm}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, reason(err))
	}
	return claims, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonInvalid
	default:
		return err.Error()
	}
}
