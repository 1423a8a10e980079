package jwttoken

import (
	"net/http"

	"middleoffice/pkg/requestcontext"
)

// ToContextClaims converts verified token claims to the request-scoped form.
func ToContextClaims(claims *Claims) *requestcontext.Claims {
	out := &requestcontext.Claims{Scope: claims.Scope}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out
}

// GuardAdapter lets the auth middleware use a Guard.
type GuardAdapter struct {
	guard *Guard
}

func NewGuardAdapter(guard *Guard) *GuardAdapter {
	return &GuardAdapter{guard: guard}
}

func (a *GuardAdapter) Authenticate(r *http.Request) (*requestcontext.Claims, error) {
	claims, err := a.guard.Authenticate(r)
	if err != nil {
		return nil, err
	}
	return ToContextClaims(claims), nil
}
