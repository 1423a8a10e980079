package jwttoken

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/sony/gobreaker"
)

// KeySet is a JWKS document. Keys are decoded into crypto public keys as the
// document is read.
type KeySet = jose.JSONWebKeySet

const (
	defaultFetchTimeout = 5 * time.Second
	maxKeySetBytes      = 1 << 20
)

// KeySetFetcher downloads the key set on every call. A circuit breaker stops
// hammering an endpoint that keeps failing.
type KeySetFetcher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewKeySetFetcher builds a fetcher for url. A zero timeout uses the default.
func NewKeySetFetcher(url string, timeout time.Duration, logger *slog.Logger) *KeySetFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeySetFetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "jwks",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("key set circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// Fetch returns the current key set.
func (f *KeySetFetcher) Fetch(ctx context.Context) (*KeySet, error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*KeySet), nil
}

func (f *KeySetFetcher) fetch(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch key set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch key set: unexpected status %d", resp.StatusCode)
	}

	var set KeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}
	if len(set.Keys) == 0 {
		return nil, errors.New("key set is empty")
	}
	return &set, nil
}

// firstKey returns the verification key of the first entry of set. Key ids
// are not matched.
func firstKey(set *KeySet) (crypto.PublicKey, error) {
	if set == nil || len(set.Keys) == 0 {
		return nil, errors.New("key set is empty")
	}
	pub := set.Keys[0].Public()
	if pub.Key == nil || !pub.Valid() {
		return nil, fmt.Errorf("key %q is not an asymmetric public key", set.Keys[0].KeyID)
	}
	return pub.Key, nil
}
