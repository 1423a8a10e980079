// Package health reports dependency status on /health.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"middleoffice/pkg/platform/httputil"
)

const (
	StatusOK   = "ok"
	StatusDown = "down"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Report is the /health payload.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Checker runs every registered probe concurrently under a shared deadline.
type Checker struct {
	timeout time.Duration
	names   []string
	checks  map[string]CheckFunc
}

// New returns a Checker whose probes share timeout (default 2s).
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{timeout: timeout, checks: make(map[string]CheckFunc)}
}

// Register adds a named probe. A nil probe is ignored so optional
// dependencies can be registered unconditionally.
func (c *Checker) Register(name string, check CheckFunc) {
	if check == nil {
		return
	}
	if _, ok := c.checks[name]; !ok {
		c.names = append(c.names, name)
	}
	c.checks[name] = check
}

// Run probes every dependency and never short-circuits on failure.
func (c *Checker) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := Report{Status: StatusOK, Checks: make(map[string]string, len(c.names))}
	var mu sync.Mutex
	var g errgroup.Group
	for _, name := range c.names {
		check := c.checks[name]
		g.Go(func() error {
			result := StatusOK
			if err := check(ctx); err != nil {
				result = StatusDown + ": " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = result
			if result != StatusOK {
				report.Status = StatusDown
			}
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// Handler serves the report: 200 when every probe passed, 503 otherwise.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status != StatusOK {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, report)
	}
}
