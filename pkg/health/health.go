// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pinspot/api/pkg/logger"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc reports a dependency's health. Closures such as
// redis.Healthcheck and store.DB.Ping fit this signature.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name to its probe.
type Checks map[string]CheckFunc

// Report is the readiness outcome.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks,omitempty"`
}

// Healthy reports whether every check passed.
func (r *Report) Healthy() bool { return r.Status == StatusHealthy }

type Result struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Option func(*runner)

// WithTimeout bounds the whole readiness run. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(r *runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.log = l
		}
	}
}

type runner struct {
	log     *slog.Logger
	timeout time.Duration
}

func newRunner(opts ...Option) *runner {
	r := &runner{log: logger.NewNope(), timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes all checks concurrently. A failing check never cancels the
// others; each outcome is recorded separately.
func Run(ctx context.Context, checks Checks, opts ...Option) *Report {
	return newRunner(opts...).run(ctx, checks)
}

func (r *runner) run(ctx context.Context, checks Checks) *Report {
	rep := &Report{Status: StatusHealthy}
	if len(checks) == 0 {
		return rep
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	rep.Checks = make(map[string]Result, len(checks))

	for name, check := range checks {
		g.Go(func() error {
			res := Result{Status: StatusHealthy}
			if err := check(ctx); err != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					err = errors.Join(ErrCheckTimeout, err)
				}
				res = Result{Status: StatusUnhealthy, Error: err.Error()}
				r.log.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			defer mu.Unlock()
			rep.Checks[name] = res
			if res.Status == StatusUnhealthy {
				rep.Status = StatusUnhealthy
			}
			return nil
		})
	}
	_ = g.Wait()

	return rep
}

// Err returns ErrCheckFailed when the report is unhealthy.
func (r *Report) Err() error {
	if r.Healthy() {
		return nil
	}
	return ErrCheckFailed
}
