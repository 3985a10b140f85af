// Package health serves liveness and readiness probes.
//
// Checks run in the background on a fixed interval. A check turns unhealthy
// after FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive successes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc reports whether a component is healthy.
type CheckFunc func(ctx context.Context) error

// Probe selects which endpoint a check contributes to.
type Probe int

const (
	// Liveness checks fail /livez.
	Liveness Probe = iota
	// Readiness checks fail /readyz.
	Readiness
)

// Check describes a registered check. Zero thresholds default to 3 failures
// and 1 success; a zero timeout defaults to one second.
type Check struct {
	Name             string
	Timeout          time.Duration
	Func             CheckFunc
	FailureThreshold int
	SuccessThreshold int
}

type check struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Only touched by the goroutine running the check.
	fails, oks int
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if err := c.Func(ctx); err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.oks = 0
		c.fails++
		if c.fails >= c.FailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.lastErr.Store(nil)
	c.fails = 0
	c.oks++
	if c.oks >= c.SuccessThreshold {
		c.healthy.Store(true)
	}
}

func (c *check) failure() string {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return "check is unhealthy"
}

// Health tracks probe state for one service. It starts not ready.
type Health struct {
	interval time.Duration
	ready    atomic.Bool

	mu     sync.RWMutex
	checks map[Probe][]*check
}

// New creates a Health running checks every interval.
func New(interval time.Duration) *Health {
	return &Health{
		interval: interval,
		checks:   make(map[Probe][]*check),
	}
}

// Register adds a check to probe. Checks start healthy. Register must be
// called before Run.
func (h *Health) Register(p Probe, c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	rc := &check{Check: c}
	rc.healthy.Store(true)

	h.mu.Lock()
	h.checks[p] = append(h.checks[p], rc)
	h.mu.Unlock()
}

// Run executes every check until ctx is canceled. It always returns nil
// after cancellation.
func (h *Health) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range h.all() {
		g.Go(func() error {
			ticker := time.NewTicker(h.interval)
			defer ticker.Stop()
			for {
				c.run(ctx)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

func (h *Health) all() []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*check
	for _, cs := range h.checks {
		out = append(out, cs...)
	}
	return out
}

func (h *Health) probe(p Probe) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*check(nil), h.checks[p]...)
}

// SetReady marks the service ready or draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) Ready() bool {
	return h.ready.Load() && len(failures(h.probe(Readiness))) == 0
}

// Handler returns the HTTP endpoint for probe p. It responds 200 with
// {"status":"ok"} or 503 with the failing checks.
func (h *Health) Handler(p Probe) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		failed := failures(h.probe(p))
		if p == Readiness && !h.ready.Load() {
			failed["_readiness"] = "service is not ready"
		}
		write(w, failed)
	})
}

func failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		if !c.healthy.Load() {
			out[c.Name] = c.failure()
		}
	}
	return out
}

func write(w http.ResponseWriter, failed map[string]string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status := http.StatusOK
	e.Obj(func(e *jx.Encoder) {
		if len(failed) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		status = http.StatusServiceUnavailable
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failed[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
