// Package health provides liveness and readiness probes.
//
// Each registered check runs in its own goroutine. A check flips to unhealthy
// after failureThreshold consecutive failures and back after successThreshold
// consecutive successes. Non-critical checks are reported but never fail a
// probe; they mark it as degraded instead.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Probe statuses.
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// CheckFunc returns nil if the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Option configures a single check.
type Option func(*check)

// WithThresholds overrides the consecutive failure and success counts needed
// to change a check's state. Non-positive values keep the defaults.
func WithThresholds(failure, success int) Option {
	return func(c *check) {
		if failure > 0 {
			c.failureThreshold = failure
		}
		if success > 0 {
			c.successThreshold = success
		}
	}
}

// NonCritical marks a check as informational: failures degrade the probe
// without making it fail.
func NonCritical() Option {
	return func(c *check) { c.critical = false }
}

// check is driven by a single goroutine; the counters are owned by it and
// need no synchronization. healthy and lastErr are read by HTTP handlers.
type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	critical         bool
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, opts []Option) *check {
	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		critical:         true,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	c.healthy.Store(true)
	return c
}

func (c *check) err() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once. Must be called from a single goroutine.
func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.consecutiveFails = 0
	c.consecutiveOK++
	if c.consecutiveOK >= c.successThreshold {
		c.healthy.Store(true)
	}
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health in the not-ready state.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process is
// alive.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn, opts))
}

// AddReadinessCheck registers a check that decides whether the service should
// receive traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn, opts))
}

// Start runs every registered check immediately and then at interval until
// ctx is done or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)
	h.mu.Unlock()

	for _, c := range checks {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop cancels all check goroutines. Safe to call multiple times.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag, e.g. false while draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and no critical
// readiness check is failing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, c := range h.snapshot(false) {
		if c.critical && !c.healthy.Load() {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(liveness bool) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()

	src := h.readiness
	if liveness {
		src = h.liveness
	}
	return append([]*check(nil), src...)
}

// Report is the JSON body of the probe endpoints.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func evaluate(checks []*check) Report {
	r := Report{Status: StatusOK}
	for _, c := range checks {
		if c.healthy.Load() {
			continue
		}
		if r.Checks == nil {
			r.Checks = make(map[string]string)
		}
		msg := "check is unhealthy"
		if err := c.err(); err != nil {
			msg = err.Error()
		}
		r.Checks[c.name] = msg

		switch {
		case c.critical:
			r.Status = StatusUnhealthy
		case r.Status == StatusOK:
			r.Status = StatusDegraded
		}
	}
	return r
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	write(w, evaluate(h.snapshot(true)))
}

// ReadyEndpoint serves /readyz. It fails while the service is not marked
// ready.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	r := evaluate(h.snapshot(false))
	if !h.ready.Load() {
		if r.Checks == nil {
			r.Checks = make(map[string]string)
		}
		r.Checks["_readiness"] = "service is not ready"
		r.Status = StatusUnhealthy
	}
	write(w, r)
}

func write(w http.ResponseWriter, r Report) {
	status := http.StatusOK
	if r.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(r)
}
