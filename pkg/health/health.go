// Package health exposes liveness and readiness probes in the style of
// Kubernetes probe configuration. Every registered check is polled on a
// background ticker and has to fail several times in a row before it flips
// to unhealthy, so a single slow poll does not cause probe flapping.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc reports on one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type probeKind int

const (
	kindLiveness probeKind = iota
	kindReadiness
)

// Thresholds follow the Kubernetes defaults for failureThreshold and
// successThreshold.
const (
	failAfter    = 3
	recoverAfter = 1
)

// probe is a single registered check plus its poll state. The poller
// goroutine is the only writer of fails/oks; ok and err are shared with the
// HTTP handlers and guarded by mu.
type probe struct {
	name    string
	kind    probeKind
	timeout time.Duration
	fn      CheckFunc

	fails int
	oks   int

	mu  sync.Mutex
	ok  bool
	err error
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.err = err
	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= failAfter {
			p.ok = false
		}
		return
	}

	p.fails = 0
	if p.oks++; p.oks >= recoverAfter {
		p.ok = true
	}
}

func (p *probe) status() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ok, p.err
}

// Health runs registered probes and serves /livez and /readyz handlers.
type Health struct {
	mu     sync.Mutex
	probes []*probe
	ready  bool
	cancel context.CancelFunc
}

func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process is
// alive at all, for example goroutine leaks or GC stalls.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, kindLiveness, timeout, fn)
}

// AddReadinessCheck registers a check that decides whether the service may
// receive traffic, for example database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, kindReadiness, timeout, fn)
}

func (h *Health) add(name string, kind probeKind, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Start optimistic so a service is not reported dead before the first poll.
	h.probes = append(h.probes, &probe{
		name:    name,
		kind:    kind,
		timeout: timeout,
		fn:      fn,
		ok:      true,
	})
}

// Start launches one poller goroutine per registered probe. Register all
// probes before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := h.probes
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			t := time.NewTicker(interval)
			defer t.Stop()

			p.poll(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					p.poll(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels all poller goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set it to true once startup is
// done and back to false at the start of graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// IsReady reports true only when the manual gate is open and every readiness
// probe is passing.
func (h *Health) IsReady() bool {
	ready, failures := h.snapshot(kindReadiness)
	return ready && len(failures) == 0
}

// snapshot collects failure messages for probes of the given kind.
func (h *Health) snapshot(kind probeKind) (ready bool, failures map[string]string) {
	h.mu.Lock()
	probes := h.probes
	ready = h.ready
	h.mu.Unlock()

	failures = make(map[string]string)
	for _, p := range probes {
		if p.kind != kind {
			continue
		}
		if ok, err := p.status(); !ok {
			msg := "probe is failing"
			if err != nil {
				msg = err.Error()
			}
			failures[p.name] = msg
		}
	}
	return ready, failures
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness probes pass, 503 with
// per-probe messages otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	_, failures := h.snapshot(kindLiveness)
	writeProbe(w, failures)
}

// ReadyEndpoint serves /readyz: 200 when the service is marked ready and all
// readiness probes pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready, failures := h.snapshot(kindReadiness)
	if !ready {
		failures["_gate"] = "service is not ready"
	}
	writeProbe(w, failures)
}

func writeProbe(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
