// Package health serves the liveness and readiness endpoints.
//
// GET /healthz answers 200 while the process can serve HTTP. GET /readyz runs
// every registered [Checker] concurrently and answers 200 only when all pass;
// the bot is ready once an index is published and some entity source is
// reachable. Both respond with a JSON [Report].
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/halidom/internal/resilience"
)

const (
	statusOK   = "ok"
	statusFail = "fail"
)

// DefaultTimeout bounds a single readiness check.
const DefaultTimeout = 5 * time.Second

// Checker probes one dependency. Check returns nil while it is healthy and
// must give up when ctx is done.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Report is the body of both endpoints.
type Report struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one [Checker].
type CheckResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// Handler serves the health endpoints. The checker set is fixed by [New].
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// Option configures a [Handler].
type Option func(*Handler)

// WithTimeout overrides [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// New returns a handler evaluating checkers on every readiness request.
func New(checkers []Checker, opts ...Option) *Handler {
	h := &Handler{
		checkers: append([]Checker(nil), checkers...),
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz always reports ok.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, Report{Status: statusOK})
}

// Readyz reports 503 when any checker fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := h.Evaluate(r.Context())
	code := http.StatusOK
	if rep.Status != statusOK {
		code = http.StatusServiceUnavailable
	}
	respond(w, code, rep)
}

// Evaluate runs every checker, each under its own timeout, and collects the
// results.
func (h *Handler) Evaluate(ctx context.Context) Report {
	results := make([]CheckResult, len(h.checkers))
	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			results[i] = h.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Status: statusOK, Checks: make(map[string]CheckResult, len(results))}
	for i, c := range h.checkers {
		if results[i].Status != statusOK {
			rep.Status = statusFail
		}
		rep.Checks[c.Name] = results[i]
	}
	return rep
}

func (h *Handler) run(ctx context.Context, c Checker) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx)
	res := CheckResult{Status: statusOK, Latency: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		res.Status = statusFail
		res.Error = err.Error()
	}
	return res
}

func respond(w http.ResponseWriter, code int, rep Report) {
	body, err := json.Marshal(rep)
	if err != nil {
		slog.Error("health: encode report", "err", err)
		http.Error(w, `{"status":"fail"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}

// ErrNotPublished is reported by [IndexChecker] before the first index build.
var ErrNotPublished = errors.New("health: no index published yet")

// IndexChecker passes once version returns a non-empty index version.
func IndexChecker(version func() string) Checker {
	return Checker{Name: "index", Check: func(context.Context) error {
		if version() == "" {
			return ErrNotPublished
		}
		return nil
	}}
}

// SourcesChecker fails when the breaker of every entity source is open. A
// half-open breaker counts as reachable.
func SourcesChecker(states func() []resilience.LinkState) Checker {
	return Checker{Name: "sources", Check: func(context.Context) error {
		st := states()
		if len(st) == 0 {
			return nil
		}
		names := make([]string, 0, len(st))
		for _, s := range st {
			if s.State != resilience.StateOpen {
				return nil
			}
			names = append(names, s.Name)
		}
		return fmt.Errorf("health: all sources unavailable: %s", strings.Join(names, ", "))
	}}
}
