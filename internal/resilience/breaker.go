// Package resilience keeps entity loading alive while data sources fail.
//
// A [Breaker] stops calling a source that keeps failing and lets a few probes
// through once a cooldown has passed. A [Chain] tries an ordered list of
// values, each behind its own breaker, and [SourceFallback] uses one to load
// snapshots from the first healthy [entity.Source].
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] without calling the function
// while the breaker rejects calls.
var ErrBreakerOpen = errors.New("resilience: breaker open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed passes every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown has passed.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// BreakerConfig tunes a [Breaker]. Zero fields take the defaults noted.
type BreakerConfig struct {
	// Name labels log lines and health output.
	Name string
	// Threshold is the number of consecutive failures that opens the
	// breaker. Default 5.
	Threshold int
	// Cooldown is how long an open breaker waits before probing. Default 30s.
	Cooldown time.Duration
	// Probes is both the number of concurrent half-open calls allowed and
	// the number of successes needed to close again. Default 1.
	Probes int
	// Counts reports whether err counts as a failure. By default every error
	// does except cancellation and deadline expiry.
	Counts func(err error) bool
	// Now replaces time.Now in tests.
	Now func() time.Time
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Threshold <= 0 {
		c.Threshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.Probes <= 0 {
		c.Probes = 1
	}
	if c.Counts == nil {
		c.Counts = countsAsFailure
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Breaker is a three-state circuit breaker. It is safe for concurrent use.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int       // consecutive, while closed
	openedAt time.Time // when the breaker last opened
	inflight int       // probes currently running
	passed   int       // successful probes since half-open
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg.withDefaults()}
}

// Name returns the configured label.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns the current state. An open breaker whose cooldown has passed
// reports [StateHalfOpen] even before the next call moves it there.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooled() {
		return StateHalfOpen
	}
	return b.state
}

// Do calls fn unless the breaker rejects it, and returns fn's error.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	err = fn()
	b.settle(probe, err)
	return err
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moveTo(StateClosed)
}

func (b *Breaker) cooled() bool {
	return b.cfg.Now().Sub(b.openedAt) >= b.cfg.Cooldown
}

// admit decides whether a call may run and whether it is a probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if !b.cooled() {
			return false, ErrBreakerOpen
		}
		b.moveTo(StateHalfOpen)
	}
	if b.state == StateClosed {
		return false, nil
	}
	if b.inflight >= b.cfg.Probes {
		return false, ErrBreakerOpen
	}
	b.inflight++
	return true, nil
}

// settle records the outcome of an admitted call.
func (b *Breaker) settle(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && b.cfg.Counts(err)
	if probe {
		b.inflight--
		// A reset or another probe may have moved the state already.
		if b.state != StateHalfOpen {
			return
		}
		switch {
		case failed:
			b.moveTo(StateOpen)
		case err == nil:
			b.passed++
			if b.passed >= b.cfg.Probes {
				b.moveTo(StateClosed)
			}
		}
		return
	}

	if b.state != StateClosed {
		return
	}
	switch {
	case failed:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.moveTo(StateOpen)
		}
	case err == nil:
		b.failures = 0
	}
}

// moveTo switches state and resets the counters of the new state. Callers
// hold b.mu.
func (b *Breaker) moveTo(s State) {
	from := b.state
	b.state = s
	b.passed = 0
	switch s {
	case StateOpen:
		b.openedAt = b.cfg.Now()
	case StateClosed:
		b.failures = 0
	}
	if from == s {
		return
	}
	level := slog.LevelInfo
	if s == StateOpen {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "breaker state changed",
		"name", b.cfg.Name, "from", from, "to", s)
}
