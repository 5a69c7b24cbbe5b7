package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var (
	pass = func() error { return nil }
	fail = func() error { return errTest }
)

func TestBreaker_Lifecycle(t *testing.T) {
	clk := newClock()
	b := NewBreaker(BreakerConfig{Name: "db", Threshold: 3, Cooldown: time.Minute, Probes: 2, Now: clk.Now})

	type step struct {
		advance time.Duration
		fn      func() error
		wantErr error
		want    State
	}
	steps := []step{
		{fn: fail, wantErr: errTest, want: StateClosed},
		{fn: fail, wantErr: errTest, want: StateClosed},
		{fn: pass, want: StateClosed}, // success resets the streak
		{fn: fail, wantErr: errTest, want: StateClosed},
		{fn: fail, wantErr: errTest, want: StateClosed},
		{fn: fail, wantErr: errTest, want: StateOpen},
		{fn: pass, wantErr: ErrBreakerOpen, want: StateOpen},
		{advance: 59 * time.Second, fn: pass, wantErr: ErrBreakerOpen, want: StateOpen},
		{advance: time.Second, fn: fail, wantErr: errTest, want: StateOpen}, // failed probe
		{advance: time.Minute, fn: pass, want: StateHalfOpen},
		{fn: pass, want: StateClosed},
	}
	for i, s := range steps {
		clk.Advance(s.advance)
		err := b.Do(s.fn)
		if !errors.Is(err, s.wantErr) || (s.wantErr == nil && err != nil) {
			t.Fatalf("step %d: err = %v, want %v", i, err, s.wantErr)
		}
		if got := b.State(); got != s.want {
			t.Fatalf("step %d: state = %v, want %v", i, got, s.want)
		}
	}
}

func TestBreaker_StateReportsCooledBreakerAsHalfOpen(t *testing.T) {
	clk := newClock()
	b := NewBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, Now: clk.Now})
	_ = b.Do(fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	clk.Advance(time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
}

func TestBreaker_LimitsConcurrentProbes(t *testing.T) {
	clk := newClock()
	b := NewBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, Probes: 1, Now: clk.Now})
	_ = b.Do(fail)
	clk.Advance(time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Do(pass); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("second probe err = %v, want ErrBreakerOpen", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1})
	for _, err := range []error{context.Canceled, fmt.Errorf("load: %w", context.DeadlineExceeded)} {
		if got := b.Do(func() error { return err }); got != err {
			t.Errorf("Do returned %v, want %v", got, err)
		}
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_CustomCounts(t *testing.T) {
	errNotFound := errors.New("not found")
	b := NewBreaker(BreakerConfig{
		Threshold: 1,
		Counts:    func(err error) bool { return !errors.Is(err, errNotFound) },
	})
	_ = b.Do(func() error { return errNotFound })
	if b.State() != StateClosed {
		t.Fatalf("ignored error opened the breaker")
	}
	_ = b.Do(fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	_ = b.Do(fail)
	b.Reset()
	if b.State() != StateClosed {
		t.Fatalf("state = %v after Reset", b.State())
	}
	if err := b.Do(pass); err != nil {
		t.Fatalf("Do after Reset: %v", err)
	}
}

func TestBreaker_Defaults(t *testing.T) {
	cfg := BreakerConfig{}.withDefaults()
	if cfg.Threshold != 5 || cfg.Cooldown != 30*time.Second || cfg.Probes != 1 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Counts(context.Canceled) || !cfg.Counts(errTest) {
		t.Error("default Counts misclassifies errors")
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d) = %q, want %q", int(s), got, want)
		}
	}
}
