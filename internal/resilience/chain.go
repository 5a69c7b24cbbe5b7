package resilience

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned when no link of a [Chain] produced a result.
var ErrExhausted = errors.New("resilience: every source failed")

// LinkState is the breaker state of one named link.
type LinkState struct {
	Name  string
	State State
}

type link[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain is an ordered list of interchangeable values, each guarded by its own
// [Breaker]. Links are appended during setup; after that the chain may be
// used from many goroutines.
type Chain[T any] struct {
	breaker BreakerConfig
	links   []link[T]

	// Attempted, if set, sees every attempt. Skipped links report
	// [ErrBreakerOpen].
	Attempted func(name string, err error)
}

// NewChain returns an empty chain whose breakers use cfg. cfg.Name is
// replaced by each link's name.
func NewChain[T any](cfg BreakerConfig) *Chain[T] {
	return &Chain[T]{breaker: cfg}
}

// Append adds v after every link added before it.
func (c *Chain[T]) Append(name string, v T) {
	cfg := c.breaker
	cfg.Name = name
	c.links = append(c.links, link[T]{name: name, value: v, breaker: NewBreaker(cfg)})
}

// Len returns the number of links.
func (c *Chain[T]) Len() int { return len(c.links) }

// States lists the links in order with their breaker states.
func (c *Chain[T]) States() []LinkState {
	out := make([]LinkState, 0, len(c.links))
	for _, l := range c.links {
		out = append(out, LinkState{Name: l.name, State: l.breaker.State()})
	}
	return out
}

// Try calls fn with each link's value in order and returns the first result
// without an error, with the name of the link that produced it. When every
// link fails the error wraps [ErrExhausted] and the last failure.
func Try[T, R any](c *Chain[T], fn func(T) (R, error)) (R, string, error) {
	var zero R
	if len(c.links) == 0 {
		return zero, "", ErrExhausted
	}
	var last error
	for _, l := range c.links {
		var out R
		err := l.breaker.Do(func() error {
			var err error
			out, err = fn(l.value)
			return err
		})
		if c.Attempted != nil {
			c.Attempted(l.name, err)
		}
		if err == nil {
			return out, l.name, nil
		}
		last = err
	}
	return zero, "", fmt.Errorf("%w: %w", ErrExhausted, last)
}
