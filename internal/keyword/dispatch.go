package keyword

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDuplicateSignature is returned by Register when another handler
	// already owns the same category multiset.
	ErrDuplicateSignature = errors.New("keyword: signature already registered")

	// ErrNilHandler is returned by Register for a nil handler.
	ErrNilHandler = errors.New("keyword: handler must not be nil")

	// ErrEmptySignature is returned by Register when no valid categories are
	// declared.
	ErrEmptySignature = errors.New("keyword: handler must declare at least one valid category")
)

// Outcome tells the three results of a dispatch apart.
type Outcome int

const (
	// NoHandler means no handler is registered for the values' signature.
	NoHandler Outcome = iota

	// NoAnswer means a handler accepted the values but had nothing to return.
	NoAnswer

	// Answered means the handler produced a value.
	Answered
)

// String returns a short label for logs and metrics.
func (o Outcome) String() string {
	switch o {
	case NoHandler:
		return "no_handler"
	case NoAnswer:
		return "no_answer"
	case Answered:
		return "answered"
	default:
		return "unknown"
	}
}

// HandlerFunc is a synchronous handler. args arrive in the order the handler
// declared its categories. ok=false means "recognised, but no answer".
type HandlerFunc[R any] func(ctx context.Context, args []Value) (result R, ok bool, err error)

// AsyncHandlerFunc is a handler that completes later through a [Future].
type AsyncHandlerFunc[R any] func(ctx context.Context, args []Value) *Future[R]

// Resolution is the result of [Dispatcher.Resolve].
type Resolution[R any] struct {
	Value     R
	Outcome   Outcome
	Signature Signature
}

type route[R any] struct {
	invoke AsyncHandlerFunc[R]
	// perm[i] is the declared parameter position of the i-th value once
	// values are sorted by category name.
	perm []int
}

// Dispatcher maps category signatures to handlers. Registration happens while
// a snapshot is being built; afterwards the Dispatcher is only read and is
// safe for concurrent Resolve calls.
type Dispatcher[R any] struct {
	routes map[Signature]route[R]
}

// NewDispatcher returns an empty [Dispatcher].
func NewDispatcher[R any]() *Dispatcher[R] {
	return &Dispatcher[R]{routes: make(map[Signature]route[R])}
}

// Register adds a synchronous handler for the multiset of expected categories.
func (d *Dispatcher[R]) Register(h HandlerFunc[R], expected ...Category) error {
	if h == nil {
		return ErrNilHandler
	}
	return d.RegisterAsync(func(ctx context.Context, args []Value) *Future[R] {
		v, ok, err := call(ctx, func(ctx context.Context) (R, bool, error) { return h(ctx, args) })
		return Completed(v, ok, err)
	}, expected...)
}

// RegisterAsync adds an asynchronous handler for the multiset of expected
// categories.
func (d *Dispatcher[R]) RegisterAsync(h AsyncHandlerFunc[R], expected ...Category) error {
	if h == nil {
		return ErrNilHandler
	}
	if len(expected) == 0 {
		return ErrEmptySignature
	}
	for _, c := range expected {
		if !c.IsValid() {
			return fmt.Errorf("%w: %v", ErrEmptySignature, c)
		}
	}

	sig := SignatureOf(expected...)
	if _, dup := d.routes[sig]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateSignature, sig)
	}

	order := make([]int, len(expected))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(expected[a].String(), expected[b].String())
	})

	d.routes[sig] = route[R]{invoke: h, perm: order}
	return nil
}

// Resolve finds the handler whose signature equals the categories of values
// exactly, restores its parameter order and awaits it. A missing handler is
// reported as [NoHandler], not as an error. Handler errors are returned as is.
func (d *Dispatcher[R]) Resolve(ctx context.Context, values ...Value) (Resolution[R], error) {
	var res Resolution[R]
	if len(values) == 0 {
		return res, nil
	}

	sorted := make([]Value, len(values))
	cats := make([]Category, len(values))
	for i, v := range values {
		if v == nil {
			return res, nil
		}
		sorted[i] = v
		cats[i] = v.Category()
	}
	SortValues(sorted)

	res.Signature = SignatureOf(cats...)
	rt, ok := d.routes[res.Signature]
	if !ok {
		return res, nil
	}

	args := make([]Value, len(sorted))
	for i, v := range sorted {
		args[rt.perm[i]] = v
	}

	fut := rt.invoke(ctx, args)
	if fut == nil {
		return res, fmt.Errorf("keyword: handler for %s returned no future", res.Signature)
	}
	v, answered, err := fut.Await(ctx)
	if err != nil {
		return res, err
	}
	res.Outcome = NoAnswer
	if answered {
		res.Value = v
		res.Outcome = Answered
	}
	return res, nil
}

// Has reports whether a handler is registered for exactly cats.
func (d *Dispatcher[R]) Has(cats ...Category) bool {
	_, ok := d.routes[SignatureOf(cats...)]
	return ok
}

// Signatures returns every registered signature, sorted.
func (d *Dispatcher[R]) Signatures() []Signature {
	out := make([]Signature, 0, len(d.routes))
	for s := range d.routes {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
