package fuzzy

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"slices"

	"github.com/MrWong99/halidom/internal/textnorm"
)

var (
	// ErrEmptyKey is returned by Add when the key folds to the empty string.
	ErrEmptyKey = errors.New("fuzzy: key must not be empty")

	// ErrNilValue is returned by Add when the value is nil.
	ErrNilValue = errors.New("fuzzy: value must not be nil")
)

// Match is one key found by a bounded-distance search.
type Match struct {
	Distance int
	Key      string
}

type bkNode struct {
	key      string
	children []bkEdge // insertion order
}

type bkEdge struct {
	dist int
	node *bkNode
}

// Index is a BK-tree over folded string keys, each bound to a value. It
// answers "every key within distance d of q" without scanning every key.
//
// Index is not safe for concurrent mutation. It is built privately and then
// only read, which is safe from any number of goroutines.
type Index[T any] struct {
	root      *bkNode
	values    map[string]T
	maxKeyLen int
	distance  DistanceFunc
}

// IndexOption configures an [Index].
type IndexOption func(*indexConfig)

type indexConfig struct {
	distance DistanceFunc
}

// WithDistance overrides the metric. It must satisfy the triangle inequality
// or searches will miss keys. Default: [Distance].
func WithDistance(fn DistanceFunc) IndexOption {
	return func(c *indexConfig) {
		if fn != nil {
			c.distance = fn
		}
	}
}

// NewIndex returns an empty [Index].
func NewIndex[T any](opts ...IndexOption) *Index[T] {
	cfg := indexConfig{distance: Distance}
	for _, o := range opts {
		o(&cfg)
	}
	return &Index[T]{
		values:   make(map[string]T),
		distance: cfg.distance,
	}
}

// AddOption tunes a single Add call.
type AddOption func(*addConfig)

type addConfig struct {
	quiet bool
}

// Quiet demotes the duplicate-key warning to debug level. Use it for derived
// keys (aliases) that are expected to collide with a canonical name.
func Quiet() AddOption {
	return func(c *addConfig) { c.quiet = true }
}

// Add inserts key (folded) bound to value. It reports false without error when
// the key is already present; the first value stays bound. A nil value yields
// [ErrNilValue] and an empty key [ErrEmptyKey].
func (x *Index[T]) Add(key string, value T, opts ...AddOption) (bool, error) {
	if isNil(value) {
		return false, ErrNilValue
	}
	folded := textnorm.Fold(key)
	if folded == "" {
		return false, ErrEmptyKey
	}

	var cfg addConfig
	for _, o := range opts {
		o(&cfg)
	}

	if _, dup := x.values[folded]; dup {
		level := slog.LevelWarn
		if cfg.quiet {
			level = slog.LevelDebug
		}
		slog.Log(context.Background(), level, "fuzzy: duplicate key ignored", "key", folded)
		return false, nil
	}

	x.values[folded] = value
	x.maxKeyLen = max(x.maxKeyLen, textnorm.Len(folded))
	x.insert(folded)
	return true, nil
}

func (x *Index[T]) insert(key string) {
	if x.root == nil {
		x.root = &bkNode{key: key}
		return
	}
	cur := x.root
	for {
		d := x.distance(key, cur.key)
		next := childAt(cur, d)
		if next == nil {
			cur.children = append(cur.children, bkEdge{dist: d, node: &bkNode{key: key}})
			return
		}
		cur = next
	}
}

func childAt(n *bkNode, d int) *bkNode {
	for _, e := range n.children {
		if e.dist == d {
			return e.node
		}
	}
	return nil
}

// Find returns every key within maxDistance of query (folded), ordered by
// ascending distance. Keys at equal distance keep tree traversal order, so
// only the first element's position is meaningful.
func (x *Index[T]) Find(query string, maxDistance float64) []Match {
	if x.root == nil || maxDistance < 0 {
		return nil
	}
	q := textnorm.Fold(query)

	var out []Match
	var walk func(n *bkNode)
	walk = func(n *bkNode) {
		d := x.distance(q, n.key)
		if float64(d) <= maxDistance {
			out = append(out, Match{Distance: d, Key: n.key})
		}
		lo, hi := float64(d)-maxDistance, float64(d)+maxDistance
		for _, e := range n.children {
			if float64(e.dist) >= lo && float64(e.dist) <= hi {
				walk(e.node)
			}
		}
	}
	walk(x.root)

	slices.SortStableFunc(out, func(a, b Match) int { return a.Distance - b.Distance })
	return out
}

// Get returns the value bound to key (folded).
func (x *Index[T]) Get(key string) (T, bool) {
	v, ok := x.values[textnorm.Fold(key)]
	return v, ok
}

// Len returns the number of keys.
func (x *Index[T]) Len() int { return len(x.values) }

// MaxKeyLen returns the rune length of the longest key.
func (x *Index[T]) MaxKeyLen() int { return x.maxKeyLen }

// Keys returns all keys in no particular order.
func (x *Index[T]) Keys() []string {
	keys := make([]string, 0, len(x.values))
	for k := range x.values {
		keys = append(keys, k)
	}
	return keys
}

// isNil reports whether v is a nil interface, pointer, map, slice, func or chan.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
