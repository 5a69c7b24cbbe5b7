// Package fuzzy resolves free-text terms to registered targets while
// tolerating typos.
//
// [Index] is a BK-tree keyed by folded strings and searched with the
// Damerau-Levenshtein distance. [Resolver] wraps an Index with a
// length-scaled threshold: longer queries tolerate more edits. A Resolver is
// built once per data snapshot and then only read, so it needs no locking.
package fuzzy

import (
	"github.com/MrWong99/halidom/internal/textnorm"
)

// querySlack is how far past the longest key a query may run before callers
// should reject it without searching.
const querySlack = 5

// Result is a resolved target.
type Result[T any] struct {
	// Value is the target bound to Key.
	Value T

	// Key is the folded key that matched.
	Key string

	// Distance is the edit distance between the query and Key.
	Distance int

	// Confidence is 1 - Distance/Threshold(query). It is 1 only for an exact
	// match.
	Confidence float64
}

// Resolver maps one free-text term to its best-matching target.
type Resolver[T any] struct {
	index *Index[T]
}

// NewResolver returns an empty [Resolver].
func NewResolver[T any](opts ...IndexOption) *Resolver[T] {
	return &Resolver[T]{index: NewIndex[T](opts...)}
}

// Add registers target bound to result. See [Index.Add].
func (r *Resolver[T]) Add(target string, result T, opts ...AddOption) (bool, error) {
	return r.index.Add(target, result, opts...)
}

// Threshold returns the largest edit distance accepted for input:
// 1 + 0.3 per rune.
func Threshold(input string) float64 {
	return 1 + 0.3*float64(textnorm.Len(textnorm.Fold(input)))
}

// Match returns every key within [Threshold] of input, closest first. Empty
// input matches nothing, since no key is empty.
func (r *Resolver[T]) Match(input string) []Match {
	if textnorm.Fold(input) == "" {
		return nil
	}
	return r.index.Find(input, Threshold(input))
}

// Near is like [Resolver.Match] with the bound scaled by factor. It is meant
// for suggestions after Resolve found nothing.
func (r *Resolver[T]) Near(input string, factor float64) []Match {
	if textnorm.Fold(input) == "" {
		return nil
	}
	return r.index.Find(input, Threshold(input)*factor)
}

// Resolve returns the closest target for input. It reports false when no key
// lies within [Threshold].
func (r *Resolver[T]) Resolve(input string) (Result[T], bool) {
	matches := r.Match(input)
	if len(matches) == 0 {
		return Result[T]{}, false
	}
	best := matches[0]
	v, ok := r.index.Get(best.Key)
	if !ok {
		return Result[T]{}, false
	}
	return Result[T]{
		Value:      v,
		Key:        best.Key,
		Distance:   best.Distance,
		Confidence: 1 - float64(best.Distance)/Threshold(input),
	}, true
}

// Get returns the target bound to exactly key.
func (r *Resolver[T]) Get(key string) (T, bool) { return r.index.Get(key) }

// Len returns the number of registered keys.
func (r *Resolver[T]) Len() int { return r.index.Len() }

// Keys returns all registered keys in no particular order.
func (r *Resolver[T]) Keys() []string { return r.index.Keys() }

// QueryLimit is the longest query, in runes, worth searching for: the longest
// key plus a small slack. The resolver does not enforce it.
func (r *Resolver[T]) QueryLimit() int { return r.index.MaxKeyLen() + querySlack }
