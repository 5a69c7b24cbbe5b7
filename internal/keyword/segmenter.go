package keyword

import (
	"errors"
	"fmt"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/MrWong99/halidom/internal/textnorm"
)

var (
	// ErrDuplicateLiteral is returned by [Segmenter.Add] for a literal that is
	// already registered. The first registration is kept.
	ErrDuplicateLiteral = errors.New("keyword: literal already registered")

	// ErrEmptyLiteral is returned by [Segmenter.Add] for a blank literal.
	ErrEmptyLiteral = errors.New("keyword: literal must not be empty")

	// ErrNoValues is returned by [Segmenter.Add] when no valid values are given.
	ErrNoValues = errors.New("keyword: literal needs at least one valid value")

	// ErrNotBuilt is returned by [Segmenter.Match] when literals were added
	// after the last [Segmenter.Build].
	ErrNotBuilt = errors.New("keyword: segmenter index is not built")
)

// Segmenter finds registered literals in free text and yields their values.
type Segmenter struct {
	literals []string       // pattern id -> folded literal
	values   [][]Value      // pattern id -> bound values
	ids      map[string]int // folded literal -> pattern id

	ac    aho.AhoCorasick
	built bool
}

// NewSegmenter returns an empty [Segmenter].
func NewSegmenter() *Segmenter {
	return &Segmenter{ids: make(map[string]int)}
}

// Add registers literal (folded) bound to values, in order. It invalidates
// the automaton until the next [Segmenter.Build].
func (s *Segmenter) Add(literal string, values ...Value) error {
	folded := textnorm.Fold(literal)
	if folded == "" {
		return ErrEmptyLiteral
	}
	if len(values) == 0 {
		return ErrNoValues
	}
	for _, v := range values {
		if v == nil || !v.Category().IsValid() {
			return fmt.Errorf("%w: %q", ErrNoValues, folded)
		}
	}
	if _, dup := s.ids[folded]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateLiteral, folded)
	}

	s.ids[folded] = len(s.literals)
	s.literals = append(s.literals, folded)
	s.values = append(s.values, append([]Value(nil), values...))
	s.built = false
	return nil
}

// Build compiles the automaton over all registered literals. It must run after
// the last Add and before any Match.
func (s *Segmenter) Build() {
	s.built = true
	if len(s.literals) == 0 {
		return
	}
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            aho.LeftMostLongestMatch,
		DFA:                  true,
	})
	s.ac = builder.Build(s.literals)
}

// Match scans text (folded) for registered literals. Among overlapping
// candidates the leftmost wins, and among those starting together the longest
// wins; scanning resumes after each accepted literal. The bound values are
// flattened and grouped by category name.
func (s *Segmenter) Match(text string) ([]Value, error) {
	if !s.built {
		return nil, ErrNotBuilt
	}
	folded := textnorm.Fold(text)
	if folded == "" || len(s.literals) == 0 {
		return nil, nil
	}

	var out []Value
	for _, m := range s.scan(folded) {
		out = append(out, s.values[m.Pattern()]...)
	}
	SortValues(out)
	return out, nil
}

// MatchLiterals is Match, but returns the accepted literals in text order.
func (s *Segmenter) MatchLiterals(text string) ([]string, error) {
	if !s.built {
		return nil, ErrNotBuilt
	}
	folded := textnorm.Fold(text)
	if folded == "" || len(s.literals) == 0 {
		return nil, nil
	}

	var out []string
	for _, m := range s.scan(folded) {
		out = append(out, s.literals[m.Pattern()])
	}
	return out, nil
}

// scan returns the accepted, non-overlapping matches in text order. The
// automaton resumes one byte past each match start, so a shorter literal that
// ends inside an accepted one is reported again and has to be dropped here.
func (s *Segmenter) scan(folded string) []aho.Match {
	var (
		out     []aho.Match
		lastEnd int
	)
	it := s.ac.Iter(folded)
	for m := it.Next(); m != nil; m = it.Next() {
		if m.Start() < lastEnd {
			continue
		}
		out = append(out, *m)
		lastEnd = m.End()
	}
	return out
}

// Lookup returns the values bound to exactly literal.
func (s *Segmenter) Lookup(literal string) ([]Value, bool) {
	id, ok := s.ids[textnorm.Fold(literal)]
	if !ok {
		return nil, false
	}
	return s.values[id], true
}

// Len returns the number of registered literals.
func (s *Segmenter) Len() int { return len(s.literals) }
