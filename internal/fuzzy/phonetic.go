package fuzzy

import (
	"cmp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/halidom/internal/textnorm"
)

// DefaultSoundsLikeScore is the Jaro-Winkler score a phonetic candidate
// needs to be reported.
const DefaultSoundsLikeScore = 0.70

// SoundsLike finds names that are pronounced like a query even when they
// are spelled too differently for the edit-distance bound, e.g. "filia" for
// "Philia". A name is a candidate when the Double Metaphone codes of any of
// its words overlap the codes of any query word. Candidates are then ranked
// by Jaro-Winkler similarity.
//
// A SoundsLike is immutable and safe for concurrent use.
type SoundsLike struct {
	names    []soundName
	minScore float64
}

type soundName struct {
	name   string
	tokens []string
	joined string
	codes  map[string]struct{}
}

// SoundsLikeOption configures a [SoundsLike].
type SoundsLikeOption func(*SoundsLike)

// WithMinScore sets the minimum Jaro-Winkler score. Default:
// [DefaultSoundsLikeScore].
func WithMinScore(score float64) SoundsLikeOption {
	return func(s *SoundsLike) { s.minScore = score }
}

// SoundMatch is one result of [SoundsLike.Match].
type SoundMatch struct {
	Name  string
	Score float64
}

// NewSoundsLike precomputes phonetic codes for names. Names are folded;
// empty and duplicate names are dropped.
func NewSoundsLike(names []string, opts ...SoundsLikeOption) *SoundsLike {
	s := &SoundsLike{minScore: DefaultSoundsLikeScore}
	for _, o := range opts {
		o(s)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		folded := textnorm.Fold(n)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		tokens := strings.Fields(folded)
		s.names = append(s.names, soundName{
			name:   folded,
			tokens: tokens,
			joined: strings.Join(tokens, ""),
			codes:  codesFor(tokens),
		})
	}
	return s
}

// Len returns the number of distinct names.
func (s *SoundsLike) Len() int { return len(s.names) }

// Match returns up to n folded names that sound like query, best first.
// Equal scores are ordered by name.
func (s *SoundsLike) Match(query string, n int) []SoundMatch {
	folded := textnorm.Fold(query)
	if n <= 0 || folded == "" {
		return nil
	}
	tokens := strings.Fields(folded)
	codes := codesFor(tokens)
	joined := strings.Join(tokens, "")

	var out []SoundMatch
	for _, c := range s.names {
		if !overlaps(codes, c.codes) {
			continue
		}
		score := similarity(tokens, c.tokens, folded, c.name, joined, c.joined)
		if score >= s.minScore {
			out = append(out, SoundMatch{Name: c.name, Score: score})
		}
	}
	slices.SortFunc(out, func(a, b SoundMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// codesFor returns the union of the Double Metaphone codes of tokens.
func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, alt := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if alt != "" {
			codes[alt] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score over the full strings, the
// strings without spaces and every pair of words.
func similarity(qTokens, nTokens []string, qFull, nFull, qJoined, nJoined string) float64 {
	score := matchr.JaroWinkler(qFull, nFull, false)
	if len(qTokens) > 1 || len(nTokens) > 1 {
		score = max(score, matchr.JaroWinkler(qJoined, nJoined, false))
	}
	for _, qt := range qTokens {
		for _, nt := range nTokens {
			score = max(score, matchr.JaroWinkler(qt, nt, false))
		}
	}
	return score
}
