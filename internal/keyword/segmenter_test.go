package keyword_test

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/halidom/internal/keyword"
)

func buildSegmenter(t *testing.T, entries map[string][]keyword.Value) *keyword.Segmenter {
	t.Helper()
	s := keyword.NewSegmenter()
	for lit, vals := range entries {
		if err := s.Add(lit, vals...); err != nil {
			t.Fatalf("Add(%q): %v", lit, err)
		}
	}
	s.Build()
	return s
}

func TestSegmenter_LongestMatchWins(t *testing.T) {
	t.Parallel()

	s := buildSegmenter(t, map[string][]keyword.Value{
		"t1":  {tier(1)},
		"t12": {tier(12)},
	})

	lits, err := s.MatchLiterals("t12")
	if err != nil {
		t.Fatalf("MatchLiterals: %v", err)
	}
	if !slices.Equal(lits, []string{"t12"}) {
		t.Errorf("MatchLiterals(t12) = %v, want [t12]", lits)
	}
	vals, _ := s.Match("t12")
	if len(vals) != 1 || vals[0] != tier(12) {
		t.Errorf("Match(t12) = %v, want [12]", vals)
	}
}

func TestSegmenter_NoOverlap(t *testing.T) {
	t.Parallel()

	s := buildSegmenter(t, map[string][]keyword.Value{
		"light":     {element("light")},
		"lightning": {element("lightning")},
	})
	lits, err := s.MatchLiterals("lightning")
	if err != nil {
		t.Fatalf("MatchLiterals: %v", err)
	}
	if !slices.Equal(lits, []string{"lightning"}) {
		t.Errorf("MatchLiterals(lightning) = %v, want [lightning]", lits)
	}
}

func TestSegmenter_SuffixInsideAcceptedLiteral(t *testing.T) {
	t.Parallel()

	s := buildSegmenter(t, map[string][]keyword.Value{
		"3t2":             {rarity(3), tier(2)},
		"t2":              {tier(2)},
		"lance":           {weaponType("lance")},
		"euden":           {adventurer("euden")},
		"chain coability": {element("chain coability")},
		"coability":       {element("coability")},
	})

	tests := []struct {
		text string
		want []string
	}{
		{"3t2 lance", []string{"3t2", "lance"}},
		{"t2 lance", []string{"t2", "lance"}},
		{"euden chain coability", []string{"euden", "chain coability"}},
		{"coability of euden", []string{"coability", "euden"}},
	}
	for _, tt := range tests {
		lits, err := s.MatchLiterals(tt.text)
		if err != nil {
			t.Fatalf("MatchLiterals(%q): %v", tt.text, err)
		}
		if !slices.Equal(lits, tt.want) {
			t.Errorf("MatchLiterals(%q) = %v, want %v", tt.text, lits, tt.want)
		}
	}

	vals, _ := s.Match("3t2 lance")
	want := []keyword.Value{rarity(3), tier(2), weaponType("lance")}
	if !slices.Equal(vals, want) {
		t.Errorf("Match(3t2 lance) = %v, want %v", vals, want)
	}
}

// leftmostLongest is the quadratic reference scan.
func leftmostLongest(lits []string, text string) []string {
	var out []string
	for pos := 0; pos < len(text); {
		best := ""
		for _, l := range lits {
			if len(l) > len(best) && strings.HasPrefix(text[pos:], l) {
				best = l
			}
		}
		if best == "" {
			pos++
			continue
		}
		out = append(out, best)
		pos += len(best)
	}
	return out
}

func TestSegmenter_MatchesReferenceScan(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	word := func(maxLen int) string {
		b := make([]byte, 1+rng.IntN(maxLen))
		for i := range b {
			b[i] = "abc"[rng.IntN(3)]
		}
		return string(b)
	}

	for i := range 3000 {
		s := keyword.NewSegmenter()
		var lits []string
		for range 1 + rng.IntN(5) {
			l := word(3)
			if slices.Contains(lits, l) {
				continue
			}
			if err := s.Add(l, tier(len(lits))); err != nil {
				t.Fatalf("Add(%q): %v", l, err)
			}
			lits = append(lits, l)
		}
		s.Build()

		text := word(10)
		got, err := s.MatchLiterals(text)
		if err != nil {
			t.Fatalf("MatchLiterals: %v", err)
		}
		if want := leftmostLongest(lits, text); !slices.Equal(got, want) {
			t.Fatalf("case %d: literals %v, text %q: got %v, want %v", i, lits, text, got, want)
		}
	}
}

func TestSegmenter_GroupsByCategory(t *testing.T) {
	t.Parallel()

	s := buildSegmenter(t, map[string][]keyword.Value{
		"lance":      {weaponType("lance")},
		"5*":         {rarity(5)},
		"flame":      {element("flame")},
		"skystrider": {adventurer("skystrider")},
		"a1":         {abilitySlot(1)},
	})

	vals, err := s.Match("Flame LANCE 5* please")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	want := []keyword.Value{element("flame"), rarity(5), weaponType("lance")}
	if !slices.Equal(vals, want) {
		t.Errorf("Match = %v, want %v", vals, want)
	}

	vals, _ = s.Match("a1 of skystrider")
	want = []keyword.Value{abilitySlot(1), adventurer("skystrider")}
	if !slices.Equal(vals, want) {
		t.Errorf("Match = %v, want %v", vals, want)
	}
}

func TestSegmenter_FlattensValues(t *testing.T) {
	t.Parallel()

	s := buildSegmenter(t, map[string][]keyword.Value{
		"flamelance": {weaponType("lance"), element("flame")},
	})
	vals, _ := s.Match("any flamelance")
	want := []keyword.Value{element("flame"), weaponType("lance")}
	if !slices.Equal(vals, want) {
		t.Errorf("Match = %v, want %v", vals, want)
	}
}

func TestSegmenter_NoMatch(t *testing.T) {
	t.Parallel()

	s := buildSegmenter(t, map[string][]keyword.Value{"lance": {weaponType("lance")}})
	vals, err := s.Match("nothing here")
	if err != nil || len(vals) != 0 {
		t.Errorf("Match = %v, %v; want empty", vals, err)
	}
}

func TestSegmenter_Errors(t *testing.T) {
	t.Parallel()

	s := keyword.NewSegmenter()
	if err := s.Add("lance", weaponType("lance")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("LANCE", weaponType("other")); !errors.Is(err, keyword.ErrDuplicateLiteral) {
		t.Errorf("duplicate Add err = %v", err)
	}
	if err := s.Add("  "); !errors.Is(err, keyword.ErrEmptyLiteral) {
		t.Errorf("blank Add err = %v", err)
	}
	if err := s.Add("bow"); !errors.Is(err, keyword.ErrNoValues) {
		t.Errorf("no values Add err = %v", err)
	}
	if _, err := s.Match("lance"); !errors.Is(err, keyword.ErrNotBuilt) {
		t.Errorf("Match before Build err = %v", err)
	}

	s.Build()
	if vals, _ := s.Lookup("Lance"); len(vals) != 1 || vals[0] != weaponType("lance") {
		t.Errorf("Lookup kept %v, want first registration", vals)
	}

	if err := s.Add("bow", weaponType("bow")); err != nil {
		t.Fatalf("Add after Build: %v", err)
	}
	if _, err := s.Match("bow"); !errors.Is(err, keyword.ErrNotBuilt) {
		t.Errorf("Match on stale index err = %v", err)
	}
}

func TestSegmenter_Empty(t *testing.T) {
	t.Parallel()

	s := keyword.NewSegmenter()
	s.Build()
	vals, err := s.Match("anything")
	if err != nil || vals != nil {
		t.Errorf("Match on empty segmenter = %v, %v", vals, err)
	}
}
