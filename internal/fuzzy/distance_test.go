package fuzzy

import (
	"testing"
)

func TestDamerauLevenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"euden", "euden", 0},
		{"euden", "eudne", 1},
		{"euden", "edune", 2},
		{"ca", "abc", 2}, // OSA would say 3
		{"kitten", "sitting", 3},
		{"lance", "lancr", 1},
		{"élise", "eilse", 2},
	}
	for _, tc := range tests {
		t.Run(tc.a+"|"+tc.b, func(t *testing.T) {
			t.Parallel()
			if got := damerauLevenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
				t.Errorf("damerauLevenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestDistance_AgreesWithFallback(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"skystrider", "skystirder"},
		{"euden", "eudne"},
		{"halloween elisanne", "haloween elisane"},
		{"a", "b"},
		{"", "x"},
	}
	for _, p := range pairs {
		want := damerauLevenshtein([]rune(p[0]), []rune(p[1]))
		if got := Distance(p[0], p[1]); got != want {
			t.Errorf("Distance(%q, %q) = %d, fallback says %d", p[0], p[1], got, want)
		}
	}
}

func TestWithFallback_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	broken := withFallback(func(a, b string) int { panic("boom") })

	if got := broken("euden", "eudne"); got != 1 {
		t.Errorf("broken(euden, eudne) = %d, want 1", got)
	}
	if got := broken("same", "same"); got != 0 {
		t.Errorf("broken(same, same) = %d, want 0", got)
	}
	if got := broken("", "abc"); got != 3 {
		t.Errorf("broken(\"\", abc) = %d, want 3", got)
	}
}
