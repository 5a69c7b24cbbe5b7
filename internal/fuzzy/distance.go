package fuzzy

import (
	"log/slog"
	"sync"

	"github.com/antzucaro/matchr"
)

// DistanceFunc computes an edit distance between two already folded strings.
type DistanceFunc func(a, b string) int

// Distance returns the Damerau-Levenshtein distance between a and b, counting
// insertions, deletions, substitutions and transpositions of adjacent runes as
// one edit each. It never panics: if the matchr implementation fails for an
// input, the pure implementation in this package answers instead.
var Distance DistanceFunc = withFallback(matchr.DamerauLevenshtein)

var fallbackWarn sync.Once

// withFallback guards primary so that a panic inside it is converted into a
// call to the pure implementation. Callers never observe the failure.
func withFallback(primary DistanceFunc) DistanceFunc {
	return func(a, b string) (d int) {
		if a == b {
			return 0
		}
		if a == "" || b == "" {
			return max(len([]rune(a)), len([]rune(b)))
		}
		defer func() {
			if r := recover(); r != nil {
				fallbackWarn.Do(func() {
					slog.Warn("fuzzy: primary edit distance failed, using fallback", "panic", r)
				})
				d = damerauLevenshtein([]rune(a), []rune(b))
			}
		}()
		return primary(a, b)
	}
}

// damerauLevenshtein is the unrestricted Damerau-Levenshtein distance
// (Lowrance-Wagner). Unlike optimal string alignment it satisfies the triangle
// inequality, which the BK-tree relies on.
func damerauLevenshtein(a, b []rune) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	inf := la + lb
	d := make([][]int, la+2)
	for i := range d {
		d[i] = make([]int, lb+2)
	}
	d[0][0] = inf
	for i := 0; i <= la; i++ {
		d[i+1][0] = inf
		d[i+1][1] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j+1] = inf
		d[1][j+1] = j
	}

	// lastRow[r] is the last row in a where rune r occurred.
	lastRow := make(map[rune]int, la)
	for i := 1; i <= la; i++ {
		lastCol := 0
		for j := 1; j <= lb; j++ {
			i1 := lastRow[b[j-1]]
			j1 := lastCol
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
				lastCol = j
			}
			d[i+1][j+1] = min(
				d[i][j]+cost,
				d[i+1][j]+1,
				d[i][j+1]+1,
				d[i1][j1]+(i-i1-1)+1+(j-j1-1),
			)
		}
		lastRow[a[i-1]] = i
	}
	return d[la+1][lb+1]
}
