package expr

// fuzzySimilarity returns the best normalized edit similarity between the
// pattern and any contiguous window of the text, in [0, 1]. Distance is
// optimal-string-alignment: insertions, deletions, substitutions, and
// adjacent transpositions all cost 1. The alignment is semi-global (the
// pattern may start and end anywhere in the text), so the whole scan is one
// O(len(text) x len(pattern)) dynamic program rather than a per-window pass.
// Inputs are expected to be upper-cased by the caller.
func fuzzySimilarity(text, pattern string) float64 {
	t := []rune(text)
	p := []rune(pattern)

	if len(p) == 0 {
		return 1.0
	}
	if len(t) == 0 {
		return 0.0
	}

	// rows[i][j] = min edit distance between pattern[:i] and some substring of
	// text ending at j. Row 0 is all zeros: the match may start anywhere.
	prev2 := make([]int, len(t)+1)
	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)

	for i := 1; i <= len(p); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if p[i-1] == t[j-1] {
				cost = 0
			}
			d := minInt(
				prev[j]+1,        // delete from pattern
				curr[j-1]+1,      // insert from text
				prev[j-1]+cost,   // substitute or match
			)
			if i > 1 && j > 1 && p[i-1] == t[j-2] && p[i-2] == t[j-1] {
				if trans := prev2[j-2] + 1; trans < d {
					d = trans
				}
			}
			curr[j] = d
		}
		prev2, prev, curr = prev, curr, prev2
	}

	best := prev[1]
	for j := 2; j <= len(t); j++ {
		if prev[j] < best {
			best = prev[j]
		}
	}

	sim := 1.0 - float64(best)/float64(len(p))
	if sim < 0 {
		return 0
	}
	return sim
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
