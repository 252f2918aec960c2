// Package mbr implements minimum Bayes risk search over a posterior
// distribution of recognition hypotheses (C7): an N-best list engine
// and an A* engine searching a lattice's word-prefix tree, both
// minimizing expected Levenshtein risk against a reference posterior.
package mbr

import (
	"math"

	"github.com/kho/lvcsr/label"
)

// Hypothesis is one candidate word string with its posterior
// probability, expressed as a log-semiring weight (label.LogWeight:
// Zero is probability 0, One is probability 1) to match the rest of
// the decoder's posterior arithmetic.
type Hypothesis struct {
	Words     []label.Label
	Posterior label.LogWeight
}

func prob(lw label.LogWeight) float64 { return math.Exp(-float64(lw)) }

// levenshtein computes the plain edit distance between a and b: gap
// cost 1, mismatch cost 1, match cost 0, via the usual flat-matrix DP
// over two rows instead of a full matrix.
func levenshtein(a, b []label.Label) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// levenshteinColumn appends one row of the edit-distance DP against
// ref for the newly extended prefix (prefix's last word is new; col
// is the DP column computed for prefix[:len(prefix)-1] against ref,
// or nil for the empty prefix). Returns the new column, of length
// len(ref)+1. This is the incremental update the A* engine uses to
// avoid recomputing the whole matrix on every expansion.
func levenshteinColumn(col []int, newWord label.Label, ref []label.Label, rowIndex int) []int {
	if col == nil {
		col = make([]int, len(ref)+1)
		for j := range col {
			col[j] = j
		}
	}
	next := make([]int, len(ref)+1)
	next[0] = rowIndex
	for j := 1; j <= len(ref); j++ {
		cost := 1
		if newWord == ref[j-1] {
			cost = 0
		}
		del := col[j] + 1
		ins := next[j-1] + 1
		sub := col[j-1] + cost
		m := del
		if ins < m {
			m = ins
		}
		if sub < m {
			m = sub
		}
		next[j] = m
	}
	return next
}

func minInt(col []int) int {
	m := col[0]
	for _, v := range col[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
