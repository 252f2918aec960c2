package lookahead

import "github.com/kho/lvcsr/label"

// ScoreFunc scores a word-end label under one LM history, e.g. the
// extend cost of appending a word to the history, or a unigram
// back-off estimate.
type ScoreFunc func(output label.Label) label.Weight

// Table is queried by C5/C6 for the minimum remaining LM cost past a
// given look-ahead node.
type Table interface {
	Score(node NodeId) label.Weight
}

// Dense is a flat per-node score array, built bottom-up: every node's
// score is the minimum over its own word-ends and its children's
// scores plus the arc cost to reach them, grounded on Sorted's flat
// per-state array layout (lm/sorted.go).
type Dense struct {
	scores []label.Weight
}

// BuildDense propagates scores bottom-up in t using score to cost
// each word-end. Node ids are assigned in DFS preorder by Build, so
// every child has a strictly larger id than its parent and a single
// descending pass suffices; no explicit post-order list is needed.
func BuildDense(t *Tree, score ScoreFunc) *Dense {
	scores := make([]label.Weight, t.NumNodes())
	for id := t.NumNodes() - 1; id >= 0; id-- {
		n := NodeId(id)
		best := label.Zero
		for _, we := range t.WordEnds(n) {
			if c := score(we.Output) + we.Offset; c < best {
				best = c
			}
		}
		children := t.Children(n)
		for i, ch := range children {
			if c := scores[ch] + t.ChildWeight(n, i); c < best {
				best = c
			}
		}
		scores[id] = best
	}
	return &Dense{scores}
}

func (d *Dense) Score(n NodeId) label.Weight { return d.scores[n] }
