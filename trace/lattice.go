package trace

import (
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lattice"
)

// CreateLattice walks every trace reachable from final along Pred and
// Sibling links and materializes it as a lattice.Lattice: a sibling
// chain collapses into one lattice state with one incoming arc per
// chain member, labeled with that member's output and arc score.
// finalWeight is the network's final weight at the point final was
// recorded; it is folded onto the terminal state as that state's
// final weight.
func CreateLattice(a *Arena, final Ref, finalWeight label.Weight) *lattice.Lattice {
	stateOf := make(map[Ref]lattice.StateId)
	var chainHeads []Ref

	assign := func(r Ref) lattice.StateId {
		if id, ok := stateOf[r]; ok {
			return id
		}
		id := lattice.StateId(len(chainHeads))
		chainHeads = append(chainHeads, r)
		for s := r; s != NoRef; s = a.Node(s).Sibling {
			stateOf[s] = id
		}
		return id
	}

	assign(final)
	// BFS over chain-head states, discovering predecessor states as
	// we go; chainHeads grows during iteration so re-read its length
	// each pass.
	type incoming struct {
		pred   Ref
		output label.Label
		weight label.Weight
		time   int
	}
	var arcsIn [][]incoming
	initial := lattice.NoState
	for i := 0; i < len(chainHeads); i++ {
		head := chainHeads[i]
		var ins []incoming
		for s := head; s != NoRef; s = a.Node(s).Sibling {
			n := a.Node(s)
			if n.Pred != NoRef {
				assign(n.Pred)
			} else {
				initial = lattice.StateId(i)
			}
			ins = append(ins, incoming{n.Pred, n.Output, n.ArcScore, n.Time})
		}
		arcsIn = append(arcsIn, ins)
	}

	l := lattice.New(len(chainHeads))
	l.Initial = initial
	for id, head := range chainHeads {
		n := a.Node(head)
		l.Time[id] = n.Time
	}
	finalState := stateOf[final]
	l.IsFinalFlag[finalState] = true
	l.Final[finalState] = label.PairWeight{AM: finalWeight, LM: label.One}

	for id, ins := range arcsIn {
		for _, in := range ins {
			if in.pred == NoRef {
				continue
			}
			predState := stateOf[in.pred]
			l.Arcs[predState] = append(l.Arcs[predState], lattice.Arc{
				Output: in.output,
				Weight: label.PairWeight{AM: in.weight, LM: label.One},
				Next:   lattice.StateId(id),
			})
		}
	}
	return l
}
