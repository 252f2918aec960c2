// Package lattice defines the Lattice data type shared by the trace
// recorder (which produces one at end of utterance), the network
// package (which can treat a lattice as a search graph for
// re-decoding), the rescorer (which consumes and re-emits one), and
// MBR search (which consumes one read-only). A lattice is a WFSN
// whose arcs carry a PairWeight(am, lm) and whose states optionally
// carry a word-boundary time.
package lattice

import (
	"sort"

	"github.com/kho/lvcsr/label"
)

// StateId identifies a lattice state.
type StateId uint32

const NoState StateId = ^StateId(0)

// Arc is one lattice transition.
type Arc struct {
	Output label.Label
	Weight label.PairWeight
	Next   StateId
}

// Lattice is an immutable, read-only WFSN with pair-weighted arcs and
// per-state word-boundary times. Built once by trace.CreateLattice or
// by the rescorer; never mutated in place (rescoring and MBR each
// produce a new Lattice rather than editing one).
type Lattice struct {
	Arcs        [][]Arc // per state, fixed order
	Final       []label.PairWeight
	IsFinalFlag []bool
	Time        []int // word-boundary time per state
	Initial     StateId
}

func New(numStates int) *Lattice {
	return &Lattice{
		Arcs:        make([][]Arc, numStates),
		Final:       make([]label.PairWeight, numStates),
		IsFinalFlag: make([]bool, numStates),
		Time:        make([]int, numStates),
	}
}

func (l *Lattice) NumStates() int { return len(l.Arcs) }

func (l *Lattice) NumArcs() int {
	n := 0
	for _, a := range l.Arcs {
		n += len(a)
	}
	return n
}

// TopologicalOrder returns lattice states sorted chronologically
// (preserving time), breaking ties by state id for determinism.
// Requires the lattice to be acyclic in time (every arc goes from an
// earlier or equal time to a later or equal time), which
// trace.CreateLattice guarantees.
func (l *Lattice) TopologicalOrder() []StateId {
	order := make([]StateId, l.NumStates())
	for i := range order {
		order[i] = StateId(i)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return l.Time[order[i]] < l.Time[order[j]]
	})
	return order
}
