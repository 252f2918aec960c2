package network

import (
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lattice"
)

// LatticeNetwork treats a previously emitted lattice as the search
// graph for re-decoding (seed #4's lattice round-trip). Arc weights collapse the
// lattice's PairWeight to a single tropical score via Value(); the
// rescorer and MBR packages that need both components read the
// underlying lattice.Lattice directly instead of going through this
// adapter.
type LatticeNetwork struct {
	l *lattice.Lattice
}

func NewLatticeNetwork(l *lattice.Lattice) *LatticeNetwork {
	return &LatticeNetwork{l}
}

func (n *LatticeNetwork) Successors(s StateId) []Arc {
	src := n.l.Arcs[s]
	arcs := make([]Arc, 0, len(src))
	for _, a := range src {
		if a.Output == label.Epsilon {
			continue
		}
		arcs = append(arcs, Arc{Input: a.Output, Output: a.Output, Weight: a.Weight.Value(), Next: StateId(a.Next)})
	}
	return arcs
}

func (n *LatticeNetwork) EpsilonSuccessors(s StateId) []Arc {
	src := n.l.Arcs[s]
	arcs := make([]Arc, 0)
	for _, a := range src {
		if a.Output != label.Epsilon {
			continue
		}
		arcs = append(arcs, Arc{Input: label.Epsilon, Output: label.Epsilon, Weight: a.Weight.Value(), Next: StateId(a.Next)})
	}
	return arcs
}

func (n *LatticeNetwork) IsFinal(s StateId) bool { return n.l.IsFinalFlag[s] }
func (n *LatticeNetwork) FinalWeight(s StateId) label.Weight {
	return n.l.Final[s].Value()
}
func (n *LatticeNetwork) NumStates() int          { return n.l.NumStates() }
func (n *LatticeNetwork) NumArcs() int             { return n.l.NumArcs() }
func (n *LatticeNetwork) InitialState() StateId   { return StateId(n.l.Initial) }
func (n *LatticeNetwork) GrammarState(s StateId) StateId { return NoState }
