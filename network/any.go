package network

import "github.com/kho/lvcsr/label"

// Kind tags which concrete back-end an Any wraps.
type Kind int

const (
	KindCompressed Kind = iota
	KindStatic
	KindComposed
	KindLattice
)

// Any is a tagged-variant sum type over the four back-ends, so the
// search package's hot loop can switch on Kind and call the concrete
// back-end's methods directly instead of going through an interface
// call, per the design note on avoiding dynamic dispatch in the
// inner loop. Any itself also implements Network for callers that
// only need occasional, non-hot-path access (e.g. cmd/recognize,
// which hands its Compressed network to the decoder as an Any).
type Any struct {
	Kind       Kind
	Compressed *Compressed
	Static     *Static
	Composed   *Composed
	Lattice    *LatticeNetwork
}

func OfCompressed(c *Compressed) Any { return Any{Kind: KindCompressed, Compressed: c} }
func OfStatic(s *Static) Any         { return Any{Kind: KindStatic, Static: s} }
func OfComposed(c *Composed) Any     { return Any{Kind: KindComposed, Composed: c} }
func OfLattice(l *LatticeNetwork) Any { return Any{Kind: KindLattice, Lattice: l} }

func (a Any) Successors(s StateId) []Arc {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.Successors(s)
	case KindStatic:
		return a.Static.Successors(s)
	case KindComposed:
		return a.Composed.Successors(s)
	case KindLattice:
		return a.Lattice.Successors(s)
	}
	return nil
}

func (a Any) EpsilonSuccessors(s StateId) []Arc {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.EpsilonSuccessors(s)
	case KindStatic:
		return a.Static.EpsilonSuccessors(s)
	case KindComposed:
		return a.Composed.EpsilonSuccessors(s)
	case KindLattice:
		return a.Lattice.EpsilonSuccessors(s)
	}
	return nil
}

func (a Any) IsFinal(s StateId) bool {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.IsFinal(s)
	case KindStatic:
		return a.Static.IsFinal(s)
	case KindComposed:
		return a.Composed.IsFinal(s)
	case KindLattice:
		return a.Lattice.IsFinal(s)
	}
	return false
}

func (a Any) FinalWeight(s StateId) label.Weight {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.FinalWeight(s)
	case KindStatic:
		return a.Static.FinalWeight(s)
	case KindComposed:
		return a.Composed.FinalWeight(s)
	case KindLattice:
		return a.Lattice.FinalWeight(s)
	}
	return label.Zero
}

func (a Any) NumStates() int {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.NumStates()
	case KindStatic:
		return a.Static.NumStates()
	case KindComposed:
		return a.Composed.NumStates()
	case KindLattice:
		return a.Lattice.NumStates()
	}
	return 0
}

func (a Any) NumArcs() int {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.NumArcs()
	case KindStatic:
		return a.Static.NumArcs()
	case KindComposed:
		return a.Composed.NumArcs()
	case KindLattice:
		return a.Lattice.NumArcs()
	}
	return 0
}

func (a Any) InitialState() StateId {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.InitialState()
	case KindStatic:
		return a.Static.InitialState()
	case KindComposed:
		return a.Composed.InitialState()
	case KindLattice:
		return a.Lattice.InitialState()
	}
	return NoState
}

func (a Any) GrammarState(s StateId) StateId {
	switch a.Kind {
	case KindCompressed:
		return a.Compressed.GrammarState(s)
	case KindStatic:
		return a.Static.GrammarState(s)
	case KindComposed:
		return a.Composed.GrammarState(s)
	case KindLattice:
		return a.Lattice.GrammarState(s)
	}
	return NoState
}
