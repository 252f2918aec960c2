// Package network implements the Network abstraction (C2): a uniform
// view over a weighted finite-state search network, with four
// interchangeable back-ends (Compressed, Static, Composed,
// LatticeNetwork) behind one contract. Per the design note on
// avoiding dynamic dispatch in the inner loop, the four back-ends are
// also collected into Any, a tagged-variant sum type that the search
// package's hot loop can switch over directly instead of going
// through an interface call.
package network

import "github.com/kho/lvcsr/label"

// StateId identifies a state within a Network.
type StateId uint32

// NoState is the distinguished invalid state id.
const NoState StateId = ^StateId(0)

// Arc is one outgoing transition: input_label (into the StateSequence
// store, or label.Epsilon), output_label, weight, and the target
// state.
type Arc struct {
	Input, Output label.Label
	Weight        label.Weight
	Next          StateId
}

// Network is the capability set every back-end implements. Arc
// iteration order is fixed per state so pruning decisions are
// reproducible across runs: Compressed and Static stable-sort by input
// label at construction, while Composed and LatticeNetwork keep the
// order of the arcs they are built from.
type Network interface {
	// Successors returns the non-epsilon outgoing arcs of state, in a
	// fixed order.
	Successors(state StateId) []Arc
	// EpsilonSuccessors returns the epsilon outgoing arcs of state, in
	// a fixed order.
	EpsilonSuccessors(state StateId) []Arc
	IsFinal(state StateId) bool
	FinalWeight(state StateId) label.Weight
	NumStates() int
	NumArcs() int
	InitialState() StateId
	// GrammarState returns the back-reference to the grammar
	// (language-model) component's state for composed networks, or
	// NoState for back-ends with no such notion.
	GrammarState(state StateId) StateId
}
