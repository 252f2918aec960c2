package trace

import (
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lattice"
	"github.com/kho/lvcsr/statetab"
)

// Lattice preserves every competing predecessor at a state as a
// sibling chain, pruned by a lattice-beam threshold relative to the
// best alive trace at the same time.
type Lattice struct {
	arena   Arena
	beam    label.Weight
	heads   map[uint32]Ref
	frame   label.Weight
	pending *purger
}

// NewLattice constructs a Lattice recorder with the given
// lattice-beam width. beam == label.Zero (i.e. +Inf) disables
// lattice-beam pruning.
func NewLattice(beam label.Weight) *Lattice {
	return &Lattice{beam: beam, heads: make(map[uint32]Ref)}
}

func (lt *Lattice) BeginFrame(frameBestScore label.Weight) {
	clear(lt.heads)
	lt.frame = frameBestScore
}

func (lt *Lattice) Add(pred Ref, output label.Label, stateSeq statetab.Id, hasStateSeq bool, time int, unscaledScore, arcScore label.Weight, isWordEnd bool, state uint32) Ref {
	if lt.beam != label.Zero && unscaledScore > lt.frame+lt.beam {
		return NoRef
	}
	sibling := NoRef
	if h, ok := lt.heads[state]; ok {
		sibling = h
	}
	ref := lt.arena.add(Node{
		Pred: pred, Sibling: sibling, Output: output,
		HasStateSeq: hasStateSeq, StateSeq: stateSeq,
		Time: time, UnscaledScore: unscaledScore, ArcScore: arcScore,
		IsWordEnd: isWordEnd,
	})
	lt.heads[state] = ref
	return ref
}

func (lt *Lattice) PurgeBegin() {
	lt.pending = newPurger(&lt.arena)
}

func (lt *Lattice) PurgeNotify(r Ref) {
	lt.pending.notify(r)
}

func (lt *Lattice) PurgeEnd() []Ref {
	oldToNew := lt.pending.compact()
	lt.pending = nil
	for state, r := range lt.heads {
		if r != NoRef {
			lt.heads[state] = oldToNew[r]
		}
	}
	return oldToNew
}

func (lt *Lattice) CreateBestPath(final Ref, ignoreLastOutput bool) []PathEntry {
	return createBestPath(&lt.arena, final, ignoreLastOutput)
}

// CreateLattice materializes the sibling chains reachable from final
// as a lattice.Lattice, per the package-level CreateLattice. Only the
// Lattice recombination policy preserves the sibling chains that
// needs; FirstBest keeps none to walk.
func (lt *Lattice) CreateLattice(final Ref, finalWeight label.Weight) *lattice.Lattice {
	return CreateLattice(&lt.arena, final, finalWeight)
}
