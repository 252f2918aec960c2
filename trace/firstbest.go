package trace

import (
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/statetab"
)

// FirstBest keeps only the best predecessor per (state, time)
// recombination within the current frame; no sibling chain is ever
// built. Per frame, repeated Add calls at the same state return the
// ref of whichever candidate has the lowest unscaled score so far,
// without allocating a node for a candidate that cannot win.
type FirstBest struct {
	arena   Arena
	best    map[uint32]bestEntry
	pending *purger
}

type bestEntry struct {
	ref   Ref
	score label.Weight
}

func NewFirstBest() *FirstBest {
	return &FirstBest{best: make(map[uint32]bestEntry)}
}

func (fb *FirstBest) BeginFrame(frameBestScore label.Weight) {
	clear(fb.best)
}

func (fb *FirstBest) Add(pred Ref, output label.Label, stateSeq statetab.Id, hasStateSeq bool, time int, unscaledScore, arcScore label.Weight, isWordEnd bool, state uint32) Ref {
	if e, ok := fb.best[state]; ok && unscaledScore >= e.score {
		return e.ref
	}
	ref := fb.arena.add(Node{
		Pred: pred, Sibling: NoRef, Output: output,
		HasStateSeq: hasStateSeq, StateSeq: stateSeq,
		Time: time, UnscaledScore: unscaledScore, ArcScore: arcScore,
		IsWordEnd: isWordEnd,
	})
	fb.best[state] = bestEntry{ref, unscaledScore}
	return ref
}

func (fb *FirstBest) PurgeBegin() {
	fb.pending = newPurger(&fb.arena)
}

func (fb *FirstBest) PurgeNotify(r Ref) {
	fb.pending.notify(r)
}

func (fb *FirstBest) PurgeEnd() []Ref {
	oldToNew := fb.pending.compact()
	fb.pending = nil
	for state, e := range fb.best {
		if e.ref != NoRef {
			e.ref = oldToNew[e.ref]
			fb.best[state] = e
		}
	}
	return oldToNew
}

func (fb *FirstBest) CreateBestPath(final Ref, ignoreLastOutput bool) []PathEntry {
	return createBestPath(&fb.arena, final, ignoreLastOutput)
}
