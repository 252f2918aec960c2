// Package trace implements the trace recorder (C3): an arena of
// immutable trace nodes recording predecessor, sibling, output label,
// time and scores, with two recombination policies (FirstBest,
// Lattice), mark-and-compact purging, and best-path/lattice
// extraction.
package trace

import (
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/statetab"
)

// Ref identifies a trace node. NoRef is the sentinel "no predecessor
// / no sibling" value.
type Ref uint32

const NoRef Ref = ^Ref(0)

// Node is one immutable trace-back bookkeeping entry.
type Node struct {
	Pred, Sibling Ref
	Output        label.Label
	HasStateSeq   bool
	StateSeq      statetab.Id
	Time          int
	UnscaledScore label.Weight
	ArcScore      label.Weight
	IsWordEnd     bool
}

// Arena is the growing backing store shared by both recorder
// variants. Growth is geometric (amortized append), so adding a node
// never costs more than a constant factor over a fixed-size array.
type Arena struct {
	nodes []Node
}

func (a *Arena) add(n Node) Ref {
	id := Ref(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return id
}

func (a *Arena) Node(r Ref) Node { return a.nodes[r] }
func (a *Arena) Len() int        { return len(a.nodes) }

// Recorder is the common interface both recombination policies
// implement.
type Recorder interface {
	// BeginFrame resets any per-frame recombination bookkeeping;
	// frameBestScore is the current frame's best unscaled score,
	// needed by Lattice's lattice-beam pruning relative to the best
	// alive trace at the same time.
	BeginFrame(frameBestScore label.Weight)
	// Add records a new trace competing at network state `state`
	// (opaque to this package; used only to key recombination).
	// Returns NoRef if the candidate was pruned (possible only for
	// Lattice, whose lattice-beam can reject a candidate outright).
	Add(pred Ref, output label.Label, stateSeq statetab.Id, hasStateSeq bool, time int, unscaledScore, arcScore label.Weight, isWordEnd bool, state uint32) Ref
	PurgeBegin()
	PurgeNotify(r Ref)
	// PurgeEnd compacts the arena, dropping every node unreachable
	// from a notified root, and returns the old-to-new ref mapping
	// (NoRef for dropped nodes) so the caller can rewrite its own
	// externally held refs.
	PurgeEnd() []Ref
	CreateBestPath(final Ref, ignoreLastOutput bool) []PathEntry
}

// PathEntry is one (time, label) step of a best path.
type PathEntry struct {
	Time   int
	Output label.Label
}

// purger implements the shared mark-and-compact pass over an Arena
// behind both recorders' PurgeBegin/PurgeNotify/PurgeEnd: walk every notified root along Pred and Sibling,
// mark reachable nodes, then build a dense old-to-new index and
// rewrite refs while copying forward.
type purger struct {
	arena  *Arena
	marked []bool
	roots  []Ref
}

func newPurger(a *Arena) *purger {
	return &purger{arena: a, marked: make([]bool, len(a.nodes))}
}

func (p *purger) notify(r Ref) {
	if r == NoRef || p.marked[r] {
		return
	}
	p.roots = append(p.roots, r)
}

func (p *purger) mark(r Ref) {
	for r != NoRef && !p.marked[r] {
		p.marked[r] = true
		n := p.arena.nodes[r]
		if n.Sibling != NoRef {
			p.mark(n.Sibling)
		}
		r = n.Pred
	}
}

func (p *purger) compact() []Ref {
	for _, r := range p.roots {
		p.mark(r)
	}
	oldToNew := make([]Ref, len(p.arena.nodes))
	newNodes := make([]Node, 0, len(p.arena.nodes))
	for old, m := range p.marked {
		if !m {
			oldToNew[old] = NoRef
			continue
		}
		oldToNew[old] = Ref(len(newNodes))
		newNodes = append(newNodes, p.arena.nodes[old])
	}
	for i := range newNodes {
		if newNodes[i].Pred != NoRef {
			newNodes[i].Pred = oldToNew[newNodes[i].Pred]
		}
		if newNodes[i].Sibling != NoRef {
			newNodes[i].Sibling = oldToNew[newNodes[i].Sibling]
		}
	}
	p.arena.nodes = newNodes
	return oldToNew
}

// createBestPath walks predecessors from final, filtering word-end
// outputs per ignoreLastOutput.
func createBestPath(a *Arena, final Ref, ignoreLastOutput bool) []PathEntry {
	var rev []PathEntry
	first := true
	for r := final; r != NoRef; r = a.nodes[r].Pred {
		n := a.nodes[r]
		if first && ignoreLastOutput {
			first = false
			continue
		}
		first = false
		if n.Output != label.Epsilon {
			rev = append(rev, PathEntry{n.Time, n.Output})
		}
	}
	path := make([]PathEntry, len(rev))
	for i, e := range rev {
		path[len(rev)-1-i] = e
	}
	return path
}
