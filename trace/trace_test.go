package trace

import (
	"testing"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lattice"
	"github.com/kho/lvcsr/statetab"
)

func TestFirstBestRecombination(t *testing.T) {
	fb := NewFirstBest()
	fb.BeginFrame(0)

	root := fb.Add(NoRef, label.Epsilon, statetab.Id(0), false, 0, label.One, label.One, false, 1)
	worse := fb.Add(root, label.Label(5), statetab.Id(0), false, 1, label.Weight(2.0), label.Weight(2.0), true, 2)
	better := fb.Add(root, label.Label(5), statetab.Id(0), false, 1, label.Weight(1.0), label.Weight(1.0), true, 2)
	evenWorse := fb.Add(root, label.Label(5), statetab.Id(0), false, 1, label.Weight(3.0), label.Weight(3.0), true, 2)

	if worse == better {
		t.Fatalf("expected a strictly better candidate to replace the recombination winner with a new ref")
	}
	if evenWorse != better {
		t.Fatalf("expected a losing candidate to be rejected in favor of the current winner: got %d, want %d", evenWorse, better)
	}
	if fb.arena.Len() != 3 {
		t.Fatalf("expected 3 nodes to have been allocated (root, worse, better), evenWorse skipped; got %d", fb.arena.Len())
	}

	path := fb.CreateBestPath(better, false)
	if len(path) != 1 || path[0].Output != label.Label(5) || path[0].Time != 1 {
		t.Fatalf("unexpected best path: %+v", path)
	}
}

func TestFirstBestPurgeCompaction(t *testing.T) {
	fb := NewFirstBest()
	fb.BeginFrame(0)
	root := fb.Add(NoRef, label.Epsilon, statetab.Id(0), false, 0, label.One, label.One, false, 1)
	dead := fb.Add(root, label.Label(1), statetab.Id(0), false, 1, label.One, label.One, false, 2)
	_ = dead
	fb.BeginFrame(0)
	alive := fb.Add(root, label.Label(2), statetab.Id(0), false, 1, label.One, label.One, false, 3)

	fb.PurgeBegin()
	fb.PurgeNotify(alive)
	oldToNew := fb.PurgeEnd()

	if oldToNew[alive] == NoRef {
		t.Fatalf("expected the notified trace to survive purging")
	}
	if fb.arena.Len() != 2 {
		t.Fatalf("expected purge to drop the unreachable 'dead' node, keeping root+alive; got %d nodes", fb.arena.Len())
	}
	path := fb.CreateBestPath(oldToNew[alive], false)
	if len(path) != 1 || path[0].Output != label.Label(2) {
		t.Fatalf("unexpected best path after purge: %+v", path)
	}
}

func TestLatticeSiblingChainAndBeam(t *testing.T) {
	lt := NewLattice(label.Weight(0.5))
	lt.BeginFrame(0)
	root := lt.Add(NoRef, label.Epsilon, statetab.Id(0), false, 0, label.One, label.One, false, 1)

	lt.BeginFrame(1.0)
	a := lt.Add(root, label.Label(7), statetab.Id(0), false, 1, label.Weight(1.0), label.Weight(1.0), true, 2)
	b := lt.Add(root, label.Label(8), statetab.Id(0), false, 1, label.Weight(1.3), label.Weight(1.3), true, 2)
	rejected := lt.Add(root, label.Label(9), statetab.Id(0), false, 1, label.Weight(3.0), label.Weight(3.0), true, 2)

	if a == NoRef || b == NoRef {
		t.Fatalf("expected both in-beam candidates to be kept")
	}
	if rejected != NoRef {
		t.Fatalf("expected the out-of-beam candidate to be rejected, got ref %d", rejected)
	}
	if lt.arena.Node(b).Sibling != a {
		t.Fatalf("expected b to chain to a as sibling")
	}

	l := CreateLattice(&lt.arena, b, label.One)
	if l.NumStates() != 2 {
		t.Fatalf("expected 2 lattice states (root + merged recombination point); got %d", l.NumStates())
	}
	if l.NumArcs() != 2 {
		t.Fatalf("expected 2 incoming arcs at the recombination state (a and b); got %d", l.NumArcs())
	}
	if l.Initial == lattice.NoState {
		t.Fatalf("expected an initial state to be identified")
	}
	recombined := 1 - l.Initial
	if !l.IsFinalFlag[recombined] {
		t.Fatalf("expected the recombination state to be marked final")
	}
	if l.IsFinalFlag[l.Initial] {
		t.Fatalf("expected the root state to not be final")
	}
	if len(l.Arcs[l.Initial]) != 2 {
		t.Fatalf("expected 2 outgoing arcs from the root state; got %d", len(l.Arcs[l.Initial]))
	}
}

func TestLatticePurgeCompaction(t *testing.T) {
	lt := NewLattice(label.Zero)
	lt.BeginFrame(0)
	root := lt.Add(NoRef, label.Epsilon, statetab.Id(0), false, 0, label.One, label.One, false, 1)
	lt.BeginFrame(0)
	keep := lt.Add(root, label.Label(4), statetab.Id(0), false, 1, label.One, label.One, true, 2)

	lt.PurgeBegin()
	lt.PurgeNotify(keep)
	oldToNew := lt.PurgeEnd()
	if oldToNew[keep] == NoRef {
		t.Fatalf("expected notified trace to survive")
	}
	if lt.heads[2] == NoRef {
		t.Fatalf("expected heads map to be rewritten to the compacted ref")
	}
}
