package lookahead

import (
	"testing"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
)

// buildToy constructs: s0 -(1,out=0,w=1)-> s1 -(2,out=0,w=1)-> s2, then
// s2 branches: -(3,out=10,w=0.5)-> s3(final) and -(4,out=11,w=2)-> s4(final).
func buildToy() *network.Static {
	b := network.NewStaticBuilder()
	s0 := b.NewState()
	s1 := b.NewState()
	s2 := b.NewState()
	s3 := b.NewState()
	s4 := b.NewState()
	b.SetInitial(s0)
	b.SetFinal(s3, label.One)
	b.SetFinal(s4, label.One)
	b.AddArc(s0, network.Arc{Input: 1, Output: label.Epsilon, Weight: 1, Next: s1})
	b.AddArc(s1, network.Arc{Input: 2, Output: label.Epsilon, Weight: 1, Next: s2})
	b.AddArc(s2, network.Arc{Input: 3, Output: label.Label(10), Weight: 0.5, Next: s3})
	b.AddArc(s2, network.Arc{Input: 4, Output: label.Label(11), Weight: 2, Next: s4})
	return b.Build()
}

func TestBuildNoCollapse(t *testing.T) {
	net := buildToy()
	// A cutoff larger than every state's remaining depth means no
	// non-branching run ever qualifies for collapsing: one look-ahead
	// node per network state.
	tr := Build(net, 100, 1)
	if tr.NumNodes() != 5 {
		t.Fatalf("expected 5 look-ahead nodes (one per network state); got %d", tr.NumNodes())
	}
	if len(tr.Children(tr.Root())) != 1 {
		t.Fatalf("expected root to have exactly one child")
	}
}

func TestBuildCollapsesChain(t *testing.T) {
	net := buildToy()
	// A cutoff of 0 collapses every state whose remaining depth is
	// still positive (i.e. everything strictly upstream of a branch or
	// leaf) into its look-ahead parent, merging s0 and s1 into the root.
	tr := Build(net, 0, 1)
	if tr.NumNodes() != 4 {
		t.Fatalf("expected s0+s1 to collapse into one node (4 total); got %d", tr.NumNodes())
	}
}

func TestWordEndsAtBranch(t *testing.T) {
	net := buildToy()
	tr := Build(net, 0, 1)
	branchNode := tr.StateNode(2)
	if branchNode == NoNode {
		t.Fatalf("expected state 2 to map to a look-ahead node")
	}
	ends := tr.WordEnds(branchNode)
	if len(ends) != 2 {
		t.Fatalf("expected 2 word-ends recorded at the branch node; got %+v", ends)
	}
}

func scoreFn(unigram map[label.Label]label.Weight) ScoreFunc {
	return func(l label.Label) label.Weight {
		if l == label.Epsilon {
			return label.Zero
		}
		if w, ok := unigram[l]; ok {
			return w
		}
		return label.Weight(5)
	}
}

func TestDenseBottomUp(t *testing.T) {
	net := buildToy()
	tr := Build(net, 0, 1)
	score := scoreFn(map[label.Label]label.Weight{10: 1, 11: 4})
	d := BuildDense(tr, score)

	branchNode := tr.StateNode(2)
	// min(0.5+1, 2+4) = 1.5
	if got, want := d.Score(branchNode), label.Weight(1.5); got != want {
		t.Fatalf("branch node score = %v, want %v", got, want)
	}
	root := tr.Root()
	// root score folds in the two arc weights leading to the branch: 1.5+1+1=3.5
	if got, want := d.Score(root), label.Weight(3.5); got != want {
		t.Fatalf("root score = %v, want %v", got, want)
	}
}

func TestSparseFallsBackToBackground(t *testing.T) {
	net := buildToy()
	tr := Build(net, 0, 1)
	score := scoreFn(map[label.Label]label.Weight{10: 1, 11: 4})
	s := BuildSparse(tr, score, label.Weight(5), 2, 0.8)

	branchNode := tr.StateNode(2)
	if got, want := s.Score(branchNode), label.Weight(1.5); got != want {
		t.Fatalf("sparse branch score = %v, want %v", got, want)
	}
	// A node that could never beat the background (such as the two leaf
	// nodes of this toy network) reads back exactly the background value.
	if s.Score(NodeId(999)) != label.Weight(5) {
		t.Fatalf("expected absent key to read back the background score")
	}
}

func TestCacheHitFreeHitMiss(t *testing.T) {
	builds := 0
	c := NewCache(1, 2, func(h History) Table {
		builds++
		return &Dense{scores: []label.Weight{label.Weight(h.(int))}}
	})

	tb := c.Acquire(1)
	if builds != 1 || c.Stats.Misses != 1 {
		t.Fatalf("expected a miss on first acquire")
	}
	tb2 := c.Acquire(1)
	if tb2 != tb || c.Stats.Hits != 1 {
		t.Fatalf("expected a hit on second acquire of the same history")
	}
	c.Release(1)
	c.Release(1)
	if c.Stats.Misses != 1 {
		t.Fatalf("unexpected extra miss")
	}
	tb3 := c.Acquire(1)
	if tb3 != tb || c.Stats.FreeHits != 1 {
		t.Fatalf("expected a free-hit on reacquiring a released-but-cached history")
	}
	c.Release(1)
}

func TestCacheEvictsPastHigh(t *testing.T) {
	c := NewCache(1, 2, func(h History) Table {
		return &Dense{scores: []label.Weight{0}}
	})
	c.Acquire(1)
	c.Release(1)
	c.Acquire(2)
	c.Release(2)
	c.Acquire(3)
	c.Release(3)
	if c.Len() > 2 {
		t.Fatalf("expected eviction to have kept at most sizeHigh=2 tables; got %d", c.Len())
	}
}
