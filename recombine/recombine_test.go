package recombine

import (
	"testing"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
)

// buildDiamond builds a 6-state network:
//
//	0 --a--> 1 --x--> 3 --e--> 5 (final)
//	0 --b--> 2 --x--> 4 --e--> 5
//
// 0 is the root (a recombination node regardless of fan-in/fan-out);
// 5 has fan-in 2 and is the graph's genuine recombination point.
func buildDiamond() *network.Static {
	b := network.NewStaticBuilder()
	s0 := b.NewState()
	s1 := b.NewState()
	s2 := b.NewState()
	s3 := b.NewState()
	s4 := b.NewState()
	s5 := b.NewState()
	b.SetInitial(s0)
	b.AddArc(s0, network.Arc{Input: label.Label(1), Output: label.Label(1), Weight: 1.0, Next: s1})
	b.AddArc(s0, network.Arc{Input: label.Label(2), Output: label.Label(2), Weight: 1.0, Next: s2})
	b.AddArc(s1, network.Arc{Input: label.Label(3), Output: label.Label(3), Weight: 1.0, Next: s3})
	b.AddArc(s2, network.Arc{Input: label.Label(3), Output: label.Label(3), Weight: 1.0, Next: s4})
	b.AddArc(s3, network.Arc{Input: label.Label(4), Output: label.Label(4), Weight: 1.0, Next: s5})
	b.AddArc(s4, network.Arc{Input: label.Label(4), Output: label.Label(4), Weight: 1.0, Next: s5})
	b.SetFinal(s5, label.One)
	return b.Build()
}

func TestAnalyzerIdentifiesRecombinationNodes(t *testing.T) {
	net := buildDiamond()
	a := New(net, 16)

	want := map[network.StateId]bool{0: true, 5: true}
	got := a.RecombinationNodes()
	if len(got) != len(want) {
		t.Fatalf("expected recombination nodes %v, got %v", want, got)
	}
	for _, s := range got {
		if !want[s] {
			t.Fatalf("unexpected recombination node %d, expected only %v", s, want)
		}
	}
}

func TestAnalyzerShortestAndLongestDistance(t *testing.T) {
	net := buildDiamond()
	a := New(net, 16)

	if got := a.ShortestToRecombination(1, 5); got != 2 {
		t.Fatalf("expected shortest distance 1->5 to be 2, got %d", got)
	}
	if got := a.ShortestToRecombination(0, 5); got != 3 {
		t.Fatalf("expected shortest distance 0->5 to be 3, got %d", got)
	}
	if got := a.LongestToRecombination(0, 5); got != 3 {
		t.Fatalf("expected longest distance 0->5 to be 3 (both branches equal length), got %d", got)
	}
}

func TestAnalyzerIntervalFindsNearestCommonRecombinationNode(t *testing.T) {
	net := buildDiamond()
	a := New(net, 16)

	// States 1 and 2 are the two branches: both reach state 5 in 2
	// hops, so their interval is 2.
	if got := a.Interval(1, 2); got != 2 {
		t.Fatalf("expected Interval(1,2) to be 2, got %d", got)
	}
	if got := a.Interval(3, 3); got != 0 {
		t.Fatalf("expected Interval(s,s) to be 0, got %d", got)
	}
}

func TestAnalyzerIntervalIsMemoized(t *testing.T) {
	net := buildDiamond()
	a := New(net, 16)

	first := a.Interval(1, 2)
	if _, ok := a.cache.get(pairKey{1, 2}); !ok {
		t.Fatalf("expected Interval to populate the cache")
	}
	second := a.Interval(2, 1) // reversed argument order, same pair
	if first != second {
		t.Fatalf("expected Interval to be symmetric, got %d and %d", first, second)
	}
}
