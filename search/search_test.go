package search

import (
	"testing"

	"github.com/kho/lvcsr/acoustic"
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
	"github.com/kho/lvcsr/statetab"
	"github.com/kho/lvcsr/trace"
)

// buildOneWordNetwork builds a two-state network with a single arc
// spanning a two-HMM-state allophone and emitting word id 1 on exit,
// the smallest network that exercises both intra-arc forward
// transition and word-exit handling.
func buildOneWordNetwork() (network.Network, *statetab.Store, statetab.Id) {
	sb := statetab.NewBuilder()
	seq := sb.Add([]statetab.HMMState{{Emission: 0, Transition: 0}, {Emission: 1, Transition: 0}}, true, true)
	states := sb.Build()

	nb := network.NewStaticBuilder()
	s0 := nb.NewState()
	s1 := nb.NewState()
	nb.SetInitial(s0)
	nb.SetFinal(s1, label.One)
	nb.AddArc(s0, network.Arc{Input: label.Label(seq), Output: label.Label(1), Weight: label.One, Next: s1})
	net := network.OfStatic(nb.Build())
	return net, states, seq
}

func TestDecoderTwoFrameWordExit(t *testing.T) {
	net, states, _ := buildOneWordNetwork()
	scorer := acoustic.NewFixedScorer([][]float32{
		{2.0, 5.0},
		{3.0, 1.0},
	})
	model := acoustic.NewFixedModel(2, scorer)
	rec := trace.NewFirstBest()
	d := NewDecoder(net, states, model, rec, Options{})

	d.Step(0, scorer.ScorerAt(0))
	d.Step(1, scorer.ScorerAt(1))
	final := d.End()
	if final == trace.NoRef {
		t.Fatalf("expected a final trace to be reached")
	}

	path := rec.CreateBestPath(final, false)
	if len(path) != 1 {
		t.Fatalf("expected a single word-end entry, got %+v", path)
	}
	if path[0].Output != label.Label(1) {
		t.Fatalf("unexpected output label: got %d, want 1", path[0].Output)
	}
	if path[0].Time != 1 {
		t.Fatalf("unexpected output time: got %d, want 1", path[0].Time)
	}
}

// buildForkNetwork builds a network where the initial state offers
// two competing one-state allophones exiting to a shared final
// state, one strictly better acoustically than the other, so beam
// pruning and recombination at the shared final state can be
// exercised together.
func buildForkNetwork() (network.Network, *statetab.Store) {
	sb := statetab.NewBuilder()
	good := sb.Add([]statetab.HMMState{{Emission: 0, Transition: 0}}, true, true)
	bad := sb.Add([]statetab.HMMState{{Emission: 1, Transition: 0}}, true, true)
	states := sb.Build()

	nb := network.NewStaticBuilder()
	s0 := nb.NewState()
	s1 := nb.NewState()
	nb.SetInitial(s0)
	nb.SetFinal(s1, label.One)
	nb.AddArc(s0, network.Arc{Input: label.Label(good), Output: label.Label(1), Weight: label.One, Next: s1})
	nb.AddArc(s0, network.Arc{Input: label.Label(bad), Output: label.Label(2), Weight: label.One, Next: s1})
	net := network.OfStatic(nb.Build())
	return net, states
}

func TestDecoderBeamPruningRejectsWorseFork(t *testing.T) {
	net, states := buildForkNetwork()
	scorer := acoustic.NewFixedScorer([][]float32{{1.0, 10.0}})
	model := acoustic.NewFixedModel(2, scorer)
	rec := trace.NewFirstBest()
	d := NewDecoder(net, states, model, rec, Options{Beam: label.Weight(2.0)})

	d.Step(0, scorer.ScorerAt(0))
	final := d.End()
	if final == trace.NoRef {
		t.Fatalf("expected a final trace to be reached")
	}
	if d.Stats.BeamPruned == 0 {
		t.Fatalf("expected the 9.0-worse fork to be beam pruned")
	}
	path := rec.CreateBestPath(final, false)
	if len(path) != 1 || path[0].Output != label.Label(1) {
		t.Fatalf("expected the cheaper fork's output to win, got %+v", path)
	}
}

func TestDecoderPurgeKeepsReachableTrace(t *testing.T) {
	net, states, _ := buildOneWordNetwork()
	scorer := acoustic.NewFixedScorer([][]float32{
		{2.0, 5.0},
		{3.0, 1.0},
	})
	model := acoustic.NewFixedModel(2, scorer)
	rec := trace.NewFirstBest()
	d := NewDecoder(net, states, model, rec, Options{PurgeInterval: 1})

	d.Step(0, scorer.ScorerAt(0))
	d.Step(1, scorer.ScorerAt(1))
	final := d.End()
	if final == trace.NoRef {
		t.Fatalf("expected a final trace to be reached")
	}
	path := rec.CreateBestPath(final, false)
	if len(path) != 1 || path[0].Output != label.Label(1) {
		t.Fatalf("unexpected path after periodic purging: %+v", path)
	}
}

func TestDecoderNoFinalReachedFallsBackToSynthesizedEnd(t *testing.T) {
	sb := statetab.NewBuilder()
	seq := sb.Add([]statetab.HMMState{{Emission: 0, Transition: 0}, {Emission: 1, Transition: 0}}, true, false)
	states := sb.Build()

	nb := network.NewStaticBuilder()
	s0 := nb.NewState()
	s1 := nb.NewState()
	nb.SetInitial(s0)
	nb.AddArc(s0, network.Arc{Input: label.Label(seq), Output: label.Label(1), Weight: label.One, Next: s1})
	net := network.OfStatic(nb.Build())

	scorer := acoustic.NewFixedScorer([][]float32{{2.0, 5.0}})
	model := acoustic.NewFixedModel(2, scorer)
	rec := trace.NewFirstBest()
	d := NewDecoder(net, states, model, rec, Options{})

	d.Step(0, scorer.ScorerAt(0))
	final := d.End()
	if final == trace.NoRef {
		t.Fatalf("expected a fallback trace even with no final state reached")
	}
}
