package network

import (
	"testing"

	"github.com/kho/lvcsr/label"
)

func buildToy() (*CompressedBuilder, StateId, StateId, StateId) {
	b := NewCompressedBuilder()
	s0 := b.NewState()
	s1 := b.NewState()
	s2 := b.NewState()
	b.SetInitial(s0)
	b.SetFinal(s2, label.One)
	b.AddArc(s0, Arc{Input: 1, Output: 1, Weight: 0.5, Next: s1})
	b.AddArc(s0, Arc{Input: label.Epsilon, Output: label.Epsilon, Weight: 0.1, Next: s2})
	b.AddArc(s1, Arc{Input: 2, Output: 2, Weight: 1.5, Next: s2})
	return b, s0, s1, s2
}

func TestCompressedEpsilonSplit(t *testing.T) {
	b, s0, _, s2 := buildToy()
	c := b.Build()

	nonEps := c.Successors(s0)
	if len(nonEps) != 1 || nonEps[0].Input != 1 {
		t.Errorf("expected one non-epsilon arc with input 1; got %+v", nonEps)
	}
	eps := c.EpsilonSuccessors(s0)
	if len(eps) != 1 || eps[0].Input != label.Epsilon {
		t.Errorf("expected one epsilon arc; got %+v", eps)
	}
	if !c.IsFinal(s2) {
		t.Errorf("expected s2 to be final")
	}
	if c.IsFinal(s0) {
		t.Errorf("expected s0 to not be final")
	}
	if c.NumStates() != 3 {
		t.Errorf("expected 3 states; got %d", c.NumStates())
	}
	if c.NumArcs() != 3 {
		t.Errorf("expected 3 arcs; got %d", c.NumArcs())
	}
}

func TestStaticFindByLabel(t *testing.T) {
	sb := NewStaticBuilder()
	s0 := sb.NewState()
	s1 := sb.NewState()
	sb.SetInitial(s0)
	sb.SetFinal(s1, label.One)
	sb.AddArc(s0, Arc{Input: 3, Output: 3, Weight: 1, Next: s1})
	st := sb.Build()

	if len(st.Successors(s0)) != 1 {
		t.Errorf("expected 1 successor")
	}
	if arc, ok := findByLabel(st.Successors(s0), 3); !ok || arc.Next != s1 {
		t.Errorf("expected to find arc on label 3 leading to s1")
	}
	if _, ok := findByLabel(st.Successors(s0), 99); ok {
		t.Errorf("expected no arc for label 99")
	}
}

func TestAnyDispatch(t *testing.T) {
	b, s0, _, _ := buildToy()
	any := OfCompressed(b.Build())
	if len(any.Successors(s0)) != 1 {
		t.Errorf("expected Any to dispatch to Compressed.Successors")
	}
	if any.InitialState() != s0 {
		t.Errorf("expected initial state %d; got %d", s0, any.InitialState())
	}
}

func TestComposedLazyExpansion(t *testing.T) {
	// lower: s0 --(out=1)--> s1 --(out=2)--> s2(final)
	lb := NewStaticBuilder()
	l0 := lb.NewState()
	l1 := lb.NewState()
	l2 := lb.NewState()
	lb.SetInitial(l0)
	lb.SetFinal(l2, label.One)
	lb.AddArc(l0, Arc{Input: 10, Output: 1, Weight: 0, Next: l1})
	lb.AddArc(l1, Arc{Input: 11, Output: 2, Weight: 0, Next: l2})
	lower := lb.Build()

	// grammar: g0 --(1)--> g1 --(2)--> g2(final)
	gb := NewStaticBuilder()
	g0 := gb.NewState()
	g1 := gb.NewState()
	g2 := gb.NewState()
	gb.SetInitial(g0)
	gb.SetFinal(g2, label.One)
	gb.AddArc(g0, Arc{Input: 1, Output: 1, Weight: 0.2, Next: g1})
	gb.AddArc(g1, Arc{Input: 2, Output: 2, Weight: 0.3, Next: g2})
	grammar := gb.Build()

	c := NewComposed(lower, grammar, nil, label.Zero)
	if c.NumStates() != 1 {
		t.Fatalf("expected composition to start with exactly 1 (unexpanded) state; got %d", c.NumStates())
	}
	arcs := c.Successors(c.InitialState())
	if len(arcs) != 1 || arcs[0].Weight != label.Weight(0.2) {
		t.Fatalf("expected one arc with grammar weight folded in; got %+v", arcs)
	}
	if c.NumStates() != 2 {
		t.Fatalf("expected lazy expansion to have created exactly one more state; got %d", c.NumStates())
	}
	next := arcs[0].Next
	arcs2 := c.Successors(next)
	if len(arcs2) != 1 {
		t.Fatalf("expected one arc from the second state; got %+v", arcs2)
	}
	final := c.Successors(arcs2[0].Next)
	_ = final
	if !c.IsFinal(arcs2[0].Next) {
		t.Errorf("expected the composed end state to be final")
	}
}
