package network

import (
	"sort"

	"github.com/kho/lvcsr/label"
)

// Static is the straightforward adjacency-list back-end: one sorted
// slice of arcs per state, binary-searched by input label. Simpler to
// build than Compressed, so it is the natural target for composition
// and other construction-time operations before a network is frozen
// into its cache-friendly form.
type Static struct {
	arcs         [][]Arc // per state, stably sorted by Input
	finalWeight  []label.Weight
	grammarState []StateId
	initial      StateId
}

func (s *Static) Successors(st StateId) []Arc {
	arcs := s.arcs[st]
	i := sort.Search(len(arcs), func(k int) bool { return arcs[k].Input != label.Epsilon })
	return arcs[i:]
}

func (s *Static) EpsilonSuccessors(st StateId) []Arc {
	arcs := s.arcs[st]
	i := sort.Search(len(arcs), func(k int) bool { return arcs[k].Input != label.Epsilon })
	return arcs[:i]
}

func (s *Static) IsFinal(st StateId) bool        { return s.finalWeight[st] != label.Zero }
func (s *Static) FinalWeight(st StateId) label.Weight { return s.finalWeight[st] }
func (s *Static) NumStates() int                 { return len(s.arcs) }
func (s *Static) NumArcs() int {
	n := 0
	for _, a := range s.arcs {
		n += len(a)
	}
	return n
}
func (s *Static) InitialState() StateId { return s.initial }
func (s *Static) GrammarState(st StateId) StateId {
	if s.grammarState == nil {
		return NoState
	}
	return s.grammarState[st]
}

// findByLabel binary-searches one state's sorted arc slice for the
// first arc (if any) carrying the given input label, the same
// shape as Sorted.findNext.
func findByLabel(arcs []Arc, x label.Label) (Arc, bool) {
	l, h := 0, len(arcs)
	for l < h {
		mid := l + (h-l)>>1
		if arcs[mid].Input < x {
			l = mid + 1
		} else if arcs[mid].Input > x {
			h = mid
		} else {
			return arcs[mid], true
		}
	}
	return Arc{}, false
}

// StaticBuilder accumulates per-state arcs for a Static network.
type StaticBuilder struct {
	arcs        [][]Arc
	finalWeight []label.Weight
	grammar     []StateId
	initial     StateId
	hasGrammar  bool
}

func NewStaticBuilder() *StaticBuilder { return &StaticBuilder{} }

func (b *StaticBuilder) NewState() StateId {
	id := StateId(len(b.arcs))
	b.arcs = append(b.arcs, nil)
	b.finalWeight = append(b.finalWeight, label.Zero)
	b.grammar = append(b.grammar, NoState)
	return id
}

func (b *StaticBuilder) SetInitial(s StateId)                  { b.initial = s }
func (b *StaticBuilder) SetFinal(s StateId, w label.Weight)     { b.finalWeight[s] = w }
func (b *StaticBuilder) SetGrammarState(s, g StateId)           { b.grammar[s] = g; b.hasGrammar = true }
func (b *StaticBuilder) AddArc(s StateId, a Arc)                { b.arcs[s] = append(b.arcs[s], a) }

func (b *StaticBuilder) Build() *Static {
	arcs := make([][]Arc, len(b.arcs))
	for i, a := range b.arcs {
		a = append([]Arc(nil), a...)
		sort.Stable(byInput(a))
		arcs[i] = a
	}
	g := b.grammar
	if !b.hasGrammar {
		g = nil
	}
	return &Static{arcs, b.finalWeight, g, b.initial}
}
