package network

import (
	"sort"

	"github.com/kho/lvcsr/label"
)

// Compressed is the cache-friendly back-end: arcs are packed by
// state behind a prefix-sum offset array, with epsilon arcs
// segregated into a second block per state so that the common
// non-epsilon iteration in the search inner loop never touches
// epsilon arcs. Flat backing arrays addressed by offset, not
// per-state slices or maps, keep the representation mmap-friendly
// and cache-dense for a network with millions of states.
type Compressed struct {
	nonEpsOffsets []uint32
	nonEpsArcs    []Arc
	epsOffsets    []uint32
	epsArcs       []Arc
	finalWeight   []label.Weight
	grammarState  []StateId
	initial       StateId
}

func (c *Compressed) Successors(s StateId) []Arc {
	return c.nonEpsArcs[c.nonEpsOffsets[s]:c.nonEpsOffsets[s+1]]
}

func (c *Compressed) EpsilonSuccessors(s StateId) []Arc {
	return c.epsArcs[c.epsOffsets[s]:c.epsOffsets[s+1]]
}

func (c *Compressed) IsFinal(s StateId) bool {
	return c.finalWeight[s] != label.Zero
}

func (c *Compressed) FinalWeight(s StateId) label.Weight {
	return c.finalWeight[s]
}

func (c *Compressed) NumStates() int {
	return len(c.finalWeight)
}

func (c *Compressed) NumArcs() int {
	return len(c.nonEpsArcs) + len(c.epsArcs)
}

func (c *Compressed) InitialState() StateId {
	return c.initial
}

func (c *Compressed) GrammarState(s StateId) StateId {
	if c.grammarState == nil {
		return NoState
	}
	return c.grammarState[s]
}

// NewCompressedFromParts assembles a Compressed directly from its
// packed fields, for wfstio to reconstruct one from a mapped file
// without going through CompressedBuilder.
func NewCompressedFromParts(nonEpsOffsets []uint32, nonEpsArcs []Arc, epsOffsets []uint32, epsArcs []Arc, finalWeight []label.Weight, grammarState []StateId, initial StateId) *Compressed {
	return &Compressed{
		nonEpsOffsets: nonEpsOffsets,
		nonEpsArcs:    nonEpsArcs,
		epsOffsets:    epsOffsets,
		epsArcs:       epsArcs,
		finalWeight:   finalWeight,
		grammarState:  grammarState,
		initial:       initial,
	}
}

// Parts exposes a Compressed's packed fields for wfstio to serialize.
func (c *Compressed) Parts() (nonEpsOffsets []uint32, nonEpsArcs []Arc, epsOffsets []uint32, epsArcs []Arc, finalWeight []label.Weight, grammarState []StateId, initial StateId) {
	return c.nonEpsOffsets, c.nonEpsArcs, c.epsOffsets, c.epsArcs, c.finalWeight, c.grammarState, c.initial
}

// CompressedBuilder accumulates per-state arc lists and compiles them
// into the packed Compressed representation.
type CompressedBuilder struct {
	arcs        [][]Arc
	finalWeight []label.Weight
	grammar     []StateId
	initial     StateId
	hasGrammar  bool
}

func NewCompressedBuilder() *CompressedBuilder {
	return &CompressedBuilder{}
}

// NewState adds a new state (initially non-final) and returns its id.
func (b *CompressedBuilder) NewState() StateId {
	id := StateId(len(b.arcs))
	b.arcs = append(b.arcs, nil)
	b.finalWeight = append(b.finalWeight, label.Zero)
	b.grammar = append(b.grammar, NoState)
	return id
}

func (b *CompressedBuilder) SetInitial(s StateId) { b.initial = s }
func (b *CompressedBuilder) SetFinal(s StateId, w label.Weight) {
	b.finalWeight[s] = w
}
func (b *CompressedBuilder) SetGrammarState(s, g StateId) {
	b.grammar[s] = g
	b.hasGrammar = true
}
func (b *CompressedBuilder) AddArc(s StateId, a Arc) {
	b.arcs[s] = append(b.arcs[s], a)
}

type byInput []Arc

func (a byInput) Len() int           { return len(a) }
func (a byInput) Less(i, j int) bool { return a[i].Input < a[j].Input }
func (a byInput) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }

// Build compiles the accumulated states and arcs into a Compressed
// network, splitting each state's arcs into epsilon and non-epsilon
// blocks and stably sorting each block by input label so iteration
// order is deterministic across repeated builds of the same network.
func (b *CompressedBuilder) Build() *Compressed {
	n := len(b.arcs)
	c := &Compressed{
		nonEpsOffsets: make([]uint32, n+1),
		epsOffsets:    make([]uint32, n+1),
		finalWeight:   b.finalWeight,
		initial:       b.initial,
	}
	if b.hasGrammar {
		c.grammarState = b.grammar
	}
	for i := 0; i < n; i++ {
		arcs := append([]Arc(nil), b.arcs[i]...)
		sort.Stable(byInput(arcs))
		split := sort.Search(len(arcs), func(k int) bool { return arcs[k].Input != label.Epsilon })
		c.epsArcs = append(c.epsArcs, arcs[:split]...)
		c.nonEpsArcs = append(c.nonEpsArcs, arcs[split:]...)
		c.epsOffsets[i+1] = uint32(len(c.epsArcs))
		c.nonEpsOffsets[i+1] = uint32(len(c.nonEpsArcs))
	}
	return c
}
