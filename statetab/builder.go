package statetab

import (
	"encoding/binary"
	"github.com/golang/glog"
)

// Builder interns state sequences by (emission_sequence,
// transition_sequence, initial, final) and builds the minimal Store:
// the same sequence added twice returns the same id, so repeated
// allophones across the lexicon never duplicate storage.
type Builder struct {
	states  []HMMState
	offsets []uint32
	flags   []uint8
	index   map[string]Id
}

// NewBuilder constructs an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		offsets: []uint32{0},
		index:   make(map[string]Id),
	}
}

// key encodes a sequence for interning; disjoint from any other
// sequence's encoding so collisions in the map are only possible for
// true duplicates.
func key(states []HMMState, initial, final bool) string {
	buf := make([]byte, 0, 8*len(states)+1)
	for _, s := range states {
		var b [8]byte
		binary.LittleEndian.PutUint32(b[0:4], s.Emission)
		binary.LittleEndian.PutUint32(b[4:8], s.Transition)
		buf = append(buf, b[:]...)
	}
	flag := byte(0)
	if initial {
		flag |= flagInitial
	}
	if final {
		flag |= flagFinal
	}
	return string(append(buf, flag))
}

// Add interns one allophone's state sequence, returning its stable
// id. Adding the same (states, initial, final) tuple twice returns
// the same id.
func (b *Builder) Add(states []HMMState, initial, final bool) Id {
	k := key(states, initial, final)
	if id, ok := b.index[k]; ok {
		return id
	}
	id := Id(len(b.offsets) - 1)
	b.states = append(b.states, states...)
	b.offsets = append(b.offsets, uint32(len(b.states)))
	flag := uint8(0)
	if initial {
		flag |= flagInitial
	}
	if final {
		flag |= flagFinal
	}
	b.flags = append(b.flags, flag)
	b.index[k] = id
	return id
}

// AddDisambiguators reserves n further ids as zero-length
// disambiguator placeholders, starting the contiguous disambiguator
// range at the current number of interned sequences, so later code
// can test membership with a single bounds check instead of a lookup.
func (b *Builder) AddDisambiguators(n int) (base Id) {
	base = Id(len(b.offsets) - 1)
	for i := 0; i < n; i++ {
		b.offsets = append(b.offsets, uint32(len(b.states)))
		b.flags = append(b.flags, 0)
	}
	return base
}

// Build finalizes the Store. The Builder must not be used afterward.
func (b *Builder) Build() *Store {
	if glog.V(1) {
		glog.Infof("statetab: %d sequences, %d states total", len(b.offsets)-1, len(b.states))
	}
	s := &Store{
		states:  b.states,
		offsets: b.offsets,
		flags:   b.flags,
	}
	// Build always sets disambiguatorBase to NumSequences (no range
	// reserved), even after AddDisambiguators; callers that reserved
	// disambiguators record the return value of AddDisambiguators and
	// pass it to BuildWithDisambiguatorBase instead.
	s.disambiguatorBase = Id(len(s.offsets) - 1)
	return s
}

// BuildWithDisambiguatorBase is like Build but records an explicit
// disambiguator base, for callers that called AddDisambiguators
// earlier and need Store.IsDisambiguator to reflect it.
func (b *Builder) BuildWithDisambiguatorBase(base Id) *Store {
	s := b.Build()
	s.disambiguatorBase = base
	return s
}
