// Package statetab implements the StateSequence store (C1): a
// flyweight table of HMM state sequences referenced by network arcs.
// Each sequence is an ordered list of (emission, transition) pairs
// plus initial/final flags. The table is built once at startup from
// an acoustic model and lexicon (or parsed from an HTK-style HMM
// list) and is immutable thereafter; ids are stable across rebuilds
// that do not change the tying.
//
// The on-disk layout follows a magic+varint-header+aligned-entries
// mmap idiom: the per-sequence offsets and flags travel in the
// gob-encoded header, and the flat array of state pairs is mapped in
// directly without per-entry deserialization.
package statetab

// Id identifies one interned state sequence (allophone).
type Id uint32

// HMMState is one position within an allophone's Markov chain: an
// emission (acoustic) symbol and a transition-model id.
type HMMState struct {
	Emission, Transition uint32
}

// Store is the immutable, flyweight state-sequence table.
type Store struct {
	// states is the flat, concatenated backing array for every
	// sequence's HMM states.
	states []HMMState
	// offsets[i] is the start index into states of sequence i;
	// offsets has len(entries)+1 elements, offsets[len(entries)] ==
	// len(states).
	offsets []uint32
	// flags[i] bit 0 = isInitial, bit 1 = isFinal for sequence i.
	flags []uint8
	// disambiguatorBase is the id of the first disambiguator
	// sequence; all ids >= disambiguatorBase are zero-length
	// disambiguator placeholders.
	disambiguatorBase Id
}

const (
	flagInitial uint8 = 1 << 0
	flagFinal   uint8 = 1 << 1
)

// NumSequences returns the number of interned sequences, including
// disambiguators.
func (s *Store) NumSequences() int {
	return len(s.offsets) - 1
}

// Len returns the number of HMM states in sequence id.
func (s *Store) Len(id Id) int {
	return int(s.offsets[id+1] - s.offsets[id])
}

// State returns the i-th HMM state of sequence id.
func (s *Store) State(id Id, i int) (emission, transition uint32) {
	hs := s.states[int(s.offsets[id])+i]
	return hs.Emission, hs.Transition
}

// IsInitial reports whether sequence id may be entered with the
// initial-state transition penalty.
func (s *Store) IsInitial(id Id) bool {
	return s.flags[id]&flagInitial != 0
}

// IsFinal reports whether sequence id's last state is an allophone
// exit point.
func (s *Store) IsFinal(id Id) bool {
	return s.flags[id]&flagFinal != 0
}

// DisambiguatorBase returns the id of the first disambiguator
// sequence; every id in [DisambiguatorBase, NumSequences) is a
// zero-length disambiguator placeholder carrying no acoustic cost.
func (s *Store) DisambiguatorBase() Id {
	return s.disambiguatorBase
}

// IsDisambiguator reports whether id falls in the disambiguator
// range.
func (s *Store) IsDisambiguator(id Id) bool {
	return id >= s.disambiguatorBase
}
