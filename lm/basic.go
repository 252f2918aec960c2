package lm

// Shared state and weight types for the ARPA back-off automaton: the
// parser (arpa.go), the builder (builder.go) and both finished model
// representations (hashed.go, sorted.go) key off these.

import (
	"flag"
	"fmt"
	"io"

	"github.com/kho/lvcsr/label"
	"github.com/kho/word"
)

// StateId names a node of the back-off automaton: the state reached
// after consuming some word history.
type StateId uint32

const (
	StateNil   StateId = ^StateId(0) // No such state.
	emptyState StateId = 0           // The empty context.
	startState StateId = 1           // The <s> context.
)

// Weight is the tropical cost the decoder's search and rescorer share
// (label.Weight): smaller is more probable, label.Zero marks an
// unreachable transition. ARPA files store log10-probabilities
// instead, so the parser negates and floors each one into this
// convention as it reads (see logProbToCost in arpa.go); once in a
// Builder or a finished model, every weight is already in cost units
// and composes directly with acoustic and network costs.
type Weight = label.Weight

// WeightLog0 is the cost of an unreachable transition, e.g. an
// out-of-vocabulary unigram.
var WeightLog0 = label.Zero

// logProbFloor is compared against a raw ARPA log10-probability,
// before it is negated into a Weight: anything at or below it is
// treated as log(0) rather than kept as a merely large finite cost.
var logProbFloor = -99.0

func init() {
	flag.Float64Var(&logProbFloor, "lm.log0", logProbFloor, "treat an ARPA log10-probability at or below this as log(0)")
}

type StateWeight struct {
	State  StateId
	Weight Weight
}

type WordStateWeight struct {
	Word   word.Id
	State  StateId
	Weight Weight
}

// Model is the general interface of an n-gram language model. It
// exists mostly for convenience: the concrete Hashed and Sorted
// representations should be preferred on any look-up-heavy path.
type Model interface {
	// Start returns the start state, i.e. the state with context
	// <s>. Callers should never explicitly query <s>, which has
	// undefined behavior (see NextI).
	Start() StateId
	// NextI finds the next state reached from p consuming x. x must not
	// be <s> or </s> (undefined behavior), but can be word.NIL. Any x
	// outside the model's vocabulary is treated as OOV: the returned
	// weight w is WeightLog0 if and only if the unigram x is itself OOV
	// (it is possible to have "<s> x" but not "x" in the model, in
	// which case "x" is still OOV when it isn't the first token).
	NextI(p StateId, x word.Id) (q StateId, w Weight)
	// NextS behaves like NextI given the string spelling of x, which
	// must not be <s> or </s>.
	NextS(p StateId, x string) (q StateId, w Weight)
	// Final returns the cost of "consuming" </s> from p; a sentence
	// query should finish with this to score the whole sentence.
	Final(p StateId) Weight
	// Vocab returns the model's vocabulary and its sentence-boundary
	// symbols.
	Vocab() (vocab *word.Vocab, bos, eos string, bosId, eosId word.Id)
}

// IterableModel is a language model whose states and transitions can
// be iterated, as required to rescore a lattice one state at a time.
type IterableModel interface {
	Model
	// NumStates returns the number of states; StateIds range from 0 to
	// NumStates()-1.
	NumStates() int
	// Transitions iterates the non-back-off transitions out of p.
	Transitions(p StateId) chan WordStateWeight
	// BackOff returns the back-off state and weight of p. The empty
	// context's back-off state is StateNil; its weight is unused.
	BackOff(p StateId) (q StateId, w Weight)
}

// Graphviz renders m's finite-state topology for Graphviz. Meant for
// debugging a freshly built model; not for large vocabularies.
func Graphviz(m IterableModel, w io.Writer) {
	vocab, _, _, _, _ := m.Vocab()
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "  // lexical transitions")
	for i := 0; i < m.NumStates(); i++ {
		p := StateId(i)
		for xqw := range m.Transitions(p) {
			x, q, ww := xqw.Word, xqw.State, xqw.Weight
			fmt.Fprintf(w, "  %d -> %d [label=%q]\n", p, q, fmt.Sprintf("%s : %g", vocab.StringOf(x), ww))
		}
	}
	fmt.Fprintln(w, "  // back-off transitions")
	for i := 0; i < m.NumStates(); i++ {
		q, ww := m.BackOff(StateId(i))
		fmt.Fprintf(w, "  %d -> %d [label=%q,style=dashed]\n", i, q, fmt.Sprintf("%g", ww))
	}
	fmt.Fprintln(w, "}")
}

// The two on-disk model representations this package knows how to
// load, returned by FromBinary to let a caller dispatch on kind.
const (
	ModelHashed = iota
	ModelSorted
)

// Magic prefixes identifying the two binary formats.
const (
	magicHashed = "#lvcsr.lmhash"
	magicSorted = "#lvcsr.lmsort"
)
