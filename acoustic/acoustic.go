// Package acoustic defines the decoder's external acoustic-model
// contract: per-frame emission scores and HMM transition penalties,
// plus a small buffered-scoring convention so the search loop can
// score one frame behind feature extraction.
package acoustic

// Model is the acoustic model contract the search core scores
// against. StateTransition returns the transition-penalty (TDP) for
// loop/forward/skip moves within one HMM state's self-loop structure,
// keyed by the transition model index stored in statetab.HMMState.
type Model interface {
	NumEmissions() int
	GetScorer() Scorer
	StateTransition(transitionModel uint32, kind TransitionKind) float32
}

// TransitionKind names one of the transition penalties the search
// scores: the three intra-arc moves loop (state i <- i), forward
// (i <- i+1) and skip (i <- i+2), plus the entry and exit penalties.
type TransitionKind int

const (
	Loop TransitionKind = iota
	Forward
	Skip
	EntryForward // entry TDP applied when seeding slot 0 of an initial allophone
	ExitTransition
)

// Scorer scores one HMM emission at whatever frame it is currently
// positioned at.
type Scorer interface {
	Score(emission uint32) float32
}

// BufferedScorer lets the search loop request a Scorer for a
// specific, possibly already-computed frame, decoupling acoustic
// feature extraction (which may run ahead) from search (which
// consumes one frame at a time).
type BufferedScorer interface {
	AddFeature(feature []float32)
	Flush()
	ScorerAt(t int) Scorer
	NumFrames() int
}
