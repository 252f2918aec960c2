package acoustic

// FixedScorer is a BufferedScorer backed by a precomputed
// [frame][emission]float32 table, used by the end-to-end seed
// scenarios and by tests across the decoder that need a deterministic
// acoustic model without a real feature pipeline.
type FixedScorer struct {
	frames [][]float32
}

// NewFixedScorer wraps a precomputed score table; AddFeature is a
// no-op since every frame's scores are already known.
func NewFixedScorer(frames [][]float32) *FixedScorer {
	return &FixedScorer{frames: frames}
}

func (f *FixedScorer) AddFeature(feature []float32) {}
func (f *FixedScorer) Flush()                       {}
func (f *FixedScorer) NumFrames() int                { return len(f.frames) }

func (f *FixedScorer) ScorerAt(t int) Scorer {
	return fixedFrameScorer(f.frames[t])
}

type fixedFrameScorer []float32

func (s fixedFrameScorer) Score(emission uint32) float32 { return s[emission] }

// FixedModel is a Model test double whose transition penalties are
// all zero except where overridden, and whose Scorer comes from a
// FixedScorer.
type FixedModel struct {
	Emissions   int
	Transitions map[TransitionKind]float32
	scorer      *FixedScorer
}

func NewFixedModel(emissions int, scorer *FixedScorer) *FixedModel {
	return &FixedModel{Emissions: emissions, Transitions: make(map[TransitionKind]float32), scorer: scorer}
}

func (m *FixedModel) NumEmissions() int   { return m.Emissions }
func (m *FixedModel) GetScorer() Scorer   { return m.scorer.ScorerAt(0) }
func (m *FixedModel) StateTransition(transitionModel uint32, kind TransitionKind) float32 {
	return m.Transitions[kind]
}
