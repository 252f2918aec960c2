// Package rescore implements the push-forward LM rescorer (C6):
// replaces one scoring dimension of a word lattice with scores from a
// richer language model, by a chronological drain/recombine/prune/
// expand sweep over lattice states. The per-hypothesis n-gram lookup
// walks the LM's back-off chain one query at a time through
// lm.Model's NextI, the same interface a Hashed or Sorted model
// already exposes.
package rescore

import (
	"container/heap"
	"fmt"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lattice"
	"github.com/kho/lvcsr/lm"
	"github.com/kho/word"
)

// Dimension names which PairWeight field the rescorer replaces;
// the other field is retained unchanged on every arc.
type Dimension int

const (
	DimAM Dimension = iota
	DimLM
)

func project(w label.PairWeight, dim Dimension) label.Weight {
	if dim == DimAM {
		return w.AM
	}
	return w.LM
}

func retained(w label.PairWeight, dim Dimension) label.Weight {
	if dim == DimAM {
		return w.LM
	}
	return w.AM
}

func replaceDim(w label.PairWeight, dim Dimension, v label.Weight) label.PairWeight {
	if dim == DimAM {
		return label.PairWeight{AM: v, LM: w.LM}
	}
	return label.PairWeight{AM: w.AM, LM: v}
}

// Mode selects one of the rescorer's three output shapes.
type Mode int

const (
	SingleBest Mode = iota
	ReplacementApproximation
	TracebackApproximation
)

// Options bundles the rescorer's tunables. DelayedRescoringMaxHyps is
// currently inert: lm.Model only exposes a single-query NextI, so
// there is no batched call for a deferred-materialization pass to
// coalesce into, and materializeBatch's own memoization already
// shares every LM call such a pass could. Kept for forward
// compatibility with a future batch-capable model.
type Options struct {
	MaxHypotheses           int
	PruningThreshold        label.Weight
	DelayedRescoringMaxHyps int
	Mode                    Mode
}

// hyp is one rescoring hypothesis. Its LM contribution is charged
// lazily: retainedSeq accumulates the kept dimension eagerly (no LM
// call needed), while lmSeq/lmState stay unresolved (materialized
// false) until materializeBatch walks the prev chain. An n-gram
// lmState doubles as the hypothesis's reduced history, since a
// fixed-order LM state is already an equivalence class over any
// longer context the model itself does not distinguish.
type hyp struct {
	prev          *hyp
	state         lattice.StateId
	output        label.Label
	retainedSeq   label.Weight
	lmSeq         label.Weight
	lmState       lm.StateId
	materialized  bool
	prospect      label.Weight
	finalLM       label.Weight
	finalRetained label.Weight
}

// seq is this hypothesis's accumulated score along the kept and the
// replaced dimension, excluding any final-state weight.
func (h *hyp) seq() label.Weight { return h.retainedSeq + h.lmSeq }

// totalSeq additionally folds in the final-state weight, valid only
// once a hypothesis has been extended with the final contribution
// (see Rescore's IsFinalFlag branch).
func (h *hyp) totalSeq() label.Weight {
	return h.seq() + h.finalRetained + h.finalLM
}

type byProspect []*hyp

func (h byProspect) Len() int            { return len(h) }
func (h byProspect) Less(i, j int) bool  { return h[i].prospect < h[j].prospect }
func (h byProspect) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *byProspect) Push(x interface{}) { *h = append(*h, x.(*hyp)) }
func (h *byProspect) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

type bySeq []*hyp

func (h bySeq) Len() int            { return len(h) }
func (h bySeq) Less(i, j int) bool  { return h[i].seq() < h[j].seq() }
func (h bySeq) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bySeq) Push(x interface{}) { *h = append(*h, x.(*hyp)) }
func (h *bySeq) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Rescore replaces dim on every surviving path of l with scores from
// model, emitting one of three output shapes selected by opts.Mode.
// An empty input lattice is returned unchanged.
func Rescore(l *lattice.Lattice, model lm.Model, dim Dimension, opts Options) (*lattice.Lattice, error) {
	if l.NumStates() == 0 {
		return l, nil
	}
	vocab, _, _, _, _ := model.Vocab()
	if vocab == nil {
		return nil, fmt.Errorf("rescore: language model has no vocabulary")
	}

	order := l.TopologicalOrder()
	lookahead := computeLookahead(l, order, dim)

	incoming := make(map[lattice.StateId][]*hyp)
	start := &hyp{state: l.Initial, lmState: model.Start(), materialized: true}
	start.prospect = start.seq() + lookahead[l.Initial]
	incoming[l.Initial] = []*hyp{start}

	var survivors []*hyp

	for _, s := range order {
		hyps := incoming[s]
		if len(hyps) == 0 {
			continue
		}
		// Recombination needs every hypothesis's lmState, so every
		// state's cohort is materialized before it is drained.
		// DelayedRescoringMaxHyps is a no-op against this model
		// interface (see its doc comment): resolve's own memoization
		// already shares every LM call a deferred batch pass could.
		materializeBatch(hyps, model)

		hyps = recombineAndDrain(hyps)
		hyps = prune(hyps, opts)

		if l.IsFinalFlag[s] {
			for _, h := range hyps {
				hc := *h
				hc.finalLM = model.Final(hc.lmState)
				hc.finalRetained = retained(l.Final[s], dim)
				survivors = append(survivors, &hc)
			}
		}

		for _, arc := range l.Arcs[s] {
			for _, h := range hyps {
				child := &hyp{prev: h, state: arc.Next, output: arc.Output}
				child.retainedSeq = h.retainedSeq + retained(arc.Weight, dim)
				if arc.Output == label.Epsilon {
					child.lmState = h.lmState
					child.lmSeq = h.lmSeq
					child.materialized = true
				}
				child.prospect = child.retainedSeq + child.lmSeq + lookahead[arc.Next]
				incoming[arc.Next] = append(incoming[arc.Next], child)
			}
		}
	}

	switch opts.Mode {
	case ReplacementApproximation:
		return replacementLattice(l, dim, allHyps(incoming), survivors), nil
	case TracebackApproximation:
		return tracebackLattice(l, dim, survivors), nil
	default:
		return singleBestLattice(l, dim, survivors)
	}
}

// computeLookahead computes, per state, an admissible bound on the
// eventual cost of the dimension under replacement: the minimum over
// outgoing paths of the projected (soon-to-be-discarded) arc weights,
// used as a stand-in LM-cost estimate for the yet-unvisited suffix of
// the lattice.
func computeLookahead(l *lattice.Lattice, order []lattice.StateId, dim Dimension) []label.Weight {
	la := make([]label.Weight, l.NumStates())
	for i := range la {
		la[i] = label.Zero
	}
	for i := len(order) - 1; i >= 0; i-- {
		s := order[i]
		best := label.Zero
		if l.IsFinalFlag[s] {
			best = project(l.Final[s], dim)
		}
		for _, arc := range l.Arcs[s] {
			c := project(arc.Weight, dim) + la[arc.Next]
			if c < best {
				best = c
			}
		}
		la[s] = best
	}
	return la
}

// materializeBatch resolves every not-yet-materialized hypothesis's
// lmState/lmSeq by walking its prev chain back to the nearest
// already-materialized ancestor and replaying model.NextI forward
// from there. Recursion bottoms out at the first materialized
// ancestor (the start hypothesis, at worst), and every node it
// resolves is marked materialized so siblings sharing that prefix
// never re-walk it.
func materializeBatch(hyps []*hyp, model lm.Model) {
	var resolve func(h *hyp) (lm.StateId, label.Weight)
	resolve = func(h *hyp) (lm.StateId, label.Weight) {
		if h.materialized {
			return h.lmState, h.lmSeq
		}
		parentState, parentLMSeq := resolve(h.prev)
		q, w := model.NextI(parentState, word.Id(h.output))
		h.lmState = q
		h.lmSeq = parentLMSeq + w
		h.materialized = true
		return h.lmState, h.lmSeq
	}
	for _, h := range hyps {
		resolve(h)
	}
}

// recombineAndDrain drains hyps through a priority queue ordered by
// accumulated sequence score, keeping, per distinct LM state reached,
// the lowest-prospect-score survivor.
func recombineAndDrain(hyps []*hyp) []*hyp {
	pq := make(bySeq, len(hyps))
	copy(pq, hyps)
	heap.Init(&pq)

	best := make(map[lm.StateId]*hyp, len(hyps))
	order := make([]lm.StateId, 0, len(hyps))
	for pq.Len() > 0 {
		h := heap.Pop(&pq).(*hyp)
		cur, ok := best[h.lmState]
		if !ok {
			order = append(order, h.lmState)
			best[h.lmState] = h
			continue
		}
		if h.prospect < cur.prospect {
			best[h.lmState] = h
		}
	}
	out := make([]*hyp, len(order))
	for i, st := range order {
		out[i] = best[st]
	}
	return out
}

// prune applies the pruning-threshold and max-hypotheses cuts via a
// seq_prospect_score-ordered priority queue, never emptying a
// non-empty input (the Open Question's resolution:
// `(hyps.size() > 1) && (...)`). PruningThreshold == label.Zero (+Inf)
// disables the threshold cut, matching the decoder's own Beam
// convention (search.Options.Beam).
func prune(hyps []*hyp, opts Options) []*hyp {
	if len(hyps) <= 1 {
		return hyps
	}
	pq := make(byProspect, 0, len(hyps))
	if opts.PruningThreshold == label.Zero {
		pq = append(pq, hyps...)
	} else {
		best := hyps[0].prospect
		for _, h := range hyps[1:] {
			if h.prospect < best {
				best = h.prospect
			}
		}
		for _, h := range hyps {
			if h.prospect <= best+opts.PruningThreshold {
				pq = append(pq, h)
			}
		}
	}
	heap.Init(&pq)
	limit := opts.MaxHypotheses
	if limit <= 0 || limit > pq.Len() {
		limit = pq.Len()
	}
	out := make([]*hyp, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, heap.Pop(&pq).(*hyp))
	}
	return out
}

func allHyps(incoming map[lattice.StateId][]*hyp) []*hyp {
	var all []*hyp
	for _, hs := range incoming {
		all = append(all, hs...)
	}
	return all
}

// singleBestLattice walks back from the lowest-score final survivor,
// reconstructing a linear lattice with exactly that one path.
func singleBestLattice(l *lattice.Lattice, dim Dimension, survivors []*hyp) (*lattice.Lattice, error) {
	if len(survivors) == 0 {
		return nil, fmt.Errorf("rescore: no hypothesis reached a final state")
	}
	best := survivors[0]
	for _, h := range survivors[1:] {
		if h.totalSeq() < best.totalSeq() {
			best = h
		}
	}
	var chain []*hyp
	for h := best; h.prev != nil; h = h.prev {
		chain = append(chain, h)
	}
	out := lattice.New(len(chain) + 1)
	out.Initial = 0
	for i := len(chain) - 1; i >= 0; i-- {
		h := chain[i]
		from := lattice.StateId(len(chain) - 1 - i)
		to := from + 1
		lmDelta := h.lmSeq
		if i+1 < len(chain) {
			lmDelta -= chain[i+1].lmSeq
		}
		out.Arcs[from] = append(out.Arcs[from], lattice.Arc{
			Output: h.output,
			Weight: replaceDim(arcWeightOf(l, h.prev.state, h.state, h.output), dim, lmDelta),
			Next:   to,
		})
	}
	finalState := lattice.StateId(len(chain))
	out.IsFinalFlag[finalState] = true
	out.Final[finalState] = replaceDim(l.Final[best.state], dim, best.finalLM)
	return out, nil
}

// replacementLattice keeps l's original topology, replacing dim on
// each arc and final weight with the lowest new-LM-incremental weight
// any hypothesis recorded while traversing it, leaving arcs and
// finals no hypothesis reached at their original weight.
func replacementLattice(l *lattice.Lattice, dim Dimension, all, survivors []*hyp) *lattice.Lattice {
	type key struct {
		from, to lattice.StateId
		output   label.Label
	}
	best := make(map[key]label.Weight)
	for _, h := range all {
		if h.prev == nil {
			continue
		}
		k := key{h.prev.state, h.state, h.output}
		delta := h.lmSeq - h.prev.lmSeq
		if cur, ok := best[k]; !ok || delta < cur {
			best[k] = delta
		}
	}
	bestFinal := make(map[lattice.StateId]label.Weight)
	for _, h := range survivors {
		if cur, ok := bestFinal[h.state]; !ok || h.finalLM < cur {
			bestFinal[h.state] = h.finalLM
		}
	}
	out := lattice.New(l.NumStates())
	out.Initial = l.Initial
	copy(out.Time, l.Time)
	copy(out.IsFinalFlag, l.IsFinalFlag)
	copy(out.Final, l.Final)
	for s, w := range bestFinal {
		out.Final[s] = replaceDim(out.Final[s], dim, w)
	}
	for s := range l.Arcs {
		for _, arc := range l.Arcs[s] {
			k := key{lattice.StateId(s), arc.Next, arc.Output}
			w := arc.Weight
			if d, ok := best[k]; ok {
				w = replaceDim(w, dim, d)
			}
			out.Arcs[s] = append(out.Arcs[s], lattice.Arc{Output: arc.Output, Weight: w, Next: arc.Next})
		}
	}
	return out
}

func arcWeightOf(l *lattice.Lattice, from, to lattice.StateId, output label.Label) label.PairWeight {
	for _, arc := range l.Arcs[from] {
		if arc.Next == to && arc.Output == output {
			return arc.Weight
		}
	}
	return label.PairZero
}

// tracebackLattice keeps only the states and arcs visited by any
// surviving hypothesis's prev chain: smaller than the input lattice
// but richer than single-best, since every surviving path's own
// traceback is preserved rather than collapsed to one winner.
func tracebackLattice(l *lattice.Lattice, dim Dimension, survivors []*hyp) *lattice.Lattice {
	remap := make(map[lattice.StateId]lattice.StateId)
	assign := func(s lattice.StateId) lattice.StateId {
		if id, ok := remap[s]; ok {
			return id
		}
		id := lattice.StateId(len(remap))
		remap[s] = id
		return id
	}
	type arcRec struct {
		from, to lattice.StateId
		output   label.Label
		weight   label.Weight
	}
	var arcs []arcRec
	finals := make(map[lattice.StateId]label.Weight)
	for _, surv := range survivors {
		assign(surv.state)
		finals[surv.state] = surv.finalLM
		for h := surv; h.prev != nil; h = h.prev {
			assign(h.prev.state)
			assign(h.state)
			arcs = append(arcs, arcRec{h.prev.state, h.state, h.output, h.lmSeq - h.prev.lmSeq})
		}
	}
	out := lattice.New(len(remap))
	if id, ok := remap[l.Initial]; ok {
		out.Initial = id
	}
	for s, w := range finals {
		id := remap[s]
		out.IsFinalFlag[id] = true
		out.Final[id] = replaceDim(l.Final[s], dim, w)
	}
	inv := invert(remap)
	for id, s := range inv {
		out.Time[id] = l.Time[s]
	}
	for _, a := range arcs {
		from, to := remap[a.from], remap[a.to]
		out.Arcs[from] = append(out.Arcs[from], lattice.Arc{
			Output: a.output,
			Weight: replaceDim(arcWeightOf(l, a.from, a.to, a.output), dim, a.weight),
			Next:   to,
		})
	}
	return out
}

func invert(m map[lattice.StateId]lattice.StateId) map[lattice.StateId]lattice.StateId {
	inv := make(map[lattice.StateId]lattice.StateId, len(m))
	for k, v := range m {
		inv[v] = k
	}
	return inv
}
