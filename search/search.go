// Package search implements the beam-search core (C5): per-frame
// token passing over a Network of StateSequence-labeled arcs, with
// beam and histogram pruning, trace emission and periodic purging.
package search

import (
	"sort"

	"github.com/kho/lvcsr/acoustic"
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
	"github.com/kho/lvcsr/statetab"
	"github.com/kho/lvcsr/trace"
)

// Options bundles the per-frame algorithm's tunable thresholds.
type Options struct {
	Beam             label.Weight
	PruningLimit     int
	HistogramBins    int
	TwoPassPruning   bool
	WordEndPruning   bool
	WordEndThreshold label.Weight
	MergeEpsPaths    bool
	EnableSkips      bool
	PurgeInterval    int
	LatticePruning   label.Weight
}

// Stats counts the quantities the statistics channel reports.
type Stats struct {
	Frames          int
	HypothesesSeen  int
	BeamPruned      int
	HistogramPruned int
	WordEndPruned   int
	Purges          int
}

// slot is one incoming token queued at a state's entry: the minimum
// score and trace reaching that state so far this frame, for slot
// index 0 (first HMM state) and, when skips are enabled, slot 1
// (second HMM state).
type slot struct {
	score label.Weight
	tr    trace.Ref
}

// arcHyp is a live hypothesis occupying one network arc: per
// HMM-state-in-sequence score/trace, explicitly indexed and reset
// rather than reallocated across frames.
type arcHyp struct {
	state  network.StateId // arc's source state
	arcIdx int             // index into net.Successors(state)
	seq    statetab.Id
	scores []label.Weight
	traces []trace.Ref
}

func (h *arcHyp) reset(n int) {
	if cap(h.scores) < n {
		h.scores = make([]label.Weight, n)
		h.traces = make([]trace.Ref, n)
	}
	h.scores = h.scores[:n]
	h.traces = h.traces[:n]
	for i := range h.scores {
		h.scores[i] = label.Zero
		h.traces[i] = trace.NoRef
	}
}

func (h *arcHyp) set(i int, score label.Weight, tr trace.Ref) {
	if score < h.scores[i] {
		h.scores[i] = score
		h.traces[i] = tr
	}
}

type arcKey struct {
	state  network.StateId
	arcIdx int
}

// emptySlots is the canonical "nothing queued here yet" value; map
// lookups that miss must use this instead of relying on Go's zero
// value, since trace.Ref's zero value (0) is a valid ref and only
// trace.NoRef (all-ones) means empty.
var emptySlots = [2]slot{{label.Zero, trace.NoRef}, {label.Zero, trace.NoRef}}

func getSlots(m map[network.StateId][2]slot, s network.StateId) [2]slot {
	if v, ok := m[s]; ok {
		return v
	}
	return emptySlots
}

// Decoder holds all search state across frames: the active
// (state, arc, HMM-state) hypothesis arrays, the incoming-slot
// buffers at each active state, the running score scale, and
// statistics. Scratch slices are swapped rather than reallocated.
type Decoder struct {
	net    network.Network
	states *statetab.Store
	model  acoustic.Model
	rec    trace.Recorder
	opts   Options

	incoming   map[network.StateId][2]slot
	activeArcs map[arcKey]*arcHyp

	pool []*arcHyp // free arcHyp objects for reuse across frames

	currentScale float64
	bestScore    label.Weight
	maxScore     label.Weight
	frame        int

	lastFinalWeight label.Weight

	Stats Stats
}

func NewDecoder(net network.Network, states *statetab.Store, model acoustic.Model, rec trace.Recorder, opts Options) *Decoder {
	d := &Decoder{net: net, states: states, model: model, rec: rec, opts: opts}
	d.reset()
	return d
}

func (d *Decoder) reset() {
	d.incoming = make(map[network.StateId][2]slot)
	d.activeArcs = make(map[arcKey]*arcHyp)
	d.currentScale = 0
	d.frame = 0

	init := d.net.InitialState()
	d.rec.BeginFrame(label.One)
	r := d.rec.Add(trace.NoRef, label.Epsilon, statetab.Id(0), false, -1, label.One, label.One, false, uint32(init))
	d.incoming[init] = [2]slot{{label.One, r}, {label.Zero, trace.NoRef}}
}

// newArcHyp draws a free arcHyp from the pool built up by pruning
// (Stage 3) rather than allocating, so steady-state decoding runs
// without growing the heap once the pool has warmed up.
func (d *Decoder) newArcHyp(k arcKey, seq statetab.Id) *arcHyp {
	var h *arcHyp
	if n := len(d.pool); n > 0 {
		h = d.pool[n-1]
		d.pool = d.pool[:n-1]
	} else {
		h = &arcHyp{}
	}
	h.state, h.arcIdx, h.seq = k.state, k.arcIdx, seq
	h.reset(d.states.Len(seq))
	return h
}

// Step runs one frame of the seven-stage algorithm.
func (d *Decoder) Step(frame int, scorer acoustic.Scorer) {
	d.frame = frame
	d.Stats.Frames++
	d.rec.BeginFrame(d.bestScore)

	newArcs := make(map[arcKey]*arcHyp, len(d.activeArcs))

	// Stage 1: expand states and arcs.
	states := make([]network.StateId, 0, len(d.incoming))
	for s := range d.incoming {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	for _, s := range states {
		in := d.incoming[s]
		for ai, arc := range d.net.Successors(s) {
			seq := statetab.Id(arc.Input)
			k := arcKey{s, ai}
			target := d.getOrMake(newArcs, k, seq)
			isInitial := d.states.IsInitial(seq)
			entry := label.Weight(0)
			if isInitial {
				_, t0 := d.states.State(seq, 0)
				entry = label.Weight(d.model.StateTransition(t0, acoustic.EntryForward))
			}
			if in[0].tr != trace.NoRef {
				target.set(0, in[0].score+arc.Weight+entry, in[0].tr)
			}
			if d.opts.EnableSkips && d.states.Len(seq) > 1 && in[1].tr != trace.NoRef {
				_, t1 := d.states.State(seq, 1)
				skip := label.Weight(d.model.StateTransition(t1, acoustic.Skip))
				target.set(1, in[1].score+arc.Weight+skip, in[1].tr)
			}
		}
	}

	for k, h := range d.activeArcs {
		target := d.getOrMake(newArcs, k, h.seq)
		n := d.states.Len(h.seq)
		for i := 0; i < n; i++ {
			if h.scores[i] == label.Zero {
				continue
			}
			_, tm := d.states.State(h.seq, i)
			// loop
			target.set(i, h.scores[i]+label.Weight(d.model.StateTransition(tm, acoustic.Loop)), h.traces[i])
			// forward
			if i+1 < n {
				target.set(i+1, h.scores[i]+label.Weight(d.model.StateTransition(tm, acoustic.Forward)), h.traces[i])
			}
			// skip
			if d.opts.EnableSkips && i+2 < n {
				target.set(i+2, h.scores[i]+label.Weight(d.model.StateTransition(tm, acoustic.Skip)), h.traces[i])
			}
		}
	}

	// Stage 2: acoustic scoring; track best/max.
	d.bestScore = label.Zero
	d.maxScore = label.Zero
	for _, h := range newArcs {
		n := d.states.Len(h.seq)
		for i := 0; i < n; i++ {
			if h.scores[i] == label.Zero {
				continue
			}
			em, _ := d.states.State(h.seq, i)
			h.scores[i] += label.Weight(scorer.Score(em))
			d.Stats.HypothesesSeen++
			if h.scores[i] < d.bestScore {
				d.bestScore = h.scores[i]
			}
			if h.scores[i] > d.maxScore || d.maxScore == label.Zero {
				d.maxScore = h.scores[i]
			}
		}
	}

	// Stage 3: pruning.
	threshold := d.bestScore + d.opts.Beam
	if d.opts.Beam == label.Zero {
		threshold = label.Zero
	}
	for k, h := range newArcs {
		n := d.states.Len(h.seq)
		anyAlive := false
		for i := 0; i < n; i++ {
			if h.scores[i] == label.Zero {
				continue
			}
			if threshold != label.Zero && h.scores[i] > threshold {
				h.scores[i] = label.Zero
				h.traces[i] = trace.NoRef
				d.Stats.BeamPruned++
				continue
			}
			anyAlive = true
		}
		if !anyAlive {
			delete(newArcs, k)
			d.pool = append(d.pool, h)
		}
	}
	if d.opts.PruningLimit > 0 {
		d.histogramPrune(newArcs)
	}
	d.currentScale += float64(d.bestScore)
	for _, h := range newArcs {
		n := d.states.Len(h.seq)
		for i := 0; i < n; i++ {
			if h.scores[i] != label.Zero {
				h.scores[i] -= d.bestScore
			}
		}
	}

	// Stage 4: inter-arc transition.
	newIncoming := make(map[network.StateId][2]slot)
	for k, h := range newArcs {
		n := d.states.Len(h.seq)
		last := n - 1
		penultimate := n - 2
		arc := d.net.Successors(k.state)[k.arcIdx]
		exitIdx := last
		if d.opts.EnableSkips && penultimate >= 0 {
			exitIdx = penultimate
		}
		for i := last; i >= 0 && i >= exitIdx; i-- {
			if i != last && i != exitIdx {
				continue
			}
			if h.scores[i] == label.Zero {
				continue
			}
			_, tm := d.states.State(h.seq, i)
			isWordEnd := arc.Output != label.Epsilon
			var tdp label.Weight
			if isWordEnd {
				tdp = label.Weight(d.model.StateTransition(tm, acoustic.ExitTransition))
			} else {
				tdp = label.Weight(d.model.StateTransition(tm, acoustic.Forward))
			}
			unscaled := label.Weight(d.currentScale) + h.scores[i]
			tr := d.rec.Add(h.traces[i], arc.Output, h.seq, true, frame, unscaled, arc.Weight+tdp, isWordEnd, uint32(arc.Next))
			cur := getSlots(newIncoming, arc.Next)
			slotIdx := 0
			if i == exitIdx && exitIdx != last {
				slotIdx = 1
			}
			if h.scores[i]+tdp < cur[slotIdx].score || cur[slotIdx].tr == trace.NoRef {
				cur[slotIdx] = slot{h.scores[i] + tdp, tr}
				newIncoming[arc.Next] = cur
			}
		}
	}

	// Stage 5: epsilon-arc expansion (depth-first, beam-pruned).
	d.expandEpsilon(newIncoming, threshold)

	// Stage 6: word-end pruning.
	if d.opts.WordEndPruning {
		d.wordEndPrune(newIncoming)
	}

	d.incoming = newIncoming
	d.activeArcs = newArcs

	// Stage 7: periodic maintenance.
	if d.opts.PurgeInterval > 0 && frame%d.opts.PurgeInterval == 0 {
		d.purge()
	}
}

func (d *Decoder) getOrMake(m map[arcKey]*arcHyp, k arcKey, seq statetab.Id) *arcHyp {
	if h, ok := m[k]; ok {
		return h
	}
	h := d.newArcHyp(k, seq)
	m[k] = h
	return h
}

func (d *Decoder) histogramPrune(newArcs map[arcKey]*arcHyp) {
	var scores []label.Weight
	for _, h := range newArcs {
		n := d.states.Len(h.seq)
		for i := 0; i < n; i++ {
			if h.scores[i] != label.Zero {
				scores = append(scores, h.scores[i])
			}
		}
	}
	if len(scores) <= d.opts.PruningLimit {
		return
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i] < scores[j] })
	cutoff := scores[d.opts.PruningLimit-1]
	for k, h := range newArcs {
		n := d.states.Len(h.seq)
		anyAlive := false
		for i := 0; i < n; i++ {
			if h.scores[i] == label.Zero {
				continue
			}
			if h.scores[i] > cutoff {
				h.scores[i] = label.Zero
				h.traces[i] = trace.NoRef
				d.Stats.HistogramPruned++
				continue
			}
			anyAlive = true
		}
		if !anyAlive {
			delete(newArcs, k)
		}
	}
}

// expandEpsilon walks epsilon arcs depth-first from every incoming
// slot, folding epsilon arc costs into the target's incoming slot and
// recombining by visited state when MergeEpsPaths is set.
func (d *Decoder) expandEpsilon(incoming map[network.StateId][2]slot, threshold label.Weight) {
	type frame struct {
		state network.StateId
		sl    slot
	}
	var stack []frame
	for s, in := range incoming {
		for _, sl := range in {
			if sl.tr != trace.NoRef {
				stack = append(stack, frame{s, sl})
			}
		}
	}
	visited := make(map[network.StateId]label.Weight)
	if d.opts.MergeEpsPaths {
		for s, in := range incoming {
			best := in[0].score
			if in[1].tr != trace.NoRef && in[1].score < best {
				best = in[1].score
			}
			visited[s] = best
		}
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, arc := range d.net.EpsilonSuccessors(f.state) {
			cost := f.sl.score + arc.Weight
			if threshold != label.Zero && cost > threshold {
				continue
			}
			if d.opts.MergeEpsPaths {
				if prev, ok := visited[arc.Next]; ok && cost >= prev {
					continue
				}
				visited[arc.Next] = cost
			}
			unscaled := label.Weight(d.currentScale) + cost
			tr := f.sl.tr
			if arc.Output != label.Epsilon {
				tr = d.rec.Add(f.sl.tr, arc.Output, statetab.Id(0), false, d.frame, unscaled, arc.Weight, true, uint32(arc.Next))
			}
			cur := getSlots(incoming, arc.Next)
			if cur[0].tr == trace.NoRef || cost < cur[0].score {
				cur[0] = slot{cost, tr}
				incoming[arc.Next] = cur
			}
			stack = append(stack, frame{arc.Next, slot{cost, tr}})
		}
	}
}

func (d *Decoder) wordEndPrune(incoming map[network.StateId][2]slot) {
	best := label.Zero
	for s, in := range incoming {
		if !d.isWordEndState(s) {
			continue
		}
		if in[0].score < best {
			best = in[0].score
		}
	}
	if best == label.Zero {
		return
	}
	for s, in := range incoming {
		if !d.isWordEndState(s) {
			continue
		}
		if in[0].score > best+d.opts.WordEndThreshold {
			d.Stats.WordEndPruned++
			delete(incoming, s)
		}
	}
}

func (d *Decoder) isWordEndState(s network.StateId) bool {
	for _, arc := range d.net.Successors(s) {
		if arc.Output != label.Epsilon {
			return true
		}
	}
	return d.net.IsFinal(s)
}

// purge compacts the trace arena and rewrites every trace.Ref the
// decoder holds outside the recorder (d.incoming's slots and each
// live arcHyp's per-HMM-state trace) through the returned old-to-new
// mapping, since a compaction pass invalidates every externally held
// ref into the arena.
func (d *Decoder) purge() {
	d.Stats.Purges++
	d.rec.PurgeBegin()
	for _, in := range d.incoming {
		for _, sl := range in {
			d.rec.PurgeNotify(sl.tr)
		}
	}
	for _, h := range d.activeArcs {
		for _, tr := range h.traces {
			d.rec.PurgeNotify(tr)
		}
	}
	oldToNew := d.rec.PurgeEnd()
	remap := func(r trace.Ref) trace.Ref {
		if r == trace.NoRef {
			return trace.NoRef
		}
		return oldToNew[r]
	}
	for s, in := range d.incoming {
		in[0].tr = remap(in[0].tr)
		in[1].tr = remap(in[1].tr)
		d.incoming[s] = in
	}
	for _, h := range d.activeArcs {
		for i, tr := range h.traces {
			h.traces[i] = remap(tr)
		}
	}
}

// End implements the end-of-utterance rule: the minimum over
// (score + final_weight) across every active final state, falling
// back to the best active hypothesis with a synthetic end trace if
// none reached a final state.
func (d *Decoder) End() trace.Ref {
	best := label.Zero
	bestRef := trace.NoRef
	d.lastFinalWeight = label.One
	for s, in := range d.incoming {
		if !d.net.IsFinal(s) {
			continue
		}
		total := in[0].score + d.net.FinalWeight(s)
		if in[0].tr != trace.NoRef && (bestRef == trace.NoRef || total < best) {
			best = total
			bestRef = in[0].tr
			d.lastFinalWeight = d.net.FinalWeight(s)
		}
	}
	if bestRef != trace.NoRef {
		return bestRef
	}
	for _, in := range d.incoming {
		for _, sl := range in {
			if sl.tr != trace.NoRef && (bestRef == trace.NoRef || sl.score < best) {
				best = sl.score
				bestRef = sl.tr
			}
		}
	}
	// Nothing has completed an arc into a network state this frame
	// (e.g. decoding stopped mid-allophone); fall back further to the
	// best partial hypothesis still in flight inside an arc.
	for _, h := range d.activeArcs {
		for i, score := range h.scores {
			if h.traces[i] != trace.NoRef && (bestRef == trace.NoRef || score < best) {
				best = score
				bestRef = h.traces[i]
			}
		}
	}
	if bestRef == trace.NoRef {
		return trace.NoRef
	}
	return d.rec.Add(bestRef, label.Epsilon, statetab.Id(0), false, d.frame+1, best, label.One, true, ^uint32(0))
}

// FinalWeight returns the network final weight folded into the
// hypothesis End last returned: the true final weight of whichever
// network state the winning path ended on, or label.One (no
// contribution) when End fell back to a non-final or in-flight
// hypothesis.
func (d *Decoder) FinalWeight() label.Weight {
	return d.lastFinalWeight
}
