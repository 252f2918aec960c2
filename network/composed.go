package network

// Composed implements the lazy H∘(C∘(L∘G)) back-end: states are
// pairs (lower state, grammar state) constructed on demand the first
// time they are reached, memoized by that pair so repeated arcs into
// an already-visited composition state are O(1), and dropped whenever
// an admissible lower-bound estimate exceeds a prune threshold. States
// are built lazily rather than precomputing the full product, which
// for a large grammar would never fit in memory.
//
// "lower" stands for the already-composed H∘C∘L transducer, whose
// output labels are lemma/word ids; "grammar" stands for G, a
// network over the same label alphabet on its input side (typically
// a Static network so grammar transitions can be found by binary
// search, mirroring Sorted.findNext).

import "github.com/kho/lvcsr/label"

// Estimator returns an admissible lower bound on the remaining cost
// from composition state (lowerState, grammarState); composed states
// whose estimate exceeds the Composed's threshold are never
// constructed.
type Estimator func(lowerState, grammarState StateId) label.Weight

type Composed struct {
	lower, grammar Network
	estimate       Estimator
	threshold      label.Weight

	cache  map[compKey]StateId
	states []*composedState
}

type compKey struct {
	Lower, Grammar StateId
}

type composedState struct {
	key        compKey
	built      bool
	nonEps     []Arc
	eps        []Arc
	finalOK    bool
	finalScore label.Weight
}

// NewComposed constructs the lazy composition. threshold of
// label.Zero's Zero value (i.e. +Inf) disables pruning.
func NewComposed(lower, grammar Network, estimate Estimator, threshold label.Weight) *Composed {
	c := &Composed{
		lower:     lower,
		grammar:   grammar,
		estimate:  estimate,
		threshold: threshold,
		cache:     make(map[compKey]StateId),
	}
	c.getOrCreate(lower.InitialState(), grammar.InitialState())
	return c
}

func (c *Composed) getOrCreate(lowerS, grammarS StateId) StateId {
	key := compKey{lowerS, grammarS}
	if id, ok := c.cache[key]; ok {
		return id
	}
	id := StateId(len(c.states))
	c.states = append(c.states, &composedState{key: key})
	c.cache[key] = id
	return id
}

// grammarNext looks up the grammar's transition on word from
// grammarS, using a binary search fast path when grammar is a
// *Static network (as Sorted.findNext does for LM states) and a
// linear scan otherwise.
func grammarNext(grammar Network, grammarS StateId, word label.Label) (Arc, bool) {
	if s, ok := grammar.(*Static); ok {
		return findByLabel(s.Successors(grammarS), word)
	}
	for _, a := range grammar.Successors(grammarS) {
		if a.Input == word {
			return a, true
		}
	}
	return Arc{}, false
}

func (c *Composed) build(id StateId) *composedState {
	st := c.states[id]
	if st.built {
		return st
	}
	st.built = true
	lowerS, grammarS := st.key.Lower, st.key.Grammar

	if c.lower.IsFinal(lowerS) {
		st.finalOK = true
		st.finalScore = c.lower.FinalWeight(lowerS)
	}

	expand := func(arcs []Arc, into *[]Arc) {
		for _, a := range arcs {
			nextGrammar := grammarS
			w := a.Weight
			if a.Output != label.Epsilon {
				garc, ok := grammarNext(c.grammar, grammarS, a.Output)
				if !ok {
					continue
				}
				nextGrammar = garc.Next
				w += garc.Weight
			}
			if c.estimate != nil && c.estimate(a.Next, nextGrammar) > c.threshold {
				continue
			}
			nextId := c.getOrCreate(a.Next, nextGrammar)
			*into = append(*into, Arc{Input: a.Input, Output: a.Output, Weight: w, Next: nextId})
		}
	}
	expand(c.lower.Successors(lowerS), &st.nonEps)
	expand(c.lower.EpsilonSuccessors(lowerS), &st.eps)
	return st
}

func (c *Composed) Successors(s StateId) []Arc        { return c.build(s).nonEps }
func (c *Composed) EpsilonSuccessors(s StateId) []Arc { return c.build(s).eps }
func (c *Composed) IsFinal(s StateId) bool            { return c.build(s).finalOK }
func (c *Composed) FinalWeight(s StateId) label.Weight {
	if st := c.build(s); st.finalOK {
		return st.finalScore
	}
	return label.Zero
}
func (c *Composed) NumStates() int { return len(c.states) }
func (c *Composed) NumArcs() int {
	n := 0
	for _, st := range c.states {
		if st.built {
			n += len(st.nonEps) + len(st.eps)
		}
	}
	return n
}
func (c *Composed) InitialState() StateId { return 0 }
func (c *Composed) GrammarState(s StateId) StateId {
	return c.states[s].key.Grammar
}
