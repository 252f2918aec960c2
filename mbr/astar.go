package mbr

import (
	"container/heap"
	"math"
	"sort"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lattice"
)

// Options bundles the A* engine's tunables. MaximumStackSize caps the
// number of open-list nodes kept per prefix length (0 disables the
// cap).
type Options struct {
	MaximumStackSize int
}

// end is one lattice state a search node's prefix can still be
// continuing from, with the log-domain forward cost of reaching it.
type end struct {
	state lattice.StateId
	cost  label.LogWeight
}

type node struct {
	prefix    []label.Label
	ends      []end
	totalProb float64
	final     bool
	estimate  float64 // admissible lower bound on total risk
	cols      [][]int // per reference hypothesis, the current DP column
}

// stack is the A* engine's open list, a container/heap ordered by
// (estimate, -totalProb).
type stack []*node

func (s stack) Len() int { return len(s) }
func (s stack) Less(i, j int) bool {
	if s[i].estimate != s[j].estimate {
		return s[i].estimate < s[j].estimate
	}
	return s[i].totalProb > s[j].totalProb
}
func (s stack) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *stack) Push(x interface{}) {
	*s = append(*s, x.(*node))
}
func (s *stack) Pop() interface{} {
	old := *s
	n := len(old)
	v := old[n-1]
	*s = old[:n-1]
	return v
}

// AStar searches l's word-prefix tree for the string minimizing
// expected Levenshtein risk against the reference posterior refs.
// refs is the summation space and l's prefix tree the evaluation
// space; the two may differ in size.
func AStar(l *lattice.Lattice, refs []Hypothesis, opts Options) Hypothesis {
	root := &node{ends: epsilonClosure([]end{{state: l.Initial, cost: label.LogOne}}, l)}
	root.totalProb = forwardProb(root.ends, l)
	root.final = anyFinal(root.ends, l)
	root.estimate = estimateOf(root, refs)

	open := &stack{}
	heap.Init(open)
	heap.Push(open, root)

	var best *node
	var bestRisk float64

	for open.Len() > 0 {
		n := heap.Pop(open).(*node)

		if n.final {
			risk := exactRisk(n, refs)
			if best == nil || risk < bestRisk {
				best, bestRisk = n, risk
			}
			if best.totalProb >= 0.5 {
				break
			}
			if open.Len() > 0 && bestRisk <= (*open)[0].estimate {
				break
			}
			continue
		}

		children := expand(n, l)
		for _, c := range children {
			c.cols = materializeColumns(n, c, refs)
			c.estimate = estimateOf(c, refs)
			heap.Push(open, c)
		}
		if best != nil && open.Len() > 0 && bestRisk <= (*open)[0].estimate {
			break
		}

		prune(open, opts)
	}

	if best == nil {
		return Hypothesis{}
	}
	return Hypothesis{Words: best.prefix, Posterior: label.LogWeight(-math.Log(best.totalProb))}
}

// expand generates one child per distinct output label reachable from
// n's end states (after an epsilon closure), merging children that
// would lead to the same set of lattice states.
func expand(n *node, l *lattice.Lattice) []*node {
	closure := epsilonClosure(n.ends, l)

	byLabel := make(map[label.Label]map[lattice.StateId]label.LogWeight)
	for _, e := range closure {
		for _, arc := range l.Arcs[e.state] {
			if arc.Output == label.Epsilon {
				continue
			}
			m, ok := byLabel[arc.Output]
			if !ok {
				m = make(map[lattice.StateId]label.LogWeight)
				byLabel[arc.Output] = m
			}
			c := e.cost + label.LogWeight(arc.Weight.Value())
			if cur, ok := m[arc.Next]; !ok || c < cur {
				m[arc.Next] = c
			}
		}
	}

	outputs := make([]label.Label, 0, len(byLabel))
	for o := range byLabel {
		outputs = append(outputs, o)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i] < outputs[j] })

	children := make([]*node, 0, len(outputs))
	for _, o := range outputs {
		raw := make([]end, 0, len(byLabel[o]))
		for s, c := range byLabel[o] {
			raw = append(raw, end{state: s, cost: c})
		}
		// Close over epsilons immediately: a child's final flag and
		// totalProb must reflect every state reachable without
		// consuming another word, not just the direct arc targets.
		ends := epsilonClosure(raw, l)
		sort.Slice(ends, func(i, j int) bool { return ends[i].state < ends[j].state })

		prefix := make([]label.Label, len(n.prefix)+1)
		copy(prefix, n.prefix)
		prefix[len(n.prefix)] = o

		children = append(children, &node{prefix: prefix, ends: ends, totalProb: forwardProb(ends, l), final: anyFinal(ends, l)})
	}
	return children
}

// forwardProb is the forward probability mass of ends. If any end is
// itself a final state, only final ends count: those are the genuine
// acceptance mass for this prefix as a complete string, folding in
// each one's own final weight, while a non-final end reached via the
// same epsilon closure is just a stepping stone to it, not a separate
// accepted path. With no final end present, every end contributes, as
// a forward-beam heuristic for ordering continued search.
func forwardProb(ends []end, l *lattice.Lattice) float64 {
	var total float64
	var sawFinal bool
	for _, e := range ends {
		if l.IsFinalFlag[e.state] {
			total += prob(e.cost + label.LogWeight(l.Final[e.state].Value()))
			sawFinal = true
		}
	}
	if sawFinal {
		return total
	}
	for _, e := range ends {
		total += prob(e.cost)
	}
	return total
}

func anyFinal(ends []end, l *lattice.Lattice) bool {
	for _, e := range ends {
		if l.IsFinalFlag[e.state] {
			return true
		}
	}
	return false
}

// epsilonClosure extends ends through epsilon arcs, keeping the
// lowest-cost path to each reachable state. Assumes the lattice's
// epsilon subgraph is acyclic, as trace.CreateLattice guarantees.
func epsilonClosure(ends []end, l *lattice.Lattice) []end {
	best := make(map[lattice.StateId]label.LogWeight, len(ends))
	var order []lattice.StateId
	var walk func(e end)
	walk = func(e end) {
		if cur, ok := best[e.state]; ok && cur <= e.cost {
			return
		}
		if _, ok := best[e.state]; !ok {
			order = append(order, e.state)
		}
		best[e.state] = e.cost
		for _, arc := range l.Arcs[e.state] {
			if arc.Output == label.Epsilon {
				walk(end{state: arc.Next, cost: e.cost + label.LogWeight(arc.Weight.Value())})
			}
		}
	}
	for _, e := range ends {
		walk(e)
	}
	out := make([]end, len(order))
	for i, s := range order {
		out[i] = end{state: s, cost: best[s]}
	}
	return out
}

// materializeColumns extends the parent's cached DP columns by one
// row for child's newly appended word, computing them from scratch
// the first time a reference is touched.
func materializeColumns(parent, child *node, refs []Hypothesis) [][]int {
	cols := make([][]int, len(refs))
	newWord := child.prefix[len(child.prefix)-1]
	rowIndex := len(child.prefix)
	for i, ref := range refs {
		var parentCol []int
		if parent.cols != nil {
			parentCol = parent.cols[i]
		}
		cols[i] = levenshteinColumn(parentCol, newWord, ref.Words, rowIndex)
	}
	return cols
}

// estimateOf computes an admissible lower bound on n's total risk:
// each reference's current DP-column minimum cannot decrease as more
// of n's prefix is consumed, so it bounds that reference's eventual
// distance from any completion of n.
func estimateOf(n *node, refs []Hypothesis) float64 {
	if n.cols == nil {
		// n is the root: its prefix is empty, so its DP column against
		// each reference is just the base row of insertion costs.
		n.cols = make([][]int, len(refs))
		for i, ref := range refs {
			col := make([]int, len(ref.Words)+1)
			for j := range col {
				col[j] = j
			}
			n.cols[i] = col
		}
	}
	var risk float64
	for i, ref := range refs {
		risk += prob(ref.Posterior) * float64(minInt(n.cols[i]))
	}
	return risk
}

// exactRisk computes n's actual risk against every reference: valid
// once n is final, since its prefix is then a complete candidate and
// the last entry of each cached DP column is the true edit distance
// to that reference.
func exactRisk(n *node, refs []Hypothesis) float64 {
	var risk float64
	for i, ref := range refs {
		risk += prob(ref.Posterior) * float64(n.cols[i][len(ref.Words)])
	}
	return risk
}

// prune keeps at most MaximumStackSize nodes per prefix length,
// discarding the rest by their estimate (histogram pruning by prefix
// length, so the search doesn't starve longer candidates).
func prune(open *stack, opts Options) {
	if opts.MaximumStackSize <= 0 {
		return
	}
	byLen := make(map[int][]*node)
	for _, n := range *open {
		byLen[len(n.prefix)] = append(byLen[len(n.prefix)], n)
	}
	var kept stack
	for _, bucket := range byLen {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].estimate < bucket[j].estimate })
		if len(bucket) > opts.MaximumStackSize {
			bucket = bucket[:opts.MaximumStackSize]
		}
		kept = append(kept, bucket...)
	}
	*open = kept
	heap.Init(open)
}
