// Package recombine implements an offline graph analysis of a search
// network (C8): it locates the states where independently-grown paths
// can first meet again, and estimates how many frames separate any
// two states from such a meeting point. The network package exposes
// no phonetic-context model, so "coarticulation root" is interpreted
// structurally: a state with exactly one predecessor but more than
// one successor, where the diverging per-context paths downstream of
// a shared branch point are the ones expected to recombine.
package recombine

import (
	"container/list"
	"sort"

	"github.com/kho/lvcsr/network"
)

const unreachable = -1

// Analyzer is built once per network and answers Interval queries
// against its precomputed distance tables.
type Analyzer struct {
	net network.Network

	recomb      []network.StateId
	recombIndex map[network.StateId]int

	// shortest[s][i] / longest[s][i] are the shortest/longest number of
	// arc hops from state s to recomb[i], or unreachable.
	shortest [][]int
	longest  [][]int

	cache *intervalCache
}

// New builds an Analyzer over net: identifies recombination nodes,
// then precomputes every state's shortest and longest distance to
// each of them.
func New(net network.Network, cacheSize int) *Analyzer {
	succ, pred := buildGraph(net)
	recomb := findRecombinationNodes(net, succ, pred)

	recombIndex := make(map[network.StateId]int, len(recomb))
	for i, r := range recomb {
		recombIndex[r] = i
	}

	topo := topologicalOrder(net, succ)

	n := net.NumStates()
	shortest := make([][]int, n)
	longest := make([][]int, n)
	for s := 0; s < n; s++ {
		shortest[s] = make([]int, len(recomb))
		longest[s] = make([]int, len(recomb))
	}

	for i, r := range recomb {
		sh := shortestDistancesTo(r, pred, n)
		lo := longestDistancesTo(r, succ, topo, n)
		for s := 0; s < n; s++ {
			shortest[s][i] = sh[s]
			longest[s][i] = lo[s]
		}
	}

	return &Analyzer{
		net:         net,
		recomb:      recomb,
		recombIndex: recombIndex,
		shortest:    shortest,
		longest:     longest,
		cache:       newIntervalCache(cacheSize),
	}
}

// RecombinationNodes returns the states identified as recombination
// nodes, in ascending order.
func (a *Analyzer) RecombinationNodes() []network.StateId { return a.recomb }

// ShortestToRecombination returns the shortest arc-hop distance from
// s to r, or unreachable if r is not a recombination node or is not
// reachable from s.
func (a *Analyzer) ShortestToRecombination(s, r network.StateId) int {
	i, ok := a.recombIndex[r]
	if !ok {
		return unreachable
	}
	return a.shortest[s][i]
}

// LongestToRecombination is the longest-path analog of
// ShortestToRecombination.
func (a *Analyzer) LongestToRecombination(s, r network.StateId) int {
	i, ok := a.recombIndex[r]
	if !ok {
		return unreachable
	}
	return a.longest[s][i]
}

// Interval estimates the number of frames until any pair of followups
// of a and b has recombined: the shortest distance to the nearest
// recombination node both can reach, bounded by whichever of the two
// arrives later. Results are memoized in a bounded LRU, the same
// cache shape as lookahead.Cache.
func (a *Analyzer) Interval(x, y network.StateId) int {
	if x == y {
		return 0
	}
	key := pairKey{x, y}
	if key.a > key.b {
		key.a, key.b = key.b, key.a
	}
	if v, ok := a.cache.get(key); ok {
		return v
	}

	best := unreachable
	for i := range a.recomb {
		sx, sy := a.shortest[x][i], a.shortest[y][i]
		if sx == unreachable || sy == unreachable {
			continue
		}
		m := sx
		if sy > m {
			m = sy
		}
		if best == unreachable || m < best {
			best = m
		}
	}

	a.cache.put(key, best)
	return best
}

func buildGraph(net network.Network) (succ, pred map[network.StateId][]network.StateId) {
	n := net.NumStates()
	succ = make(map[network.StateId][]network.StateId, n)
	pred = make(map[network.StateId][]network.StateId, n)
	for s := 0; s < n; s++ {
		st := network.StateId(s)
		for _, arc := range allArcs(net, st) {
			if arc.Next == st {
				continue // self-loops don't advance coarticulation distance
			}
			succ[st] = append(succ[st], arc.Next)
			pred[arc.Next] = append(pred[arc.Next], st)
		}
	}
	return succ, pred
}

func allArcs(net network.Network, s network.StateId) []network.Arc {
	return append(append([]network.Arc{}, net.Successors(s)...), net.EpsilonSuccessors(s)...)
}

// findRecombinationNodes identifies the root, every state with fan-in
// >= 2, and every coarticulation root (fan-in == 1, fan-out >= 2).
func findRecombinationNodes(net network.Network, succ, pred map[network.StateId][]network.StateId) []network.StateId {
	seen := make(map[network.StateId]bool)
	var nodes []network.StateId
	add := func(s network.StateId) {
		if !seen[s] {
			seen[s] = true
			nodes = append(nodes, s)
		}
	}

	add(net.InitialState())
	for s := 0; s < net.NumStates(); s++ {
		st := network.StateId(s)
		inDeg := len(distinct(pred[st]))
		outDeg := len(distinct(succ[st]))
		if inDeg >= 2 {
			add(st)
		} else if inDeg == 1 && outDeg >= 2 {
			add(st)
		}
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

func distinct(xs []network.StateId) []network.StateId {
	seen := make(map[network.StateId]bool, len(xs))
	var out []network.StateId
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// topologicalOrder runs Kahn's algorithm over succ. If the graph
// turns out not to be acyclic (the network has cycles beyond the
// self-loops already excluded), the states left over once no more
// zero-indegree states remain are appended in id order; longest-path
// distances touching them become approximations rather than exact
// bounds.
func topologicalOrder(net network.Network, succ map[network.StateId][]network.StateId) []network.StateId {
	n := net.NumStates()
	indeg := make([]int, n)
	for s := 0; s < n; s++ {
		for _, t := range distinct(succ[network.StateId(s)]) {
			indeg[t]++
		}
	}

	var queue []network.StateId
	for s := 0; s < n; s++ {
		if indeg[s] == 0 {
			queue = append(queue, network.StateId(s))
		}
	}

	order := make([]network.StateId, 0, n)
	visited := make([]bool, n)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if visited[s] {
			continue
		}
		visited[s] = true
		order = append(order, s)
		for _, t := range distinct(succ[s]) {
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}
	for s := 0; s < n; s++ {
		if !visited[network.StateId(s)] {
			order = append(order, network.StateId(s))
		}
	}
	return order
}

// shortestDistancesTo runs BFS on the reversed graph from target,
// yielding each state's shortest forward distance to target.
func shortestDistancesTo(target network.StateId, pred map[network.StateId][]network.StateId, n int) []int {
	dist := make([]int, n)
	for i := range dist {
		dist[i] = unreachable
	}
	dist[target] = 0
	queue := []network.StateId{target}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, p := range distinct(pred[s]) {
			if dist[p] == unreachable {
				dist[p] = dist[s] + 1
				queue = append(queue, p)
			}
		}
	}
	return dist
}

// longestDistancesTo computes, for every state, the longest forward
// path to target, processing states in reverse topological order so
// every successor of a state is finalized before the state itself.
func longestDistancesTo(target network.StateId, succ map[network.StateId][]network.StateId, topo []network.StateId, n int) []int {
	dist := make([]int, n)
	for i := range dist {
		dist[i] = unreachable
	}
	dist[target] = 0
	for i := len(topo) - 1; i >= 0; i-- {
		s := topo[i]
		if s == target {
			continue
		}
		best := unreachable
		for _, t := range distinct(succ[s]) {
			if dist[t] == unreachable {
				continue
			}
			if cand := dist[t] + 1; cand > best {
				best = cand
			}
		}
		dist[s] = best
	}
	return dist
}

type pairKey struct{ a, b network.StateId }

type intervalEntry struct {
	key  pairKey
	val  int
	elem *list.Element
}

// intervalCache is a plain bounded LRU, the same map+list shape as
// lookahead.Cache but without reference counting: Interval results
// are immutable values, not shared owned resources, so there is
// nothing to Release.
type intervalCache struct {
	size    int
	entries map[pairKey]*intervalEntry
	order   *list.List // front = most recently used
}

func newIntervalCache(size int) *intervalCache {
	return &intervalCache{
		size:    size,
		entries: make(map[pairKey]*intervalEntry),
		order:   list.New(),
	}
}

func (c *intervalCache) get(k pairKey) (int, bool) {
	e, ok := c.entries[k]
	if !ok {
		return 0, false
	}
	c.order.MoveToFront(e.elem)
	return e.val, true
}

func (c *intervalCache) put(k pairKey, v int) {
	if c.size <= 0 {
		return
	}
	if e, ok := c.entries[k]; ok {
		e.val = v
		c.order.MoveToFront(e.elem)
		return
	}
	e := &intervalEntry{key: k, val: v}
	e.elem = c.order.PushFront(e)
	c.entries[k] = e
	if len(c.entries) > c.size {
		back := c.order.Back()
		c.order.Remove(back)
		delete(c.entries, back.Value.(*intervalEntry).key)
	}
}
