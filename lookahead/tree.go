// Package lookahead implements the look-ahead tree and its online
// per-history tables (C4): a tree built once over the search network,
// collapsing non-branching runs and small subtrees into their parent,
// and a cache of dense or sparse per-history minimum-remaining-LM-cost
// tables keyed over that tree.
package lookahead

import (
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
)

// NodeId identifies a look-ahead tree node. Look-ahead nodes are
// independent from network states: a run of non-branching network
// states collapses into a single look-ahead node.
type NodeId uint32

const NoNode NodeId = ^NodeId(0)

// WordEnd records that crossing an arc labeled with a word output
// reaches the end of a word somewhere within a look-ahead node's
// subtree, at accumulated arc cost Offset past the node's entry.
type WordEnd struct {
	Output label.Label
	Offset label.Weight
}

// Tree is the offline look-ahead structure built once over a Network.
// Online, C5 and C6 map an active network state to its look-ahead
// node via StateNode and query a Table for that node's score.
type Tree struct {
	parent      []NodeId
	children    [][]NodeId
	childWeight [][]label.Weight
	wordEnds    [][]WordEnd
	stateNode   map[network.StateId]NodeId
	root        NodeId
	numNodes    int
}

func (t *Tree) NumNodes() int                { return t.numNodes }
func (t *Tree) Root() NodeId                 { return t.root }
func (t *Tree) Parent(n NodeId) NodeId       { return t.parent[n] }
func (t *Tree) Children(n NodeId) []NodeId   { return t.children[n] }
func (t *Tree) WordEnds(n NodeId) []WordEnd  { return t.wordEnds[n] }
func (t *Tree) StateNode(s network.StateId) NodeId {
	if n, ok := t.stateNode[s]; ok {
		return n
	}
	return NoNode
}

// ChildWeight returns the arc cost from node n to its i'th child, as
// returned by Children(n).
func (t *Tree) ChildWeight(n NodeId, i int) label.Weight { return t.childWeight[n][i] }

type builder struct {
	net              network.Network
	cutoff           int
	minRepresent     int
	visited          map[network.StateId]bool
	spanParent       map[network.StateId]network.StateId
	spanChildren     map[network.StateId][]network.StateId
	remainingDepth   map[network.StateId]int
	subtreeSize      map[network.StateId]int
	stateNode        map[network.StateId]NodeId
	parent           []NodeId
	children         [][]NodeId
	childWeight      [][]label.Weight
	wordEnds         [][]WordEnd
}

// Build constructs a look-ahead tree over net. cutoff is the
// tree-cutoff parameter: a non-branching run of states collapses into
// its parent's look-ahead node as long as its remaining depth to the
// next branch or leaf exceeds cutoff. minRepresentation merges any
// node whose underlying subtree has fewer than that many states into
// its parent.
func Build(net network.Network, cutoff, minRepresentation int) *Tree {
	b := &builder{
		net: net, cutoff: cutoff, minRepresent: minRepresentation,
		visited: make(map[network.StateId]bool),
		spanParent: make(map[network.StateId]network.StateId),
		spanChildren: make(map[network.StateId][]network.StateId),
		remainingDepth: make(map[network.StateId]int),
		subtreeSize: make(map[network.StateId]int),
		stateNode: make(map[network.StateId]NodeId),
	}
	root := net.InitialState()
	b.spanningTree(root)
	b.computeDepthAndSize(root)

	rootNode := b.newNode(NoNode)
	b.assign(root, rootNode, 0)

	return &Tree{
		parent: b.parent, children: b.children, childWeight: b.childWeight,
		wordEnds: b.wordEnds, stateNode: b.stateNode, root: rootNode,
		numNodes: len(b.parent),
	}
}

// spanningTree visits every network state reachable from root via
// non-epsilon arcs (epsilon arcs are assumed already removed by
// composition) and records a parent/children spanning tree, taking
// the first discovered predecessor for a state reached from more than
// one place.
func (b *builder) spanningTree(root network.StateId) {
	stack := []network.StateId{root}
	b.visited[root] = true
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, arc := range b.net.Successors(s) {
			if b.visited[arc.Next] {
				continue
			}
			b.visited[arc.Next] = true
			b.spanParent[arc.Next] = s
			b.spanChildren[s] = append(b.spanChildren[s], arc.Next)
			stack = append(stack, arc.Next)
		}
	}
}

func (b *builder) computeDepthAndSize(root network.StateId) {
	var post []network.StateId
	var dfs func(s network.StateId)
	dfs = func(s network.StateId) {
		for _, c := range b.spanChildren[s] {
			dfs(c)
		}
		post = append(post, s)
	}
	dfs(root)
	for _, s := range post {
		children := b.spanChildren[s]
		size := 1
		for _, c := range children {
			size += b.subtreeSize[c]
		}
		b.subtreeSize[s] = size
		if len(children) == 1 {
			b.remainingDepth[s] = 1 + b.remainingDepth[children[0]]
		} else {
			b.remainingDepth[s] = 0
		}
	}
}

func (b *builder) newNode(parent NodeId) NodeId {
	id := NodeId(len(b.parent))
	b.parent = append(b.parent, parent)
	b.children = append(b.children, nil)
	b.childWeight = append(b.childWeight, nil)
	b.wordEnds = append(b.wordEnds, nil)
	if parent != NoNode {
		b.children[parent] = append(b.children[parent], id)
	}
	return id
}

// assign walks the spanning tree top-down, deciding at each state
// whether it collapses into its look-ahead parent's node or starts a
// new one, and records word-ends and accumulated arc costs along the
// way. pending is the arc-cost sum accumulated since node's entry
// state.
func (b *builder) assign(s network.StateId, node NodeId, pending label.Weight) {
	b.stateNode[s] = node

	for _, arc := range b.net.Successors(s) {
		if b.spanParent[arc.Next] != s {
			continue // not a spanning-tree edge: a merge point, ignore for tree shape
		}
		childPending := pending + arc.Weight
		if arc.Output != label.Epsilon {
			b.wordEnds[node] = append(b.wordEnds[node], WordEnd{arc.Output, childPending})
		}
		collapse := (len(b.spanChildren[s]) == 1 &&
			b.remainingDepth[arc.Next] > b.cutoff) ||
			b.subtreeSize[arc.Next] < b.minRepresent
		if collapse {
			b.assign(arc.Next, node, childPending)
		} else {
			child := b.newNode(node)
			b.childWeight[node] = append(b.childWeight[node], childPending)
			b.assign(arc.Next, child, 0)
		}
	}
	if b.net.IsFinal(s) {
		b.wordEnds[node] = append(b.wordEnds[node], WordEnd{label.Epsilon, pending})
	}
}
