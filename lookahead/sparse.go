package lookahead

import "github.com/kho/lvcsr/label"

// Sparse is an open-addressing hash table from NodeId to Weight with
// a background score for absent keys. Built when the expected number
// of non-trivial entries is a small fraction of the tree's total
// nodes, so a dense array would waste more memory than the hash
// table's probing overhead costs.
type Sparse struct {
	buckets    sparseBuckets
	background label.Weight
	numEntries int
	threshold  int
}

type sparseEntry struct {
	Key   NodeId
	Value label.Weight
}

type sparseBuckets []sparseEntry

func initSparseBuckets(n int) sparseBuckets {
	b := make(sparseBuckets, n)
	for i := range b {
		b[i].Key = NoNode
	}
	return b
}

func (b sparseBuckets) start(k NodeId) int {
	h := uint64(k)
	h ^= h >> 23
	h *= 0x2127599bf4325c37
	h ^= h >> 47
	return int(uint(h) % uint(len(b)))
}

func (b sparseBuckets) find(k NodeId) (int, bool) {
	i := b.start(k)
	for {
		if b[i].Key == k {
			return i, true
		}
		if b[i].Key == NoNode {
			return i, false
		}
		i++
		if i == len(b) {
			i = 0
		}
	}
}

// NewSparse builds a sparse table sized to sizeFactor times
// expectedEntries (at least 4 buckets), resizing at fill >=
// resizeAtFill. background is returned by Score for any node not
// explicitly set.
func NewSparse(expectedEntries int, sizeFactor, resizeAtFill float64, background label.Weight) *Sparse {
	n := int(float64(expectedEntries) * sizeFactor)
	if n < 4 {
		n = 4
	}
	if resizeAtFill <= 0 || resizeAtFill >= 1 {
		resizeAtFill = 0.8
	}
	threshold := int(float64(n) * resizeAtFill)
	if threshold < 1 {
		threshold = 1
	}
	if threshold > n-1 {
		threshold = n - 1
	}
	return &Sparse{buckets: initSparseBuckets(n), background: background, threshold: threshold}
}

func (s *Sparse) Set(k NodeId, v label.Weight) {
	i, found := s.buckets.find(k)
	if !found {
		if s.numEntries >= s.threshold {
			s.resize(len(s.buckets) * 2)
			i, _ = s.buckets.find(k)
		}
		s.buckets[i].Key = k
		s.numEntries++
	}
	s.buckets[i].Value = v
}

func (s *Sparse) resize(n int) {
	if n < s.numEntries+1 {
		n = s.numEntries + 1
	}
	newBuckets := initSparseBuckets(n)
	for _, e := range s.buckets {
		if e.Key != NoNode {
			i, _ := newBuckets.find(e.Key)
			newBuckets[i] = e
		}
	}
	oldN := len(s.buckets)
	s.buckets = newBuckets
	s.threshold = s.threshold * n / oldN
	if s.threshold < s.numEntries {
		s.threshold = s.numEntries
	}
}

func (s *Sparse) Score(n NodeId) label.Weight {
	if i, found := s.buckets.find(n); found {
		return s.buckets[i].Value
	}
	return s.background
}

// BuildSparse sets an explicit score for every node with at least one
// word-end or child whose score beats the background, walking the
// tree bottom-up the same way BuildDense does, but only materializing
// entries that differ from background.
func BuildSparse(t *Tree, score ScoreFunc, background label.Weight, sizeFactor, resizeAtFill float64) *Sparse {
	computed := make([]label.Weight, t.NumNodes())
	nonTrivial := 0
	for id := t.NumNodes() - 1; id >= 0; id-- {
		n := NodeId(id)
		best := label.Zero
		for _, we := range t.WordEnds(n) {
			if c := score(we.Output) + we.Offset; c < best {
				best = c
			}
		}
		children := t.Children(n)
		for i, ch := range children {
			if c := computed[ch] + t.ChildWeight(n, i); c < best {
				best = c
			}
		}
		computed[id] = best
		if best < background {
			nonTrivial++
		}
	}
	s := NewSparse(nonTrivial, sizeFactor, resizeAtFill, background)
	for id, c := range computed {
		if c < background {
			s.Set(NodeId(id), c)
		}
	}
	return s
}
