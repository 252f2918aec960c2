package lm

import (
	"bytes"
	"encoding/gob"

	"github.com/kho/word"
)

// hashWordId is fast-hash (https://code.google.com/p/fast-hash)
// specialized to the 32-bit word.Id key these open-addressed tables
// use.
func hashWordId(k word.Id) uint {
	h := uint64(k)
	h ^= h >> 23
	h *= 0x2127599bf4325c37
	h ^= h >> 47
	return uint(h)
}

func sameWordId(a, b word.Id) bool {
	return a == b
}

type openEntry struct {
	Key   word.Id
	Value StateWeight
}

type openMap struct {
	buckets               openBuckets
	numEntries, threshold int
}

func newOpenMap(initNumBuckets int, maxUsed float64) *openMap {
	if initNumBuckets == 0 {
		initNumBuckets = 4
	} else if initNumBuckets < 2 {
		initNumBuckets = 2
	}
	if maxUsed <= 0 || maxUsed >= 1 {
		maxUsed = 0.8
	}
	// threshold = min(max(1, initNumBuckets * maxUsed), initNumBuckets-1)
	threshold := int(float64(initNumBuckets) * maxUsed)
	if threshold < 1 {
		threshold = 1
	}
	if threshold > initNumBuckets-1 {
		threshold = initNumBuckets - 1
	}
	return &openMap{initOpenBuckets(initNumBuckets), 0, threshold}
}

func (m *openMap) Size() int {
	return m.numEntries
}

func (m *openMap) Find(k word.Id) *StateWeight {
	return m.buckets.Find(k)
}

func (m *openMap) FindOrInsert(k word.Id) *StateWeight {
	e := m.buckets.FindEntry(k)
	if e.Key != word.NIL {
		return &e.Value
	}
	// Need to insert.
	if m.numEntries >= m.threshold {
		m.Resize(len(m.buckets) * 2)
		e = m.buckets.nextAvailable(k)
	}
	*e = openEntry{Key: k}
	m.numEntries++
	return &e.Value
}

func (m *openMap) Resize(numBuckets int) {
	if numBuckets < m.numEntries+1 {
		numBuckets = m.numEntries + 1
	}
	buckets := initOpenBuckets(numBuckets)
	for _, e := range m.buckets {
		k := e.Key
		if !sameWordId(k, word.NIL) {
			dst := buckets.nextAvailable(k)
			*dst = e
		}
	}
	oldNumBuckets := len(m.buckets)
	m.buckets = buckets
	m.threshold = m.threshold * numBuckets / oldNumBuckets
	if m.threshold < m.numEntries {
		m.threshold = m.numEntries
	}
}

func (m *openMap) Range() chan openEntry {
	return m.buckets.Range()
}

func (m *openMap) MarshalBinary() (data []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err = enc.Encode(m.buckets); err != nil {
		return
	}
	if err = enc.Encode(m.numEntries); err != nil {
		return
	}
	if err = enc.Encode(m.threshold); err != nil {
		return
	}
	return buf.Bytes(), nil
}

func (m *openMap) UnmarshalBinary(data []byte) (err error) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err = dec.Decode(&m.buckets); err != nil {
		return
	}
	if err = dec.Decode(&m.numEntries); err != nil {
		return
	}
	if err = dec.Decode(&m.threshold); err != nil {
		return
	}
	return nil
}

type openBuckets []openEntry

func initOpenBuckets(n int) openBuckets {
	s := make(openBuckets, n)
	for i := range s {
		s[i].Key = word.NIL
	}
	return s
}

func (b openBuckets) Size() (n int) {
	for _, e := range b {
		if e.Key != word.NIL {
			n++
		}
	}
	return
}

// var numLookUps, numCollisions int

func (b openBuckets) Find(k word.Id) (v *StateWeight) {
	// numLookUps++
	i := b.start(k)
	for {
		// Maybe switch to range to trade 1 bound check for 1 copy?
		ei := &b[i]
		ki := ei.Key
		if sameWordId(ki, k) {
			return &ei.Value
		}
		if sameWordId(ki, word.NIL) {
			return nil
		}
		// numCollisions++
		i++
		if i == len(b) {
			i = 0
		}
	}
}

func (b openBuckets) FindEntry(k word.Id) *openEntry {
	i := b.start(k)
	for {
		ei := &b[i]
		ki := ei.Key
		if sameWordId(ki, k) || sameWordId(ki, word.NIL) {
			return ei
		}
		i++
		if i == len(b) {
			i = 0
		}
	}
}

func (b openBuckets) Range() chan openEntry {
	ch := make(chan openEntry)
	go func() {
		for _, e := range b {
			if e.Key != word.NIL {
				ch <- e
			}
		}
		close(ch)
	}()
	return ch
}

func (b openBuckets) start(k word.Id) int {
	return int(hashWordId(k) % uint(len(b)))
}

func (b openBuckets) nextAvailable(k word.Id) *openEntry {
	i := b.start(k)
	for {
		ei := &b[i]
		if sameWordId(ei.Key, word.NIL) {
			return ei
		}
		i++
		if i == len(b) {
			i = 0
		}
	}
}
