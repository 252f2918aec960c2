package lookahead

import "container/list"

// History is an opaque key identifying an LM history (typically the
// result of lm.Model's ReducedHistory); the cache never interprets
// it, only hashes and compares it.
type History interface{}

// Stats tracks table-cache behavior: hit (an alive table was shared),
// freeHit (a reference-counted-to-zero table was reactivated instead
// of being rebuilt) and miss (a new table had to be constructed).
type Stats struct {
	Hits, FreeHits, Misses int
}

type entry struct {
	history  History
	table    Table
	refCount int
	elem     *list.Element
}

// Cache holds per-history look-ahead tables with cache-size-low /
// cache-size-high watermarks and least-recently-inactive eviction:
// tables are constructed on demand and memoized by key, evicted LRU
// once the cache is full, with active users reference-counted so a
// table in use is never evicted out from under them.
type Cache struct {
	sizeLow, sizeHigh int
	build             func(History) Table
	byHistory         map[History]*entry
	freeList          *list.List // inactive entries (refCount == 0), front = least recently freed
	Stats             Stats
}

// NewCache constructs a cache that builds tables with build on miss.
// Once more than sizeHigh tables are held, inactive tables are evicted
// until at most sizeLow remain or none is left to evict. Active tables
// are never evicted, and a miss builds its table after the eviction
// check, so the total can exceed sizeHigh.
func NewCache(sizeLow, sizeHigh int, build func(History) Table) *Cache {
	return &Cache{
		sizeLow: sizeLow, sizeHigh: sizeHigh, build: build,
		byHistory: make(map[History]*entry),
		freeList:  list.New(),
	}
}

// Acquire returns the table for history, constructing it if
// necessary, and increments its reference count. The caller must call
// Release when done with the table.
func (c *Cache) Acquire(h History) Table {
	if e, ok := c.byHistory[h]; ok {
		if e.refCount == 0 {
			c.freeList.Remove(e.elem)
			e.elem = nil
			c.Stats.FreeHits++
		} else {
			c.Stats.Hits++
		}
		e.refCount++
		return e.table
	}
	c.Stats.Misses++
	c.evictIfNeeded()
	e := &entry{history: h, table: c.build(h), refCount: 1}
	c.byHistory[h] = e
	return e.table
}

// Release decrements history's reference count; once it reaches zero
// the table becomes eligible for eviction but is kept around until
// cache-size-high forces a reclaim.
func (c *Cache) Release(h History) {
	e, ok := c.byHistory[h]
	if !ok || e.refCount == 0 {
		return
	}
	e.refCount--
	if e.refCount == 0 {
		e.elem = c.freeList.PushBack(h)
		c.evictIfNeeded()
	}
}

// evictIfNeeded reclaims inactive tables, oldest-freed first, once
// the total table count exceeds sizeHigh, stopping at sizeLow or once
// there is nothing left to evict (active tables are never evicted).
func (c *Cache) evictIfNeeded() {
	total := len(c.byHistory)
	if total <= c.sizeHigh {
		return
	}
	for total > c.sizeLow && c.freeList.Len() > 0 {
		front := c.freeList.Front()
		h := front.Value.(History)
		c.freeList.Remove(front)
		delete(c.byHistory, h)
		total--
	}
}

// Len reports the number of tables currently held (active or free).
func (c *Cache) Len() int { return len(c.byHistory) }
