package router

import (
	"container/list"
	"sync"
)

// cacheEntry is one remembered lookup result. A nil match records that the
// lookup failed, so repeated requests for unknown paths are answered
// without touching the trie.
type cacheEntry struct {
	key   string
	match *RouteMatch // nil for a remembered miss
}

// CacheStats is a snapshot of route cache counters.
type CacheStats struct {
	// Size is the current number of remembered lookups, hits and misses
	// both counting.
	Size int

	// Capacity is the configured maximum size.
	Capacity int

	// Hits and Misses count Get outcomes since the last Clear.
	Hits   uint64
	Misses uint64

	// Evictions counts entries dropped to make room since the last Clear.
	Evictions uint64
}

// routeCache is a strict LRU over lookup results, keyed "METHOD path".
// Every Get moves the entry to the front; Set evicts from the back once
// the capacity is reached. All operations take the one mutex, which is
// cheaper than it looks next to the map work it guards.
type routeCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	hits      uint64
	misses    uint64
	evictions uint64
}

func newRouteCache(capacity int) *routeCache {
	return &routeCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// get returns the remembered entry for key. ok distinguishes "not cached"
// from a cached miss, whose entry has a nil match.
func (c *routeCache) get(key string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return elem.Value.(*cacheEntry), true
}

// set remembers a lookup result for key, evicting the least recently used
// entry when full.
func (c *routeCache) set(key string, match *RouteMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).match = match
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.evictions++
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, match: match})
}

// clear drops every entry and resets the counters. Called whenever the
// route table changes, since any remembered result may now be stale.
func (c *routeCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.capacity)
	c.order = list.New()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// stats returns a snapshot of the counters.
func (c *routeCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:      len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
