package buffer

import (
	"sync"
	"weak"

	"github.com/c360/mediaflow/errors"
)

// EvictCallback is called with a live buffer pushed out of the cache by Put.
type EvictCallback func(*Buffer)

type slot struct {
	ref   weak.Pointer[Buffer]
	power uint64
	used  bool
}

// Cache keeps a fixed number of weakly referenced buffers for reuse.
//
// The cache never keeps a buffer alive: a buffer that nobody else references
// may be collected at any time, and its slot then reads as empty. Each slot
// carries a power counter that ages on every Get; Put stores a buffer with
// power zero and, when every slot is live, evicts the one with the highest
// power.
type Cache struct {
	mu    sync.Mutex
	slots []slot

	stats   *Statistics
	metrics *cacheMetrics
	onEvict EvictCallback
}

// NewCache creates a cache with the given number of slots.
func NewCache(slots int, opts ...Option) (*Cache, error) {
	if slots <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Cache", "NewCache",
			"slots must be positive")
	}

	o := applyOptions(opts...)
	c := &Cache{
		slots:   make([]slot, slots),
		stats:   NewStatistics(),
		onEvict: o.evictCallback,
	}

	if o.metricsReg != nil {
		m, err := newCacheMetrics(o.metricsReg, o.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "Cache", "NewCache", "metrics registration")
		}
		c.metrics = m
	}

	return c, nil
}

// Get removes and returns the smallest cached buffer with capacity of at
// least size. Every live slot ages by one, whether or not a buffer is found.
func (c *Cache) Get(size int) (*Buffer, bool) {
	c.mu.Lock()

	var (
		best    *Buffer
		bestIdx = -1
		live    int64
	)
	for i := range c.slots {
		s := &c.slots[i]
		if !s.used {
			continue
		}
		b := s.ref.Value()
		if b == nil {
			*s = slot{}
			c.stats.Invalidated()
			continue
		}
		s.power++
		live++
		if b.Cap() >= size && (best == nil || b.Cap() < best.Cap()) {
			best, bestIdx = b, i
		}
	}

	if bestIdx >= 0 {
		c.slots[bestIdx] = slot{}
		live--
	}
	c.mu.Unlock()

	c.stats.UpdateOccupied(live)
	if c.metrics != nil {
		c.metrics.occupied.Set(float64(live))
	}

	if best == nil {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.misses.Inc()
		}
		return nil, false
	}

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
	best.Reset()
	return best, true
}

// Put offers a buffer to the cache. A buffer that is already cached only has
// its power reset. Empty or collected slots are filled first; otherwise the
// slot with the highest power is evicted, the first one scanned on ties.
func (c *Cache) Put(b *Buffer) {
	if b == nil {
		return
	}

	c.mu.Lock()

	target := -1
	free := -1
	oldest := -1
	var live int64
	for i := range c.slots {
		s := &c.slots[i]
		if !s.used {
			if free < 0 {
				free = i
			}
			continue
		}
		v := s.ref.Value()
		if v == nil {
			*s = slot{}
			c.stats.Invalidated()
			if free < 0 {
				free = i
			}
			continue
		}
		live++
		if v == b {
			target = i
		}
		if oldest < 0 || s.power > c.slots[oldest].power {
			oldest = i
		}
	}

	var evicted *Buffer
	switch {
	case target >= 0:
		c.slots[target].power = 0
	case free >= 0:
		c.slots[free] = slot{ref: weak.Make(b), used: true}
		live++
	default:
		evicted = c.slots[oldest].ref.Value()
		c.slots[oldest] = slot{ref: weak.Make(b), used: true}
	}
	c.mu.Unlock()

	c.stats.Put()
	c.stats.UpdateOccupied(live)
	if c.metrics != nil {
		c.metrics.puts.Inc()
		c.metrics.occupied.Set(float64(live))
	}

	if evicted != nil {
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.evictions.Inc()
		}
		if c.onEvict != nil {
			c.onEvict(evicted)
		}
	}
}

// Acquire returns a cached buffer of at least size bytes, allocating a new one
// on a miss. The returned buffer has zero length.
func (c *Cache) Acquire(size int) *Buffer {
	if b, ok := c.Get(size); ok {
		return b
	}
	c.stats.Allocation()
	return NewBuffer(size)
}

// Len returns the number of slots currently holding a live buffer.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for i := range c.slots {
		if c.slots[i].used && c.slots[i].ref.Value() != nil {
			n++
		}
	}
	return n
}

// Slots returns the number of slots the cache was created with.
func (c *Cache) Slots() int {
	return len(c.slots)
}

// Clear drops every cached buffer.
func (c *Cache) Clear() {
	c.mu.Lock()
	for i := range c.slots {
		c.slots[i] = slot{}
	}
	c.mu.Unlock()

	c.stats.UpdateOccupied(0)
	if c.metrics != nil {
		c.metrics.occupied.Set(0)
	}
}

// Stats returns the cache statistics.
func (c *Cache) Stats() *Statistics {
	return c.stats
}
