package record

import (
	"sync"
	"sync/atomic"

	"github.com/c360/mediaflow/pkg/buffer"
)

// Pool recycles released record shells and returns their payload buffers
// to a buffer cache.
//
// Records obtained from a pool must not be used after Release: the shell
// may already have been handed to another caller.
type Pool struct {
	pool  sync.Pool
	cache *buffer.Cache

	stats struct {
		allocated int64
		gets      int64
		recycled  int64
	}
}

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	Allocated int64 `json:"allocated"`
	Gets      int64 `json:"gets"`
	Recycled  int64 `json:"recycled"`
}

// NewPool creates a record pool. cache may be nil, in which case buffers
// are left to the garbage collector on release.
func NewPool(cache *buffer.Cache) *Pool {
	p := &Pool{cache: cache}
	p.pool.New = func() any {
		atomic.AddInt64(&p.stats.allocated, 1)
		return New()
	}
	return p
}

// Get returns an empty record that recycles itself into the pool when
// released.
func (p *Pool) Get() *Record {
	atomic.AddInt64(&p.stats.gets, 1)
	r := p.pool.Get().(*Record)
	r.reset(p.recycle)
	return r
}

// GetWithBuffer returns a record carrying a zero-length buffer with at least
// size bytes of capacity, drawn from the cache when possible.
func (p *Pool) GetWithBuffer(size int) *Record {
	r := p.Get()
	var b *buffer.Buffer
	if p.cache != nil {
		b = p.cache.Acquire(size)
	} else {
		b = buffer.NewBuffer(size)
	}
	r.SetBuffer(b)
	return r
}

// Cache returns the buffer cache backing the pool, or nil.
func (p *Pool) Cache() *buffer.Cache {
	return p.cache
}

// Stats returns pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Allocated: atomic.LoadInt64(&p.stats.allocated),
		Gets:      atomic.LoadInt64(&p.stats.gets),
		Recycled:  atomic.LoadInt64(&p.stats.recycled),
	}
}

func (p *Pool) recycle(r *Record, buf *buffer.Buffer) {
	if buf != nil && p.cache != nil {
		p.cache.Put(buf)
	}
	atomic.AddInt64(&p.stats.recycled, 1)
	p.pool.Put(r)
}
