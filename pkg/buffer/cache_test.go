package buffer

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/c360/mediaflow/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, slots int, opts ...Option) *Cache {
	t.Helper()
	c, err := NewCache(slots, opts...)
	require.NoError(t, err)
	return c
}

func TestNewCache_RejectsNonPositiveSlots(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := NewCache(n)
		assert.Error(t, err)
	}
}

func TestCache_EmptyGetMisses(t *testing.T) {
	c := newTestCache(t, 4)

	b, ok := c.Get(16)
	assert.False(t, ok)
	assert.Nil(t, b)
	assert.Equal(t, int64(1), c.Stats().Misses())
}

func TestCache_PutThenGet(t *testing.T) {
	c := newTestCache(t, 4)
	in := NewBuffer(64)
	_, err := in.Write([]byte("hello"))
	require.NoError(t, err)

	c.Put(in)
	assert.Equal(t, 1, c.Len())

	out, ok := c.Get(32)
	require.True(t, ok)
	assert.Same(t, in, out)
	assert.Equal(t, 0, out.Len(), "buffer handed out again must be empty")
	assert.Equal(t, 0, c.Len())

	_, ok = c.Get(32)
	assert.False(t, ok, "buffer must be removed from the cache on get")
	runtime.KeepAlive(in)
}

func TestCache_GetTooLargeMisses(t *testing.T) {
	c := newTestCache(t, 2)
	small := NewBuffer(8)
	c.Put(small)

	_, ok := c.Get(9)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	runtime.KeepAlive(small)
}

func TestCache_BestFit(t *testing.T) {
	c := newTestCache(t, 4)
	big := NewBuffer(1024)
	mid := NewBuffer(256)
	small := NewBuffer(64)
	c.Put(big)
	c.Put(mid)
	c.Put(small)

	got, ok := c.Get(100)
	require.True(t, ok)
	assert.Same(t, mid, got)

	got, ok = c.Get(10)
	require.True(t, ok)
	assert.Same(t, small, got)

	got, ok = c.Get(10)
	require.True(t, ok)
	assert.Same(t, big, got)

	runtime.KeepAlive(big)
	runtime.KeepAlive(mid)
	runtime.KeepAlive(small)
}

func TestCache_EvictsHighestPower(t *testing.T) {
	var evicted []*Buffer
	c := newTestCache(t, 3, WithEvictCallback(func(b *Buffer) {
		evicted = append(evicted, b)
	}))

	a := NewBuffer(8)
	b := NewBuffer(8)
	cc := NewBuffer(8)
	d := NewBuffer(8)

	c.Put(a)
	_, ok := c.Get(1 << 20) // ages a
	require.False(t, ok)
	c.Put(b)
	_, ok = c.Get(1 << 20) // ages a and b
	require.False(t, ok)
	c.Put(cc)

	c.Put(d)

	require.Len(t, evicted, 1)
	assert.Same(t, a, evicted[0])
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions())

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	runtime.KeepAlive(cc)
	runtime.KeepAlive(d)
}

func TestCache_EvictionTieBreaksByScanOrder(t *testing.T) {
	var evicted []*Buffer
	c := newTestCache(t, 2, WithEvictCallback(func(b *Buffer) {
		evicted = append(evicted, b)
	}))

	first := NewBuffer(8)
	second := NewBuffer(8)
	third := NewBuffer(8)
	c.Put(first)
	c.Put(second)
	c.Put(third)

	require.Len(t, evicted, 1)
	assert.Same(t, first, evicted[0])

	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
	runtime.KeepAlive(third)
}

func TestCache_RePutRefreshesPower(t *testing.T) {
	var evicted []*Buffer
	c := newTestCache(t, 2, WithEvictCallback(func(b *Buffer) {
		evicted = append(evicted, b)
	}))

	a := NewBuffer(8)
	b := NewBuffer(8)
	c.Put(a)
	_, _ = c.Get(1 << 20)
	c.Put(b)
	_, _ = c.Get(1 << 20)

	c.Put(a) // a is fresh again, b is now the oldest
	assert.Equal(t, 2, c.Len())

	n := NewBuffer(8)
	c.Put(n)

	require.Len(t, evicted, 1)
	assert.Same(t, b, evicted[0])

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	runtime.KeepAlive(n)
}

func putUnreferenced(c *Cache, size int) {
	c.Put(NewBuffer(size))
}

func TestCache_CollectedBuffersInvalidateSlots(t *testing.T) {
	c := newTestCache(t, 4)
	putUnreferenced(c, 128)
	putUnreferenced(c, 256)

	assert.Eventually(t, func() bool {
		runtime.GC()
		return c.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, int64(2), c.Stats().InvalidatedSlots())

	// collected slots are reused before anything is evicted
	var evictions int
	c2 := newTestCache(t, 1, WithEvictCallback(func(*Buffer) { evictions++ }))
	putUnreferenced(c2, 8)
	assert.Eventually(t, func() bool {
		runtime.GC()
		return c2.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
	keep := NewBuffer(8)
	c2.Put(keep)
	assert.Equal(t, 0, evictions)
	runtime.KeepAlive(keep)
}

func TestCache_Acquire(t *testing.T) {
	c := newTestCache(t, 2)

	fresh := c.Acquire(32)
	assert.GreaterOrEqual(t, fresh.Cap(), 32)
	assert.Equal(t, int64(1), c.Stats().Allocations())

	c.Put(fresh)
	again := c.Acquire(16)
	assert.Same(t, fresh, again)
	assert.Equal(t, int64(1), c.Stats().Allocations())
	runtime.KeepAlive(fresh)
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, 2)
	a := NewBuffer(8)
	c.Put(a)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)
	runtime.KeepAlive(a)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(t, 8)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b := c.Acquire(64 + i%32)
				_, _ = b.Write([]byte{byte(i)})
				c.Put(b)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 8)
	assert.Equal(t, int64(1600), c.Stats().Puts())
}

func TestCache_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	c := newTestCache(t, 2, WithMetrics(registry, "test_cache"))
	require.NotNil(t, c.metrics)

	b := NewBuffer(16)
	c.Put(b)
	_, ok := c.Get(8)
	require.True(t, ok)
	_, ok = c.Get(8)
	require.False(t, ok)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.puts))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.misses))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.metrics.occupied))

	_, err := NewCache(2, WithMetrics(registry, "test_cache"))
	assert.Error(t, err, "duplicate registration must fail")
	runtime.KeepAlive(b)
}

func TestBuffer_Bounds(t *testing.T) {
	b := NewBuffer(4)
	n, err := b.Write([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = b.Write([]byte("e"))
	assert.Error(t, err)

	require.NoError(t, b.SetLen(2))
	assert.Equal(t, []byte("ab"), b.Bytes())
	assert.Error(t, b.SetLen(5))

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 4, b.Cap())
}
