package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks buffer cache performance.
type Statistics struct {
	// Atomic counters for thread-safe updates
	hits        int64
	misses      int64
	puts        int64
	evictions   int64
	invalidated int64
	allocations int64

	// Protected by mutex
	mu        sync.RWMutex
	startTime time.Time
	occupied  int64
	maxOccup  int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Hit records a Get that returned a cached buffer.
func (s *Statistics) Hit() {
	atomic.AddInt64(&s.hits, 1)
}

// Miss records a Get with no sufficient buffer.
func (s *Statistics) Miss() {
	atomic.AddInt64(&s.misses, 1)
}

// Put records a buffer handed back to the cache.
func (s *Statistics) Put() {
	atomic.AddInt64(&s.puts, 1)
}

// Eviction records a live buffer pushed out by a Put.
func (s *Statistics) Eviction() {
	atomic.AddInt64(&s.evictions, 1)
}

// Invalidated records a slot found empty because its buffer was collected.
func (s *Statistics) Invalidated() {
	atomic.AddInt64(&s.invalidated, 1)
}

// Allocation records a fresh allocation made by Acquire after a miss.
func (s *Statistics) Allocation() {
	atomic.AddInt64(&s.allocations, 1)
}

// UpdateOccupied updates the number of live slots.
func (s *Statistics) UpdateOccupied(n int64) {
	s.mu.Lock()
	s.occupied = n
	if n > s.maxOccup {
		s.maxOccup = n
	}
	s.mu.Unlock()
}

// Hits returns the total number of hits.
func (s *Statistics) Hits() int64 {
	return atomic.LoadInt64(&s.hits)
}

// Misses returns the total number of misses.
func (s *Statistics) Misses() int64 {
	return atomic.LoadInt64(&s.misses)
}

// Puts returns the total number of puts.
func (s *Statistics) Puts() int64 {
	return atomic.LoadInt64(&s.puts)
}

// Evictions returns the total number of evictions.
func (s *Statistics) Evictions() int64 {
	return atomic.LoadInt64(&s.evictions)
}

// InvalidatedSlots returns how many slots were found collected.
func (s *Statistics) InvalidatedSlots() int64 {
	return atomic.LoadInt64(&s.invalidated)
}

// Allocations returns how many buffers Acquire had to allocate.
func (s *Statistics) Allocations() int64 {
	return atomic.LoadInt64(&s.allocations)
}

// Occupied returns the number of live slots at the last update.
func (s *Statistics) Occupied() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occupied
}

// MaxOccupied returns the highest number of live slots seen.
func (s *Statistics) MaxOccupied() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxOccup
}

// HitRate returns hits / (hits + misses), 0.0 when nothing was requested.
func (s *Statistics) HitRate() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Uptime returns how long the cache has been running.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Reset resets all statistics to zero.
func (s *Statistics) Reset() {
	atomic.StoreInt64(&s.hits, 0)
	atomic.StoreInt64(&s.misses, 0)
	atomic.StoreInt64(&s.puts, 0)
	atomic.StoreInt64(&s.evictions, 0)
	atomic.StoreInt64(&s.invalidated, 0)
	atomic.StoreInt64(&s.allocations, 0)

	s.mu.Lock()
	s.startTime = time.Now()
	s.occupied = 0
	s.maxOccup = 0
	s.mu.Unlock()
}

// StatsSummary returns a snapshot of all statistics.
type StatsSummary struct {
	Hits        int64         `json:"hits"`
	Misses      int64         `json:"misses"`
	Puts        int64         `json:"puts"`
	Evictions   int64         `json:"evictions"`
	Invalidated int64         `json:"invalidated"`
	Allocations int64         `json:"allocations"`
	Occupied    int64         `json:"occupied"`
	MaxOccupied int64         `json:"max_occupied"`
	HitRate     float64       `json:"hit_rate"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Hits:        s.Hits(),
		Misses:      s.Misses(),
		Puts:        s.Puts(),
		Evictions:   s.Evictions(),
		Invalidated: s.InvalidatedSlots(),
		Allocations: s.Allocations(),
		Occupied:    s.Occupied(),
		MaxOccupied: s.MaxOccupied(),
		HitRate:     s.HitRate(),
		Uptime:      s.Uptime(),
	}
}
