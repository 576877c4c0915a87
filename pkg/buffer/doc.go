// # Overview
//
// Media stages allocate and discard many payload buffers of similar sizes.
// Cache lets a stage hand a finished buffer back so the next request of the
// same or smaller size can reuse it, without the cache itself keeping memory
// alive: slots hold weak pointers, so the garbage collector may reclaim a
// cached buffer at any time and the slot simply reads as empty.
//
// # Quick Start
//
//	cache, err := buffer.NewCache(8, buffer.WithMetrics(registry, "generator"))
//	if err != nil {
//		return err
//	}
//
//	buf := cache.Acquire(4096) // cached buffer of >= 4096 bytes, or a new one
//	_, _ = buf.Write(payload)
//	...
//	cache.Put(buf) // offer it back once no longer used
//
// # Replacement
//
// Every slot carries a power counter. Get increments the power of each live
// slot and takes the smallest buffer that fits. Put stores the buffer with
// power zero into an empty or collected slot if there is one, otherwise it
// evicts the slot with the highest power. Putting a buffer that is already
// cached only resets its power.
//
// Callers must not keep using a buffer after putting it back; a later Get may
// hand the same buffer to someone else.
//
// # Statistics
//
// Hits, misses, puts, evictions and collected slots are always counted:
//
//	stats := cache.Stats()
//	fmt.Printf("hit rate: %.2f\n", stats.HitRate())
package buffer
