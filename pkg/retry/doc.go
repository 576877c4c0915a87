// Package retry provides the adaptive backoff scheduler for stages that busy-poll
// a resource which is not ready yet (an encoder with no output, a sink that is full,
// a paced source that is ahead of its clock).
//
// # Usage
//
// One attempt is bracketed by Begin and End; every retry inside it calls Wait:
//
//	s := retry.NewScheduler(retry.Realtime())
//
//	s.Begin()
//	for !resource.Ready() {
//	    if err := s.Wait(ctx); err != nil {
//	        break // stop requested
//	    }
//	}
//	s.End()
//
// # Adaptation
//
// The sleep starts at zero, where Wait only yields the processor. It moves one
// Step at a time and only in End:
//
//   - retries in the window >= HighThreshold: grow (the loop is struggling)
//   - retries in the window <= LowThreshold and sleep > 0: shrink (the loop is keeping up)
//
// MaxSleep caps growth. The sleep never goes negative.
//
// # Configuration Presets
//
//   - DefaultConfig(): 1ms step, no cap, thresholds 2/10
//   - Realtime(): 500µs step, 5ms cap, thresholds 1/4 (live media paths)
//   - Background(): 5ms step, 100ms cap, thresholds 2/8
//
// # Context Cancellation
//
// Wait returns ctx.Err() as soon as the context is done, including in the middle
// of a sleep. Cancellation is never swallowed: the context stays done, so the
// caller's next loop check observes it too.
//
// # Thread Safety
//
// A Scheduler may be shared, but its window counter is global to it; one
// scheduler per polling loop is the intended use.
package retry
