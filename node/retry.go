package node

import (
	"context"

	"github.com/c360/mediaflow/pkg/retry"
)

// Retry calls fn until it returns something other than ResultRetry, waiting
// on sched between attempts. The whole loop is one attempt window of the
// scheduler, so a struggling loop backs off more next time.
//
// If ctx is cancelled while waiting, Retry returns ResultRetry and leaves
// the cancellation on ctx for the caller to observe. With a nil scheduler
// fn is called once.
func Retry(ctx context.Context, sched *retry.Scheduler, fn func() Result) Result {
	if sched == nil {
		return fn()
	}

	sched.Begin()
	defer sched.End()

	res := fn()
	for res == ResultRetry {
		if err := sched.Wait(ctx); err != nil {
			return ResultRetry
		}
		res = fn()
	}
	return res
}
