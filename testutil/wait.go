package testutil

import (
	"testing"
	"time"
)

// Waiter is anything with a blocking WaitForFinish, such as a pipeline or task
type Waiter interface {
	WaitForFinish()
}

// WaitForFinish fails the test if w does not finish within timeout
func WaitForFinish(t testing.TB, w Waiter, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		w.WaitForFinish()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("did not finish within %s", timeout)
	}
}

// WaitFor polls cond until it returns true or timeout expires
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}
