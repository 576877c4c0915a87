package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/record"
)

// CounterKey is the record field written by Incrementer and read by Recorder
const CounterKey = "counter"

// NewCountingSource returns a source that emits count records, flags the
// last one end-of-stream, and then reports ResultEndOfStream. It is safe to
// share between pipelines: every record is emitted exactly once. Records coming
// back through Process are released and counted in released.
func NewCountingSource(name string, count int, released *atomic.Int64, log *EventLog) *MockNode {
	src := NewMockNode(name, node.RoleSource, log)
	var sent atomic.Int64
	src.DispatchFunc = func(_ context.Context, _, out *record.List) node.Result {
		n := sent.Add(1) - 1
		if n >= int64(count) {
			return node.ResultEndOfStream
		}
		r := record.New()
		var flags record.Flags
		if n == int64(count)-1 {
			flags = flags.Set(record.FlagEndOfStream)
		}
		r.SetInfo(record.Info{Flags: flags})
		out.Push(r)
		return node.ResultOK
	}
	src.ProcessFunc = func(_ context.Context, in, _ *record.List) node.Result {
		n := in.Release()
		if released != nil {
			released.Add(int64(n))
		}
		return node.ResultOK
	}
	return src
}

// NewIncrementer returns a connector that keeps a running count of the
// records it has seen and writes it to CounterKey on each record.
func NewIncrementer(name string, log *EventLog) *MockNode {
	c := NewMockNode(name, node.RoleConnector, log)
	counter := 0
	c.DispatchFunc = func(_ context.Context, in, out *record.List) node.Result {
		for {
			r, ok := in.Pop()
			if !ok {
				return node.ResultOK
			}
			counter++
			r.Set(CounterKey, counter)
			out.Push(r)
		}
	}
	return c
}

// Recorder is a sink that commits records in Process, remembering the last
// counter value, and reports ResultEndOfStream after an end-of-stream record.
type Recorder struct {
	*MockNode

	mu       sync.Mutex
	counters []int
}

// NewRecorder creates a recording sink
func NewRecorder(name string, log *EventLog) *Recorder {
	rec := &Recorder{MockNode: NewMockNode(name, node.RoleSink, log)}
	rec.ProcessFunc = func(_ context.Context, in, out *record.List) node.Result {
		res := node.ResultOK
		for {
			r, ok := in.Pop()
			if !ok {
				return res
			}
			v, _ := r.IntValue(CounterKey)
			rec.mu.Lock()
			rec.counters = append(rec.counters, v)
			rec.mu.Unlock()
			if r.Flags().Has(record.FlagEndOfStream) {
				res = node.ResultEndOfStream
			}
			out.Push(r)
		}
	}
	return rec
}

// Counters returns every counter value committed so far
func (r *Recorder) Counters() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.counters...)
}

// Last returns the last committed counter value
func (r *Recorder) Last() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.counters) == 0 {
		return 0, false
	}
	return r.counters[len(r.counters)-1], true
}
