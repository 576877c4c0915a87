// Package testutil provides scripted nodes and helpers for pipeline and task tests.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/record"
)

// EventLog records lifecycle and traversal events in order, so tests can
// assert on the sequence nodes were visited in. Safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event
func (l *EventLog) Add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

// Events returns a copy of the recorded events
func (l *EventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Reset clears the log
func (l *EventLog) Reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// MockNode is a node whose behaviour is scripted by the test. Without a
// DispatchFunc or ProcessFunc it passes records through. Set the exported
// fields before the node is added to a pipeline.
type MockNode struct {
	*node.Base

	// Log receives "open:<name>", "close:<name>", "dispatch:<name>" and
	// "process:<name>" events when set
	Log *EventLog

	OpenErr  error
	CloseErr error

	DispatchFunc node.StepFunc
	ProcessFunc  node.StepFunc

	openCalls     atomic.Int64
	closeCalls    atomic.Int64
	dispatchCalls atomic.Int64
	processCalls  atomic.Int64
}

// NewMockNode creates a pass-through node with the given role
func NewMockNode(name string, role node.Role, log *EventLog) *MockNode {
	m := &MockNode{Log: log}
	m.Base = node.NewBase(name, role, node.Hooks{
		Open: func() error {
			m.openCalls.Add(1)
			m.Log.Add("open:" + name)
			return m.OpenErr
		},
		Close: func() error {
			m.closeCalls.Add(1)
			m.Log.Add("close:" + name)
			return m.CloseErr
		},
	})
	return m
}

// Dispatch implements node.Node
func (m *MockNode) Dispatch(ctx context.Context, in, out *record.List) node.Result {
	m.dispatchCalls.Add(1)
	m.Log.Add("dispatch:" + m.Name())
	if !m.IsOpened() {
		return node.ResultNotOpen
	}
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, in, out)
	}
	return node.Pass(in, out)
}

// Process implements node.Node
func (m *MockNode) Process(ctx context.Context, in, out *record.List) node.Result {
	m.processCalls.Add(1)
	m.Log.Add("process:" + m.Name())
	if !m.IsOpened() {
		return node.ResultNotOpen
	}
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, in, out)
	}
	return node.Pass(in, out)
}

// OpenCalls returns how many times the open hook ran
func (m *MockNode) OpenCalls() int64 { return m.openCalls.Load() }

// CloseCalls returns how many times the close hook ran
func (m *MockNode) CloseCalls() int64 { return m.closeCalls.Load() }

// DispatchCalls returns how many times Dispatch was called
func (m *MockNode) DispatchCalls() int64 { return m.dispatchCalls.Load() }

// ProcessCalls returns how many times Process was called
func (m *MockNode) ProcessCalls() int64 { return m.processCalls.Load() }

// Results returns a step function that replays results in order and then
// repeats the last one. Records are passed through.
func Results(results ...node.Result) node.StepFunc {
	var mu sync.Mutex
	i := 0
	return func(_ context.Context, in, out *record.List) node.Result {
		mu.Lock()
		defer mu.Unlock()
		out.Drain(in)
		if len(results) == 0 {
			return node.ResultOK
		}
		r := results[min(i, len(results)-1)]
		i++
		return r
	}
}
