package node

import (
	"context"

	"github.com/c360/mediaflow/record"
)

// StepFunc is the signature of a dispatch or process callback.
type StepFunc func(ctx context.Context, in, out *record.List) Result

// Func is a Node assembled from callbacks. A nil Dispatch or Process passes
// records through unchanged.
type Func struct {
	*Base
	dispatch StepFunc
	process  StepFunc
}

// NewFunc builds a node from callbacks.
func NewFunc(name string, role Role, hooks Hooks, dispatch, process StepFunc) *Func {
	return &Func{
		Base:     NewBase(name, role, hooks),
		dispatch: dispatch,
		process:  process,
	}
}

// Dispatch implements Node
func (f *Func) Dispatch(ctx context.Context, in, out *record.List) Result {
	if !f.IsOpened() {
		return ResultNotOpen
	}
	if f.dispatch == nil {
		return Pass(in, out)
	}
	return f.dispatch(ctx, in, out)
}

// Process implements Node
func (f *Func) Process(ctx context.Context, in, out *record.List) Result {
	if !f.IsOpened() {
		return ResultNotOpen
	}
	if f.process == nil {
		return Pass(in, out)
	}
	return f.process(ctx, in, out)
}
