package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/metric"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/pkg/retry"
	"github.com/c360/mediaflow/record"
)

// State represents the runtime state of a pipeline
type State int32

const (
	// StateNotStarted indicates the pipeline is still being built
	StateNotStarted State = iota
	// StateRunning indicates the worker goroutine is running
	StateRunning
	// StateStopping indicates the run loop ended and nodes are being closed
	StateStopping
	// StateStopped indicates the worker goroutine has exited
	StateStopped
)

// String returns a string representation of the pipeline state
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Pipeline is an ordered chain of nodes driven by one worker goroutine.
//
// Each iteration calls Dispatch from head to tail, stopping at the first
// node that does not return ResultOK, then Process from that node back to
// the head. The iteration result is the most severe code seen; the loop
// backs off on ResultRetry and ends on anything more severe.
type Pipeline struct {
	name     string
	logger   *slog.Logger
	metrics  *metric.Metrics
	sched    *retry.Scheduler
	external func(node.Node) bool

	mu      sync.Mutex
	nodes   []node.Node
	hasHead bool
	hasTail bool
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	state       atomic.Int32
	result      atomic.Int64
	iterations  atomic.Int64
	interrupted atomic.Bool
}

// New creates an empty pipeline
func New(name string, opts ...Option) *Pipeline {
	o := applyOptions(opts...)

	p := &Pipeline{
		name:     name,
		logger:   o.logger.With("pipeline", name),
		external: o.external,
		sched:    o.scheduler,
	}

	if o.registry != nil {
		p.metrics = o.registry.CoreMetrics()
	}
	if p.sched == nil {
		schedOpts := []retry.Option{retry.WithLogger(p.logger)}
		if o.registry != nil {
			schedOpts = append(schedOpts, retry.WithMetrics(o.registry, "pipeline_"+name))
		}
		p.sched = retry.NewScheduler(o.retry, schedOpts...)
	}
	return p
}

// Name returns the pipeline name
func (p *Pipeline) Name() string { return p.name }

// AddNode inserts n according to its role: a source becomes the head, a sink
// becomes the tail, and a connector is placed just before the tail, or at
// the end of the chain while there is no tail yet. Topology errors are fatal.
func (p *Pipeline) AddNode(n node.Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Pipeline", "AddNode", "topology change")
	}
	if n == nil {
		return errors.WrapFatal(errors.ErrNilNode, "Pipeline", "AddNode", "node check")
	}
	for _, existing := range p.nodes {
		if existing.Name() == n.Name() {
			return errors.WrapFatal(
				fmt.Errorf("%w: %w: node '%s'", errors.ErrInvalidTopology, errors.ErrDuplicateName, n.Name()),
				"Pipeline", "AddNode", "name check")
		}
	}

	switch n.Role() {
	case node.RoleSource:
		if p.hasHead {
			return errors.WrapFatal(errors.ErrDuplicateHead, "Pipeline", "AddNode", "head insert")
		}
		p.nodes = slices.Insert(p.nodes, 0, n)
		p.hasHead = true
	case node.RoleSink:
		if p.hasTail {
			return errors.WrapFatal(errors.ErrDuplicateTail, "Pipeline", "AddNode", "tail insert")
		}
		p.nodes = append(p.nodes, n)
		p.hasTail = true
	case node.RoleConnector:
		switch {
		case !p.hasHead && !p.hasTail:
			return errors.WrapFatal(errors.ErrDanglingConnector, "Pipeline", "AddNode", "connector insert")
		case p.hasTail:
			p.nodes = slices.Insert(p.nodes, len(p.nodes)-1, n)
		default:
			p.nodes = append(p.nodes, n)
		}
	default:
		return errors.WrapFatal(
			fmt.Errorf("%w: %s", errors.ErrUnknownRole, n.Role()), "Pipeline", "AddNode", "role check")
	}
	return nil
}

// MustAddNode is AddNode for static graphs; it panics on a topology error.
func (p *Pipeline) MustAddNode(n node.Node) *Pipeline {
	if err := p.AddNode(n); err != nil {
		panic(err)
	}
	return p
}

// Validate reports whether the chain has both a head and a tail
func (p *Pipeline) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validateLocked()
}

func (p *Pipeline) validateLocked() error {
	if !p.hasHead {
		return errors.WrapFatal(errors.ErrMissingHead, "Pipeline", "Validate", "head check")
	}
	if !p.hasTail {
		return errors.WrapFatal(errors.ErrMissingTail, "Pipeline", "Validate", "tail check")
	}
	return nil
}

// Nodes returns the chain from head to tail
func (p *Pipeline) Nodes() []node.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.nodes)
}

// State returns the current runtime state
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Result returns the last folded iteration result. After the pipeline stops
// it is the result that ended the run loop, or ResultError when opening the
// nodes failed.
func (p *Pipeline) Result() node.Result {
	return node.Result(p.result.Load())
}

// Err returns the open or close failure recorded by the worker, if any
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Iterations returns the number of completed dispatch/process iterations
func (p *Pipeline) Iterations() int64 {
	return p.iterations.Load()
}

// Interrupted reports whether the run loop ended because of Stop or a
// cancelled context rather than a terminal result
func (p *Pipeline) Interrupted() bool {
	return p.interrupted.Load()
}

// Scheduler returns the scheduler used to back off retrying iterations
func (p *Pipeline) Scheduler() *retry.Scheduler {
	return p.sched
}

// Start validates the chain and launches the worker goroutine. Starting a
// running pipeline is a no-op. Cancelling ctx has the same effect as Stop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	if err := p.validateLocked(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true
	p.setState(StateRunning)

	nodes := slices.Clone(p.nodes)
	go p.run(runCtx, nodes)
	return nil
}

// Stop interrupts the worker goroutine. The run loop notices at the top of
// the next iteration or inside a retry wait, then closes the nodes.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// WaitForFinish blocks until the worker goroutine exits. It returns
// immediately if the pipeline was never started.
func (p *Pipeline) WaitForFinish() {
	if done := p.Done(); done != nil {
		<-done
	}
}

// Done returns a channel closed when the worker exits, or nil before Start
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return nil
	}
	return p.done
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
	if p.metrics != nil {
		p.metrics.RecordPipelineState(p.name, int(s))
	}
}

func (p *Pipeline) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *Pipeline) managed(n node.Node) bool {
	return p.external == nil || !p.external(n)
}

func (p *Pipeline) run(ctx context.Context, nodes []node.Node) {
	defer close(p.done)
	defer p.setState(StateStopped)
	defer p.cancel()

	p.logger.Info("Pipeline starting", "nodes", len(nodes))

	opened, err := p.openNodes(nodes)
	if err != nil {
		p.result.Store(int64(node.ResultError))
		p.setErr(err)
		p.logger.Error("Pipeline failed to open nodes", "error", err)
		return
	}

	res := p.loop(ctx, nodes)
	p.result.Store(int64(res))

	p.setState(StateStopping)
	if err := p.closeNodes(opened); err != nil {
		p.setErr(err)
	}

	p.logger.Info("Pipeline stopped",
		"result", res.String(),
		"iterations", p.iterations.Load(),
		"interrupted", p.interrupted.Load())
}

// openNodes opens managed nodes head to tail. On failure the nodes opened so
// far are closed again and the open error is returned.
func (p *Pipeline) openNodes(nodes []node.Node) ([]node.Node, error) {
	opened := make([]node.Node, 0, len(nodes))
	for _, n := range nodes {
		if !p.managed(n) {
			continue
		}
		if err := n.Open(); err != nil {
			if p.metrics != nil {
				p.metrics.RecordNodeError(n.Name(), "open")
			}
			if closeErr := p.closeNodes(opened); closeErr != nil {
				p.logger.Warn("Cleanup after failed open also failed", "error", closeErr)
			}
			return nil, errors.Wrap(err, "Pipeline", "run", "open node "+n.Name())
		}
		opened = append(opened, n)
	}
	return opened, nil
}

// closeNodes closes nodes tail to head. Every node is attempted; the first
// failure is returned and later ones are logged.
func (p *Pipeline) closeNodes(opened []node.Node) error {
	var first error
	for i := len(opened) - 1; i >= 0; i-- {
		n := opened[i]
		if err := n.Close(); err != nil {
			if p.metrics != nil {
				p.metrics.RecordNodeError(n.Name(), "close")
			}
			if first == nil {
				first = errors.Wrap(err, "Pipeline", "run", "close node "+n.Name())
				continue
			}
			p.logger.Warn("Node close failed", "node", n.Name(), "error", err)
		}
	}
	return first
}

type observers struct {
	dispatch prometheus.Observer
	process  prometheus.Observer
}

func (p *Pipeline) loop(ctx context.Context, nodes []node.Node) node.Result {
	var obs []observers
	if p.metrics != nil {
		obs = make([]observers, len(nodes))
		for i, n := range nodes {
			obs[i] = observers{
				dispatch: p.metrics.NodeObserver(n.Name(), "dispatch"),
				process:  p.metrics.NodeObserver(n.Name(), "process"),
			}
		}
	}

	in := record.NewList(8)
	out := record.NewList(8)
	spill := record.NewList(8)
	defer func() {
		in.Release()
		out.Release()
		spill.Release()
	}()

	res := node.ResultOK
	retrying := false
	for {
		if ctx.Err() != nil {
			p.interrupted.Store(true)
			break
		}

		res = p.iterate(ctx, nodes, obs, in, out, spill)
		p.iterations.Add(1)
		p.result.Store(int64(res))
		if p.metrics != nil {
			p.metrics.RecordIteration(p.name, res.String())
		}

		if res == node.ResultRetry {
			if !retrying {
				p.sched.Begin()
				retrying = true
			}
			// a cancelled wait is picked up at the top of the loop
			_ = p.sched.Wait(ctx)
			continue
		}
		if retrying {
			p.sched.End()
			retrying = false
		}
		if res.Terminal() {
			break
		}
	}
	if retrying {
		p.sched.End()
	}
	return res
}

// iterate runs one dispatch pass and the matching process pass. in and out
// are reused across iterations and swapped between hops; both are empty on
// entry and on return.
//
// Records a node leaves unconsumed in its input are not dropped: they are
// collected in spill and handed to the head's Process together with whatever
// reaches it, so the source sees every record it emitted come back. This
// includes the input of a node whose dispatch broke the pass.
func (p *Pipeline) iterate(ctx context.Context, nodes []node.Node, obs []observers, in, out, spill *record.List) node.Result {
	fold := node.ResultOK
	last := len(nodes) - 1
	for i, n := range nodes {
		spill.Drain(out)
		start := time.Now()
		r := n.Dispatch(ctx, in, out)
		if obs != nil {
			obs[i].dispatch.Observe(time.Since(start).Seconds())
		}
		in, out = out, in
		if r != node.ResultOK {
			fold = r
			last = i
			break
		}
	}

	for i := last; i >= 0; i-- {
		spill.Drain(out)
		if i == 0 {
			in.Drain(spill)
		}
		start := time.Now()
		r := nodes[i].Process(ctx, in, out)
		if obs != nil {
			obs[i].process.Observe(time.Since(start).Seconds())
		}
		in, out = out, in
		fold = node.Fold(fold, r)
	}

	// whatever the head passed back or left behind is done with
	in.Release()
	out.Release()
	spill.Release()
	return fold
}
