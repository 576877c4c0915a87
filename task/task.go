package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/health"
	"github.com/c360/mediaflow/metric"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/pipeline"
	"github.com/c360/mediaflow/pkg/retry"
)

// Task runs a group of pipelines together with the source nodes they share.
//
// Shared sources are opened once by Start and closed once by Stop, never by
// the pipelines that read from them. Each pipeline runs on its own worker
// goroutine; a coordinator goroutine starts them all and waits for every one
// to finish.
type Task struct {
	id       string
	name     string
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics
	retry    retry.Config
	health   *health.Monitor

	srcMu   sync.RWMutex
	sources []node.Node
	shared  map[node.Node]struct{}

	mu        sync.Mutex
	pipelines []*pipeline.Pipeline
	byName    map[string]*pipeline.Pipeline
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

// New creates an empty task
func New(name string, opts ...Option) *Task {
	o := applyOptions(opts...)
	id := uuid.NewString()

	t := &Task{
		id:       id,
		name:     name,
		logger:   o.logger.With("task", name, "run_id", id),
		registry: o.registry,
		retry:    o.retry,
		health:   health.NewMonitor(),
		shared:   make(map[node.Node]struct{}),
		byName:   make(map[string]*pipeline.Pipeline),
	}
	if o.registry != nil {
		t.metrics = o.registry.CoreMetrics()
	}
	return t
}

// ID returns the unique identifier of this task instance
func (t *Task) ID() string { return t.id }

// Name returns the task name
func (t *Task) Name() string { return t.name }

// AddSourceNode registers a source shared by several pipelines. The task
// owns its lifecycle; pipelines only dispatch and process through it.
func (t *Task) AddSourceNode(n node.Node) error {
	if n == nil {
		return errors.WrapFatal(errors.ErrNilNode, "Task", "AddSourceNode", "source validation")
	}
	if n.Role() != node.RoleSource {
		err := fmt.Errorf("%w: shared node '%s' has role %s", errors.ErrInvalidTopology, n.Name(), n.Role())
		return errors.WrapFatal(err, "Task", "AddSourceNode", "role check")
	}
	if t.isStarted() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Task", "AddSourceNode", "source registration")
	}

	t.srcMu.Lock()
	defer t.srcMu.Unlock()
	for _, s := range t.sources {
		if s.Name() == n.Name() {
			err := fmt.Errorf("%w: source '%s'", errors.ErrDuplicateName, n.Name())
			return errors.WrapInvalid(err, "Task", "AddSourceNode", "source registration")
		}
	}
	t.sources = append(t.sources, n)
	t.shared[n] = struct{}{}
	return nil
}

// AddPipeline creates a named pipeline owned by the task and returns it for
// node placement. Shared sources added to it are left to the task's
// lifecycle. Extra options are applied after the task defaults.
func (t *Task) AddPipeline(name string, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Task", "AddPipeline", "pipeline name validation")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil, errors.WrapFatal(errors.ErrAlreadyStarted, "Task", "AddPipeline", "pipeline registration")
	}
	if _, exists := t.byName[name]; exists {
		err := fmt.Errorf("%w: pipeline '%s'", errors.ErrDuplicateName, name)
		return nil, errors.WrapInvalid(err, "Task", "AddPipeline", "pipeline registration")
	}

	base := []pipeline.Option{
		pipeline.WithLogger(t.logger),
		pipeline.WithRetry(t.retry),
		pipeline.WithMetrics(t.registry),
		pipeline.WithExternalLifecycle(t.isShared),
	}
	p := pipeline.New(name, append(base, opts...)...)
	t.pipelines = append(t.pipelines, p)
	t.byName[name] = p
	return p, nil
}

// Pipeline looks up a pipeline by name
func (t *Task) Pipeline(name string) (*pipeline.Pipeline, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byName[name]
	return p, ok
}

// Pipelines returns the pipelines in creation order
func (t *Task) Pipelines() []*pipeline.Pipeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.pipelines)
}

// Sources returns the shared source nodes in registration order
func (t *Task) Sources() []node.Node {
	t.srcMu.RLock()
	defer t.srcMu.RUnlock()
	return slices.Clone(t.sources)
}

// Start validates every pipeline, opens the shared sources and launches the
// coordinator. Calling Start again logs a warning and returns nil.
//
// If a shared source fails to open, the sources opened so far are closed
// again and the open error is returned; secondary close failures are logged.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		t.logger.Warn("Task already started")
		return nil
	}
	if len(t.pipelines) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Task", "Start", "pipeline presence check")
	}
	for _, p := range t.pipelines {
		if err := p.Validate(); err != nil {
			return errors.Wrap(err, "Task", "Start", "pipeline '"+p.Name()+"' validation")
		}
	}

	if err := t.openSources(); err != nil {
		t.err = err
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.started = true
	t.err = nil

	pipelines := slices.Clone(t.pipelines)
	for _, p := range pipelines {
		t.health.Update(p.Name(), health.FromRun(p.Name(), false, node.ResultOK, nil))
	}

	t.logger.Info("Task starting", "pipelines", len(pipelines), "sources", len(t.Sources()))
	go t.coordinate(runCtx, pipelines)
	return nil
}

func (t *Task) openSources() error {
	sources := t.Sources()
	for i, s := range sources {
		if err := s.Open(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if cerr := sources[j].Close(); cerr != nil {
					t.logger.Error("Failed to close shared source after open failure",
						"node", sources[j].Name(), "error", cerr)
				}
			}
			if t.metrics != nil {
				t.metrics.RecordNodeError(s.Name(), "open")
			}
			return errors.Wrap(err, "Task", "Start", "shared source '"+s.Name()+"' open")
		}
	}
	return nil
}

// coordinate starts every pipeline and waits for all of them. A failing
// pipeline does not stop the others.
func (t *Task) coordinate(ctx context.Context, pipelines []*pipeline.Pipeline) {
	defer close(t.done)

	if t.metrics != nil {
		t.metrics.TasksRunning.Inc()
		defer t.metrics.TasksRunning.Dec()
	}

	var g errgroup.Group
	for _, p := range pipelines {
		g.Go(func() error {
			if err := p.Start(ctx); err != nil {
				t.health.Update(p.Name(), health.FromRun(p.Name(), true, node.ResultError, err))
				return err
			}
			p.WaitForFinish()

			status := health.FromRun(p.Name(), true, p.Result(), p.Err()).WithMetrics(&health.Metrics{
				Iterations: p.Iterations(),
				Result:     p.Result().String(),
			})
			t.health.Update(p.Name(), status)
			return p.Err()
		})
	}

	err := g.Wait()
	if err != nil {
		t.setErr(err)
		t.logger.Error("Task finished with errors", "error", err)
		return
	}
	t.logger.Info("Task finished", "results", t.Results())
}

// ForceStop interrupts every pipeline's worker goroutine. It does not close
// the shared sources.
func (t *Task) ForceStop() {
	t.mu.Lock()
	cancel := t.cancel
	pipelines := slices.Clone(t.pipelines)
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, p := range pipelines {
		p.Stop()
	}
}

// Stop interrupts every pipeline and closes the shared sources, whatever
// state the workers are in. The first close failure is returned and the
// rest are logged.
func (t *Task) Stop() error {
	t.ForceStop()

	var first error
	sources := t.Sources()
	for i := len(sources) - 1; i >= 0; i-- {
		s := sources[i]
		if !s.IsOpened() {
			continue
		}
		if err := s.Close(); err != nil {
			if t.metrics != nil {
				t.metrics.RecordNodeError(s.Name(), "close")
			}
			if first == nil {
				first = errors.Wrap(err, "Task", "Stop", "shared source '"+s.Name()+"' close")
				continue
			}
			t.logger.Error("Failed to close shared source", "node", s.Name(), "error", err)
		}
	}
	if first != nil {
		t.setErr(first)
	}
	return first
}

// WaitForFinish blocks until the coordinator exits. It returns immediately
// if the task was never started.
func (t *Task) WaitForFinish() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Done returns a channel closed when the coordinator exits, or nil before Start
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		return nil
	}
	return t.done
}

// Results returns the folded result of each pipeline by name
func (t *Task) Results() map[string]node.Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]node.Result, len(t.pipelines))
	for _, p := range t.pipelines {
		out[p.Name()] = p.Result()
	}
	return out
}

// Err returns the first startup, pipeline or teardown failure
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Health returns the aggregate health of the task's pipelines
func (t *Task) Health() health.Status {
	return t.health.AggregateHealth(t.name)
}

// Monitor exposes the per-pipeline health monitor
func (t *Task) Monitor() *health.Monitor {
	return t.health
}

func (t *Task) isStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *Task) isShared(n node.Node) bool {
	t.srcMu.RLock()
	defer t.srcMu.RUnlock()
	_, ok := t.shared[n]
	return ok
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = err
	}
}
