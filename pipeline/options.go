package pipeline

import (
	"log/slog"

	"github.com/c360/mediaflow/metric"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/pkg/retry"
)

// Option configures a Pipeline using the functional options pattern.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	retry     retry.Config
	scheduler *retry.Scheduler
	external  func(node.Node) bool
}

// WithLogger sets the pipeline logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *pipelineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records iterations, results, node timings and the pipeline's
// retry backoff in registry. A nil registry is ignored.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *pipelineOptions) {
		o.registry = registry
	}
}

// WithRetry sets the backoff used when an iteration folds to ResultRetry.
func WithRetry(cfg retry.Config) Option {
	return func(o *pipelineOptions) {
		o.retry = cfg
	}
}

// WithScheduler uses an existing scheduler instead of creating one from the
// retry config.
func WithScheduler(s *retry.Scheduler) Option {
	return func(o *pipelineOptions) {
		o.scheduler = s
	}
}

// WithExternalLifecycle marks nodes whose Open and Close are managed by the
// caller, typically sources shared between pipelines of one task. The
// pipeline never opens or closes a node for which fn returns true.
func WithExternalLifecycle(fn func(node.Node) bool) Option {
	return func(o *pipelineOptions) {
		o.external = fn
	}
}

func applyOptions(opts ...Option) *pipelineOptions {
	o := &pipelineOptions{
		logger: slog.Default(),
		retry:  retry.DefaultConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
