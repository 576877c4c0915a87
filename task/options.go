package task

import (
	"log/slog"

	"github.com/c360/mediaflow/metric"
	"github.com/c360/mediaflow/pkg/retry"
)

// Option configures a Task
type Option func(*taskOptions)

type taskOptions struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	retry    retry.Config
}

// WithLogger sets the task logger. Pipelines get a child logger tagged with
// their name. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *taskOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics for the task and its pipelines
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *taskOptions) {
		o.registry = registry
	}
}

// WithRetry sets the default backoff for pipelines created by AddPipeline
func WithRetry(cfg retry.Config) Option {
	return func(o *taskOptions) {
		o.retry = cfg
	}
}

func applyOptions(opts ...Option) *taskOptions {
	o := &taskOptions{
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
