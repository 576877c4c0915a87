package retry

import (
	"log/slog"

	"github.com/c360/mediaflow/metric"
)

// Option configures a Scheduler using the functional options pattern.
type Option func(*schedulerOptions)

type schedulerOptions struct {
	metricsReg *metric.MetricsRegistry
	owner      string
	logger     *slog.Logger
}

// WithMetrics exposes the scheduler's sleep and wait count as Prometheus metrics,
// labelled with owner. A nil registry or empty owner is ignored.
func WithMetrics(registry *metric.MetricsRegistry, owner string) Option {
	return func(opts *schedulerOptions) {
		if registry != nil && owner != "" {
			opts.metricsReg = registry
			opts.owner = owner
		}
	}
}

// WithLogger sets where the scheduler reports setup problems such as a
// metrics registration conflict. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(opts *schedulerOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

func applyOptions(options ...Option) *schedulerOptions {
	opts := &schedulerOptions{logger: slog.Default()}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
