package task

import (
	"fmt"
	"log/slog"

	"github.com/c360/mediaflow/config"
	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/pipeline"
	"github.com/c360/mediaflow/pkg/buffer"
	"github.com/c360/mediaflow/record"
)

// Build assembles a task from a validated config, creating every node with
// the factories in reg. Shared sources are created once and placed into each
// pipeline that refers to them.
//
// deps supplies the logger, metrics and, optionally, an existing buffer
// cache and record pool. When they are missing Build creates a cache sized by
// cfg.BufferCache and a pool backed by it, so every node of the task shares
// one cache.
func Build(cfg *config.TaskConfig, reg *node.Registry, deps node.Dependencies, opts ...Option) (*Task, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Task", "Build", "config presence check")
	}
	if reg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Task", "Build", "registry presence check")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil && cfg.BufferCache.Slots > 0 {
		cache, err := buffer.NewCache(cfg.BufferCache.Slots,
			buffer.WithMetrics(deps.Metrics, "task_"+cfg.Name))
		if err != nil {
			return nil, errors.Wrap(err, "Task", "Build", "buffer cache creation")
		}
		deps.Cache = cache
	}
	if deps.Records == nil {
		deps.Records = record.NewPool(deps.Cache)
	}
	deps.Retry = cfg.Retry

	base := []Option{
		WithLogger(deps.Logger),
		WithMetrics(deps.Metrics),
		WithRetry(cfg.Retry),
	}
	t := New(cfg.Name, append(base, opts...)...)

	shared := make(map[string]node.Node, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		n, err := createNode(reg, sc, deps)
		if err != nil {
			return nil, err
		}
		if err := t.AddSourceNode(n); err != nil {
			return nil, err
		}
		shared[sc.Name] = n
	}

	for _, pc := range cfg.Pipelines {
		pdeps := deps
		pdeps.Retry = cfg.PipelineRetry(pc)

		p, err := t.AddPipeline(pc.Name, pipeline.WithRetry(pdeps.Retry))
		if err != nil {
			return nil, err
		}

		for _, nc := range pc.Nodes {
			var n node.Node
			if nc.Source != "" {
				src, ok := shared[nc.Source]
				if !ok {
					err := fmt.Errorf("%w: pipeline '%s' refers to unknown source '%s'",
						errors.ErrInvalidConfig, pc.Name, nc.Source)
					return nil, errors.WrapInvalid(err, "Task", "Build", "source lookup")
				}
				n = src
			} else {
				n, err = createNode(reg, nc, pdeps)
				if err != nil {
					return nil, err
				}
			}
			if err := p.AddNode(n); err != nil {
				return nil, errors.Wrap(err, "Task", "Build", "pipeline '"+pc.Name+"' assembly")
			}
		}
	}

	return t, nil
}

// createNode builds one node and checks it against the role named in config
func createNode(reg *node.Registry, nc config.NodeConfig, deps node.Dependencies) (node.Node, error) {
	n, err := reg.Create(nc.Type, nc.Name, nc.Config, deps)
	if err != nil {
		return nil, err
	}
	if nc.Role == "" {
		return n, nil
	}
	role, err := node.ParseRole(nc.Role)
	if err != nil {
		return nil, err
	}
	if n.Role() != role {
		err := fmt.Errorf("%w: node '%s' is a %s, config says %s",
			errors.ErrInvalidConfig, nc.Name, n.Role(), role)
		return nil, errors.WrapInvalid(err, "Task", "Build", "role check")
	}
	return n, nil
}
