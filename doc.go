// Package mediaflow is a node-graph dataflow engine for streaming media.
//
// Data moves through the engine as records: one buffered unit of media plus
// metadata, flags and an optional parent. Records are produced, transformed
// and consumed by nodes arranged into pipelines:
//
//   - A source (head) produces records.
//   - Connectors transform them in order.
//   - A sink (tail) consumes them.
//
// Each pipeline runs on its own worker goroutine. One iteration makes a
// dispatch pass from head to tail and then a process pass from tail back to
// head. Every node returns a result code and the codes of one iteration are
// folded by severity. RETRY backs off through an adaptive scheduler,
// END_OF_STREAM or worse stops the pipeline. A task groups pipelines with the
// source nodes they share and manages those sources' lifecycle once for all
// of them.
//
// # Packages
//
//   - record: records, flags, release listeners, parent reference counts, pool
//   - pkg/buffer: weak-slot buffer cache with power aging
//   - pkg/retry: adaptive backoff scheduler
//   - node: node contract, roles, results, lifecycle base, factory registry
//   - pipeline: builder, worker loop, dispatch and process traversal
//   - task: shared sources, coordinator, stop and wait
//   - config: JSON or YAML task graphs
//   - metric, health: Prometheus metrics and task health
//   - input/generator, processor/stamp, output/file: built-in nodes
//   - cmd/mediaflow: command-line runner
//
// # Example
//
//	reg, _ := componentregistry.NewRegistry()
//	cfg, _ := config.Load("configs/example.yaml")
//	t, _ := task.Build(cfg, reg, node.Dependencies{Logger: logger, Metrics: metric.NewMetricsRegistry()})
//	if err := t.Start(ctx); err != nil {
//		return err
//	}
//	t.WaitForFinish()
//	_ = t.Stop()
package mediaflow
