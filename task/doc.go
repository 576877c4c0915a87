// Package task groups pipelines that run side by side and share source nodes.
//
// A Task owns a set of named pipelines and a set of shared sources. Shared
// sources are opened once when the task starts and closed once when it stops,
// so several pipelines can read from one physical device without racing to
// open or close it. Pipelines mark those nodes as externally managed and
// never touch their lifecycle.
//
// Start spawns a coordinator goroutine that starts every pipeline and joins
// them all before exiting. Calling Start twice only logs a warning.
//
//	t := task.New("ingest", task.WithLogger(logger), task.WithMetrics(registry))
//	_ = t.AddSourceNode(camera)
//
//	preview, _ := t.AddPipeline("preview")
//	preview.MustAddNode(camera).MustAddNode(scaler).MustAddNode(display)
//
//	archive, _ := t.AddPipeline("archive")
//	archive.MustAddNode(camera).MustAddNode(encoder).MustAddNode(writer)
//
//	if err := t.Start(ctx); err != nil {
//		return err
//	}
//	t.WaitForFinish()
//	results := t.Results()
//
// ForceStop interrupts the pipeline workers and leaves the shared sources
// open. Stop does the same and then closes the shared sources, regardless of
// whether the workers have finished. WaitForFinish blocks until the
// coordinator exits and is a no-op on a task that never started.
//
// Build assembles a task from a config.TaskConfig using a node.Registry of
// factories, sharing one buffer cache and record pool across all nodes.
package task
