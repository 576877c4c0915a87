// Package health reports the state of running pipelines and tasks.
//
// A Status is a small value type with one of three levels: healthy, degraded
// or unhealthy. A Monitor keeps one Status per pipeline name and can fold
// them into a task-wide status with AggregateHealth, using worst-case rules:
// any unhealthy pipeline makes the task unhealthy.
//
// FromRun maps a pipeline run onto a Status:
//
//	monitor := health.NewMonitor()
//	monitor.Update("camera", health.FromRun("camera", false, node.ResultOK, nil))
//	...
//	monitor.Update("camera", health.FromRun("camera", true, p.Result(), p.Err()))
//	status := monitor.AggregateHealth("ingest")
//
// Error text placed into a status is sanitized: URLs, file paths, IP
// addresses, ports and credential assignments are replaced with placeholders
// before being served on the /health endpoint.
//
// Status values are copied, never shared. WithMetrics and WithSubStatus return
// modified copies.
package health
