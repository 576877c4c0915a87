// Package node defines the processing stages that make up a pipeline.
//
// Every Node has a Role. A pipeline holds exactly one RoleSource at its head,
// exactly one RoleSink at its tail, and any number of RoleConnector nodes in
// between. Each iteration the pipeline calls Dispatch on every node from head
// to tail, then Process from tail back to head, and folds the returned Result
// codes by severity:
//
//	ResultOK < ResultRetry < ResultEndOfStream < ResultNotOpen < ResultError
//
// Anything above ResultRetry ends the pipeline's run loop.
//
// Concrete nodes usually embed *Base for naming and the open/close state
// machine, and wrap polling calls in Retry so a not-ready resource backs off
// through a retry.Scheduler instead of spinning:
//
//	res := node.Retry(ctx, g.sched, func() node.Result {
//		if !g.limiter.Allow() {
//			return node.ResultRetry
//		}
//		return g.emit(out)
//	})
//
// Node types are registered with a Registry so task configs can refer to them
// by name.
package node
