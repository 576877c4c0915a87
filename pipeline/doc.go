// Package pipeline drives an ordered chain of nodes on its own goroutine.
//
// # Building
//
// A pipeline has exactly one head (node.RoleSource) and one tail
// (node.RoleSink). AddNode places nodes by role, so they can be added in any
// order as long as a connector always has a head or a tail to attach to:
//
//	p := pipeline.New("camera", pipeline.WithLogger(logger))
//	if err := p.AddNode(source); err != nil { ... } // head
//	if err := p.AddNode(sink); err != nil { ... }   // tail
//	if err := p.AddNode(encoder); err != nil { ... } // between them
//
// Topology errors wrap errors.ErrInvalidTopology and are classified fatal.
//
// # Running
//
// Start opens every node (except those marked WithExternalLifecycle) on the
// worker goroutine and then loops:
//
//  1. Dispatch from head to tail, feeding each node's output list to the next
//     node as input, until a node returns something other than ResultOK.
//  2. Process from that node back to the head with the lists swapped the
//     other way, folding every result into the most severe one.
//  3. On ResultRetry, back off through the pipeline's retry.Scheduler; on
//     anything above ResultRetry, leave the loop.
//
// Nodes are closed from tail to head when the loop ends. Stop cancels the
// worker's context, which is checked at the top of every iteration and
// inside retry waits. WaitForFinish blocks until the worker has exited.
package pipeline
