// Package errors provides standardized error handling patterns for mediaflow components.
//
// # Overview
//
// The errors package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input or configuration, non-retryable), and Fatal
// (unrecoverable, stop processing). Graph construction problems such as a second head
// node or a connector added before any head or tail are Fatal and surface at build time.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Pipeline", "open", "open node camera")
//	errors.WrapInvalid(err, "Config", "Validate", "pipeline name")
//	errors.WrapFatal(err, "Pipeline", "AddNode", "attach tail")
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Task", "Start", "open shared sources")
//
// # Standard Error Variables
//
//   - Lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrAlreadyStopped, ErrNotOpen
//   - Topology: ErrInvalidTopology and the more specific ErrDuplicateHead, ErrDuplicateTail,
//     ErrDanglingConnector, ErrUnknownRole, ErrMissingHead, ErrMissingTail, ErrNilNode
//   - Records: ErrRecordCycle, ErrParentAssigned, ErrRecordReleased
//   - Configuration: ErrInvalidConfig, ErrMissingConfig, ErrUnknownNodeType
//
// Every topology error wraps ErrInvalidTopology, so callers can test for the whole family:
//
//	if errors.Is(err, errors.ErrInvalidTopology) {
//	    // the graph itself is wrong, fix the build sequence
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables are
// immutable and the ClassifiedError type is safe to share across goroutines after creation.
package errors
