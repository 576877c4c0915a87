package node

import "strconv"

// Result is the code returned by Dispatch and Process. Codes are ordered by
// severity and compared numerically: a larger code always wins a fold.
type Result int

const (
	// ResultOK means the call completed and the pipeline should continue
	ResultOK Result = 0
	// ResultRetry means the resource was not ready; the caller backs off and retries
	ResultRetry Result = 1
	// ResultEndOfStream means the stream finished normally
	ResultEndOfStream Result = 2
	// ResultNotOpen means the node was used without being opened
	ResultNotOpen Result = 1000
	// ResultError means the node failed
	ResultError Result = 1001
)

// String returns the string representation of the result
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultRetry:
		return "retry"
	case ResultEndOfStream:
		return "end_of_stream"
	case ResultNotOpen:
		return "not_open"
	case ResultError:
		return "error"
	default:
		return "result(" + strconv.Itoa(int(r)) + ")"
	}
}

// Terminal reports whether r stops a pipeline's run loop.
func (r Result) Terminal() bool {
	return r > ResultRetry
}

// Fold returns the more severe of a and b.
func Fold(a, b Result) Result {
	return max(a, b)
}
