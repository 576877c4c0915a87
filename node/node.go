package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/record"
)

// Role is the position a node takes in a pipeline.
type Role int

const (
	// RoleUnknown is the zero value and is rejected by pipelines
	RoleUnknown Role = iota
	// RoleSource is the head of a pipeline
	RoleSource
	// RoleConnector sits between the head and the tail
	RoleConnector
	// RoleSink is the tail of a pipeline
	RoleSink
)

// String returns the string representation of the role
func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleConnector:
		return "connector"
	case RoleSink:
		return "sink"
	default:
		return "unknown"
	}
}

// ParseRole converts a configuration string to a Role. "head" and "tail"
// are accepted as aliases for source and sink.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source", "head":
		return RoleSource, nil
	case "connector":
		return RoleConnector, nil
	case "sink", "tail":
		return RoleSink, nil
	default:
		return RoleUnknown, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownRole, s), "node", "ParseRole", "role lookup")
	}
}

// Node is one stage of a pipeline.
//
// Dispatch is called while walking the chain from head to tail and moves
// records from in to out. Process is called on the way back from tail to
// head with the lists swapped, so a sink can commit what it received and a
// source can recycle what came back. Both return ResultRetry when a resource
// is not ready yet; see Retry.
type Node interface {
	Name() string
	Role() Role

	// Open acquires the node's resources. Calling it on an open node is a no-op.
	Open() error
	// Close releases the node's resources. Calling it on a closed node is a no-op.
	Close() error
	IsOpened() bool

	Dispatch(ctx context.Context, in, out *record.List) Result
	Process(ctx context.Context, in, out *record.List) Result
}

// Pass moves every record from in to out and returns ResultOK. It is the
// usual Process for nodes that only act on the way forward.
func Pass(in, out *record.List) Result {
	out.Drain(in)
	return ResultOK
}
