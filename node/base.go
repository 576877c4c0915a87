package node

import (
	"sync"
	"sync/atomic"

	"github.com/c360/mediaflow/errors"
)

// State represents the lifecycle state of a node
type State int32

const (
	// StateNotOpened indicates the node was created or failed to open
	StateNotOpened State = iota
	// StateOpening indicates an open is in progress
	StateOpening
	// StateOpened indicates the node is ready for dispatch and process
	StateOpened
	// StateClosing indicates a close is in progress
	StateClosing
	// StateClosed indicates the node was closed
	StateClosed
)

// String returns a string representation of the node state
func (s State) String() string {
	switch s {
	case StateNotOpened:
		return "not_opened"
	case StateOpening:
		return "opening"
	case StateOpened:
		return "opened"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Hooks are the resource callbacks run by Base during open and close.
// Either may be nil.
type Hooks struct {
	Open  func() error
	Close func() error
}

// Base implements the naming and open/close lifecycle of a Node. Concrete
// nodes embed *Base and add Dispatch and Process.
//
// Open and Close are serialized on the node's own lock, so only one
// transition runs at a time. A failed open leaves the node not opened; a
// failed close still leaves it closed. A closed node may be opened again.
type Base struct {
	name  string
	role  Role
	hooks Hooks

	mu    sync.Mutex
	state atomic.Int32
}

// NewBase creates the lifecycle core for a node.
func NewBase(name string, role Role, hooks Hooks) *Base {
	return &Base{name: name, role: role, hooks: hooks}
}

// Name returns the node name
func (b *Base) Name() string { return b.name }

// Role returns the node role
func (b *Base) Role() Role { return b.role }

// State returns the current lifecycle state
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsOpened reports whether the node is open
func (b *Base) IsOpened() bool {
	return b.State() == StateOpened
}

// Open runs the open hook unless the node is already open.
func (b *Base) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.State() == StateOpened {
		return nil
	}

	b.state.Store(int32(StateOpening))
	if b.hooks.Open != nil {
		if err := b.hooks.Open(); err != nil {
			b.state.Store(int32(StateNotOpened))
			return errors.WrapTransient(err, b.name, "Open", "resource open")
		}
	}
	b.state.Store(int32(StateOpened))
	return nil
}

// Close runs the close hook if the node is open.
func (b *Base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.State() != StateOpened {
		return nil
	}

	b.state.Store(int32(StateClosing))
	var err error
	if b.hooks.Close != nil {
		err = b.hooks.Close()
	}
	b.state.Store(int32(StateClosed))
	return errors.WrapTransient(err, b.name, "Close", "resource close")
}
