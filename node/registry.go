package node

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/metric"
	"github.com/c360/mediaflow/pkg/buffer"
	"github.com/c360/mediaflow/pkg/retry"
	"github.com/c360/mediaflow/record"
)

// Dependencies are the shared services handed to node factories.
type Dependencies struct {
	Logger  *slog.Logger
	Cache   *buffer.Cache
	Records *record.Pool
	Retry   retry.Config
	Metrics *metric.MetricsRegistry
}

// Factory creates a node instance from its settings map. Factories must not
// perform I/O; resources are acquired in Open.
type Factory func(name string, settings map[string]any, deps Dependencies) (Node, error)

// Registration holds a factory and the metadata describing it
type Registration struct {
	Type        string  `json:"type"`        // Factory name used in configs (e.g., "generator")
	Role        Role    `json:"role"`        // Role of every node the factory creates
	Description string  `json:"description"` // Human-readable description
	Version     string  `json:"version"`     // Node version
	Factory     Factory `json:"-"`
}

// Registry maps node type names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]*Registration
}

// NewRegistry creates an empty node registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]*Registration)}
}

// Register adds a factory. Registering the same type twice is an error.
func (r *Registry) Register(reg *Registration) error {
	if reg == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "registration validation")
	}
	if reg.Type == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "node type validation")
	}
	if reg.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "factory function validation")
	}
	if reg.Role == RoleUnknown {
		return errors.WrapInvalid(errors.ErrUnknownRole, "Registry", "Register", "role validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reg.Type]; exists {
		msg := fmt.Errorf("%w: node type '%s' is already registered", errors.ErrDuplicateName, reg.Type)
		return errors.WrapInvalid(msg, "Registry", "Register", "duplicate factory check")
	}
	r.factories[reg.Type] = reg
	return nil
}

// Lookup returns the registration for a node type
func (r *Registry) Lookup(nodeType string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.factories[nodeType]
	return reg, ok
}

// Types returns the registered node types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Create builds a node with the factory registered for nodeType and checks
// that the result carries the expected name and role.
func (r *Registry) Create(nodeType, name string, settings map[string]any, deps Dependencies) (Node, error) {
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Create", "instance name validation")
	}

	reg, ok := r.Lookup(nodeType)
	if !ok {
		msg := fmt.Errorf("%w: '%s'", errors.ErrUnknownNodeType, nodeType)
		return nil, errors.WrapInvalid(msg, "Registry", "Create", "factory lookup")
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("node", name, "type", nodeType)
	if settings == nil {
		settings = map[string]any{}
	}

	n, err := reg.Factory(name, settings, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", "factory execution for "+name)
	}
	if n == nil {
		return nil, errors.WrapInvalid(errors.ErrNilNode, "Registry", "Create", "factory result for "+name)
	}
	if n.Role() != reg.Role {
		msg := fmt.Errorf("node '%s' has role %s, registration says %s", name, n.Role(), reg.Role)
		return nil, errors.WrapInvalid(msg, "Registry", "Create", "role check")
	}
	return n, nil
}
