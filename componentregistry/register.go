// Package componentregistry registers the built-in node types with a
// node.Registry.
package componentregistry

import (
	"errors"

	pkgerrors "github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/input/generator"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/output/file"
	"github.com/c360/mediaflow/processor/stamp"
)

// Register registers every built-in node type:
//
//   - generator (source): synthetic frames paced by a frame rate
//   - stamp (connector): running counter and key-frame marking
//   - file (sink): JSON, JSON lines or raw payload output
func Register(registry *node.Registry) error {
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	registrations := []*node.Registration{
		{
			Type:        generator.Type,
			Role:        node.RoleSource,
			Description: "Synthetic frame source backed by the buffer cache",
			Version:     "0.1.0",
			Factory:     generator.Factory,
		},
		{
			Type:        stamp.Type,
			Role:        node.RoleConnector,
			Description: "Writes a running count into each record",
			Version:     "0.1.0",
			Factory:     stamp.Factory,
		},
		{
			Type:        file.Type,
			Role:        node.RoleSink,
			Description: "Writes records to disk in JSON, JSON lines or raw format",
			Version:     "0.1.0",
			Factory:     file.Factory,
		},
	}

	for _, reg := range registrations {
		if err := registry.Register(reg); err != nil {
			return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", reg.Type+" registration")
		}
	}
	return nil
}

// NewRegistry returns a registry holding every built-in node type
func NewRegistry() (*node.Registry, error) {
	reg := node.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
