// Package stamp provides a connector that numbers records as they pass
package stamp

import (
	"context"
	"sync/atomic"

	"github.com/c360/mediaflow/config"
	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/record"
)

// Type is the registry name of the stamp connector
const Type = "stamp"

// Config holds configuration for the stamp connector
type Config struct {
	Field       string `json:"field" yaml:"field"`               // Record key receiving the running count
	Start       int    `json:"start" yaml:"start"`               // Value given to the first record
	KeyInterval int    `json:"key_interval" yaml:"key_interval"` // Mark every Nth record as a key frame, 0 = leave flags alone
	SkipConfig  bool   `json:"skip_config" yaml:"skip_config"`   // Do not count config records
}

// DefaultConfig returns a config that counts into "counter" starting at 1
func DefaultConfig() Config {
	return Config{Field: "counter", Start: 1, SkipConfig: true}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.Field == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "stamp", "Validate", "field is required")
	}
	if c.KeyInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "stamp", "Validate", "key_interval cannot be negative")
	}
	return nil
}

// Stamp is a connector that writes a running count into each record on the
// way down and passes records back untouched.
type Stamp struct {
	*node.Base
	cfg     Config
	stamped atomic.Int64
}

// New creates a stamp connector
func New(name string, cfg Config) (*Stamp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Stamp{cfg: cfg}
	s.Base = node.NewBase(name, node.RoleConnector, node.Hooks{
		Open: func() error {
			s.stamped.Store(0)
			return nil
		},
	})
	return s, nil
}

// Factory builds a stamp connector from a node settings map
func Factory(name string, settings map[string]any, _ node.Dependencies) (node.Node, error) {
	d := DefaultConfig()
	return New(name, Config{
		Field:       config.GetString(settings, "field", d.Field),
		Start:       config.GetInt(settings, "start", d.Start),
		KeyInterval: config.GetInt(settings, "key_interval", d.KeyInterval),
		SkipConfig:  config.GetBool(settings, "skip_config", d.SkipConfig),
	})
}

// Dispatch stamps every record in order and moves it to out
func (s *Stamp) Dispatch(_ context.Context, in, out *record.List) node.Result {
	if !s.IsOpened() {
		return node.ResultNotOpen
	}
	for {
		r, ok := in.Pop()
		if !ok {
			return node.ResultOK
		}
		if !(s.cfg.SkipConfig && r.Flags().Has(record.FlagConfig)) {
			s.stamp(r)
		}
		out.Push(r)
	}
}

// Process passes records back unchanged
func (s *Stamp) Process(_ context.Context, in, out *record.List) node.Result {
	if !s.IsOpened() {
		return node.ResultNotOpen
	}
	return node.Pass(in, out)
}

// Stamped returns how many records were stamped since Open
func (s *Stamp) Stamped() int64 { return s.stamped.Load() }

func (s *Stamp) stamp(r *record.Record) {
	n := s.stamped.Add(1) - 1
	r.Set(s.cfg.Field, s.cfg.Start+int(n))

	if s.cfg.KeyInterval > 0 && n%int64(s.cfg.KeyInterval) == 0 {
		info, _ := r.Info()
		info.Flags = info.Flags.Set(record.FlagKeyFrame)
		r.SetInfo(info)
	}
}
