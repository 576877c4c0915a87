package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/pkg/retry"
)

// Defaults applied by ApplyDefaults
const (
	DefaultCacheSlots  = 16
	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

// TaskConfig describes one task: its shared sources and the pipelines built
// from them.
type TaskConfig struct {
	Name        string            `json:"name" yaml:"name"`
	Retry       retry.Config      `json:"retry" yaml:"retry"`
	BufferCache BufferCacheConfig `json:"buffer_cache" yaml:"buffer_cache"`
	Sources     []NodeConfig      `json:"sources,omitempty" yaml:"sources,omitempty"`
	Pipelines   []PipelineConfig  `json:"pipelines" yaml:"pipelines"`
	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics"`
}

// BufferCacheConfig sizes the task's shared buffer cache
type BufferCacheConfig struct {
	Slots int `json:"slots" yaml:"slots"`
}

// PipelineConfig describes one chain of nodes, listed head first
type PipelineConfig struct {
	Name  string        `json:"name" yaml:"name"`
	Retry *retry.Config `json:"retry,omitempty" yaml:"retry,omitempty"` // Overrides the task retry config
	Nodes []NodeConfig  `json:"nodes" yaml:"nodes"`
}

// NodeConfig describes a node instance. A pipeline node either names a
// factory Type or refers to a shared Source by name.
type NodeConfig struct {
	Name   string         `json:"name" yaml:"name"`
	Type   string         `json:"type,omitempty" yaml:"type,omitempty"`
	Role   string         `json:"role,omitempty" yaml:"role,omitempty"`
	Source string         `json:"source,omitempty" yaml:"source,omitempty"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// Load reads a task config from a .json, .yaml or .yml file, applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*TaskConfig, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "read config file")
	}

	var cfg *TaskConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = ParseYAML(data)
	default:
		cfg, err = ParseJSON(data)
	}
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "parse "+filepath.Base(path))
	}

	if err := cfg.applyEnvOverrides("MEDIAFLOW"); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "environment overrides")
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseYAML decodes a YAML task config. Durations use Go syntax ("5ms").
func ParseYAML(data []byte) (*TaskConfig, error) {
	var cfg TaskConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "ParseYAML", "yaml decode")
	}
	return &cfg, nil
}

// ParseJSON decodes a JSON task config. Retry durations may be given as Go
// duration strings or as integer nanoseconds.
func ParseJSON(data []byte) (*TaskConfig, error) {
	if err := checkNesting(data); err != nil {
		return nil, errors.WrapInvalid(err, "config", "ParseJSON", "structure check")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapInvalid(err, "config", "ParseJSON", "json decode")
	}
	if err := parseDurations(raw); err != nil {
		return nil, errors.WrapInvalid(err, "config", "ParseJSON", "duration parse")
	}

	processed, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "ParseJSON", "json re-encode")
	}

	var cfg TaskConfig
	if err := json.Unmarshal(processed, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "ParseJSON", "json decode")
	}
	return &cfg, nil
}

// parseDurations converts duration strings in retry sections to nanoseconds
// for json unmarshaling
func parseDurations(data map[string]any) error {
	if err := parseRetryDurations(data["retry"]); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	pipelines, _ := data["pipelines"].([]any)
	for i, p := range pipelines {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if err := parseRetryDurations(pm["retry"]); err != nil {
			return fmt.Errorf("pipelines[%d].retry: %w", i, err)
		}
	}
	return nil
}

func parseRetryDurations(section any) error {
	m, ok := section.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range []string{"step", "max_sleep"} {
		s, ok := m[key].(string)
		if !ok {
			continue
		}
		d, err := parseDurationWithDays(s)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		m[key] = d.Nanoseconds()
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// applyEnvOverrides applies environment variable overrides
func (c *TaskConfig) applyEnvOverrides(prefix string) error {
	if val := os.Getenv(prefix + "_TASK_NAME"); val != "" {
		if err := checkEnvValue(prefix+"_TASK_NAME", val); err != nil {
			return err
		}
		c.Name = val
	}
	if val := os.Getenv(prefix + "_METRICS_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_METRICS_PORT: %w", prefix, err)
		}
		c.Metrics.Port = port
	}
	if val := os.Getenv(prefix + "_METRICS_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s_METRICS_ENABLED: %w", prefix, err)
		}
		c.Metrics.Enabled = enabled
	}
	if val := os.Getenv(prefix + "_CACHE_SLOTS"); val != "" {
		slots, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_CACHE_SLOTS: %w", prefix, err)
		}
		c.BufferCache.Slots = slots
	}
	return nil
}

// ApplyDefaults fills unset fields with their defaults
func (c *TaskConfig) ApplyDefaults() {
	if c.Retry == (retry.Config{}) {
		c.Retry = retry.DefaultConfig()
	}
	if c.BufferCache.Slots == 0 {
		c.BufferCache.Slots = DefaultCacheSlots
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	for i := range c.Sources {
		if c.Sources[i].Role == "" {
			c.Sources[i].Role = node.RoleSource.String()
		}
	}
	for i := range c.Pipelines {
		for j := range c.Pipelines[i].Nodes {
			n := &c.Pipelines[i].Nodes[j]
			if n.Role == "" && n.Source != "" {
				n.Role = node.RoleSource.String()
			}
		}
	}
}

// Validate checks the task graph for errors
func (c *TaskConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("Validate", "name is required")
	}
	if err := validateRetry(c.Retry); err != nil {
		return errors.Wrap(err, "config", "Validate", "retry")
	}
	if c.BufferCache.Slots < 0 {
		return invalid("Validate", "buffer_cache.slots cannot be negative")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return invalid("Validate", fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}

	sources := make(map[string]NodeConfig, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			return invalid("Validate", fmt.Sprintf("sources[%d]: name is required", i))
		}
		if _, dup := sources[src.Name]; dup {
			return invalid("Validate", fmt.Sprintf("sources[%d]: duplicate name %q", i, src.Name))
		}
		if src.Type == "" {
			return invalid("Validate", fmt.Sprintf("source %q: type is required", src.Name))
		}
		if src.Source != "" {
			return invalid("Validate", fmt.Sprintf("source %q: shared sources cannot refer to other sources", src.Name))
		}
		if role, err := node.ParseRole(src.Role); err != nil || role != node.RoleSource {
			return invalid("Validate", fmt.Sprintf("source %q: role must be source", src.Name))
		}
		sources[src.Name] = src
	}

	if len(c.Pipelines) == 0 {
		return invalid("Validate", "at least one pipeline is required")
	}
	names := make(map[string]struct{}, len(c.Pipelines))
	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		if p.Name == "" {
			return invalid("Validate", fmt.Sprintf("pipelines[%d]: name is required", i))
		}
		if _, dup := names[p.Name]; dup {
			return invalid("Validate", fmt.Sprintf("pipelines[%d]: duplicate name %q", i, p.Name))
		}
		names[p.Name] = struct{}{}

		if p.Retry != nil {
			if err := validateRetry(*p.Retry); err != nil {
				return errors.Wrap(err, "config", "Validate", "pipeline "+p.Name+" retry")
			}
		}
		if err := p.validateNodes(sources); err != nil {
			return err
		}
	}
	return nil
}

func (p *PipelineConfig) validateNodes(sources map[string]NodeConfig) error {
	var heads, tails int
	seen := make(map[string]struct{}, len(p.Nodes))
	for j, n := range p.Nodes {
		where := fmt.Sprintf("pipeline %q node %d", p.Name, j)
		if n.Name == "" && n.Source == "" {
			return invalid("Validate", where+": name is required")
		}
		name := n.Name
		if name == "" {
			name = n.Source
		}
		if _, dup := seen[name]; dup {
			return invalid("Validate", fmt.Sprintf("%s: duplicate node name %q", where, name))
		}
		seen[name] = struct{}{}

		switch {
		case n.Source != "":
			if _, ok := sources[n.Source]; !ok {
				return invalid("Validate", fmt.Sprintf("%s: unknown shared source %q", where, n.Source))
			}
			if n.Type != "" {
				return invalid("Validate", where+": type and source are mutually exclusive")
			}
		case n.Type == "":
			return invalid("Validate", where+": type is required")
		}

		role, err := node.ParseRole(n.Role)
		if err != nil {
			return errors.Wrap(err, "config", "Validate", where+" role")
		}
		if n.Source != "" && role != node.RoleSource {
			return invalid("Validate", where+": shared sources can only be used as the head")
		}
		switch role {
		case node.RoleSource:
			heads++
		case node.RoleSink:
			tails++
		}
	}

	if heads != 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: pipeline %q has %d head nodes", errors.ErrInvalidTopology, p.Name, heads),
			"config", "Validate", "topology check")
	}
	if tails != 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: pipeline %q has %d tail nodes", errors.ErrInvalidTopology, p.Name, tails),
			"config", "Validate", "topology check")
	}
	return nil
}

func validateRetry(cfg retry.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.MaxSleep > 0 && cfg.Step <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "validateRetry",
			"step must be positive when max_sleep is set")
	}
	return nil
}

func invalid(method, msg string) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, msg), "config", method, "validation")
}

// PipelineRetry returns the retry config for a pipeline, falling back to the
// task-wide config
func (c *TaskConfig) PipelineRetry(p PipelineConfig) retry.Config {
	if p.Retry != nil {
		return *p.Retry
	}
	return c.Retry
}

// Source returns the shared source config with the given name
func (c *TaskConfig) Source(name string) (NodeConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return NodeConfig{}, false
}

// String returns a JSON representation of the config
func (c *TaskConfig) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
