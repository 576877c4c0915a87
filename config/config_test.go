package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/pkg/retry"
)

const yamlConfig = `
name: camera-upload
retry:
  step: 2ms
  max_sleep: 30ms
  low_threshold: 1
  high_threshold: 5
buffer_cache:
  slots: 4
sources:
  - name: camera
    type: generator
    config:
      count: 10
      fps: 30
pipelines:
  - name: record
    nodes:
      - source: camera
      - name: stamp
        type: stamp
        role: connector
      - name: out
        type: file
        role: sink
        config:
          path: out.jsonl
metrics:
  enabled: true
  port: 9191
`

const jsonConfig = `{
  "name": "synthetic",
  "retry": {"step": "1ms", "max_sleep": "10ms", "low_threshold": 2, "high_threshold": 8},
  "pipelines": [
    {
      "name": "main",
      "retry": {"step": 500000, "max_sleep": "5ms", "low_threshold": 1, "high_threshold": 4},
      "nodes": [
        {"name": "gen", "type": "generator", "role": "head", "config": {"count": 5}},
        {"name": "sink", "type": "file", "role": "tail"}
      ]
    }
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "task.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "camera-upload", cfg.Name)
	assert.Equal(t, 2*time.Millisecond, cfg.Retry.Step)
	assert.Equal(t, 30*time.Millisecond, cfg.Retry.MaxSleep)
	assert.Equal(t, 4, cfg.BufferCache.Slots)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "source", cfg.Sources[0].Role, "shared sources default to the source role")
	assert.Equal(t, 10, GetInt(cfg.Sources[0].Config, "count", 0))

	require.Len(t, cfg.Pipelines, 1)
	nodes := cfg.Pipelines[0].Nodes
	require.Len(t, nodes, 3)
	assert.Equal(t, "camera", nodes[0].Source)
	assert.Equal(t, "source", nodes[0].Role)
	assert.Equal(t, "out.jsonl", GetString(nodes[2].Config, "path", ""))

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "task.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, time.Millisecond, cfg.Retry.Step)
	assert.Equal(t, DefaultCacheSlots, cfg.BufferCache.Slots)
	assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)

	p := cfg.Pipelines[0]
	require.NotNil(t, p.Retry)
	assert.Equal(t, 500*time.Microsecond, p.Retry.Step)
	assert.Equal(t, 5*time.Millisecond, cfg.PipelineRetry(p).MaxSleep)
	assert.Equal(t, 5, GetInt(p.Nodes[0].Config, "count", 0), "JSON numbers decode as float64")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEDIAFLOW_TASK_NAME", "overridden")
	t.Setenv("MEDIAFLOW_METRICS_PORT", "9300")
	t.Setenv("MEDIAFLOW_CACHE_SLOTS", "32")

	cfg, err := Load(writeFile(t, "task.yml", yamlConfig))
	require.NoError(t, err)
	assert.Equal(t, "overridden", cfg.Name)
	assert.Equal(t, 9300, cfg.Metrics.Port)
	assert.Equal(t, 32, cfg.BufferCache.Slots)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "task.toml", "name = 'x'"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "task.json", "{not json"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func validConfig() *TaskConfig {
	cfg := &TaskConfig{
		Name:    "t",
		Sources: []NodeConfig{{Name: "cam", Type: "generator"}},
		Pipelines: []PipelineConfig{{
			Name: "p",
			Nodes: []NodeConfig{
				{Source: "cam"},
				{Name: "c", Type: "stamp", Role: "connector"},
				{Name: "s", Type: "file", Role: "sink"},
			},
		}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*TaskConfig)
		topology bool
	}{
		{name: "missing name", mutate: func(c *TaskConfig) { c.Name = "" }},
		{name: "no pipelines", mutate: func(c *TaskConfig) { c.Pipelines = nil }},
		{name: "duplicate pipeline", mutate: func(c *TaskConfig) {
			c.Pipelines = append(c.Pipelines, c.Pipelines[0])
		}},
		{name: "unknown shared source", mutate: func(c *TaskConfig) { c.Pipelines[0].Nodes[0].Source = "nope" }},
		{name: "missing type", mutate: func(c *TaskConfig) { c.Pipelines[0].Nodes[1].Type = "" }},
		{name: "bad role", mutate: func(c *TaskConfig) { c.Pipelines[0].Nodes[1].Role = "middle" }},
		{name: "duplicate node", mutate: func(c *TaskConfig) { c.Pipelines[0].Nodes[2].Name = "c" }},
		{name: "no tail", topology: true, mutate: func(c *TaskConfig) {
			c.Pipelines[0].Nodes = c.Pipelines[0].Nodes[:2]
		}},
		{name: "two heads", topology: true, mutate: func(c *TaskConfig) {
			c.Pipelines[0].Nodes = append(c.Pipelines[0].Nodes,
				NodeConfig{Name: "g2", Type: "generator", Role: "source"})
		}},
		{name: "source as connector", mutate: func(c *TaskConfig) { c.Pipelines[0].Nodes[0].Role = "connector" }},
		{name: "duplicate shared source", mutate: func(c *TaskConfig) {
			c.Sources = append(c.Sources, c.Sources[0])
		}},
		{name: "inverted thresholds", mutate: func(c *TaskConfig) {
			c.Retry = retry.Config{Step: time.Millisecond, LowThreshold: 5, HighThreshold: 1}
		}},
		{name: "zero step with cap", mutate: func(c *TaskConfig) {
			c.Retry = retry.Config{MaxSleep: time.Millisecond, LowThreshold: 1, HighThreshold: 2}
		}},
		{name: "metrics port", mutate: func(c *TaskConfig) { c.Metrics.Port = 70000 }},
	}

	require.NoError(t, validConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "config errors are classified invalid: %v", err)
			if tt.topology {
				assert.True(t, stderrors.Is(err, errors.ErrInvalidTopology))
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &TaskConfig{}
	cfg.ApplyDefaults()
	assert.Equal(t, retry.DefaultConfig(), cfg.Retry)
	assert.Equal(t, DefaultCacheSlots, cfg.BufferCache.Slots)
	assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestSourceLookup(t *testing.T) {
	cfg := validConfig()
	src, ok := cfg.Source("cam")
	require.True(t, ok)
	assert.Equal(t, "generator", src.Type)

	_, ok = cfg.Source("missing")
	assert.False(t, ok)
	assert.Contains(t, cfg.String(), `"name": "t"`)
}

func TestHelpers(t *testing.T) {
	m := map[string]any{
		"s":    "text",
		"i":    7,
		"f":    float64(9.5),
		"b":    true,
		"d":    "250ms",
		"days": "2d",
		"n":    int64(1000),
		"bad":  "soon",
	}

	assert.Equal(t, "text", GetString(m, "s", ""))
	assert.Equal(t, "dflt", GetString(m, "i", "dflt"))
	assert.Equal(t, 7, GetInt(m, "i", 0))
	assert.Equal(t, 9, GetInt(m, "f", 0), "floats truncate")
	assert.Equal(t, 9.5, GetFloat64(m, "f", 0))
	assert.Equal(t, 7.0, GetFloat64(m, "i", 0))
	assert.Equal(t, 3, GetInt(m, "s", 3))
	assert.True(t, GetBool(m, "b", false))
	assert.True(t, GetBool(m, "s", true))
	assert.Equal(t, 250*time.Millisecond, GetDuration(m, "d", 0))
	assert.Equal(t, 48*time.Hour, GetDuration(m, "days", 0))
	assert.Equal(t, time.Duration(1000), GetDuration(m, "n", 0))
	assert.Equal(t, time.Second, GetDuration(m, "missing", time.Second))
	assert.Equal(t, time.Second, GetDuration(m, "b", time.Second))
	assert.Equal(t, time.Second, GetDuration(m, "bad", time.Second))
	assert.Equal(t, 4, GetInt(nil, "i", 4), "nil settings map is safe")
}

func TestReadConfigFile_Guards(t *testing.T) {
	_, err := readConfigFile("../outside.yaml")
	assert.True(t, errors.IsInvalid(err), "relative paths may not climb out of the working directory")

	_, err = readConfigFile("")
	assert.True(t, errors.IsInvalid(err))

	_, err = readConfigFile(t.TempDir() + string(filepath.Separator) + ".." + string(filepath.Separator) + "x.ini")
	assert.True(t, errors.IsInvalid(err))

	dir := filepath.Join(t.TempDir(), "dir.yaml")
	require.NoError(t, os.Mkdir(dir, 0700))
	_, err = readConfigFile(dir)
	assert.True(t, errors.IsInvalid(err), "directories are rejected")

	big := writeFile(t, "big.json", strings.Repeat(" ", maxConfigBytes+1))
	_, err = readConfigFile(big)
	assert.True(t, errors.IsInvalid(err))
}

func TestCheckNesting(t *testing.T) {
	assert.NoError(t, checkNesting([]byte(jsonConfig)))
	assert.Error(t, checkNesting([]byte(strings.Repeat("[", maxNesting+1)+strings.Repeat("]", maxNesting+1))))
	assert.Error(t, checkNesting([]byte(`{"a": [1, 2}`)))
}

func TestCheckEnvValue(t *testing.T) {
	assert.NoError(t, checkEnvValue("K", "fine"))
	assert.Error(t, checkEnvValue("K", "bad\x00value"))
	assert.Error(t, checkEnvValue("K", strings.Repeat("x", maxEnvValueLen+1)))
}
