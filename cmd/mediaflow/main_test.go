package main

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "task.yaml")
	doc := `
name: cli
pipelines:
  - name: main
    nodes:
      - name: gen
        type: generator
        role: source
        config:
          count: 4
          fps: 0
          frame_size: 8
      - name: stamp
        type: stamp
        role: connector
      - name: out
        type: file
        role: sink
        config:
          directory: ` + dir + `
          file_prefix: cli
          format: jsonl
          append: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestParseFlags(t *testing.T) {
	t.Setenv("MEDIAFLOW_LOG_LEVEL", "warn")
	t.Setenv("MEDIAFLOW_SHUTDOWN_TIMEOUT", "5s")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := parseFlags(fs, []string{"--config", "task.yaml", "--metrics-port", "9100"})
	require.NoError(t, err)

	assert.Equal(t, "task.yaml", cfg.ConfigPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 9100, cfg.MetricsPort)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestValidateFlags(t *testing.T) {
	path := writeConfig(t, t.TempDir())
	base := CLIConfig{ConfigPath: path, LogLevel: "info", LogFormat: "json", ShutdownTimeout: time.Second}

	tests := []struct {
		name   string
		mutate func(*CLIConfig)
		ok     bool
	}{
		{"valid", func(*CLIConfig) {}, true},
		{"missing config", func(c *CLIConfig) { c.ConfigPath = "/nonexistent.yaml" }, false},
		{"bad level", func(c *CLIConfig) { c.LogLevel = "trace" }, false},
		{"bad format", func(c *CLIConfig) { c.LogFormat = "xml" }, false},
		{"bad port", func(c *CLIConfig) { c.MetricsPort = 70000 }, false},
		{"zero timeout", func(c *CLIConfig) { c.ShutdownTimeout = 0 }, false},
		{"version skips checks", func(c *CLIConfig) { c.ConfigPath = ""; c.ShowVersion = true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := validateFlags(&cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "service=mediaflow")
}

func TestRunValidateOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	require.NoError(t, run([]string{"--config", path, "--validate", "--log-level", "error"}))
	_, err := os.Stat(filepath.Join(dir, "cli.jsonl"))
	assert.True(t, os.IsNotExist(err), "validate must not run the task")
}

func TestRunToCompletion(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	require.NoError(t, run([]string{"--config", path, "--log-level", "error", "--shutdown-timeout", "5s"}))

	data, err := os.ReadFile(filepath.Join(dir, "cli.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}
