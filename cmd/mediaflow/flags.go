package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	MetricsPort     int
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("MEDIAFLOW_CONFIG", "configs/example.yaml"),
		"Path to task configuration file (env: MEDIAFLOW_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("MEDIAFLOW_CONFIG", "configs/example.yaml"),
		"Path to task configuration file (env: MEDIAFLOW_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MEDIAFLOW_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: MEDIAFLOW_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MEDIAFLOW_LOG_FORMAT", "json"),
		"Log format: json, text (env: MEDIAFLOW_LOG_FORMAT)")

	fs.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("MEDIAFLOW_METRICS_PORT", 0),
		"Metrics and health port, overrides the config file when set (env: MEDIAFLOW_METRICS_PORT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("MEDIAFLOW_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Time to wait for pipelines after a shutdown signal (env: MEDIAFLOW_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	out := fs.Output()
	_, _ = fmt.Fprintf(out, `%s - node-graph media pipeline engine

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(out, `
Examples:
  # Run a task graph
  %s --config=/etc/mediaflow/capture.yaml

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run with environment variables
  export MEDIAFLOW_CONFIG=/etc/mediaflow/capture.yaml
  export MEDIAFLOW_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
