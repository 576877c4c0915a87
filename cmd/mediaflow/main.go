// Package main implements the mediaflow command, which loads a task graph,
// runs its pipelines until they finish or a shutdown signal arrives, and
// serves Prometheus metrics and task health.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/mediaflow/componentregistry"
	"github.com/c360/mediaflow/config"
	"github.com/c360/mediaflow/metric"
	"github.com/c360/mediaflow/node"
	"github.com/c360/mediaflow/task"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "mediaflow"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, logger, shouldExit, err := initializeCLI(args)
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	metricsRegistry := metric.NewMetricsRegistry()
	tk, err := buildTask(cfg, logger, metricsRegistry)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid",
			"task", cfg.Name,
			"pipelines", len(cfg.Pipelines),
			"sources", len(cfg.Sources))
		return nil
	}

	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry, func() (any, bool) {
			status := tk.Health()
			return status, !status.IsUnhealthy()
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			if err := server.Stop(); err != nil {
				slog.Warn("Failed to stop metrics server", "error", err)
			}
		}()
		slog.Info("Metrics server started", "address", server.Address())
	}

	if err := runWithSignalHandling(context.Background(), tk, cliCfg.ShutdownTimeout); err != nil {
		return err
	}
	logPipelineCounters(tk, metricsRegistry)
	return nil
}

// initializeCLI parses flags and sets up logging
func initializeCLI(args []string) (*CLIConfig, *slog.Logger, bool, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		return nil, nil, false, fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp(fs)
		return nil, nil, true, nil
	}

	logger := setupLogger(os.Stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting mediaflow",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads the task graph and applies flag overrides
func initializeConfiguration(cliCfg *CLIConfig) (*config.TaskConfig, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.MetricsPort > 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
		cfg.Metrics.Enabled = true
	}

	slog.Debug("Configuration loaded", "config", cfg.String())
	return cfg, nil
}

// buildTask creates every node through the built-in registry
func buildTask(cfg *config.TaskConfig, logger *slog.Logger, registry *metric.MetricsRegistry) (*task.Task, error) {
	nodes, err := componentregistry.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("register node types: %w", err)
	}
	slog.Debug("Node types registered", "types", nodes.Types())

	tk, err := task.Build(cfg, nodes, node.Dependencies{
		Logger:  logger,
		Metrics: registry,
	})
	if err != nil {
		return nil, fmt.Errorf("build task: %w", err)
	}
	return tk, nil
}

// runWithSignalHandling runs the task until every pipeline finishes or a
// shutdown signal arrives, then stops it and waits up to shutdownTimeout
func runWithSignalHandling(ctx context.Context, tk *task.Task, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := tk.Start(ctx); err != nil {
		return fmt.Errorf("start task: %w", err)
	}
	slog.Info("Task started", "task", tk.Name(), "run_id", tk.ID())

	select {
	case <-tk.Done():
		slog.Info("All pipelines finished")
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	return shutdown(tk, shutdownTimeout)
}

// shutdown stops the task, closes its shared sources and waits for the
// coordinator
func shutdown(tk *task.Task, timeout time.Duration) error {
	stopErr := tk.Stop()
	if stopErr != nil {
		slog.Error("Error closing shared sources", "error", stopErr)
	}

	select {
	case <-tk.Done():
	case <-time.After(timeout):
		return fmt.Errorf("pipelines did not stop within %s", timeout)
	}

	for name, res := range tk.Results() {
		slog.Info("Pipeline result", "pipeline", name, "result", res.String())
		if res > node.ResultEndOfStream {
			return fmt.Errorf("pipeline %s stopped with %s", name, res)
		}
	}
	if err := tk.Err(); err != nil {
		return fmt.Errorf("task failed: %w", err)
	}

	slog.Info("mediaflow shutdown complete")
	return stopErr
}

// logPipelineCounters logs the final counters of each pipeline
func logPipelineCounters(tk *task.Task, registry *metric.MetricsRegistry) {
	for _, p := range tk.Pipelines() {
		counters, err := registry.Snapshot("pipeline", p.Name())
		if err != nil {
			slog.Warn("Failed to read pipeline metrics", "pipeline", p.Name(), "error", err)
			continue
		}
		slog.Info("Pipeline counters", "pipeline", p.Name(), "counters", counters)
	}
}
