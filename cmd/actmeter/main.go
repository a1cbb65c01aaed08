// Package main implements actmeter, a headless combat meter. It connects to
// an ACT aggregator over websocket or the local NATS bus, keeps the
// encounter history, prints the live encounter to stdout and serves
// metrics and health over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/actmeter/config"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "actmeter"
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

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cliCfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(stderr, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}

	if cliCfg.PrintConfig != "" {
		out, err := cfg.Marshal(cliCfg.PrintConfig)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = stdout.Write(out)
		return err
	}

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	logger.Info("Starting actmeter",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"transport", cfg.Transport)

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	a, err := newApp(signalCtx, cfg, logger)
	if err != nil {
		return err
	}

	if !cliCfg.Stdin {
		stdin = nil
	}
	runErr := a.Run(signalCtx, stdin, stdout)
	if runErr != nil {
		logger.Error("Meter stopped", "error", runErr)
	} else {
		logger.Info("Received shutdown signal")
	}

	if err := a.Shutdown(cliCfg.ShutdownTimeout); err != nil {
		logger.Warn("Shutdown incomplete", "error", err)
	}
	logger.Info("actmeter shutdown complete")
	return runErr
}

// loadConfig layers path, if any, over the defaults and validates.
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
