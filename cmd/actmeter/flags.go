package main

import (
	"flag"
	"fmt"
	"io"
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
	ShutdownTimeout time.Duration
	Stdin           bool
	ShowVersion     bool
	Validate        bool
	PrintConfig     string
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("ACTMETER_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: ACTMETER_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("ACTMETER_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: ACTMETER_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("ACTMETER_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: ACTMETER_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("ACTMETER_LOG_FORMAT", "text"),
		"Log format: json, text (env: ACTMETER_LOG_FORMAT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("ACTMETER_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: ACTMETER_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.Stdin, "stdin",
		getEnvBool("ACTMETER_STDIN", true),
		"Read end, clear, reset and status commands from stdin (env: ACTMETER_STDIN)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.StringVar(&cfg.PrintConfig, "print-config", "", "Print the effective configuration as yaml or json and exit")

	fs.Usage = func() {
		printDetailedHelp(fs, stderr)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.PrintConfig != "" && !slices.Contains([]string{"json", "yaml"}, cfg.PrintConfig) {
		return fmt.Errorf("invalid print-config format: %s", cfg.PrintConfig)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - headless ACT combat meter

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Commands on stdin:
  end      end the current encounter
  clear    clear the history
  reset    reset a failed connection
  status   print connection status

Examples:
  # Run against a local aggregator with defaults
  %s

  # Run with a config file and debug logging
  %s --config=/etc/actmeter/config.yaml --log-level=debug

  # Validate configuration only
  %s --config=meter.json --validate

Version: %s
Build: %s
`, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
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
