package client

import (
	"fmt"
	"log/slog"
)

// bestEffort runs one teardown step. Errors and panics are logged and
// swallowed so the remaining steps still run.
func bestEffort(logger *slog.Logger, step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Teardown step panicked", "step", step, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		logger.Warn("Teardown step failed", "step", step, "error", err)
	}
}
