package internal

import "log/slog"

func LogGoroutineClosed(logger *slog.Logger, name string) {
	logger.Debug("goroutine done", "name", name)
}
