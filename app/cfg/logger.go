package cfg

import (
	"log/slog"
	"os"
)

// SetupLogger installs the process-wide text logger on stdout.
func SetupLogger(c *Cfg) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
