package logging

import (
	"flag"
	"log/slog"
	"os"
)

// Logging installs the default stderr text logger and registers the
// log-level flag. The returned level can be lowered once flags are
// parsed, for verbose mode.
func Logging() *slog.LevelVar {
	var logLevel slog.LevelVar
	flag.TextVar(&logLevel, "log-level", &logLevel, "Set the logging level")

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel})
	slog.SetDefault(slog.New(h))
	slog.SetLogLoggerLevel(slog.LevelError)

	return &logLevel
}
