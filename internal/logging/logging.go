package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	loggerOnce    sync.Once
)

// GetDefaultLogger returns the process-wide logger, initializing it on first
// use. Log level is taken from SIGSCOUT_LOG_LEVEL (debug, info, warn, error);
// output switches to the human-readable console writer when stderr is a
// terminal.
func GetDefaultLogger() zerolog.Logger {
	loggerOnce.Do(initDefaultLogger)
	return defaultLogger
}

// GetSubsystemLogger returns a logger tagged with the given subsystem name.
func GetSubsystemLogger(subsystem string) zerolog.Logger {
	return GetDefaultLogger().With().Str("subsystem", subsystem).Logger()
}

func initDefaultLogger() {
	level := parseLevel(os.Getenv("SIGSCOUT_LOG_LEVEL"))

	var out zerolog.ConsoleWriter
	if stderrIsTerminal() {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		defaultLogger = zerolog.New(out).Level(level).With().Timestamp().Logger()
		return
	}
	defaultLogger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
