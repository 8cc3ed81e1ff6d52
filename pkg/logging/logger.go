// Package logging provides structured logging configuration using zerolog.
//
// Logs always go to stderr (or the configured writer). Standard output is
// reserved for the size report.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Output formats accepted by ParseFormat.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns the CLI logger configuration: warnings and errors
// only, console output when stderr is a terminal.
func DefaultConfig() Config {
	return Config{
		Level:  LevelWarn,
		Pretty: IsTerminal(os.Stderr),
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, NoColor: !isTerminalWriter(output)}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidLevel reports whether s names a known level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ParseFormat maps a format name to the Pretty flag. Unknown names fall
// back to the terminal check.
func ParseFormat(format string, out *os.File) bool {
	switch strings.ToLower(format) {
	case FormatJSON:
		return false
	case FormatConsole, "pretty", "text":
		return true
	default:
		return IsTerminal(out)
	}
}

// IsTerminal checks if the given file is a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminal(f)
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow
//   - Page requests (page, per_page, endpoint)
//   - Page sizes and decoded record counts
//   - Rate limit header updates
//
// Info: run summary
//   - Collection exhausted (pages, records, duration)
//   - Metrics file written
//
// Warn: conditions that do not stop the run
//   - Rate limit running low
//   - Optional .env file unreadable
//
// Error: the run is about to fail
//   - Page fetch failed (status, error_class)
//
// Context Fields:
//   - endpoint: collection path
//   - page: page cursor
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - remaining: X-RateLimit-Remaining
