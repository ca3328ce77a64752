package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Init initializes the logging system, writing text logs to
// $XDG_STATE_HOME/taskdeck/taskdeck.log (the TUI owns stdout).
// Closing the returned closer closes the file and restores the previous
// slog and log defaults.
func Init(level string) (*slog.Logger, io.Closer, error) {
	logDir, err := logDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}

	file, err := os.OpenFile(filepath.Join(logDir, "taskdeck.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	lf := &logFile{
		File:      file,
		prevSlog:  slog.Default(),
		prevOut:   log.Writer(),
		prevFlags: log.Flags(),
	}

	logger := New(file, level)
	slog.SetDefault(logger)

	// Redirect standard log package output to the same file
	log.SetOutput(file)
	log.SetFlags(log.LstdFlags)

	return logger, lf, nil
}

type logFile struct {
	*os.File
	prevSlog  *slog.Logger
	prevOut   io.Writer
	prevFlags int
}

func (f *logFile) Close() error {
	slog.SetDefault(f.prevSlog)
	log.SetOutput(f.prevOut)
	log.SetFlags(f.prevFlags)
	return f.File.Close()
}

// New builds a text logger writing to w at the given level
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything, for tests and nil defaults
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel accepts debug, info, warn, error. Defaults to info on unknown input.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logDir() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "taskdeck"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "taskdeck"), nil
}
