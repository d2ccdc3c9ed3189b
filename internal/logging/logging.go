// =============================================================================
// CSV Document Loader - Logging
// =============================================================================
//
// Logging goes through logrus. Components do not import logrus; they accept
// the Logger interface, which *logrus.Logger and *logrus.Entry satisfy.
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Logger is the printf-style logger used by the pipeline.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Options configure a logger.
type Options struct {
	// Level is one of debug, info, warn, error, silent.
	Level string

	// Format is text or json.
	Format string

	// File, when set, receives a copy of every entry.
	File string

	// Output defaults to stdout.
	Output io.Writer
}

// Level maps a configured level name to a logrus level. Unknown names map
// to error, silent to panic (nothing is logged).
func Level(name string) logrus.Level {
	switch name {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// New builds a logger. The returned closer releases the log file and must
// be called when logging ends; it is a no-op without a file.
func New(opts Options) (*logrus.Logger, func() error, error) {
	logger := logrus.New()
	logger.SetLevel(Level(opts.Level))

	switch opts.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	closer := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closer = f.Close
	}
	logger.SetOutput(out)

	return logger, closer, nil
}

// Nop returns a logger that discards everything.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
