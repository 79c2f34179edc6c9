package spinwheel

import (
	"io"

	"github.com/google/logger"
)

// DefaultLogger implements Logger on top of google/logger.
// The zero value logs through the package-level google/logger instance with debug output disabled.
type DefaultLogger struct {
	l       *logger.Logger
	verbose bool
}

// NewDefaultLogger initializes a google/logger instance writing to out (may be
// nil) in addition to stderr. verbose enables Debug output.
func NewDefaultLogger(name string, verbose bool, out io.Writer) *DefaultLogger {
	if out == nil {
		out = io.Discard
	}
	return &DefaultLogger{
		l:       logger.Init(name, verbose, false, out),
		verbose: verbose,
	}
}

// Debug logs a debug message
func (d *DefaultLogger) Debug(msg string, args ...any) {
	if !d.verbose {
		return
	}
	d.Info("[DEBUG] "+msg, args...)
}

// Info logs an info message
func (d *DefaultLogger) Info(msg string, args ...any) {
	if d.l == nil {
		logger.Infof(msg, args...)
		return
	}
	d.l.Infof(msg, args...)
}

// Warn logs a warning message
func (d *DefaultLogger) Warn(msg string, args ...any) {
	if d.l == nil {
		logger.Warningf(msg, args...)
		return
	}
	d.l.Warningf(msg, args...)
}

// Error logs an error message
func (d *DefaultLogger) Error(msg string, args ...any) {
	if d.l == nil {
		logger.Errorf(msg, args...)
		return
	}
	d.l.Errorf(msg, args...)
}

// Close flushes and closes the underlying google/logger instance, if any
func (d *DefaultLogger) Close() {
	if d.l != nil {
		d.l.Close()
	}
}

// SilentLogger implements Logger interface but does not output any logs
// This is useful for testing environments where log output is not desired
type SilentLogger struct{}

// NewSilentLogger creates a new silent logger instance
func NewSilentLogger() *SilentLogger { return &SilentLogger{} }

func (l *SilentLogger) Debug(msg string, args ...any) {}
func (l *SilentLogger) Info(msg string, args ...any)  {}
func (l *SilentLogger) Warn(msg string, args ...any)  {}
func (l *SilentLogger) Error(msg string, args ...any) {}
