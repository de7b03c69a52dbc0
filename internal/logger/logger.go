// Package logger writes operational messages to stderr so stdout stays clean
// for data output such as snapshot listings and cluster settings.
package logger

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
)

const masked = "******"

// Logger handles operational logging. A nil *Logger discards everything.
type Logger struct {
	writer io.Writer
	quiet  bool
	debug  bool
}

// New creates a new logger that writes to stderr
func New(quiet, debug bool) *Logger {
	return NewWithWriter(os.Stderr, quiet, debug)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, quiet, debug bool) *Logger {
	return &Logger{
		writer: w,
		quiet:  quiet,
		debug:  debug,
	}
}

func (l *Logger) printf(prefix, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(l.writer, prefix+format+"\n", args...)
}

// Infof logs an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l != nil && !l.quiet {
		l.printf("", format, args...)
	}
}

// Successf logs a success message
func (l *Logger) Successf(format string, args ...interface{}) {
	if l != nil && !l.quiet {
		l.printf("✓ ", format, args...)
	}
}

// Warningf logs a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if l != nil && !l.quiet {
		l.printf("Warning: ", format, args...)
	}
}

// Errorf logs an error message (always shown, even in quiet mode)
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l != nil {
		l.printf("error: ", format, args...)
	}
}

// Debugf logs a debug message (only shown when debug mode is enabled)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l != nil && l.debug {
		l.printf("DEBUG: ", format, args...)
	}
}

// Options prints resolved options in debug mode, sorted by key. Empty values
// are skipped and the values of the secret keys are masked.
func (l *Logger) Options(opts map[string]string, secret ...string) {
	if l == nil || !l.debug {
		return
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	l.printf("DEBUG: ", "Options:")
	for _, k := range keys {
		v := opts[k]
		if v == "" {
			continue
		}
		if slices.Contains(secret, k) {
			v = masked
		}
		l.printf("DEBUG: ", "  %s: %s", k, v)
	}
}
