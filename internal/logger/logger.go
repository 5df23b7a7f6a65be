// Package logger provides leveled logging for medingest.
// Console output is gated by verbose mode (the --verbose flag), except
// errors which are always printed. When a log file is configured every
// message is also appended to it, with rotation handled by lumberjack.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	file    io.WriteCloser
)

// FileOptions configures the rotating log file.
type FileOptions struct {
	// Path is the log file location.
	Path string

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// MaxAgeDays removes rotated files older than this.
	MaxAgeDays int
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the console writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetFile starts mirroring every message to a rotating log file.
// An empty path disables the file sink.
func SetFile(opts FileOptions) {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	if opts.Path == "" {
		return
	}
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}
	file = &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func write(level, format string, args []any, console bool) {
	mu.RLock()
	defer mu.RUnlock()
	msg := fmt.Sprintf(format, args...)
	if console {
		fmt.Fprintf(output, "[%s] %s\n", level, msg)
	}
	if file != nil {
		fmt.Fprintf(file, "%s [%s] %s\n", time.Now().Format(time.RFC3339), level, msg)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write("DEBUG", format, args, IsVerbose())
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write("INFO", format, args, IsVerbose())
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	write("WARN", format, args, IsVerbose())
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	write("ERROR", format, args, true)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
