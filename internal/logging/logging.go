package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger is the levelled key/value logger used across the module
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
	debug bool
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// New creates a logger writing to w. Debug lines are dropped unless debug is set.
func New(w io.Writer, debug bool) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &stdLogger{
		Logger: log.New(w, "cachecleanup: ", log.LstdFlags|log.Lmicroseconds),
		debug:  debug,
	}
}

// Wrap adapts an existing *log.Logger
func Wrap(l *log.Logger, debug bool) Logger {
	if l == nil {
		l = log.Default()
	}
	return &stdLogger{Logger: l, debug: debug}
}

type discard struct{}

func (discard) Debug(string, ...interface{}) {}
func (discard) Info(string, ...interface{})  {}
func (discard) Error(string, ...interface{}) {}

// Discard drops everything
var Discard Logger = discard{}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open creates a logger writing to stderr and, when filePath is set, to the
// file as well after rotating it if it is older than rotationDays.
// The returned closer releases the file and is never nil.
func Open(filePath string, rotationDays int, debug bool) (Logger, io.Closer, error) {
	if filePath == "" {
		return New(os.Stderr, debug), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure log directory: %w", err)
	}

	if rotationDays <= 0 {
		rotationDays = 30
	}
	rotateLogsIfNeeded(filePath, rotationDays)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", filePath, err)
	}

	mw := io.MultiWriter(os.Stderr, f)
	return New(mw, debug), f, nil
}

// rotateLogsIfNeeded rotates log files older than the specified days
func rotateLogsIfNeeded(logPath string, rotationDays int) {
	info, err := os.Stat(logPath)
	if err != nil {
		// Log file doesn't exist yet, nothing to rotate
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		rotatedPath := logPath + "." + timestamp

		if err := os.Rename(logPath, rotatedPath); err != nil {
			log.Printf("failed to rotate log file: %v", err)
			return
		}

		cleanupOldLogs(logPath, rotationDays)
	}
}

// cleanupOldLogs removes rotated log files older than rotation days
func cleanupOldLogs(logPath string, rotationDays int) {
	logDir := filepath.Dir(logPath)
	baseName := filepath.Base(logPath)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, baseName+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, name)
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
