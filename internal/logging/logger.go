// Package logging provides the leveled, key-value logger shared by every
// pipeline component.
package logging

import (
	"bufio"
	"fmt"
	"log"
	"os"
)

// Logger provides structured logging for one pipeline component.
type Logger struct {
	prefix string
	logger *log.Logger
}

// NewLogger creates a new logger tagged with the component name.
func NewLogger(component string) *Logger {
	return &Logger{
		prefix: component,
		logger: log.New(os.Stdout, fmt.Sprintf("[%s] ", component), log.LstdFlags),
	}
}

// WithJob returns a logger that also tags every line with a content-hash
// prefix, matching the way the Uploader tags forwarded processor log lines.
func (l *Logger) WithJob(hashPrefix string) *Logger {
	return &Logger{
		prefix: l.prefix,
		logger: log.New(os.Stdout, fmt.Sprintf("[%s][%s] ", l.prefix, shortHash(hashPrefix)), log.LstdFlags),
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// Info logs an informational message with key-value pairs.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV("INFO", msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV("WARN", msg, keysAndValues...)
}

// Error logs an error message with key-value pairs.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV("ERROR", msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV("DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(level, msg string, keysAndValues ...interface{}) {
	kvStr := ""
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			kvStr += fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1])
		}
	}
	l.logger.Printf("[%s] %s%s", level, msg, kvStr)
}

// ForwardFile reads a processor log file line-by-line and re-emits each line
// through this logger, tagged with the job's content hash. Missing files are
// not an error: the processor may have crashed before it could create one.
func ForwardFile(l *Logger, hashPrefix, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	jl := l.WithJob(hashPrefix)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		jl.Info("processor: " + scanner.Text())
	}
	return scanner.Err()
}
