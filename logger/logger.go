// Package logger routes logs to a file, since the terminal belongs to the chat view.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger
type LogEntry = logrus.Entry
type Fields = logrus.Fields

var rootLogger = newDiscardLogger()

// Setup points the root logger at logPath with the given level. The returned closer closes
// the log file.
func Setup(logPath, level string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logger.Setup: %w", err)
	}

	f, err := openLogFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("logger.Setup: %w", err)
	}

	l := logrus.New()
	l.SetReportCaller(true)
	l.SetFormatter(PlainFormatter{})
	l.SetLevel(lvl)
	l.SetOutput(f)
	rootLogger = l

	return f, nil
}

// Root returns the shared logger.
func Root() *Logger {
	return rootLogger
}

// SetRoot replaces the shared logger, nil restores a logger that discards everything.
func SetRoot(l *Logger) {
	if l == nil {
		l = newDiscardLogger()
	}
	rootLogger = l
}

// Named returns an entry tagged with a component field.
func Named(component string) *LogEntry {
	entry := logrus.NewEntry(rootLogger)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return entry
}

func newDiscardLogger() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// PlainFormatter writes `caller [timestamp] [LEVEL] [component] message k=v...`.
type PlainFormatter struct{}

func (PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry == nil {
		return []byte{}, nil
	}

	parts := make([]string, 0, 6)
	if entry.HasCaller() && entry.Caller != nil {
		parts = append(parts, fmt.Sprintf("%s:%d", shortenFilePath(entry.Caller.File), entry.Caller.Line))
	}
	parts = append(parts, fmt.Sprintf("[%s]", entry.Time.UTC().Format(time.RFC3339Nano)))
	parts = append(parts, fmt.Sprintf("[%s]", strings.ToUpper(entry.Level.String())))
	if component, ok := entry.Data["component"].(string); ok && component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	parts = append(parts, entry.Message)
	if fields := formatFields(entry.Data); fields != "" {
		parts = append(parts, fields)
	}

	return []byte(strings.Join(parts, " ") + "\n"), nil
}

func formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "component" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

func shortenFilePath(file string) string {
	file = filepath.ToSlash(file)
	if idx := strings.Index(file, "/compound/"); idx != -1 {
		return file[idx+len("/compound/"):]
	}
	return filepath.Base(file)
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
