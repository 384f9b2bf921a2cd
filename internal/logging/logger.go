// Package logging wires logrus for grantchat.
//
// The chat UI owns the terminal, so log output goes to a file under the
// configuration directory unless a caller redirects it.
package logging

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

// Entry and Fields alias the logrus types so callers do not import logrus directly.
type (
	Entry  = logrus.Entry
	Fields = logrus.Fields
)

// DefaultFileName is the log file created inside the config directory.
const DefaultFileName = "grantchat.log"

var rootLogger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(PlainFormatter{})
	return l
}

// Configure points the root logger at path with the given level.
// The returned closer releases the log file.
func Configure(level, path string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(PlainFormatter{})
	l.SetOutput(f)
	rootLogger = l

	return f, nil
}

// SetOutput redirects the root logger; tests use it to capture entries.
func SetOutput(w io.Writer) {
	rootLogger.SetOutput(w)
}

// SetLevel changes the root logger level.
func SetLevel(level logrus.Level) {
	rootLogger.SetLevel(level)
}

// Reset restores the discarding root logger.
func Reset() {
	rootLogger = newDiscardLogger()
}

// Named returns an entry tagged with a component field.
func Named(component string) *Entry {
	entry := logrus.NewEntry(rootLogger)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return entry
}

// PlainFormatter writes: [timestamp] [LEVEL] [component] message k=v ...
type PlainFormatter struct{}

// Format implements logrus.Formatter.
func (PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry == nil {
		return []byte{}, nil
	}

	parts := make([]string, 0, 5)
	parts = append(parts, fmt.Sprintf("[%s]", entry.Time.UTC().Format(time.RFC3339)))
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
