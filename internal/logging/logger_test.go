package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter(t *testing.T) {
	ts := time.Date(2025, 2, 7, 15, 35, 0, 0, time.UTC)

	cases := []struct {
		name    string
		data    logrus.Fields
		level   logrus.Level
		message string
		want    string
	}{
		{
			name:    "component and fields",
			data:    logrus.Fields{"component": "api", "user_id": "u1", "endpoint": "/chat"},
			level:   logrus.WarnLevel,
			message: "send message failed",
			want:    "[2025-02-07T15:35:00Z] [WARNING] [api] send message failed endpoint=/chat user_id=u1\n",
		},
		{
			name:    "no component",
			data:    logrus.Fields{},
			level:   logrus.InfoLevel,
			message: "hello",
			want:    "[2025-02-07T15:35:00Z] [INFO] hello\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   tc.level,
				Message: tc.message,
				Data:    tc.data,
			}
			out, err := (PlainFormatter{}).Format(entry)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if string(out) != tc.want {
				t.Fatalf("unexpected format:\nwant: %q\ngot:  %q", tc.want, string(out))
			}
		})
	}
}

func TestNamed_WritesComponent(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(logrus.DebugLevel)

	Named("tui").WithError(errors.New("boom")).Warn("history save failed")

	got := buf.String()
	if !strings.Contains(got, "[tui]") {
		t.Errorf("expected component in output, got %q", got)
	}
	if !strings.Contains(got, "error=boom") {
		t.Errorf("expected error field in output, got %q", got)
	}
}

func TestConfigure_WritesFile(t *testing.T) {
	defer Reset()

	path := filepath.Join(t.TempDir(), "logs", DefaultFileName)
	closer, err := Configure("debug", path)
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}

	Named("test").Debug("debug line")
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "[DEBUG] [test] debug line") {
		t.Errorf("unexpected log content: %q", data)
	}
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	defer Reset()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	closer, err := Configure("chatty", path)
	if err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	defer closer.Close()

	if rootLogger.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", rootLogger.GetLevel())
	}
}
