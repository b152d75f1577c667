package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("serving") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("parsed sources") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("parsed sources") }, true},
		{"warn at info level", log.InfoLevel, func(l *log.Logger) { l.Warn("parse cache disabled") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestNewLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("converted", "sources", 3, "targets", 12)

	out := buf.String()
	for _, want := range []string{"converted", "sources=3", "targets=12"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.DebugLevel))
	time.Sleep(5 * time.Millisecond)
	prog.done("Converted 2 sources")

	out := buf.String()
	if !strings.Contains(out, "Converted 2 sources (") || !strings.Contains(out, "ms)") {
		t.Errorf("progress output = %q", out)
	}

	buf.Reset()
	newProgress(newLogger(&buf, log.InfoLevel)).done("Converted 1 source")
	if buf.Len() != 0 {
		t.Errorf("progress wrote at info level: %q", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Fatal("loggerFromContext() = nil without a logger")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if loggerFromContext(ctx) != custom {
		t.Error("loggerFromContext() did not return the attached logger")
	}
}
