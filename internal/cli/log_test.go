package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("applied layout") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("cache miss") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("cache miss") }, true},
		{"warn at info", log.InfoLevel, func(l *log.Logger) { l.Warn("unconverged") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("logged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRaiseVerbosity(t *testing.T) {
	tests := []struct {
		name       string
		start      log.Level
		configured string
		want       log.Level
	}{
		{"config lowers to debug", log.InfoLevel, "debug", log.DebugLevel},
		{"config cannot silence verbose", log.DebugLevel, "error", log.DebugLevel},
		{"config raises nothing at info", log.InfoLevel, "warn", log.InfoLevel},
		{"unknown level is ignored", log.InfoLevel, "chatty", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLogger(&bytes.Buffer{}, tt.start)
			raiseVerbosity(l, tt.configured)
			if got := l.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Relayout of 3 nodes")

	out := buf.String()
	if !strings.Contains(out, "Relayout of 3 nodes (") || !strings.Contains(out, "s)") {
		t.Errorf("done() output = %q", out)
	}
}
