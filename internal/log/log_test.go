package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logFunc func(l Logger)
		want    []string
		notWant []string
	}{
		{
			name:    "text format includes message and attrs",
			cfg:     Config{Level: slog.LevelInfo},
			logFunc: func(l Logger) { l.Info("cache lookup", "hit", true) },
			want:    []string{"cache lookup", "hit=true"},
		},
		{
			name:    "json format",
			cfg:     Config{Level: slog.LevelInfo, JSON: true},
			logFunc: func(l Logger) { l.Info("session created", "id", "abc") },
			want:    []string{`"msg":"session created"`, `"id":"abc"`},
		},
		{
			name:    "debug suppressed at info level",
			cfg:     Config{Level: slog.LevelInfo},
			logFunc: func(l Logger) { l.Debug("noisy detail") },
			notWant: []string{"noisy detail"},
		},
		{
			name:    "debug emitted at debug level",
			cfg:     Config{Level: slog.LevelDebug},
			logFunc: func(l Logger) { l.Debug("noisy detail") },
			want:    []string{"noisy detail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)
			tt.logFunc(logger)

			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q, got: %s", want, out)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(out, notWant) {
					t.Errorf("output should not contain %q, got: %s", notWant, out)
				}
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept all levels.
	logger.Debug("discarded")
	logger.Info("discarded")
	logger.Warn("discarded")
	logger.Error("discarded")
}

func TestWithPreservesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{}).With("component", "chat")
	logger.Info("answering")

	if !strings.Contains(buf.String(), "component=chat") {
		t.Errorf("expected component attr, got: %s", buf.String())
	}
}
