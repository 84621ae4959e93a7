package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name     string
		json     bool
		debug    bool
		encoding string
		level    zapcore.Level
		app      bool
	}{
		{name: "console", encoding: "console", level: zapcore.InfoLevel},
		{name: "json debug", json: true, debug: true, encoding: "json", level: zapcore.DebugLevel, app: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig(tt.json, tt.debug)
			if cfg.Encoding != tt.encoding {
				t.Fatalf("expected encoding %q, got %q", tt.encoding, cfg.Encoding)
			}
			if cfg.Level.Level() != tt.level {
				t.Fatalf("expected level %v, got %v", tt.level, cfg.Level.Level())
			}
			if cfg.DisableStacktrace == tt.debug {
				t.Fatalf("unexpected stacktrace setting for debug=%v", tt.debug)
			}
			if _, ok := cfg.InitialFields["app"]; ok != tt.app {
				t.Fatalf("unexpected app field presence: %v", cfg.InitialFields)
			}
		})
	}

	if _, err := New(true, false); err != nil {
		t.Fatalf("build logger: %v", err)
	}
}
