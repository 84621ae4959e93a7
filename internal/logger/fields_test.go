package logger

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFieldsDropsBlankPairs(t *testing.T) {
	got := StringFields(
		StringField{" ai_provider ", " claude "},
		StringField{"blank_value", "\t"},
		StringField{"  ", "orphan value"},
		StringField{FieldUser, "u1"},
	)

	want := []zap.Field{zap.String("ai_provider", "claude"), zap.String(FieldUser, "u1")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if n := len(StringFields()); n != 0 {
		t.Fatalf("expected no fields, got %d", n)
	}
}

func TestScopedLoggers(t *testing.T) {
	tests := []struct {
		name   string
		scope  func(*zap.Logger) *zap.Logger
		want   map[string]any
		absent []string
	}{
		{
			name:  "raw fields",
			scope: func(l *zap.Logger) *zap.Logger { return WithFields(l, zap.String(FieldRequest, "req-9")) },
			want:  map[string]any{FieldRequest: "req-9"},
		},
		{
			name:  "generator",
			scope: func(l *zap.Logger) *zap.Logger { return WithCommonFields(l, "gemini", " gemini-2.5-flash ") },
			want:  map[string]any{FieldProvider: "gemini", FieldModel: "gemini-2.5-flash"},
		},
		{
			name:   "generator without model",
			scope:  func(l *zap.Logger) *zap.Logger { return WithCommonFields(l, "claude", "") },
			want:   map[string]any{FieldProvider: "claude"},
			absent: []string{FieldModel},
		},
		{
			name:   "run before session exists",
			scope:  func(l *zap.Logger) *zap.Logger { return WithRun(l, "user-1", "") },
			want:   map[string]any{FieldUser: "user-1"},
			absent: []string{FieldSession},
		},
		{
			name:  "run",
			scope: func(l *zap.Logger) *zap.Logger { return WithRun(l, "user-1", "s-1") },
			want:  map[string]any{FieldUser: "user-1", FieldSession: "s-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.InfoLevel)
			tt.scope(zap.New(core)).Info("scoped")

			entries := observed.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			ctx := entries[0].ContextMap()
			for key, value := range tt.want {
				if ctx[key] != value {
					t.Fatalf("field %s: got %v, want %v", key, ctx[key], value)
				}
			}
			for _, key := range tt.absent {
				if _, ok := ctx[key]; ok {
					t.Fatalf("field %s must be omitted", key)
				}
			}

			// A nil logger must be usable.
			tt.scope(nil).Info("discarded")
		})
	}
}
