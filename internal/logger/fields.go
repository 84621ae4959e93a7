package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Keys of the structured fields shared across packages.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldUser     = "user_id"
	FieldSession  = "search_id"
	FieldRequest  = "request_id"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields keeps the pairs whose trimmed key and value are both set.
func StringFields(pairs ...StringField) []zap.Field {
	out := make([]zap.Field, 0, len(pairs))
	for _, p := range pairs {
		key, value := strings.TrimSpace(p.Key), strings.TrimSpace(p.Value)
		if key != "" && value != "" {
			out = append(out, zap.String(key, value))
		}
	}
	return out
}

// WithFields is logger.With that accepts a nil logger.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// CommonFields names the generator behind a log line.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(StringField{FieldProvider, provider}, StringField{FieldModel, model})
}

func WithCommonFields(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, CommonFields(provider, model)...)
}

// WithRun scopes l to one pipeline run.
func WithRun(l *zap.Logger, userID, sessionID string) *zap.Logger {
	return WithFields(l, StringFields(StringField{FieldUser, userID}, StringField{FieldSession, sessionID})...)
}
