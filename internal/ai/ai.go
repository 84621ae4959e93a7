package ai

import (
	"context"
	"errors"
)

const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// ErrEmptyResponse is returned by generators when the model produced no text.
var ErrEmptyResponse = errors.New("model returned empty response")

// Generator turns a prompt into the model's textual answer.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Provider returns the provider name of a generator when it reports one.
func Provider(g Generator) string {
	if p, ok := g.(interface{ Provider() string }); ok {
		return p.Provider()
	}
	return ""
}
