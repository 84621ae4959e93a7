package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/prepscout/internal/ai"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu     sync.Mutex
	queue  []fakeResponse
	models []string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &delays
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	delays := noWait(t)

	fake := &fakeModels{queue: []fakeResponse{
		{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}},
		{resp: textResponse(" first ", "", "second")},
	}}
	gen := newGenerator(fake, zap.NewNop(), Options{Model: "gemini-pro", Backoff: time.Second})

	out, err := gen.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(fake.models) != 3 || fake.models[0] != "gemini-pro" {
		t.Fatalf("unexpected calls %v", fake.models)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; len(*delays) != 2 || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Fatalf("unexpected backoff %v", *delays)
	}
}

func TestGeneratorDoesNotRetryPermanentError(t *testing.T) {
	noWait(t)

	fake := &fakeModels{queue: []fakeResponse{
		{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
		{resp: textResponse("unreachable")},
	}}
	gen := newGenerator(fake, zap.NewNop(), Options{})

	if _, err := gen.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error")
	}
	if len(fake.models) != 1 {
		t.Fatalf("expected a single call, got %d", len(fake.models))
	}
	if gen.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", gen.Model())
	}
}

func TestGeneratorGivesUpAfterMaxRetries(t *testing.T) {
	noWait(t)

	tempErr := genai.APIError{Code: http.StatusServiceUnavailable}
	fake := &fakeModels{queue: []fakeResponse{{err: tempErr}, {err: tempErr}}}
	gen := newGenerator(fake, zap.NewNop(), Options{MaxRetries: 1})

	_, err := gen.GenerateContent(context.Background(), "prompt")
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected api error, got %v", err)
	}
	if len(fake.models) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.models))
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	fake := &fakeModels{queue: []fakeResponse{{resp: &genai.GenerateContentResponse{}}}}
	gen := newGenerator(fake, zap.NewNop(), Options{})

	if _, err := gen.GenerateContent(context.Background(), "prompt"); !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if _, err := gen.GenerateContent(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), zap.NewNop(), "", Options{}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}
