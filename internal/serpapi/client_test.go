package serpapi

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildParamsSkipsZeroValues(t *testing.T) {
	q := buildParams(&Params{Engine: EngineGoogle, Query: "go developer", Num: 5})

	if q.Get("engine") != "google" || q.Get("q") != "go developer" || q.Get("num") != "5" {
		t.Fatalf("unexpected params: %v", q)
	}
	if q.Has("tbs") || q.Has("location") {
		t.Fatalf("zero values must not be sent: %v", q)
	}
}

func TestSearch(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SearchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic_results":[{"title":"Go Dev"}]}`))
	}))
	defer srv.Close()

	client, err := New(zap.NewNop(), "secret", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	payload, err := client.Search(context.Background(), &Params{Engine: EngineGoogleJobs, Query: "sre", Location: "Berlin"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	results, ok := payload["organic_results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if gotQuery.Get("api_key") != "secret" || gotQuery.Get("location") != "Berlin" || gotQuery.Get("engine") != EngineGoogleJobs {
		t.Fatalf("unexpected query: %v", gotQuery)
	}
}

func TestSearchGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"jobs_results":[]}`))
		gz.Close()
	}))
	defer srv.Close()

	client, _ := New(nil, "k", WithBaseURL(srv.URL))
	// Setting Accept-Encoding manually disables transparent decompression.
	payload, err := client.Search(context.Background(), &Params{Query: "q"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, ok := payload["jobs_results"]; !ok {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "bad status", status: http.StatusUnauthorized, body: `{"error":"Invalid API key."}`, wantErr: "401"},
		{name: "error field", status: http.StatusOK, body: `{"error":"Your account has run out of searches."}`, wantErr: "run out of searches"},
		{name: "bad json", status: http.StatusOK, body: `not json`, wantErr: "decode search response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, _ := New(zap.NewNop(), "k", WithBaseURL(srv.URL))
			_, err := client.Search(context.Background(), &Params{Query: "q"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSearchNoResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	client, _ := New(zap.NewNop(), "k", WithBaseURL(srv.URL))
	if _, err := client.Search(context.Background(), &Params{Query: "q"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestSearchRedactsKeyInLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	core, observed := observer.New(zapcore.DebugLevel)
	client, _ := New(zap.New(core), "top-secret", WithBaseURL(srv.URL))
	if _, err := client.Search(context.Background(), &Params{Query: "q"}); err != nil {
		t.Fatalf("search: %v", err)
	}

	for _, entry := range observed.All() {
		if strings.Contains(entry.ContextMap()["url"].(string), "top-secret") {
			t.Fatalf("api key leaked into logs: %v", entry.ContextMap())
		}
	}
}

func TestSearchHonorsLimiterContext(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.Allow()

	client, _ := New(zap.NewNop(), "k", WithLimiter(limiter), WithBaseURL("http://127.0.0.1:1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Search(ctx, &Params{Query: "q"}); err == nil {
		t.Fatalf("expected limiter error")
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(zap.NewNop(), " "); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestSearchTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := srv.URL
	srv.Close()

	client, _ := New(zap.NewNop(), "SECRET-KEY-123", WithBaseURL(closedURL))
	_, err := client.Search(context.Background(), &Params{Engine: EngineGoogle, Query: "go developer"})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Fatalf("api key leaked into error: %v", err)
	}
	if !strings.Contains(err.Error(), "api_key=REDACTED") {
		t.Fatalf("expected redacted url in error, got %v", err)
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		t.Fatalf("expected *url.Error, got %T", err)
	}
}
