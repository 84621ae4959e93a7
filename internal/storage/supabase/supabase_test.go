package supabase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

type restCall struct {
	method string
	table  string
	query  string
	body   string
}

type restLog struct {
	mu    sync.Mutex
	calls []restCall
}

func (l *restLog) to(method, table string) []restCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []restCall
	for _, c := range l.calls {
		if c.method == method && c.table == table {
			out = append(out, c)
		}
	}
	return out
}

// fakeRest answers PostgREST requests with canned rows per table.
func fakeRest(t *testing.T, tables map[string]string) *Store {
	store, _ := recordingRest(t, tables)
	return store
}

// recordingRest is fakeRest that also keeps every request it served.
func recordingRest(t *testing.T, tables map[string]string) (*Store, *restLog) {
	t.Helper()
	log := &restLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		payload, _ := io.ReadAll(r.Body)
		log.mu.Lock()
		log.calls = append(log.calls, restCall{method: r.Method, table: table, query: r.URL.RawQuery, body: string(payload)})
		log.mu.Unlock()

		body, ok := tables[table]
		if !ok {
			body = "[]"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	store, err := New(zaptest.NewLogger(t), srv.URL, "anon-key")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, log
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(nil, "", "key"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGetPosting(t *testing.T) {
	id := storage.PostingID("https://jobs.lever.co/acme/1")
	store := fakeRest(t, map[string]string{
		"jobs": `[{"id":"` + id + `","external_id":"https://jobs.lever.co/acme/1","title":"Go Engineer","company":"Acme",
			"strategy":"DirectListing","apply_options":[{"title":"Apply","link":"https://jobs.lever.co/acme/1"}],
			"updated_at":"2025-01-02T03:04:05.123456+00:00"}]`,
	})

	p, err := store.GetPosting(context.Background(), id)
	if err != nil {
		t.Fatalf("get posting: %v", err)
	}
	if p.ExternalID != "https://jobs.lever.co/acme/1" || p.Strategy != jobs.DirectListing || p.ApplyURL() != "https://jobs.lever.co/acme/1" {
		t.Fatalf("unexpected posting %+v", p)
	}

	if _, err := store.GetPosting(context.Background(), storage.PostingID("other")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestResumePicksNewest(t *testing.T) {
	store := fakeRest(t, map[string]string{
		"resumes": `[
			{"id":"a","user_id":"u","file_path":"u/1.pdf","created_at":"2025-01-01T00:00:00+00:00","structured_data":{"summary":"old"}},
			{"id":"b","user_id":"u","file_path":"u/2.pdf","created_at":"2025-03-01T00:00:00+00:00","structured_data":{"summary":"new"}},
			{"id":"c","user_id":"u","file_path":"u/0.pdf","created_at":"2024-12-01T00:00:00+00:00","structured_data":null}
		]`,
	})

	r, err := store.LatestResume(context.Background(), "u")
	if err != nil {
		t.Fatalf("latest resume: %v", err)
	}
	if r.ID != "b" || r.Profile == nil || r.Profile.Summary != "new" {
		t.Fatalf("unexpected resume %+v", r)
	}
}

func TestSessionMatchesHidesForeignSession(t *testing.T) {
	store := fakeRest(t, map[string]string{
		"job_searches": `[{"id":"s1","user_id":"owner","created_at":"2025-01-01T00:00:00Z"}]`,
	})

	if _, err := store.SessionMatches(context.Background(), "intruder", "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertAnnotationIsSingleUpsert(t *testing.T) {
	postingID := storage.PostingID("https://jobs.lever.co/acme/1")
	store, log := recordingRest(t, map[string]string{
		"jobs": `[{"id":"` + postingID + `","external_id":"https://jobs.lever.co/acme/1","title":"Go Engineer"}]`,
	})

	err := store.UpsertAnnotation(context.Background(), jobs.Annotation{
		UserID: "u", PostingID: postingID, SessionID: "s1", Score: 70, Reason: "fits", Status: jobs.MatchStatusNew,
	})
	if err != nil {
		t.Fatalf("upsert annotation: %v", err)
	}

	if reads := log.to(http.MethodGet, tableMatches); len(reads) != 0 {
		t.Fatalf("annotation write must not read the match first, got %+v", reads)
	}
	if patches := log.to(http.MethodPatch, tableMatches); len(patches) != 0 {
		t.Fatalf("annotation write must not patch, got %+v", patches)
	}
	writes := log.to(http.MethodPost, tableMatches)
	if len(writes) != 1 {
		t.Fatalf("expected one write to %s, got %+v", tableMatches, writes)
	}
	body := writes[0].body
	if !strings.Contains(body, storage.AnnotationID("u", postingID, "s1")) || !strings.Contains(body, `"relevance_score":70`) {
		t.Fatalf("unexpected upsert body %s", body)
	}
	if strings.Contains(body, `"status"`) || strings.Contains(body, `"created_at"`) {
		t.Fatalf("upsert must leave status and created_at to the row: %s", body)
	}
}

func TestPurgeStalePostingsSparesMatched(t *testing.T) {
	orphan := storage.PostingID("orphan")
	matched := storage.PostingID("matched")
	store, log := recordingRest(t, map[string]string{
		"jobs":        `[{"id":"` + orphan + `","external_id":"orphan"},{"id":"` + matched + `","external_id":"matched"}]`,
		"job_matches": `[{"id":"m1","user_id":"u","job_id":"` + matched + `","status":"applied","created_at":"2025-01-01T00:00:00Z"}]`,
	})

	purged, err := store.PurgeStalePostings(context.Background(), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected one purged posting, got %d", purged)
	}

	deletes := log.to(http.MethodDelete, tableJobs)
	if len(deletes) != 1 {
		t.Fatalf("expected one delete, got %+v", deletes)
	}
	if q := deletes[0].query; !strings.Contains(q, orphan) || strings.Contains(q, matched) {
		t.Fatalf("delete must target only the orphan: %s", q)
	}
	if len(log.to(http.MethodDelete, tableMatches)) != 0 || len(log.to(http.MethodDelete, tableSearches)) != 0 {
		t.Fatalf("purge must not touch matches or sessions")
	}
}
