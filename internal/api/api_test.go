package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/discovery"
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/pipeline"
	"github.com/spigell/prepscout/internal/prep"
	"github.com/spigell/prepscout/internal/resume"
	"github.com/spigell/prepscout/internal/scoring"
	"github.com/spigell/prepscout/internal/storage/memory"
)

const testUser = "user-1"

type stubSearcher struct {
	in  pipeline.Input
	res *pipeline.Result
	err error
}

func (s *stubSearcher) Run(_ context.Context, in pipeline.Input) (*pipeline.Result, error) {
	s.in = in
	return s.res, s.err
}

type stubPrep struct {
	outcome *prep.Outcome
	err     error
}

func (s *stubPrep) Generate(context.Context, string, string) (*prep.Outcome, error) {
	return s.outcome, s.err
}

type stubIngester struct {
	upload resume.Upload
	err    error
}

func (s *stubIngester) Ingest(_ context.Context, u resume.Upload) (*jobs.Resume, error) {
	s.upload = u
	if s.err != nil {
		return nil, s.err
	}
	return &jobs.Resume{ID: "resume-1", UserID: u.UserID, FilePath: u.UserID + "/1.pdf"}, nil
}

type pingFailStore struct {
	*memory.Store
}

func (pingFailStore) Ping(context.Context) error { return errors.New("connection refused") }

type fixture struct {
	store    *memory.Store
	searcher *stubSearcher
	prep     *stubPrep
	resumes  *stubIngester
	deps     Deps
}

func newFixture() *fixture {
	f := &fixture{
		store:    memory.New(),
		searcher: &stubSearcher{},
		prep:     &stubPrep{},
		resumes:  &stubIngester{},
	}
	f.deps = Deps{Searcher: f.searcher, Prep: f.prep, Resumes: f.resumes, Store: f.store}
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderUserID, testUser)
	return serve(f.deps, req)
}

func serve(deps Deps, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(deps, zap.NewNop(), Options{Version: "test"}).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if body.RequestID == "" || body.Timestamp.IsZero() {
		t.Fatalf("error body misses request id or timestamp: %+v", body)
	}
	return body
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/searches", nil)

	rec := serve(f.deps, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != codeUnauthorized {
		t.Fatalf("unexpected error code %q", body.Error)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestCreateSearch(t *testing.T) {
	f := newFixture()
	f.searcher.res = &pipeline.Result{
		SessionID: "s-1",
		Postings: &jobs.Postings{Items: []*jobs.Posting{
			{ExternalID: "a", Title: "Go Engineer", Score: 90},
			{ExternalID: "b", Title: "SRE", Score: 40},
		}},
		Failures: map[jobs.Strategy]error{
			jobs.InformalPost: errors.New(`Get "https://serpapi.com/search.json?api_key=SECRET-KEY-123": dial tcp: connection refused`),
		},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/searches", `{"roles":["Go Engineer"],"locations":["Berlin"],"filters":{"date_posted":"week"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SearchID != "s-1" || body.Count != 2 || body.Jobs[0].ExternalID != "a" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(body.FailedStrategies) != 1 || body.FailedStrategies[0] != string(jobs.InformalPost) {
		t.Fatalf("expected failed strategy in body, got %v", body.FailedStrategies)
	}
	if raw := rec.Body.String(); strings.Contains(raw, "SECRET-KEY-123") || strings.Contains(raw, "connection refused") {
		t.Fatalf("upstream error leaked into response: %s", raw)
	}
	if f.searcher.in.UserID != testUser || f.searcher.in.Request.Filters.DatePosted != "week" {
		t.Fatalf("unexpected pipeline input: %+v", f.searcher.in)
	}
}

func TestCreateSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "malformed", body: `{"roles":`, status: http.StatusBadRequest, code: codeInvalidRequest},
		{name: "no roles", body: `{"roles":[]}`, status: http.StatusBadRequest, code: codeValidation},
		{name: "bad date", body: `{"roles":["x"],"filters":{"date_posted":"year"}}`, status: http.StatusBadRequest, code: codeValidation},
		{name: "invalid request", body: `{"roles":["  "]}`, err: fmt.Errorf("%w: at least one role is required", jobs.ErrInvalidRequest), status: http.StatusBadRequest, code: codeInvalidRequest},
		{name: "all strategies failed", body: `{"roles":["x"]}`, err: fmt.Errorf("discover postings: %w", discovery.ErrAllStrategiesFailed), status: http.StatusBadGateway, code: codeUpstream},
		{name: "scoring not configured", body: `{"roles":["x"]}`, err: fmt.Errorf("score postings: %w", scoring.ErrNotConfigured), status: http.StatusServiceUnavailable, code: codeNotConfigured},
		{name: "unexpected", body: `{"roles":["x"]}`, err: errors.New("boom"), status: http.StatusInternalServerError, code: codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.searcher.err = tt.err

			rec := f.do(t, http.MethodPost, "/api/v1/searches", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			body := decodeError(t, rec)
			if body.Error != tt.code {
				t.Fatalf("expected code %q, got %q", tt.code, body.Error)
			}
			if tt.code == codeInternal && strings.Contains(body.Message, "boom") {
				t.Fatalf("internal error leaked: %q", body.Message)
			}
		})
	}
}

func TestSearchMatchesAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sessionID, err := f.store.CreateSession(ctx, jobs.NewSession(testUser, jobs.SearchRequest{Roles: []string{"Go"}}))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for ext, score := range map[string]int{"low": 20, "high": 80} {
		id, err := f.store.UpsertPosting(ctx, &jobs.Posting{ExternalID: ext, Title: ext})
		if err != nil {
			t.Fatalf("upsert posting: %v", err)
		}
		if err := f.store.UpsertAnnotation(ctx, jobs.Annotation{UserID: testUser, PostingID: id, SessionID: sessionID, Score: score}); err != nil {
			t.Fatalf("upsert annotation: %v", err)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/v1/searches/"+sessionID+"/matches", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Matches []jobs.Match `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Matches) != 2 || body.Matches[0].Posting.ExternalID != "high" {
		t.Fatalf("unexpected matches: %+v", body.Matches)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/searches", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), sessionID) {
		t.Fatalf("expected session in list, got %d %s", rec.Code, rec.Body.String())
	}

	if rec = f.do(t, http.MethodDelete, "/api/v1/searches/"+sessionID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/searches/"+sessionID+"/matches", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != codeNotFound {
		t.Fatalf("unexpected code %q", body.Error)
	}
}

func TestUploadResume(t *testing.T) {
	f := newFixture()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "cv.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("Go developer"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set(HeaderUserID, testUser)

	rec := serve(f.deps, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.resumes.upload.FileName != "cv.txt" || string(f.resumes.upload.Data) != "Go developer" || f.resumes.upload.UserID != testUser {
		t.Fatalf("unexpected upload: %+v", f.resumes.upload)
	}
}

func TestUploadResumeErrors(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/resumes", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rec.Code)
	}

	f.resumes.err = resume.ErrUnsupportedType
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, _ := form.CreateFormFile("file", "cv.docx")
	_, _ = part.Write([]byte("PK"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set(HeaderUserID, testUser)
	if rec := serve(f.deps, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported type, got %d", rec.Code)
	}
}

func TestLatestResumeNotFound(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodGet, "/api/v1/resumes/latest", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGeneratePrep(t *testing.T) {
	f := newFixture()
	f.prep.err = prep.ErrResumeRequired

	rec := f.do(t, http.MethodPost, "/api/v1/jobs/p-1/prep", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != prep.ErrResumeRequired.Error() {
		t.Fatalf("unexpected message %q", body.Message)
	}

	f.prep.err = nil
	f.prep.outcome = &prep.Outcome{InterviewID: "i-1", MatchID: "m-1", Guide: &jobs.StudyGuide{CompanyCulture: []string{"async"}}}
	rec = f.do(t, http.MethodPost, "/api/v1/jobs/p-1/prep", "")
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"interview_id":"i-1"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestInterviews(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	postingID, _ := f.store.UpsertPosting(ctx, &jobs.Posting{ExternalID: "ext-1", Title: "Go"})
	matchID, err := f.store.EnsureMatch(ctx, testUser, postingID)
	if err != nil {
		t.Fatalf("ensure match: %v", err)
	}
	id, err := f.store.CreateInterview(ctx, jobs.Interview{UserID: testUser, MatchID: matchID, Title: "Go", Company: "Acme"})
	if err != nil {
		t.Fatalf("create interview: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/interviews", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), id) {
		t.Fatalf("unexpected list %d %s", rec.Code, rec.Body.String())
	}
	if rec = f.do(t, http.MethodGet, "/api/v1/interviews/"+id, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if rec = f.do(t, http.MethodDelete, "/api/v1/interviews", `{"ids":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/api/v1/interviews", `{"ids":["`+id+`","other"]}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"deleted":1`) {
		t.Fatalf("unexpected delete %d %s", rec.Code, rec.Body.String())
	}
	if rec = f.do(t, http.MethodGet, "/api/v1/interviews/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := serve(f.deps, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	f.deps.Store = pingFailStore{f.store}
	rec := serve(f.deps, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "not_ready") {
		t.Fatalf("unexpected readiness %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/v2/nothing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != codeNotFound {
		t.Fatalf("unexpected code %q", body.Error)
	}
}
