// Package supabase persists records through the Supabase REST and storage APIs.
//
// PostgREST filters are string based, so ordering and joins happen in Go.
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	supa "github.com/nedpals/supabase-go"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

const (
	tableJobs          = "jobs"
	tableSearches      = "job_searches"
	tableMatches       = "job_matches"
	tableResumes       = "resumes"
	tableInterviews    = "interviews"
	tablePrepMaterials = "prep_materials"
)

var ErrNotConfigured = errors.New("supabase url and key are required")

type Store struct {
	client *supa.Client
	logger *zap.Logger
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New(logger *zap.Logger, url, key string) (*Store, error) {
	if url == "" || key == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: supa.CreateClient(url, key),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Ping(context.Context) error {
	var rows []sessionRow
	if err := s.client.DB.From(tableSearches).Select("*").Eq("id", storage.NewID()).Execute(&rows); err != nil {
		return fmt.Errorf("supabase ping: %w", err)
	}
	return nil
}

func (s *Store) Close() {}

func (s *Store) UpsertPosting(_ context.Context, p *jobs.Posting) (string, error) {
	if p == nil || p.ExternalID == "" {
		return "", fmt.Errorf("posting external id is required")
	}

	id := storage.PostingID(p.ExternalID)
	var res []postingRow
	if err := s.client.DB.From(tableJobs).Upsert(toPostingRow(p, id, s.now())).Execute(&res); err != nil {
		return "", fmt.Errorf("upsert posting: %w", err)
	}
	return id, nil
}

func (s *Store) GetPosting(_ context.Context, id string) (*jobs.Posting, error) {
	postings, err := s.postingsByID([]string{id})
	if err != nil {
		return nil, err
	}
	p, ok := postings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) postingsByID(ids []string) (map[string]jobs.Posting, error) {
	out := make(map[string]jobs.Posting, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []postingRow
	if err := s.client.DB.From(tableJobs).Select("*").In("id", ids).Execute(&rows); err != nil {
		return nil, fmt.Errorf("load postings: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.posting()
	}
	return out, nil
}

// UpsertAnnotation writes the verdict in a single upsert on id. New rows start
// in the "new" status; existing rows keep theirs.
func (s *Store) UpsertAnnotation(ctx context.Context, a jobs.Annotation) error {
	if _, err := s.GetPosting(ctx, a.PostingID); err != nil {
		return fmt.Errorf("posting %s: %w", a.PostingID, err)
	}

	row := annotationRow{
		ID:       storage.AnnotationID(a.UserID, a.PostingID, a.SessionID),
		UserID:   a.UserID,
		JobID:    a.PostingID,
		SearchID: optional(a.SessionID),
		Score:    a.Score,
		Reason:   a.Reason,
		Fallback: a.Fallback,
	}
	var res []matchRow
	if err := s.client.DB.From(tableMatches).Upsert(row).Execute(&res); err != nil {
		return fmt.Errorf("upsert annotation: %w", err)
	}
	return nil
}

func (s *Store) matches(column, value string) ([]matchRow, error) {
	var rows []matchRow
	if err := s.client.DB.From(tableMatches).Select("*").Eq(column, value).Execute(&rows); err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	return rows, nil
}

func (s *Store) CreateSession(_ context.Context, session jobs.Session) (string, error) {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	session.ID = storage.NewID()
	row := sessionRow(session)
	if row.Roles == nil {
		row.Roles = []string{}
	}
	if row.Locations == nil {
		row.Locations = []string{}
	}
	if row.Keywords == nil {
		row.Keywords = []string{}
	}

	var res []sessionRow
	if err := s.client.DB.From(tableSearches).Insert(row).Execute(&res); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return session.ID, nil
}

func (s *Store) ListSessions(_ context.Context, userID string) ([]jobs.Session, error) {
	var rows []sessionRow
	if err := s.client.DB.From(tableSearches).Select("*").Eq("user_id", userID).Execute(&rows); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]jobs.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.session())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ownedSession(userID, sessionID string) error {
	var rows []sessionRow
	if err := s.client.DB.From(tableSearches).Select("*").Eq("id", sessionID).Execute(&rows); err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if len(rows) == 0 || rows[0].UserID != userID {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSession(_ context.Context, userID, sessionID string) error {
	if err := s.ownedSession(userID, sessionID); err != nil {
		return err
	}
	return s.deleteSessions([]string{sessionID})
}

func (s *Store) deleteSessions(ids []string) error {
	var matches []matchRow
	if err := s.client.DB.From(tableMatches).Delete().In("search_id", ids).Execute(&matches); err != nil {
		return fmt.Errorf("delete session matches: %w", err)
	}
	var sessions []sessionRow
	if err := s.client.DB.From(tableSearches).Delete().In("id", ids).Execute(&sessions); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

func (s *Store) SessionMatches(_ context.Context, userID, sessionID string) ([]jobs.Match, error) {
	if err := s.ownedSession(userID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.matches("search_id", sessionID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.JobID)
	}
	postings, err := s.postingsByID(ids)
	if err != nil {
		return nil, err
	}

	out := make([]jobs.Match, 0, len(rows))
	for _, r := range rows {
		if r.UserID != userID {
			continue
		}
		out = append(out, jobs.Match{ID: r.ID, Annotation: r.annotation(), Posting: postings[r.JobID], CreatedAt: r.CreatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Annotation.Score != out[j].Annotation.Score {
			return out[i].Annotation.Score > out[j].Annotation.Score
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) PurgeStalePostings(_ context.Context, before time.Time) (int64, error) {
	var stale []postingRow
	err := s.client.DB.From(tableJobs).Select("*").Lt("updated_at", before.UTC().Format(time.RFC3339Nano)).Execute(&stale)
	if err != nil {
		return 0, fmt.Errorf("list stale postings: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(stale))
	for _, r := range stale {
		ids = append(ids, r.ID)
	}
	var referenced []matchRow
	if err := s.client.DB.From(tableMatches).Select("*").In("job_id", ids).Execute(&referenced); err != nil {
		return 0, fmt.Errorf("load matches of stale postings: %w", err)
	}
	kept := make(map[string]struct{}, len(referenced))
	for _, m := range referenced {
		kept[m.JobID] = struct{}{}
	}

	orphans := ids[:0]
	for _, id := range ids {
		if _, ok := kept[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	var res []postingRow
	if err := s.client.DB.From(tableJobs).Delete().In("id", orphans).Execute(&res); err != nil {
		return 0, fmt.Errorf("delete stale postings: %w", err)
	}
	return int64(len(orphans)), nil
}

func (s *Store) UploadResumeFile(_ context.Context, path, _ string, data []byte) error {
	res := s.client.Storage.From(storage.ResumeBucket).Upload(path, bytes.NewReader(data))
	if res.Key == "" {
		return fmt.Errorf("upload resume file %s: %s", path, res.Message)
	}
	return nil
}

func (s *Store) SaveResume(_ context.Context, r jobs.Resume) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	row := resumeRow{
		ID:             storage.NewID(),
		UserID:         r.UserID,
		FilePath:       r.FilePath,
		OriginalName:   r.OriginalName,
		StructuredData: r.Profile,
		CreatedAt:      r.CreatedAt,
	}
	var res []resumeRow
	if err := s.client.DB.From(tableResumes).Insert(row).Execute(&res); err != nil {
		return "", fmt.Errorf("save resume: %w", err)
	}
	return row.ID, nil
}

func (s *Store) LatestResume(_ context.Context, userID string) (*jobs.Resume, error) {
	var rows []resumeRow
	if err := s.client.DB.From(tableResumes).Select("*").Eq("user_id", userID).Execute(&rows); err != nil {
		return nil, fmt.Errorf("load resumes: %w", err)
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	latest := rows[0]
	for _, r := range rows[1:] {
		if !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	return &jobs.Resume{
		ID:           latest.ID,
		UserID:       latest.UserID,
		FilePath:     latest.FilePath,
		OriginalName: latest.OriginalName,
		Profile:      latest.StructuredData,
		CreatedAt:    latest.CreatedAt,
	}, nil
}
