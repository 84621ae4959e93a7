// Package memory is a process-local store for one-off runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/storage"
)

type match struct {
	id        string
	ann       jobs.Annotation
	createdAt time.Time
}

type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	postings   map[string]jobs.Posting
	touched    map[string]time.Time
	matches    map[string]*match
	sessions   map[string]jobs.Session
	files      map[string][]byte
	resumes    []jobs.Resume
	interviews map[string]*jobs.Interview
	created    map[string]time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		postings:   map[string]jobs.Posting{},
		touched:    map[string]time.Time{},
		matches:    map[string]*match{},
		sessions:   map[string]jobs.Session{},
		files:      map[string][]byte{},
		interviews: map[string]*jobs.Interview{},
		created:    map[string]time.Time{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) UpsertPosting(_ context.Context, p *jobs.Posting) (string, error) {
	if p == nil || p.ExternalID == "" {
		return "", fmt.Errorf("posting external id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *p
	stored.InternalID = storage.PostingID(p.ExternalID)
	stored.Score, stored.Reason, stored.Fallback = 0, "", false
	s.postings[stored.InternalID] = stored
	s.touched[stored.InternalID] = s.now()

	return stored.InternalID, nil
}

func (s *Store) GetPosting(_ context.Context, id string) (*jobs.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.postings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpsertAnnotation(_ context.Context, a jobs.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.postings[a.PostingID]; !ok {
		return fmt.Errorf("posting %s: %w", a.PostingID, storage.ErrNotFound)
	}
	if a.SessionID != "" {
		if _, ok := s.sessions[a.SessionID]; !ok {
			return fmt.Errorf("session %s: %w", a.SessionID, storage.ErrNotFound)
		}
	}
	if a.Status == "" {
		a.Status = jobs.MatchStatusNew
	}

	id := storage.AnnotationID(a.UserID, a.PostingID, a.SessionID)
	if existing, ok := s.matches[id]; ok {
		// Rescoring keeps the progress the user already made on the match.
		a.Status = existing.ann.Status
		existing.ann = a
		return nil
	}
	s.matches[id] = &match{id: id, ann: a, createdAt: s.now()}
	return nil
}

func (s *Store) CreateSession(_ context.Context, session jobs.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.ID = storage.NewID()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	s.sessions[session.ID] = session
	return session.ID, nil
}

func (s *Store) ListSessions(_ context.Context, userID string) ([]jobs.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]jobs.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteSession(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return storage.ErrNotFound
	}
	s.deleteSessionLocked(sessionID)
	return nil
}

func (s *Store) deleteSessionLocked(sessionID string) {
	delete(s.sessions, sessionID)
	for id, m := range s.matches {
		if m.ann.SessionID == sessionID {
			delete(s.matches, id)
		}
	}
}

func (s *Store) SessionMatches(_ context.Context, userID, sessionID string) ([]jobs.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, storage.ErrNotFound
	}

	out := make([]jobs.Match, 0)
	for _, m := range s.matches {
		if m.ann.SessionID != sessionID || m.ann.UserID != userID {
			continue
		}
		out = append(out, jobs.Match{ID: m.id, Annotation: m.ann, Posting: s.postings[m.ann.PostingID], CreatedAt: m.createdAt})
	}
	sortMatches(out)
	return out, nil
}

func sortMatches(out []jobs.Match) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Annotation.Score != out[j].Annotation.Score {
			return out[i].Annotation.Score > out[j].Annotation.Score
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (s *Store) PurgeStalePostings(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := make(map[string]struct{}, len(s.matches))
	for _, m := range s.matches {
		referenced[m.ann.PostingID] = struct{}{}
	}

	var purged int64
	for id := range s.postings {
		if _, ok := referenced[id]; ok || !s.touched[id].Before(before) {
			continue
		}
		delete(s.postings, id)
		delete(s.touched, id)
		purged++
	}
	return purged, nil
}

func (s *Store) UploadResumeFile(_ context.Context, path, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[path]; ok {
		return fmt.Errorf("resume file %s already exists", path)
	}
	s.files[path] = append([]byte(nil), data...)
	return nil
}

func (s *Store) SaveResume(_ context.Context, r jobs.Resume) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = storage.NewID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.resumes = append(s.resumes, r)
	return r.ID, nil
}

func (s *Store) LatestResume(_ context.Context, userID string) (*jobs.Resume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *jobs.Resume
	for i := range s.resumes {
		r := s.resumes[i]
		if r.UserID != userID {
			continue
		}
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

func (s *Store) EnsureMatch(_ context.Context, userID, postingID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.postings[postingID]; !ok {
		return "", fmt.Errorf("posting %s: %w", postingID, storage.ErrNotFound)
	}

	var found *match
	for _, m := range s.matches {
		if m.ann.UserID != userID || m.ann.PostingID != postingID {
			continue
		}
		if found == nil || m.createdAt.Before(found.createdAt) {
			found = m
		}
	}
	if found != nil {
		found.ann.Status = jobs.MatchStatusInterviewing
		return found.id, nil
	}

	id := storage.AnnotationID(userID, postingID, "")
	s.matches[id] = &match{
		id: id,
		ann: jobs.Annotation{
			UserID:    userID,
			PostingID: postingID,
			Reason:    storage.ManualPrepReason,
			Status:    jobs.MatchStatusInterviewing,
		},
		createdAt: s.now(),
	}
	return id, nil
}

func (s *Store) CreateInterview(_ context.Context, i jobs.Interview) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i.ID = storage.NewID()
	if i.Status == "" {
		i.Status = jobs.InterviewStatusScheduled
	}
	if i.Date.IsZero() {
		i.Date = s.now()
	}
	i.Materials = nil
	s.interviews[i.ID] = &i
	s.created[i.ID] = s.now()
	return i.ID, nil
}

func (s *Store) SavePrepMaterial(_ context.Context, m jobs.PrepMaterial) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	interview, ok := s.interviews[m.InterviewID]
	if !ok {
		return "", fmt.Errorf("interview %s: %w", m.InterviewID, storage.ErrNotFound)
	}
	m.ID = storage.NewID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	interview.Materials = append(interview.Materials, m)
	return m.ID, nil
}

func (s *Store) ListInterviews(_ context.Context, userID string) ([]jobs.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]jobs.Interview, 0)
	for _, i := range s.interviews {
		if i.UserID != userID {
			continue
		}
		item := *i
		item.Materials = nil
		out = append(out, item)
	}
	sort.Slice(out, func(a, b int) bool { return s.created[out[a].ID].After(s.created[out[b].ID]) })
	return out, nil
}

func (s *Store) GetInterview(_ context.Context, userID, id string) (*jobs.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.interviews[id]
	if !ok || i.UserID != userID {
		return nil, storage.ErrNotFound
	}
	item := *i
	item.Materials = append([]jobs.PrepMaterial(nil), i.Materials...)
	return &item, nil
}

func (s *Store) DeleteInterviews(_ context.Context, userID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if i, ok := s.interviews[id]; ok && i.UserID == userID {
			delete(s.interviews, id)
			delete(s.created, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) TrackedPostingIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, i := range s.interviews {
		if i.UserID != userID {
			continue
		}
		m, ok := s.matches[i.MatchID]
		if !ok {
			continue
		}
		ext := s.postings[m.ann.PostingID].ExternalID
		if _, dup := seen[ext]; dup || ext == "" {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	return out, nil
}
