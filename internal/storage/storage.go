// Package storage defines the persistence contract shared by the backends.
package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/prepscout/internal/jobs"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"

	// ResumeBucket holds uploaded resume files.
	ResumeBucket = "resumes"

	// ManualPrepReason marks a match created when prep is generated outside a search.
	ManualPrepReason = "Manual Prep Generation"
)

// ErrNotFound is returned when a requested record does not exist or is not owned by the user.
var ErrNotFound = errors.New("not found")

type PostingStore interface {
	// UpsertPosting stores a posting keyed by its external id and returns the internal id.
	UpsertPosting(ctx context.Context, p *jobs.Posting) (string, error)
	GetPosting(ctx context.Context, id string) (*jobs.Posting, error)
	// UpsertAnnotation stores a verdict keyed by user, posting and session.
	UpsertAnnotation(ctx context.Context, a jobs.Annotation) error
	// PurgeStalePostings deletes postings not seen since before that no match
	// references. Sessions and matches are only removed by the user.
	PurgeStalePostings(ctx context.Context, before time.Time) (int64, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, s jobs.Session) (string, error)
	ListSessions(ctx context.Context, userID string) ([]jobs.Session, error)
	// DeleteSession removes the session and its annotations.
	DeleteSession(ctx context.Context, userID, sessionID string) error
	// SessionMatches returns the annotated postings of a session by descending score.
	SessionMatches(ctx context.Context, userID, sessionID string) ([]jobs.Match, error)
}

type ResumeStore interface {
	UploadResumeFile(ctx context.Context, path, contentType string, data []byte) error
	SaveResume(ctx context.Context, r jobs.Resume) (string, error)
	LatestResume(ctx context.Context, userID string) (*jobs.Resume, error)
}

type InterviewStore interface {
	// EnsureMatch returns the match of the user for the posting, creating one when
	// missing, and moves it to the interviewing status.
	EnsureMatch(ctx context.Context, userID, postingID string) (string, error)
	CreateInterview(ctx context.Context, i jobs.Interview) (string, error)
	SavePrepMaterial(ctx context.Context, m jobs.PrepMaterial) (string, error)
	ListInterviews(ctx context.Context, userID string) ([]jobs.Interview, error)
	GetInterview(ctx context.Context, userID, id string) (*jobs.Interview, error)
	DeleteInterviews(ctx context.Context, userID string, ids []string) (int64, error)
	// TrackedPostingIDs lists external ids of postings the user already interviews for.
	TrackedPostingIDs(ctx context.Context, userID string) ([]string, error)
}

type Store interface {
	PostingStore
	SessionStore
	ResumeStore
	InterviewStore

	Ping(ctx context.Context) error
	Close()
}

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/spigell/prepscout"))

// PostingID derives the internal id of a posting from its external id.
func PostingID(externalID string) string {
	return uuid.NewSHA1(namespace, []byte("posting\x00"+strings.TrimSpace(externalID))).String()
}

// AnnotationID derives the id of the (user, posting, session) verdict.
func AnnotationID(userID, postingID, sessionID string) string {
	return uuid.NewSHA1(namespace, []byte(strings.Join([]string{"match", userID, postingID, sessionID}, "\x00"))).String()
}

// NewID returns a random id for records without a natural key.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed uuid. Backends use it to answer
// ErrNotFound instead of a driver error for malformed ids.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ResumePath builds the object path of an uploaded resume.
func ResumePath(userID, ext string, now time.Time) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "bin"
	}
	return userID + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "." + ext
}
