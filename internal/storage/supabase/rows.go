package supabase

import (
	"encoding/json"
	"time"

	"github.com/spigell/prepscout/internal/jobs"
)

type postingRow struct {
	ID           string             `json:"id"`
	ExternalID   string             `json:"external_id"`
	Title        string             `json:"title"`
	Company      string             `json:"company"`
	Location     string             `json:"location"`
	Description  string             `json:"description"`
	Via          string             `json:"via"`
	Strategy     string             `json:"strategy"`
	Extensions   *jobs.Extensions   `json:"extensions"`
	ApplyOptions []jobs.ApplyOption `json:"apply_options"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toPostingRow(p *jobs.Posting, id string, now time.Time) postingRow {
	options := p.ApplyOptions
	if options == nil {
		options = []jobs.ApplyOption{}
	}
	return postingRow{
		ID:           id,
		ExternalID:   p.ExternalID,
		Title:        p.Title,
		Company:      p.Company,
		Location:     p.Location,
		Description:  p.Description,
		Via:          p.Via,
		Strategy:     string(p.Strategy),
		Extensions:   p.Extensions,
		ApplyOptions: options,
		UpdatedAt:    now,
	}
}

func (r postingRow) posting() jobs.Posting {
	return jobs.Posting{
		InternalID:   r.ID,
		ExternalID:   r.ExternalID,
		Title:        r.Title,
		Company:      r.Company,
		Location:     r.Location,
		Description:  r.Description,
		Via:          r.Via,
		Strategy:     jobs.Strategy(r.Strategy),
		Extensions:   r.Extensions,
		ApplyOptions: r.ApplyOptions,
	}
}

type matchRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	SearchID  *string   `json:"search_id"`
	Score     int       `json:"relevance_score"`
	Reason    string    `json:"match_reason"`
	Fallback  bool      `json:"fallback"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// annotationRow is the upsert payload of a verdict. It leaves status and
// created_at out so a conflict keeps them and an insert takes the column defaults.
type annotationRow struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	JobID    string  `json:"job_id"`
	SearchID *string `json:"search_id"`
	Score    int     `json:"relevance_score"`
	Reason   string  `json:"match_reason"`
	Fallback bool    `json:"fallback"`
}

func (r matchRow) annotation() jobs.Annotation {
	a := jobs.Annotation{
		UserID:    r.UserID,
		PostingID: r.JobID,
		Score:     r.Score,
		Reason:    r.Reason,
		Fallback:  r.Fallback,
		Status:    r.Status,
	}
	if r.SearchID != nil {
		a.SessionID = *r.SearchID
	}
	return a
}

type sessionRow struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Roles     []string     `json:"roles"`
	Locations []string     `json:"locations"`
	Keywords  []string     `json:"keywords"`
	Filters   jobs.Filters `json:"filters"`
	CreatedAt time.Time    `json:"created_at"`
}

func (r sessionRow) session() jobs.Session {
	return jobs.Session(r)
}

type resumeRow struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	FilePath       string        `json:"file_path"`
	OriginalName   string        `json:"original_name"`
	StructuredData *jobs.Profile `json:"structured_data"`
	CreatedAt      time.Time     `json:"created_at"`
}

type interviewRow struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	JobMatchID *string   `json:"job_match_id"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	Status     string    `json:"status"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r interviewRow) interview() jobs.Interview {
	i := jobs.Interview{
		ID:      r.ID,
		UserID:  r.UserID,
		Title:   r.Title,
		Company: r.Company,
		Status:  r.Status,
		Date:    r.Date,
	}
	if r.JobMatchID != nil {
		i.MatchID = *r.JobMatchID
	}
	return i
}

type prepRow struct {
	ID          string          `json:"id"`
	InterviewID string          `json:"interview_id"`
	Type        string          `json:"type"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"created_at"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
