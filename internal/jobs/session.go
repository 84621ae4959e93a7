package jobs

import "time"

// Session is one recorded search run.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Roles     []string  `json:"roles"`
	Locations []string  `json:"locations"`
	Keywords  []string  `json:"keywords"`
	Filters   Filters   `json:"filters"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession records the normalized request of a user.
func NewSession(userID string, req SearchRequest) Session {
	return Session{
		UserID:    userID,
		Roles:     req.Roles,
		Locations: req.Locations,
		Keywords:  req.Keywords,
		Filters:   req.Filters,
		CreatedAt: time.Now().UTC(),
	}
}

// Annotation is the per-user relevance verdict for a posting within a session.
type Annotation struct {
	UserID    string `json:"user_id"`
	PostingID string `json:"job_id"`
	SessionID string `json:"search_id,omitempty"`
	Score     int    `json:"relevance_score"`
	Reason    string `json:"match_reason"`
	Fallback  bool   `json:"fallback,omitempty"`
	Status    string `json:"status"`
}

const (
	MatchStatusNew          = "new"
	MatchStatusInterviewing = "interviewing"
)

// Match is a stored annotation joined with its posting.
type Match struct {
	ID         string     `json:"id"`
	Annotation Annotation `json:"annotation"`
	Posting    Posting    `json:"job"`
	CreatedAt  time.Time  `json:"created_at"`
}
