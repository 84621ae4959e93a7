package jobs

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DatePostedToday = "today"
	DatePosted3Days = "3days"
	DatePostedWeek  = "week"
	DatePostedMonth = "month"
	// Any disables the job type and remote filters.
	Any = "any"
	// RemoteOnly asks for remote positions.
	RemoteOnly = "remote"

	// DefaultLocation is the posting location used when the request has none.
	DefaultLocation = "Remote"
)

// ErrInvalidRequest is returned when a search request cannot be dispatched.
var ErrInvalidRequest = errors.New("invalid search request")

// Filters narrow a search. Zero values mean "no constraint".
type Filters struct {
	DatePosted string `json:"date_posted,omitempty" mapstructure:"date-posted"`
	JobType    string `json:"job_type,omitempty" mapstructure:"job-type"`
	Remote     string `json:"remote,omitempty" mapstructure:"remote"`
	SalaryMin  int    `json:"salary_min,omitempty" mapstructure:"salary-min"`
}

// SearchRequest is the user input for one discovery run.
type SearchRequest struct {
	Roles     []string `json:"roles" mapstructure:"roles"`
	Locations []string `json:"locations" mapstructure:"locations"`
	Keywords  []string `json:"keywords" mapstructure:"keywords"`
	Filters   Filters  `json:"filters" mapstructure:"filters"`
}

// Normalize trims every value and drops blanks.
func (r *SearchRequest) Normalize() {
	r.Roles = compact(r.Roles)
	r.Locations = compact(r.Locations)
	r.Keywords = compact(r.Keywords)

	r.Filters.DatePosted = strings.ToLower(strings.TrimSpace(r.Filters.DatePosted))
	r.Filters.JobType = strings.TrimSpace(r.Filters.JobType)
	r.Filters.Remote = strings.ToLower(strings.TrimSpace(r.Filters.Remote))
	if r.Filters.SalaryMin < 0 {
		r.Filters.SalaryMin = 0
	}
}

// Validate reports whether the request carries enough input to search.
func (r *SearchRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is empty", ErrInvalidRequest)
	}
	if len(compact(r.Roles)) == 0 {
		return fmt.Errorf("%w: at least one role is required", ErrInvalidRequest)
	}
	switch strings.ToLower(strings.TrimSpace(r.Filters.DatePosted)) {
	case "", Any, DatePostedToday, DatePosted3Days, DatePostedWeek, DatePostedMonth:
	default:
		return fmt.Errorf("%w: unknown date_posted %q", ErrInvalidRequest, r.Filters.DatePosted)
	}
	return nil
}

// TopKeyword returns the first keyword or an empty string.
func (r *SearchRequest) TopKeyword() string {
	if len(r.Keywords) == 0 {
		return ""
	}
	return r.Keywords[0]
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
