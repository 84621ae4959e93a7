package discovery

import (
	"fmt"
	"strings"

	"github.com/spigell/prepscout/internal/jobs"
)

// atsSites are the applicant tracking systems searched for direct listings.
var atsSites = []string{"greenhouse.io", "lever.co", "ashbyhq.com", "workday.com"}

type clause struct {
	name     string
	value    string
	required bool
}

// query is an ordered list of clauses rendered with single spaces.
// A blank required clause renders as an empty literal, a blank optional one is skipped.
type query struct {
	clauses []clause
}

func (q *query) require(name, value string) *query {
	q.clauses = append(q.clauses, clause{name: name, value: value, required: true})
	return q
}

func (q *query) optional(name, value string) *query {
	q.clauses = append(q.clauses, clause{name: name, value: value})
	return q
}

func (q *query) String() string {
	parts := make([]string, 0, len(q.clauses))
	for _, c := range q.clauses {
		v := strings.TrimSpace(c.value)
		if v == "" {
			if c.required {
				parts = append(parts, quote(""))
			}
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func quote(value string) string {
	return `"` + strings.TrimSpace(value) + `"`
}

// disjunction renders ("a" OR "b") for several values, "a" for one and "" for none.
func disjunction(values []string) string {
	switch len(values) {
	case 0:
		return quote("")
	case 1:
		return quote(values[0])
	}

	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, quote(v))
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}

func siteFilter(sites []string) string {
	parts := make([]string, 0, len(sites))
	for _, s := range sites {
		parts = append(parts, "site:"+s)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func salaryClause(min int) string {
	if min <= 0 {
		return ""
	}
	return fmt.Sprintf("salary $%dk+", min/1000)
}

func remoteClause(remote string) string {
	if strings.EqualFold(strings.TrimSpace(remote), jobs.RemoteOnly) {
		return jobs.RemoteOnly
	}
	return ""
}

func jobTypeClause(jobType string) string {
	jobType = strings.TrimSpace(jobType)
	if strings.EqualFold(jobType, jobs.Any) {
		return ""
	}
	return jobType
}

// withFilters appends the filter suffix shared by every strategy.
func (q *query) withFilters(f jobs.Filters) *query {
	return q.
		optional("salary", salaryClause(f.SalaryMin)).
		optional("remote", remoteClause(f.Remote)).
		optional("job_type", jobTypeClause(f.JobType))
}

// dateRange maps the date-posted filter to the search API time window token.
func dateRange(datePosted string) string {
	switch strings.ToLower(strings.TrimSpace(datePosted)) {
	case jobs.DatePostedToday:
		return "qdr:d"
	case jobs.DatePosted3Days:
		return "qdr:d3"
	case jobs.DatePostedWeek:
		return "qdr:w"
	case jobs.DatePostedMonth:
		return "qdr:m"
	default:
		return ""
	}
}
