package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/pipeline"
)

type searchFilters struct {
	DatePosted string `json:"date_posted" validate:"omitempty,oneof=today 3days week month any"`
	JobType    string `json:"job_type" validate:"max=64"`
	Remote     string `json:"remote" validate:"max=32"`
	SalaryMin  int    `json:"salary_min" validate:"gte=0"`
}

type searchRequest struct {
	Roles     []string      `json:"roles" validate:"required,min=1,max=10,dive,max=128"`
	Locations []string      `json:"locations" validate:"max=10,dive,max=128"`
	Keywords  []string      `json:"keywords" validate:"max=20,dive,max=64"`
	Filters   searchFilters `json:"filters"`
	// Profile overrides the latest uploaded resume.
	Profile *jobs.Profile `json:"profile"`
}

func (r searchRequest) toInput(userID string) pipeline.Input {
	return pipeline.Input{
		UserID: userID,
		Request: jobs.SearchRequest{
			Roles:     r.Roles,
			Locations: r.Locations,
			Keywords:  r.Keywords,
			Filters: jobs.Filters{
				DatePosted: r.Filters.DatePosted,
				JobType:    r.Filters.JobType,
				Remote:     r.Filters.Remote,
				SalaryMin:  r.Filters.SalaryMin,
			},
		},
		Profile: r.Profile,
	}
}

type searchResponse struct {
	SearchID string          `json:"search_id,omitempty"`
	Jobs     []*jobs.Posting `json:"jobs"`
	Count    int             `json:"count"`
	Fallback bool            `json:"fallback"`
	Warning  string          `json:"warning,omitempty"`
	// Only names are exposed. Upstream errors stay in the server log.
	FailedStrategies []string `json:"failed_strategies,omitempty"`
}

func newSearchResponse(res *pipeline.Result) searchResponse {
	out := searchResponse{
		SearchID: res.SessionID,
		Jobs:     make([]*jobs.Posting, 0),
		Fallback: res.Fallback,
		Warning:  res.Warning,
	}
	if res.Postings != nil {
		out.Jobs = append(out.Jobs, res.Postings.Items...)
	}
	out.Count = len(out.Jobs)
	for _, strategy := range jobs.Strategies {
		if _, failed := res.Failures[strategy]; failed {
			out.FailedStrategies = append(out.FailedStrategies, string(strategy))
		}
	}
	return out
}

func (s *server) createSearch(c echo.Context) error {
	var req searchRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	res, err := s.deps.Searcher.Run(c.Request().Context(), req.toInput(userID(c)))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, newSearchResponse(res))
}

func (s *server) listSearches(c echo.Context) error {
	sessions, err := s.deps.Store.ListSessions(c.Request().Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"searches": sessions})
}

func (s *server) searchMatches(c echo.Context) error {
	matches, err := s.deps.Store.SessionMatches(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"search_id": c.Param("id"), "matches": matches})
}

func (s *server) deleteSearch(c echo.Context) error {
	if err := s.deps.Store.DeleteSession(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
