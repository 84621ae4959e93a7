package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type deleteInterviewsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
}

func (s *server) generatePrep(c echo.Context) error {
	outcome, err := s.deps.Prep.Generate(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, outcome)
}

func (s *server) listInterviews(c echo.Context) error {
	interviews, err := s.deps.Store.ListInterviews(c.Request().Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"interviews": interviews})
}

func (s *server) getInterview(c echo.Context) error {
	interview, err := s.deps.Store.GetInterview(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, interview)
}

func (s *server) deleteInterviews(c echo.Context) error {
	var req deleteInterviewsRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}

	deleted, err := s.deps.Store.DeleteInterviews(c.Request().Context(), userID(c), req.IDs)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}
