package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spigell/prepscout/internal/resume"
)

const resumeField = "file"

func (s *server) uploadResume(c echo.Context) error {
	header, err := c.FormFile(resumeField)
	if err != nil {
		return s.fail(c, errMissingFile)
	}

	file, err := header.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return s.fail(c, err)
	}

	stored, err := s.deps.Resumes.Ingest(c.Request().Context(), resume.Upload{
		UserID:      userID(c),
		FileName:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, stored)
}

func (s *server) latestResume(c echo.Context) error {
	latest, err := s.deps.Store.LatestResume(c.Request().Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, latest)
}
