// Package api serves the HTTP surface of prepscout.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/logger"
	"github.com/spigell/prepscout/internal/pipeline"
	"github.com/spigell/prepscout/internal/prep"
	"github.com/spigell/prepscout/internal/resume"
)

const defaultBodyLimit = "10M"

type Searcher interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

type PrepGenerator interface {
	Generate(ctx context.Context, userID, postingID string) (*prep.Outcome, error)
}

type ResumeIngester interface {
	Ingest(ctx context.Context, u resume.Upload) (*jobs.Resume, error)
}

// Store is the read side the handlers query directly.
type Store interface {
	ListSessions(ctx context.Context, userID string) ([]jobs.Session, error)
	SessionMatches(ctx context.Context, userID, sessionID string) ([]jobs.Match, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	LatestResume(ctx context.Context, userID string) (*jobs.Resume, error)
	ListInterviews(ctx context.Context, userID string) ([]jobs.Interview, error)
	GetInterview(ctx context.Context, userID, id string) (*jobs.Interview, error)
	DeleteInterviews(ctx context.Context, userID string, ids []string) (int64, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Searcher Searcher
	Prep     PrepGenerator
	Resumes  ResumeIngester
	Store    Store
}

type Options struct {
	AllowOrigins []string `mapstructure:"allow-origins"`
	BodyLimit    string   `mapstructure:"body-limit"`
	Version      string   `mapstructure:"-"`
}

type server struct {
	deps     Deps
	logger   *zap.Logger
	validate *validator.Validate
	version  string
	started  time.Time
}

// NewRouter wires middleware and routes into a new echo instance.
func NewRouter(deps Deps, log *zap.Logger, opts Options) *echo.Echo {
	s := &server{
		deps:     deps,
		logger:   logger.WithFields(log),
		validate: validator.New(),
		version:  opts.Version,
		started:  time.Now(),
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = defaultBodyLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleHTTPError

	e.Use(echomiddleware.Recover())
	e.Use(requestIDMiddleware())
	e.Use(accessLog(s.logger))
	e.Use(corsMiddleware(opts.AllowOrigins))
	e.Use(echomiddleware.BodyLimit(opts.BodyLimit))

	health := e.Group("/health")
	health.GET("", s.health)
	health.GET("/live", s.live)
	health.GET("/ready", s.ready)

	v1 := e.Group("/api/v1", s.requireUser)

	searches := v1.Group("/searches")
	searches.POST("", s.createSearch)
	searches.GET("", s.listSearches)
	searches.GET("/:id/matches", s.searchMatches)
	searches.DELETE("/:id", s.deleteSearch)

	resumes := v1.Group("/resumes")
	resumes.POST("", s.uploadResume)
	resumes.GET("/latest", s.latestResume)

	v1.POST("/jobs/:id/prep", s.generatePrep)

	interviews := v1.Group("/interviews")
	interviews.GET("", s.listInterviews)
	interviews.GET("/:id", s.getInterview)
	interviews.DELETE("", s.deleteInterviews)

	return e
}

// handleHTTPError renders errors raised by echo itself (routing, body limit,
// panics) in the same shape as handler errors.
func (s *server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = s.fail(c, err)
		return
	}

	code := codeInternal
	switch he.Code {
	case http.StatusNotFound:
		code = codeNotFound
	case http.StatusMethodNotAllowed, http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		code = codeInvalidRequest
	case http.StatusUnauthorized:
		code = codeUnauthorized
	}
	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		message = m
	}

	_ = c.JSON(he.Code, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// bind decodes the body into req and runs its validation tags.
func (s *server) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errMalformedBody
	}
	return s.validate.Struct(req)
}
