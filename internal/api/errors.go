package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/discovery"
	"github.com/spigell/prepscout/internal/jobs"
	"github.com/spigell/prepscout/internal/prep"
	"github.com/spigell/prepscout/internal/resume"
	"github.com/spigell/prepscout/internal/scoring"
	"github.com/spigell/prepscout/internal/storage"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	codeInvalidRequest = "invalid_request"
	codeValidation     = "validation_failed"
	codeUnauthorized   = "unauthorized"
	codeNotFound       = "not_found"
	codeUpstream       = "upstream_failed"
	codeNotConfigured  = "not_configured"
	codeInternal       = "internal_error"
)

var (
	errMissingUser   = errors.New("missing " + HeaderUserID + " header")
	errMalformedBody = errors.New("malformed request body")
	errMissingFile   = errors.New("multipart field \"file\" is required")
)

type apiError struct {
	status  int
	code    string
	message string
}

// classify maps domain errors to a status, a code and a message safe to show.
func classify(err error) apiError {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return apiError{http.StatusBadRequest, codeValidation, validationErrs.Error()}
	case errors.Is(err, errMissingUser):
		return apiError{http.StatusUnauthorized, codeUnauthorized, err.Error()}
	case errors.Is(err, errMalformedBody),
		errors.Is(err, errMissingFile),
		errors.Is(err, jobs.ErrInvalidRequest),
		errors.Is(err, resume.ErrEmptyFile),
		errors.Is(err, resume.ErrUnsupportedType),
		errors.Is(err, resume.ErrNoText):
		return apiError{http.StatusBadRequest, codeInvalidRequest, err.Error()}
	case errors.Is(err, prep.ErrResumeRequired):
		return apiError{http.StatusNotFound, codeNotFound, prep.ErrResumeRequired.Error()}
	case errors.Is(err, storage.ErrNotFound):
		return apiError{http.StatusNotFound, codeNotFound, "resource not found"}
	case errors.Is(err, discovery.ErrAllStrategiesFailed):
		return apiError{http.StatusBadGateway, codeUpstream, discovery.ErrAllStrategiesFailed.Error()}
	case errors.Is(err, discovery.ErrNotConfigured),
		errors.Is(err, scoring.ErrNotConfigured),
		errors.Is(err, prep.ErrNotConfigured),
		errors.Is(err, resume.ErrNotConfigured):
		return apiError{http.StatusServiceUnavailable, codeNotConfigured, "service is not configured: " + rootMessage(err)}
	default:
		return apiError{http.StatusInternalServerError, codeInternal, "internal error"}
	}
}

func rootMessage(err error) string {
	for _, sentinel := range []error{discovery.ErrNotConfigured, scoring.ErrNotConfigured, prep.ErrNotConfigured, resume.ErrNotConfigured} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func (s *server) fail(c echo.Context, err error) error {
	e := classify(err)
	log := s.requestLogger(c)
	if e.status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", e.status), zap.Error(err))
	} else {
		log.Info("request rejected", zap.Int("status", e.status), zap.Error(err))
	}

	return c.JSON(e.status, ErrorResponse{
		Error:     e.code,
		Message:   e.message,
		RequestID: requestID(c),
		Timestamp: time.Now().UTC(),
	})
}
