package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	serviceName  = "prepscout"
	readyTimeout = 3 * time.Second
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *server) live(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Service:   serviceName,
		Timestamp: time.Now().UTC(),
	})
}

// ready reports whether the store answers.
func (s *server) ready(c echo.Context) error {
	resp := HealthResponse{
		Status:    "ready",
		Service:   serviceName,
		Checks:    map[string]string{"store": "ok"},
		Timestamp: time.Now().UTC(),
	}
	if s.deps.Store == nil {
		resp.Checks["store"] = "disabled"
		return c.JSON(http.StatusOK, resp)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	if err := s.deps.Store.Ping(ctx); err != nil {
		s.requestLogger(c).Warn("store is not ready", zap.Error(err))
		resp.Status = "not_ready"
		resp.Checks["store"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
