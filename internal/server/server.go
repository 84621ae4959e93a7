// Package server runs the HTTP API and the gRPC health service on one port.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soheilhy/cmux"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	DefaultAddress  = ":8080"
	shutdownTimeout = 30 * time.Second
)

type Server struct {
	logger *zap.Logger

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server

	mux      cmux.CMux
	listener net.Listener
	wg       sync.WaitGroup
}

func New(handler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		logger:     log,
		grpcServer: gs,
		health:     hs,
		httpServer: &http.Server{
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens on address and serves in the background.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.Serve(listener)
	return nil
}

// Serve splits listener between gRPC and HTTP/1 and serves both in the background.
func (s *Server) Serve(listener net.Listener) {
	s.listener = listener
	s.mux = cmux.New(listener)

	grpcListener := s.mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpListener := s.mux.Match(cmux.HTTP1Fast())

	log := s.logger.With(zap.String("address", listener.Addr().String()))

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := s.grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrListenerClosed) {
			log.Error("grpc server failed", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			log.Error("http server failed", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, cmux.ErrServerClosed) {
			log.Error("multiplexer failed", zap.Error(err))
		}
	}()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	log.Info("server started")
}

// Addr returns the bound address once serving.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop drains HTTP requests, stops gRPC and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	s.grpcServer.GracefulStop()
	if s.mux != nil {
		s.mux.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("server stopped")
	case <-ctx.Done():
		s.logger.Warn("server shutdown timed out")
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
