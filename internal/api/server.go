package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port    string
	Handler http.Handler
	Logger  zerolog.Logger
}

// Server wraps http.Server with the service's timeouts and drain logic.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates an HTTP server for the given handler.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      cfg.Handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("server listening")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests
// until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
