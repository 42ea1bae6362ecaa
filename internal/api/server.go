package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"studioflow/internal/config"
	"studioflow/internal/logging"
)

// Server runs the HTTP API on the configured bind address.
type Server struct {
	bind   string
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds a server for svc. The token secret must be configured.
func NewServer(cfg *config.Config, svc Service, logger *slog.Logger, opts ...RouterOption) (*Server, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("api server: config and service are required")
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, errors.New("api server: api.bind is empty")
	}
	if strings.TrimSpace(cfg.API.TokenSecret) == "" {
		return nil, errors.New("api server: api.token_secret is empty")
	}
	logger = logging.NewComponentLogger(logger, "api-server")
	return &Server{
		bind:   bind,
		logger: logger,
		server: &http.Server{
			Handler:           NewRouter(svc, cfg.API.TokenSecret, logger, opts...),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Start listens and serves in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
