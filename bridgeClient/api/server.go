// Package api serves the relay's status endpoints: health, Prometheus
// metrics and the operation journal.
package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/metrics"
)

// Server provides HTTP endpoints
type Server struct {
	logger     zerolog.Logger
	operations OperationSource
	cache      CacheInspector
	metrics    *metrics.Metrics
	server     *http.Server
}

// NewServer creates a status server on port. cache and m may be nil.
func NewServer(logger zerolog.Logger, port int, operations OperationSource, cache CacheInspector, m *metrics.Metrics) *Server {
	s := &Server{
		logger:     logger.With().Str("component", "status_server").Logger(),
		operations: operations,
		cache:      cache,
		metrics:    m,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start binds the port and serves in the background.
func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("status server is nil")
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind to address %s: %w", s.server.Addr, err)
	}

	go func() {
		err := s.server.Serve(ln)
		switch err {
		case nil, http.ErrServerClosed:
			s.logger.Info().Msg("status server closed")
		default:
			s.logger.Error().Err(err).Msg("status server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("status server listening")
	return nil
}

// Stop closes the listener and active connections.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Handler exposes the routes without binding a port.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
