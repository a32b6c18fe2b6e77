package api

import "net/http"

// setupRoutes configures all HTTP routes for the status server
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	mux.HandleFunc("/api/v1/operations", s.handleOperations)
	mux.HandleFunc("/api/v1/operations/{id}", s.handleOperation)
	mux.HandleFunc("/api/v1/contract-cache", s.handleContractCache)

	return mux
}
