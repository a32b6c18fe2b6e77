package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

const defaultOperationLimit = 50

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleOperations handles GET /api/v1/operations?limit=<n>
func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultOperationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ops, err := s.operations.ListOperations(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list operations")
		s.writeError(w, http.StatusInternalServerError, "failed to list operations")
		return
	}

	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		out = append(out, toOperation(op))
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: out, Generated: time.Now().UTC()})
}

// handleOperation handles GET /api/v1/operations/{id}
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	op, err := s.operations.GetOperation(r.Context(), id)
	switch {
	case errors.IsChainError(err, errors.ErrCodeNotFound):
		s.writeError(w, http.StatusNotFound, "operation "+id+" not found")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("operation_id", id).Msg("failed to load operation")
		s.writeError(w, http.StatusInternalServerError, "failed to load operation")
		return
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: toOperation(*op), Generated: time.Now().UTC()})
}

// handleContractCache handles GET /api/v1/contract-cache
func (s *Server) handleContractCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cache == nil {
		s.writeError(w, http.StatusNotFound, "contract cache is not enabled")
		return
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: s.cache.Entries(), Generated: time.Now().UTC()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
