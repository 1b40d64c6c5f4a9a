package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docchat/internal/memory"
	"github.com/dgallion1/docchat/internal/rag"
	"github.com/dgallion1/docchat/internal/retry"
)

type queryRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		jsonError(w, "invalid query: "+err.Error(), http.StatusBadRequest)
		return
	}

	ans, err := s.rag.Query(r.Context(), req.Query)
	if err != nil {
		s.log.Error("query failed", "error", err)
		jsonError(w, err.Error(), queryErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":      ans.Text,
		"casual":      ans.Casual,
		"sources":     ans.Sources,
		"duration_ms": ans.Duration.Milliseconds(),
	})
}

func queryErrorStatus(err error) int {
	var rerr *retry.Error
	switch {
	case errors.Is(err, rag.ErrEmptyQuery), errors.Is(err, rag.ErrQueryTooLong):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &rerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	entries := s.rag.History(r.Context())
	if entries == nil {
		entries = []memory.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memory": entries})
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.rag.ResetMemory(r.Context()); err != nil {
		jsonError(w, "failed to clear memory: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("chat memory cleared")
	w.WriteHeader(http.StatusNoContent)
}
