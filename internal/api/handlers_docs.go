package api

import (
	"net/http"
	"path/filepath"

	"github.com/dgallion1/docchat/internal/vectorstore"
)

// handleListDocuments lists indexed sources with their chunk counts.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	sources, err := s.index.Sources(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sources == nil {
		sources = []vectorstore.SourceInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": sources})
}

// handleDeleteDocument drops every chunk of one source from the index.
// The file under the data directory is left alone.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		jsonError(w, "source query parameter is required", http.StatusBadRequest)
		return
	}

	n, err := s.index.DeleteSource(r.Context(), filepath.Clean(source))
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n == 0 {
		jsonError(w, "source not indexed", http.StatusNotFound)
		return
	}
	s.log.Info("deleted document chunks", "source", source, "chunks", n)
	writeJSON(w, http.StatusOK, map[string]any{
		"source":         source,
		"chunks_deleted": n,
	})
}
