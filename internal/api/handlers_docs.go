package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleDeleteDocument removes a document's parents, children and meta node
// from the index.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		jsonError(w, "no index configured", http.StatusServiceUnavailable)
		return
	}
	docID := sanitizeFilename(chi.URLParam(r, "docID"))
	if err := s.index.DeleteNode(r.Context(), "documents/"+docID, true); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":  docID,
		"deleted": true,
	})
}
