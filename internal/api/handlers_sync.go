package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/dgallion1/brewsync/internal/store"
	"github.com/go-chi/chi/v5"
)

// credential is the token a sync is pushed with: the session cookie, else
// the X-User-Token header sent by service callers on a user's behalf.
func credential(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get("X-User-Token")
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var doc brew.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		jsonError(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Var(doc.ShareID, "required,max=256"); err != nil {
		jsonError(w, "shareId is required", http.StatusBadRequest)
		return
	}

	if err := s.store.Put(r.Context(), doc); err != nil {
		s.log.Error("store brew failed", "share_id", doc.ShareID, "error", err)
		jsonError(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	s.schedule(w, doc, credential(r))
}

func (s *Server) handleChanged(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")
	doc, err := s.store.Get(r.Context(), shareID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "brew not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("load brew failed", "share_id", shareID, "error", err)
		jsonError(w, "failed to load document", http.StatusInternalServerError)
		return
	}

	s.schedule(w, doc, credential(r))
}

func (s *Server) schedule(w http.ResponseWriter, doc brew.Document, cred string) {
	scheduled := s.orchestrator.Schedule(doc, cred)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"share_id":    doc.ShareID,
		"scheduled":   scheduled,
		"debounce_ms": s.orchestrator.Debounce().Milliseconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")

	var last any
	if job := s.orchestrator.LatestJob(shareID); job != nil {
		last = job.Snapshot()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"share_id": shareID,
		"pending":  s.orchestrator.Pending(shareID),
		"last_job": last,
	})
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "sync stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"push":        s.stats.Snapshot(),
		"pending":     s.orchestrator.PendingCount(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
