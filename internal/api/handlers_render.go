package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/dgallion1/brewsync/internal/markup"
)

type renderRequest struct {
	Text     string `json:"text" validate:"required"`
	Title    string `json:"title" validate:"max=500"`
	Renderer string `json:"renderer" validate:"omitempty,oneof=legacy V3"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	preview, err := markup.BuildPreview(brew.Document{
		Text:     req.Text,
		Title:    req.Title,
		Renderer: brew.Mode(req.Renderer),
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
