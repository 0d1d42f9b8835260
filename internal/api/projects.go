package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/project"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	names, err := s.Projects.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": names})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.Projects.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutProject validates, sanitizes and stores a project.
func (s *Server) handlePutProject(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	p, err := project.Validate(raw, s.Logger)
	if err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.Projects.Save(r.Context(), name, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "nodes": len(p.Nodes), "edges": len(p.Edges)})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.Projects.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProjectGraph(w http.ResponseWriter, r *http.Request) {
	p, err := s.Projects.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	svg, err := project.RenderSVG(r.Context(), project.ToDOT(p, project.DOTOptions{Handles: r.URL.Query().Has("handles")}))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}
