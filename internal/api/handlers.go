package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/recompose/pkg/buildinfo"
	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/history"
	"github.com/matzehuels/recompose/pkg/pipeline"
	"github.com/matzehuels/recompose/pkg/reconcile"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"documents":    len(s.Runner.Documents()),
		"storeVersion": s.Runner.Store.Version(),
		"build":        buildinfo.Current(),
	})
}

// ===== Documents =====

type documentResponse struct {
	ID       string             `json:"id"`
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Template container.Template `json:"template"`
}

// handleLoadDocument registers the raw request body as document ?id=.
func (s *Server) handleLoadDocument(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	ld, err := s.Runner.LoadDocument(r.Context(), id, r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Runner.RecomputeDocument(r.Context(), id)
	writeJSON(w, http.StatusCreated, documentResponse{
		ID:       ld.ID,
		Width:    ld.Document.Width,
		Height:   ld.Document.Height,
		Template: ld.Template,
	})
}

func (s *Server) handleInspectDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	tpl, hit, err := s.Runner.Inspect(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": tpl, "cached": hit})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.Runner.Documents()})
}

func (s *Server) handleContainers(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.Runner.Containers(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleUnloadDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Runner.UnloadDocument(id) {
		writeError(w, errors.New(errors.ErrCodeDocumentNotFound, "document %q is not loaded", id))
		return
	}
	s.Runner.RecomputeDocument(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

type resolveRequest struct {
	Document string `json:"document"`
	Name     string `json:"name"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Runner.Resolve(req.Document, req.Name))
}

// ===== Mappings =====

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	producer := chi.URLParam(r, "producer")
	m, ok := s.Runner.Mapping(producer, index)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no mapping for %s", pipeline.SlotKey(producer, index)))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handlePutMapping replaces an instance's mapping and returns the
// recomputed payload.
func (s *Server) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	producer := chi.URLParam(r, "producer")
	if err := errors.ValidateName(producer); err != nil {
		writeError(w, err)
		return
	}
	var m pipeline.Mapping
	if err := decode(r, &m); err != nil {
		writeError(w, err)
		return
	}
	s.Runner.Configure(producer, index, m)
	p, outcome, err := s.Runner.Recompute(r.Context(), producer, index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResponse{Key: pipeline.SlotKey(producer, index), Payload: p, Outcome: outcome.String()})
}

func (s *Server) handlePutStrategy(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var strat design.Strategy
	if err := decode(r, &strat); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.Runner.SetStrategy(r.Context(), chi.URLParam(r, "producer"), index, &strat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	n := s.Runner.RemoveNode(chi.URLParam(r, "producer"))
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// ===== Payloads =====

type payloadResponse struct {
	Key     reconcile.Key             `json:"key"`
	Payload design.Payload            `json:"payload"`
	Context *reconcile.MappingContext `json:"context,omitempty"`
	Outcome string                    `json:"outcome,omitempty"`
}

func slotKey(r *http.Request) reconcile.Key {
	return reconcile.Key{Producer: chi.URLParam(r, "producer"), Slot: chi.URLParam(r, "slot")}
}

func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	key := slotKey(r)
	p, ok := s.Runner.Store.Payload(key)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no payload for %s", key))
		return
	}
	resp := payloadResponse{Key: key, Payload: p}
	if mc, ok := s.Runner.Store.Context(key); ok {
		resp.Context = &mc
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePatchPayload(w http.ResponseWriter, r *http.Request) {
	var patch design.PayloadPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if patch.PreviewURL != nil && *patch.PreviewURL != "" {
		if err := errors.ValidateURL(*patch.PreviewURL); err != nil {
			writeError(w, err)
			return
		}
	}
	key := slotKey(r)
	p, outcome := s.Runner.Reconcile(key, patch)
	writeJSON(w, http.StatusOK, payloadResponse{Key: key, Payload: p, Outcome: outcome.String()})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	key := slotKey(r)
	index, err := pipeline.ParseSlot(key.Slot)
	if err != nil {
		writeError(w, err)
		return
	}
	p := s.Runner.Disconnect(key.Producer, index)
	writeJSON(w, http.StatusOK, payloadResponse{Key: key, Payload: p})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	key := slotKey(r)
	index, err := pipeline.ParseSlot(key.Slot)
	if err != nil {
		writeError(w, err)
		return
	}
	png, err := s.Runner.Preview(r.Context(), key.Producer, index)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// ===== Export & history =====

type exportRequest struct {
	Target string `json:"target"`
}

// handleExport streams the assembled document. Procedural violations are
// reported in the X-Recompose-Violations header.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	rep, stats, err := s.Runner.Export(r.Context(), &buf, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Target+".json"))
	w.Header().Set("X-Recompose-Violations", strconv.Itoa(len(rep.Violations)))
	w.Header().Set("X-Recompose-Dropped", strconv.Itoa(stats.Dropped))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.Runner.History == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "generation history is not configured"))
		return
	}
	q := r.URL.Query()
	f := history.Filter{Producer: q.Get("producer"), Kind: history.Kind(q.Get("kind"))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		f.Limit = n
	}
	recs, err := s.Runner.History.List(r.Context(), f)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "list history"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}
