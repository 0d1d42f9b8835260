package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/recompose/pkg/pipeline"
)

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req slotRef
	if err := decodeSlot(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, outcome, err := s.Runner.Recompute(r.Context(), req.Producer, req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResponse{Key: pipeline.SlotKey(req.Producer, req.Index), Payload: p, Outcome: outcome.String()})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req slotRef
	if err := decodeSlot(r, &req); err != nil {
		writeError(w, err)
		return
	}
	strat, err := s.Runner.Analyze(r.Context(), req.Producer, req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strat)
}

type synthesizeRequest struct {
	slotRef
	// Now skips the debounce and waits for the result.
	Now bool `json:"now,omitempty"`
}

// handleSynthesize schedules synthesis and answers 202, or runs it
// immediately when now is set.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	key := pipeline.SlotKey(req.Producer, req.Index)
	if !req.Now {
		if err := s.Runner.Synthesize(req.Producer, req.Index); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"key": key, "scheduled": true})
		return
	}
	p, err := s.Runner.SynthesizeNow(r.Context(), req.Producer, req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResponse{Key: key, Payload: p})
}

type confirmRequest struct {
	slotRef
	Prompt string `json:"prompt,omitempty"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.Runner.Confirm(r.Context(), req.Producer, req.Index, req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResponse{Key: pipeline.SlotKey(req.Producer, req.Index), Payload: p})
}

type gateRequest struct {
	slotRef
	Allowed bool `json:"allowed"`
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	var req gateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.Runner.SetGenerationAllowed(r.Context(), req.Producer, req.Index, req.Allowed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payloadResponse{Key: pipeline.SlotKey(req.Producer, req.Index), Payload: p})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req slotRef
	if err := decodeSlot(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rev, err := s.Runner.Review(r.Context(), req.Producer, req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

type knowledgeRequest struct {
	Text string `json:"text,omitempty"`
	// Document is a base64 guideline PDF.
	Document   []byte            `json:"document,omitempty"`
	References map[string][]byte `json:"references,omitempty"`
}

func (s *Server) handlePutKnowledge(w http.ResponseWriter, r *http.Request) {
	var req knowledgeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in := pipeline.KnowledgeInput{Text: req.Text, References: req.References}
	if len(req.Document) > 0 {
		in.Document = bytes.NewReader(req.Document)
	}
	kc, err := s.Runner.RegisterKnowledge(r.Context(), chi.URLParam(r, "producer"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kc)
}

func decodeSlot(r *http.Request, ref *slotRef) error {
	if err := decode(r, ref); err != nil {
		return err
	}
	return ref.validate()
}
