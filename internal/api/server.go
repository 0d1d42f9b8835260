// Package api exposes a pipeline Runner over HTTP for an editor front end.
//
// Handlers translate requests into Runner triggers and render payloads as
// JSON. Errors are rendered as {"code": ..., "message": ...} with the status
// derived from the error code.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/recompose/pkg/pipeline"
	"github.com/matzehuels/recompose/pkg/project"
)

// MaxBodySize bounds request bodies. Documents carry pixel data.
const MaxBodySize = 256 << 20

// Server serves the recompose HTTP API.
type Server struct {
	Runner   *pipeline.Runner
	Projects project.Store // nil disables the project routes
	Logger   *log.Logger

	router *chi.Mux
}

// New returns a server for runner. projects may be nil.
func New(runner *pipeline.Runner, projects project.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{Runner: runner, Projects: projects, Logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(MaxBodySize))

	r.Get("/healthz", s.handleHealth)
	r.Get("/events", s.handleEvents)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.handleListDocuments)
		r.Post("/", s.handleLoadDocument)
		r.Post("/inspect", s.handleInspectDocument)
		r.Get("/{id}/containers", s.handleContainers)
		r.Delete("/{id}", s.handleUnloadDocument)
	})
	r.Post("/resolve", s.handleResolve)

	r.Route("/mappings/{producer}/{index}", func(r chi.Router) {
		r.Get("/", s.handleGetMapping)
		r.Put("/", s.handlePutMapping)
		r.Put("/strategy", s.handlePutStrategy)
	})
	r.Delete("/nodes/{producer}", s.handleRemoveNode)

	r.Route("/payloads/{producer}/{slot}", func(r chi.Router) {
		r.Get("/", s.handleGetPayload)
		r.Patch("/", s.handlePatchPayload)
		r.Delete("/", s.handleDisconnect)
		r.Get("/preview.png", s.handlePreview)
	})

	r.Post("/transform", s.handleTransform)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/synthesize", s.handleSynthesize)
	r.Post("/confirm", s.handleConfirm)
	r.Post("/gate", s.handleGate)
	r.Post("/review", s.handleReview)
	r.Post("/export", s.handleExport)
	r.Put("/knowledge/{producer}", s.handlePutKnowledge)
	r.Get("/history", s.handleHistory)

	r.Route("/projects", func(r chi.Router) {
		r.Use(s.requireProjects)
		r.Get("/", s.handleListProjects)
		r.Get("/{name}", s.handleGetProject)
		r.Put("/{name}", s.handlePutProject)
		r.Delete("/{name}", s.handleDeleteProject)
		r.Get("/{name}/graph.svg", s.handleProjectGraph)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

func (s *Server) requireProjects(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Projects == nil {
			writeError(w, errNoProjects)
			return
		}
		next.ServeHTTP(w, r)
	})
}
