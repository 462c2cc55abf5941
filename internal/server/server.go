// Package server exposes the run-trigger surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dusk-indust/genpipe/internal/export"
	"github.com/dusk-indust/genpipe/internal/launcher"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/store"
)

// pager is implemented by orchestrators that can report a page token.
type pager interface {
	Page(filter orchestrator.RunFilter) (*store.Page, error)
}

// Server routes HTTP requests to an Orchestrator.
type Server struct {
	orch   orchestrator.Orchestrator
	router chi.Router

	// streams is cancelled on shutdown so open event streams end.
	streams      context.Context
	closeStreams context.CancelFunc
}

// New creates a Server for orch.
func New(orch orchestrator.Orchestrator) *Server {
	s := &Server{orch: orch}
	s.streams, s.closeStreams = context.WithCancel(context.Background())
	s.router = s.buildRouter()
	return s
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Shutdown ends open
// event streams instead of waiting for their runs to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	srv.RegisterOnShutdown(s.closeStreams)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/pipelines", func(r chi.Router) {
		r.Get("/", s.handlePipelineList)
		r.Get("/{pipelineID}/diagram", s.handlePipelineDiagram)
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleRunList)
		r.Post("/", s.handleRunStart)

		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.handleRunGet)
			r.Get("/events", s.handleRunEvents)
			r.Post("/cancel", s.handleRunCancel)
			r.Get("/artifact", s.handleRunArtifact)
			r.Get("/diagram", s.handleRunDiagram)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PipelineInfo describes a registered pipeline.
type PipelineInfo struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Terminal string      `json:"terminal,omitempty"`
	Stages   []StageInfo `json:"stages"`
}

// StageInfo describes one stage of a pipeline.
type StageInfo struct {
	ID          orchestrator.StageID   `json:"id"`
	DependsOn   []orchestrator.StageID `json:"dependsOn,omitempty"`
	Weight      float64                `json:"weight"`
	Timeout     string                 `json:"timeout,omitempty"`
	Tolerant    bool                   `json:"tolerant,omitempty"`
	HasFallback bool                   `json:"hasFallback,omitempty"`
}

// DescribePipeline converts a definition into its wire description.
func DescribePipeline(def *orchestrator.Definition) PipelineInfo {
	info := PipelineInfo{ID: def.ID(), Name: def.Name(), Terminal: string(def.Terminal())}
	for _, st := range def.Stages() {
		si := StageInfo{
			ID:          st.ID,
			DependsOn:   st.DependsOn,
			Weight:      st.Weight,
			Tolerant:    st.Tolerant,
			HasFallback: st.Fallback != nil,
		}
		if st.Timeout > 0 {
			si.Timeout = st.Timeout.String()
		}
		info.Stages = append(info.Stages, si)
	}
	return info
}

func (s *Server) handlePipelineList(w http.ResponseWriter, _ *http.Request) {
	out := []PipelineInfo{}
	for _, def := range s.orch.Definitions() {
		out = append(out, DescribePipeline(def))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePipelineDiagram(w http.ResponseWriter, r *http.Request) {
	def, ok := s.definition(chi.URLParam(r, "pipelineID"))
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.GenerateMermaid(def, nil)))
}

// StartRequest is the body of POST /runs.
type StartRequest struct {
	Pipeline string         `json:"pipeline"`
	Params   map[string]any `json:"params"`
}

func (s *Server) handleRunStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Pipeline == "" {
		writeError(w, http.StatusBadRequest, "pipeline is required")
		return
	}
	id, err := s.orch.StartRun(r.Context(), req.Pipeline, req.Params)
	if err != nil {
		s.writeOrchError(w, err)
		return
	}
	w.Header().Set("Location", "/runs/"+id)
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": id})
}

// RunList is the body of GET /runs.
type RunList struct {
	Runs          []orchestrator.PipelineRun `json:"runs"`
	NextPageToken string                     `json:"nextPageToken,omitempty"`
}

func (s *Server) handleRunList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := orchestrator.RunFilter{
		DefinitionID: q.Get("pipeline"),
		Outcome:      orchestrator.RunOutcome(q.Get("outcome")),
		PageToken:    q.Get("pageToken"),
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid pageSize")
			return
		}
		filter.PageSize = n
	}

	var out RunList
	if p, ok := s.orch.(pager); ok {
		page, err := p.Page(filter)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out = RunList{Runs: page.Runs, NextPageToken: page.NextPageToken}
	} else {
		runs, err := s.orch.ListRuns(filter)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out.Runs = runs
	}
	if out.Runs == nil {
		out.Runs = []orchestrator.PipelineRun{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	run, err := s.orch.Result(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeOrchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunEvents streams the run's progress as server-sent events: the
// history first, then live events until the final one.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	events, unsubscribe, err := s.orch.Subscribe(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeOrchError(w, err)
		return
	}
	defer unsubscribe()

	sw := NewSSEWriter(w)
	sw.Init()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sw.WriteEvent(ev); err != nil {
				log.Printf("WARNING: run %s: %v", ev.RunID, err)
				return
			}
		case <-r.Context().Done():
			return
		case <-s.streams.Done():
			return
		}
	}
}

func (s *Server) handleRunCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	if err := s.orch.Cancel(id); err != nil {
		s.writeOrchError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": id, "status": "cancelling"})
}

func (s *Server) handleRunArtifact(w http.ResponseWriter, r *http.Request) {
	run, def, ok := s.runWithDefinition(w, r)
	if !ok {
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(export.RenderMarkdown(def, run)))
	case "html":
		html, err := export.RenderHTML(export.RenderMarkdown(def, run))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	case "json":
		writeJSON(w, http.StatusOK, export.ExportRun(def, run))
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}

func (s *Server) handleRunDiagram(w http.ResponseWriter, r *http.Request) {
	run, def, ok := s.runWithDefinition(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.GenerateMermaid(def, run)))
}

func (s *Server) runWithDefinition(w http.ResponseWriter, r *http.Request) (*orchestrator.PipelineRun, *orchestrator.Definition, bool) {
	run, err := s.orch.Result(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeOrchError(w, err)
		return nil, nil, false
	}
	def, ok := s.definition(run.DefinitionID)
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not found")
		return nil, nil, false
	}
	return run, def, true
}

func (s *Server) definition(id string) (*orchestrator.Definition, bool) {
	for _, def := range s.orch.Definitions() {
		if def.ID() == id {
			return def, true
		}
	}
	return nil, false
}

func (s *Server) writeOrchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, launcher.ErrUnknownPipeline):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
