// Package server exposes the ops HTTP endpoints of the layout service:
// liveness, run status, a manual run trigger and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/citation-map/internal/graph"
	"github.com/onnwee/citation-map/internal/logger"
	"github.com/onnwee/citation-map/internal/store"
)

// Runner is the part of graph.Service the server needs.
type Runner interface {
	Run(ctx context.Context) (store.Run, error)
	LastRun() (store.Run, bool)
	Running() bool
}

// History looks up persisted runs, used when this process has not run the
// layout yet.
type History interface {
	LatestRun(ctx context.Context) (*store.Run, error)
}

type Server struct {
	runner  Runner
	history History // optional
	router  *mux.Router

	// base is the parent context of triggered runs; Serve replaces it with
	// its own context so shutdown cancels them.
	base      context.Context
	triggered sync.WaitGroup
}

func New(runner Runner, history History) *Server {
	s := &Server{runner: runner, history: history, base: context.Background()}
	r := mux.NewRouter()
	r.Use(RequestID, RecoverWithSentry)
	r.HandleFunc("/healthz", Health).Methods(http.MethodGet)
	r.HandleFunc("/status", s.Status).Methods(http.MethodGet)
	r.HandleFunc("/runs", s.TriggerRun).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. Runs triggered through POST /runs
// are cancelled with ctx, and Serve returns once they have finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.base = ctx
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Info("ops server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		s.triggered.Wait()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serr := <-errc; err == nil && !errors.Is(serr, http.ErrServerClosed) {
		err = serr
	}
	s.triggered.Wait()
	return err
}

// Health returns a simple JSON payload to indicate the service is alive.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runResponse struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Dim        int             `json:"dim"`
	Nodes      int             `json:"nodes"`
	Iterations []int64         `json:"iterations"`
	State      string          `json:"state"`
	Params     json.RawMessage `json:"params,omitempty"`
}

func toResponse(r store.Run) *runResponse {
	return &runResponse{
		ID:         r.ID.String(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Dim:        r.Dim,
		Nodes:      r.Nodes,
		Iterations: r.Iterations,
		State:      r.State,
		Params:     r.Params,
	}
}

type statusResponse struct {
	Running bool         `json:"running"`
	LastRun *runResponse `json:"last_run"`
}

// Status reports whether a run is executing and the most recent run.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	out := statusResponse{Running: s.runner.Running()}
	if last, ok := s.runner.LastRun(); ok {
		out.LastRun = toResponse(last)
	} else if s.history != nil {
		prev, err := s.history.LatestRun(r.Context())
		if err != nil {
			logger.WarnContext(r.Context(), "failed to read run history", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "run history unavailable"})
			return
		}
		if prev != nil {
			out.LastRun = toResponse(*prev)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// TriggerRun starts a layout run in the background.
func (s *Server) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.runner.Running() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": graph.ErrRunInProgress.Error()})
		return
	}
	// the run outlives the request but not the server
	ctx := s.base
	if id, ok := r.Context().Value(logger.RequestIDKey).(string); ok {
		ctx = context.WithValue(ctx, logger.RequestIDKey, id)
	}
	s.triggered.Add(1)
	go func() {
		defer s.triggered.Done()
		if _, err := s.runner.Run(ctx); err != nil && !errors.Is(err, graph.ErrRunInProgress) && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "triggered layout run failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
