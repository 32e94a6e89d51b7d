// Package api implements the JSON API consumed by the dashboard and
// the CLI. Mutating operations run as deferred jobs: the response
// carries a job id and the result arrives through the shared polling
// endpoint.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vmunix/showrunner/internal/jobs"
	"github.com/vmunix/showrunner/internal/library"
	"github.com/vmunix/showrunner/internal/manager"
)

// Poll interval hints sent to clients, in milliseconds. Interactive
// operations suggest faster polling.
const (
	defaultHintMS     = 1000
	interactiveHintMS = 500
)

// Config holds API server configuration.
type Config struct {
	Version string

	// BlockFor is how long a deferred handler waits for its job before
	// answering pending; quick jobs complete inline.
	BlockFor time.Duration
}

// Server is the JSON API server.
type Server struct {
	store   *library.Store
	manager *manager.Manager
	queue   *jobs.Queue
	logger  *slog.Logger
	cfg     Config
}

// New creates an API server.
func New(store *library.Store, mgr *manager.Manager, queue *jobs.Queue, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   store,
		manager: mgr,
		queue:   queue,
		logger:  logger,
		cfg:     cfg,
	}
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Watchlist
	mux.HandleFunc("GET /api/shows", s.listShows)
	mux.HandleFunc("PUT /api/shows/{id}", s.addShow)
	mux.HandleFunc("DELETE /api/shows/{id}", s.deleteShow)
	mux.HandleFunc("POST /api/shows/{id}/refresh", s.refreshShow)
	mux.HandleFunc("GET /api/shows/{id}/episodes", s.listEpisodes)
	mux.HandleFunc("POST /api/episodes/{id}/status", s.setEpisodeStatus)

	// Provider search and episode checks
	mux.HandleFunc("GET /api/shows/search", s.searchShows)
	mux.HandleFunc("GET /api/shows/check", s.checkShows)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
	mux.HandleFunc("GET /api/jobs", s.pollJobs)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// parseJobsParam splits the comma-separated jobs parameter of a poll.
func parseJobsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("jobs")
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// deferred runs op as a background job and answers in the deferral wire
// shape: jobid, pending, a poll-interval hint, and any finished jobs or
// notifications piggybacked onto this response. The job keeps running
// after the HTTP request ends, so it must not inherit the request
// context.
func (s *Server) deferred(w http.ResponseWriter, r *http.Request, hintMS int, op func(context.Context) (any, error)) {
	job := s.queue.Start(context.Background(), op)
	finished := s.queue.Wait(job, s.cfg.BlockFor)
	if !finished {
		s.logger.Debug("job deferred to polling", "id", job.ID, "path", r.URL.Path)
	}

	resp := map[string]any{
		"jobid":    job.ID,
		"pending":  !finished,
		"interval": hintMS,
	}

	// Collect results for any job ids the client was already polling
	// for, plus this one.
	batch := s.queue.PopFinished(append(parseJobsParam(r), job.ID))
	resp["jobs"] = batch.Jobs
	resp["notifications"] = batch.Notifications

	writeJSON(w, http.StatusOK, resp)
}

// pollJobs is the shared polling endpoint: completed jobs among the
// requested ids plus all pending notifications.
func (s *Server) pollJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.PopFinished(parseJobsParam(r)))
}
