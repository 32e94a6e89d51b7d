// Package server ties the API, the job queue, and the scheduled
// watchlist check into one lifecycle.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vmunix/showrunner/internal/api"
	"github.com/vmunix/showrunner/internal/jobs"
	"github.com/vmunix/showrunner/internal/manager"
)

const shutdownTimeout = 10 * time.Second

// Config for the server runner.
type Config struct {
	Addr          string
	CheckEnabled  bool
	CheckSchedule string // cron expression
}

// Runner manages the long-running server components.
type Runner struct {
	api     *api.Server
	queue   *jobs.Queue
	manager *manager.Manager
	config  Config
	logger  *slog.Logger

	mu   sync.Mutex
	addr string
}

// NewRunner creates a new runner.
func NewRunner(apiSrv *api.Server, queue *jobs.Queue, mgr *manager.Manager, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		api:     apiSrv,
		queue:   queue,
		manager: mgr,
		config:  cfg,
		logger:  logger,
	}
}

// Addr returns the bound listen address once Run has started, "" before.
func (r *Runner) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

// Run starts all components and blocks until the context is canceled
// or a component fails.
func (r *Runner) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.config.Addr)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.addr = ln.Addr().String()
	r.mu.Unlock()

	mux := http.NewServeMux()
	r.api.RegisterRoutes(mux)
	httpSrv := &http.Server{Handler: r.logRequests(mux)}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("server listening", "addr", ln.Addr().String())
		if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	// Expired job and notification cleanup.
	g.Go(func() error {
		return r.queue.Run(ctx)
	})

	if r.config.CheckEnabled {
		g.Go(func() error {
			return r.runScheduledChecks(ctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runScheduledChecks sweeps the watchlist on the configured cron
// schedule until the context is canceled.
func (r *Runner) runScheduledChecks(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(r.config.CheckSchedule, func() {
		report, err := r.manager.Check(ctx)
		if err != nil {
			r.logger.Error("scheduled check failed", "error", err)
			return
		}
		r.logger.Info("scheduled check finished",
			"series", report.Checked, "errors", len(report.Errors))
	})
	if err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	// Let an in-flight check finish before reporting shutdown.
	<-c.Stop().Done()
	return ctx.Err()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (r *Runner) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, req)
		r.logger.Debug("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
