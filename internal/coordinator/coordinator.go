// Package coordinator implements the client side of the deferred-job
// protocol: requests that the server may answer immediately or park
// behind a job id, a single shared long-poll that picks up completed
// jobs and pushed notifications, and an adaptive polling interval.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Defaults for the scheduler and submit fast path.
const (
	DefaultMinInterval  = 5 * time.Second
	DefaultMaxInterval  = 10 * time.Second
	DefaultFastInterval = time.Second
	DefaultPollPath     = "/api/jobs"
)

// Config for a Coordinator. Transport is required; everything else has a
// usable default.
type Config struct {
	// RootPath replaces the {{root}} placeholder in notification fields.
	RootPath string

	// MinInterval and MaxInterval bound the adaptive polling interval.
	MinInterval time.Duration
	MaxInterval time.Duration

	// FastInterval is the interval adopted when a submission finds the
	// scheduler polling slower than this; new activity justifies tighter
	// polling even without a server hint.
	FastInterval time.Duration

	// PollPath is the batched polling endpoint.
	PollPath string

	Transport Transport
	Toasts    ToastSink
	Logger    *slog.Logger
}

// Coordinator correlates deferred results and notifications arriving on
// one shared poll channel with the callers that are waiting for them.
// All shared state sits behind a single mutex: the registry and the
// scheduler are always mutated together under it.
type Coordinator struct {
	rootPath     string
	minInterval  time.Duration
	maxInterval  time.Duration
	fastInterval time.Duration
	pollPath     string

	transport Transport
	toasts    ToastSink
	logger    *slog.Logger

	mu       sync.Mutex
	jobs     *registry
	table    *handlerTable
	interval time.Duration
	closed   bool

	kick    chan struct{}
	closing chan struct{}
}

// New creates a coordinator and starts its poll scheduler immediately.
func New(cfg Config) *Coordinator {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	if cfg.FastInterval <= 0 {
		cfg.FastInterval = DefaultFastInterval
	}
	if cfg.PollPath == "" {
		cfg.PollPath = DefaultPollPath
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Coordinator{
		rootPath:     cfg.RootPath,
		minInterval:  cfg.MinInterval,
		maxInterval:  cfg.MaxInterval,
		fastInterval: cfg.FastInterval,
		pollPath:     cfg.PollPath,
		transport:    cfg.Transport,
		toasts:       cfg.Toasts,
		logger:       cfg.Logger,
		jobs:         newRegistry(),
		table:        newHandlerTable(),
		interval:     cfg.MinInterval,
		kick:         make(chan struct{}, 1),
		closing:      make(chan struct{}),
	}
	go c.pollLoop()
	return c
}

// Submit issues a request. The returned handle resolves immediately when
// the server answers inline, or later through the poll channel when the
// server defers the operation behind a job id. It reaches exactly one
// terminal state either way.
func (c *Coordinator) Submit(ctx context.Context, method, path string, params Params) *Pending {
	p := newPending()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		p.reject(ErrClosed)
		return p
	}

	go c.submit(ctx, p, method, path, params)
	return p
}

// Get submits a read request, the common case for dashboard calls.
func (c *Coordinator) Get(ctx context.Context, path string, params Params) *Pending {
	return c.Submit(ctx, http.MethodGet, path, params)
}

func (c *Coordinator) submit(ctx context.Context, p *Pending, method, path string, params Params) {
	reply, err := c.transport.Do(ctx, method, path, params)
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			p.setOrigin(terr.Response)
		}
		p.reject(err)
		return
	}
	p.setOrigin(reply.HTTP)

	body := reply.Body
	id, deferred := jobID(body["jobid"])
	if !deferred {
		p.resolve(body)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		p.reject(ErrClosed)
		return
	}
	c.jobs.add(id, p)
	c.mu.Unlock()

	stillPending, _ := body["pending"].(bool)
	if stillPending {
		p.signalProgress(id)
	}

	cur := c.currentInterval()
	hint := intervalHint(body)
	if stillPending && hint > 0 && hint < cur {
		c.restart(hint)
	} else if cur > c.fastInterval {
		c.restart(c.fastInterval)
	}

	// The submission response may piggyback completed jobs and
	// notifications, possibly including the job registered above.
	c.correlate(batchFrom(body))
}

// Close stops the poll scheduler. Handles still pending are left
// unresolved; later submissions are rejected with ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.closing)
}

// PendingJobs reports how many deferred operations await completion.
func (c *Coordinator) PendingJobs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs.size()
}

func intervalHint(body map[string]any) time.Duration {
	ms, ok := body["interval"].(float64)
	if !ok || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
