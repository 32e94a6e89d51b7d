package coordinator

import (
	"context"
	"net/http"
	"sync"
)

// Pending is the completion handle returned by Submit. It transitions to
// exactly one terminal state: resolved with a result, or rejected with an
// error. Before that it may emit job-id acknowledgements on Progress.
type Pending struct {
	done     chan struct{}
	progress chan string

	once   sync.Once
	result any
	err    error

	mu     sync.Mutex
	origin *http.Response
}

func newPending() *Pending {
	return &Pending{
		done:     make(chan struct{}),
		progress: make(chan string, 4),
	}
}

// Done is closed once the handle reaches its terminal state.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Progress delivers best-effort "acknowledged but not complete" signals
// carrying the server-issued job id. Signals are dropped if nobody reads.
func (p *Pending) Progress() <-chan string { return p.progress }

// Result returns the terminal result and error. Valid only after Done.
func (p *Pending) Result() (any, error) {
	select {
	case <-p.done:
		return p.result, p.err
	default:
		return nil, ErrNotDone
	}
}

// Wait blocks until the handle is terminal or ctx is done.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Origin returns the HTTP response of the request that created this
// handle, kept for diagnostics. May be nil if the transport failed before
// producing a response.
func (p *Pending) Origin() *http.Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.origin
}

func (p *Pending) setOrigin(resp *http.Response) {
	p.mu.Lock()
	p.origin = resp
	p.mu.Unlock()
}

func (p *Pending) resolve(result any) {
	p.once.Do(func() {
		p.result = result
		close(p.done)
	})
}

func (p *Pending) reject(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

func (p *Pending) signalProgress(jobID string) {
	select {
	case p.progress <- jobID:
	default:
	}
}
