package coordinator

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transportFunc adapts a function to the Transport interface.
type transportFunc func(ctx context.Context, method, path string, params Params) (*Reply, error)

func (f transportFunc) Do(ctx context.Context, method, path string, params Params) (*Reply, error) {
	return f(ctx, method, path, params)
}

// emptyBatch is a transport that always returns an empty poll batch.
func emptyBatch(ctx context.Context, method, path string, params Params) (*Reply, error) {
	return &Reply{Body: map[string]any{"jobs": []any{}, "notifications": []any{}}}, nil
}

// newTestCoordinator uses intervals long enough that no poll fires
// during the test unless the test wants one.
func newTestCoordinator(t *testing.T, transport Transport) *Coordinator {
	t.Helper()
	c := New(Config{
		MinInterval: 30 * time.Second,
		MaxInterval: time.Minute,
		Transport:   transport,
	})
	t.Cleanup(c.Close)
	return c
}

func awaitResult(t *testing.T, p *Pending) (any, error) {
	t.Helper()
	select {
	case <-p.Done():
		return p.Result()
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handle")
		return nil, nil
	}
}

func TestSubmit_ImmediateResult(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		return &Reply{Body: map[string]any{"shows": []any{"one", "two"}}}, nil
	}))

	p := c.Get(context.Background(), "/api/shows", nil)
	result, err := awaitResult(t, p)
	require.NoError(t, err)

	body, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"one", "two"}, body["shows"])
	assert.Equal(t, 0, c.PendingJobs(), "no jobid means nothing registered")
}

func TestSubmit_TransportErrorRejects(t *testing.T) {
	terr := &TransportError{Status: 503, StatusText: "Service Unavailable"}
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		return nil, terr
	}))

	p := c.Submit(context.Background(), http.MethodPost, "/api/shows/42/refresh", nil)
	_, err := awaitResult(t, p)
	require.Error(t, err)
	assert.ErrorContains(t, err, "503")
}

func TestSubmit_DeferredRegistersAndSignalsProgress(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		return &Reply{Body: map[string]any{"jobid": "7", "pending": true, "interval": float64(5000)}}, nil
	}))

	p := c.Get(context.Background(), "/api/shows/check", nil)

	select {
	case id := <-p.Progress():
		assert.Equal(t, "7", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for progress signal")
	}

	assert.Equal(t, 1, c.PendingJobs())

	// Not terminal yet.
	_, err := p.Result()
	assert.ErrorIs(t, err, ErrNotDone)
}

func TestSubmit_PiggybackedCompletionResolvesOwnJob(t *testing.T) {
	// The server finished the work within its blocking window: the
	// response still carries the jobid but bundles the completed record.
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		return &Reply{Body: map[string]any{
			"jobid":   "12",
			"pending": false,
			"jobs": []any{
				map[string]any{"id": "12", "result": map[string]any{"added": true}},
			},
			"notifications": []any{},
		}}, nil
	}))

	p := c.Submit(context.Background(), http.MethodPut, "/api/shows/42", nil)
	result, err := awaitResult(t, p)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"added": true}, result)
	assert.Equal(t, 0, c.PendingJobs())
}

func TestSubmit_NumericJobID(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		return &Reply{Body: map[string]any{
			"jobid":   float64(1234567),
			"pending": false,
			"jobs": []any{
				map[string]any{"id": float64(1234567), "result": "done"},
			},
		}}, nil
	}))

	p := c.Get(context.Background(), "/api/shows/search", Params{"name": "orphan black"})
	result, err := awaitResult(t, p)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestSubmit_AfterCloseRejects(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))
	c.Close()

	p := c.Get(context.Background(), "/api/shows", nil)
	_, err := awaitResult(t, p)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmit_TerminalExactlyOnce(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		return &Reply{Body: map[string]any{"jobid": "9", "pending": true}}, nil
	}))

	p := c.Get(context.Background(), "/api/shows/check", nil)
	require.Eventually(t, func() bool { return c.PendingJobs() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Same completion delivered by two overlapping batches: the second
	// must be ignored, not re-terminate the handle.
	batch := Batch{Jobs: []JobRecord{{ID: "9", Result: "first"}}}
	c.correlate(batch)
	c.correlate(Batch{Jobs: []JobRecord{{ID: "9", Result: "second"}}})

	result, err := awaitResult(t, p)
	require.NoError(t, err)
	assert.Equal(t, "first", result)
}

func TestWait_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		<-block
		return &Reply{Body: map[string]any{}}, nil
	}))
	defer close(block)

	p := c.Get(context.Background(), "/api/shows", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_ConcurrentSubmissions(t *testing.T) {
	var mu sync.Mutex
	next := 0
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		mu.Lock()
		next++
		n := next
		mu.Unlock()
		return &Reply{Body: map[string]any{"n": float64(n)}}, nil
	}))

	handles := make([]*Pending, 10)
	for i := range handles {
		handles[i] = c.Get(context.Background(), "/api/status", nil)
	}

	seen := map[float64]bool{}
	for _, p := range handles {
		result, err := awaitResult(t, p)
		require.NoError(t, err)
		n := result.(map[string]any)["n"].(float64)
		assert.False(t, seen[n], "each submission gets its own response")
		seen[n] = true
	}
}
