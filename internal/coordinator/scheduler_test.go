package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_IdleBackoffDoublesToCeiling(t *testing.T) {
	c := New(Config{
		MinInterval: 10 * time.Millisecond,
		MaxInterval: 40 * time.Millisecond,
		Transport:   transportFunc(emptyBatch),
	})
	defer c.Close()

	// Repeated idle polls: 10 -> 20 -> 40, then stay at 40.
	require.Eventually(t, func() bool {
		return c.currentInterval() == 40*time.Millisecond
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 40*time.Millisecond, c.currentInterval(), "ceiling is idempotent")
}

func TestScheduler_ActivityResetsToFloor(t *testing.T) {
	var mu sync.Mutex
	notify := true
	c := New(Config{
		MinInterval: 10 * time.Millisecond,
		MaxInterval: 40 * time.Millisecond,
		Transport: transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
			mu.Lock()
			defer mu.Unlock()
			if notify {
				return &Reply{Body: map[string]any{
					"notifications": []any{map[string]any{"_ntype": "progress"}},
				}}, nil
			}
			return &Reply{Body: map[string]any{}}, nil
		}),
	})
	defer c.Close()

	c.setInterval(40 * time.Millisecond)

	// Notifications keep arriving: interval must snap to the floor.
	require.Eventually(t, func() bool {
		return c.currentInterval() == 10*time.Millisecond
	}, 2*time.Second, 2*time.Millisecond)

	// Once the batches go quiet it climbs back up.
	mu.Lock()
	notify = false
	mu.Unlock()
	require.Eventually(t, func() bool {
		return c.currentInterval() == 40*time.Millisecond
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_PollFailureBacksOffToCeiling(t *testing.T) {
	c := New(Config{
		MinInterval: 10 * time.Millisecond,
		MaxInterval: 500 * time.Millisecond,
		Transport: transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
			return nil, &TransportError{Err: errors.New("connection refused")}
		}),
	})
	defer c.Close()

	require.Eventually(t, func() bool {
		return c.currentInterval() == 500*time.Millisecond
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_PollListsRegisteredJobs(t *testing.T) {
	var mu sync.Mutex
	var polled []string
	c := New(Config{
		MinInterval: 10 * time.Millisecond,
		MaxInterval: 20 * time.Millisecond,
		Transport: transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
			if path == DefaultPollPath {
				mu.Lock()
				polled = append(polled, params["jobs"])
				mu.Unlock()
				return &Reply{Body: map[string]any{}}, nil
			}
			return &Reply{Body: map[string]any{"jobid": "77", "pending": true}}, nil
		}),
	})
	defer c.Close()

	p := c.Get(context.Background(), "/api/shows/check", nil)
	_ = p

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, ids := range polled {
			if ids == "77" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_SubmitHintLowersInterval(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
		return &Reply{Body: map[string]any{"jobid": "7", "pending": true, "interval": float64(2000)}}, nil
	}))

	require.Equal(t, 30*time.Second, c.currentInterval())
	c.Get(context.Background(), "/api/shows/search", Params{"name": "fortitude"})

	require.Eventually(t, func() bool {
		return c.currentInterval() == 2*time.Second
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_SubmitWithoutHintUsesFastInterval(t *testing.T) {
	c := New(Config{
		MinInterval:  30 * time.Second,
		MaxInterval:  time.Minute,
		FastInterval: 250 * time.Millisecond,
		Transport: transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
			if path == DefaultPollPath {
				return &Reply{Body: map[string]any{}}, nil
			}
			return &Reply{Body: map[string]any{"jobid": "8", "pending": true}}, nil
		}),
	})
	defer c.Close()

	c.Get(context.Background(), "/api/shows/check", nil)

	require.Eventually(t, func() bool {
		return c.currentInterval() == 250*time.Millisecond
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_RestartClampsToCeilingOnly(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))

	c.restart(5 * time.Minute)
	assert.Equal(t, time.Minute, c.currentInterval(), "clamped to ceiling")

	// Below the floor is accepted as-is; callers may request
	// deliberately fast polling from a server hint.
	c.restart(time.Millisecond * 100)
	assert.Equal(t, 100*time.Millisecond, c.currentInterval())
}

func TestScheduler_StaleBackoffDoesNotStompRestart(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))

	// A poll snapshots the interval, then a submission retunes the
	// scheduler while that poll is still in flight. The idle decision
	// computed from the stale snapshot must yield to the newer value.
	c.setInterval(10 * time.Second)
	c.restart(500 * time.Millisecond)
	c.applyBackoff(10*time.Second, true)
	assert.Equal(t, 500*time.Millisecond, c.currentInterval())

	// Same for the snap-to-floor side: activity observed by a stale poll
	// must not override a deliberately fast restart.
	c.applyBackoff(10*time.Second, false)
	assert.Equal(t, 500*time.Millisecond, c.currentInterval())

	// With no interleaving the decision applies as usual.
	c.setInterval(10 * time.Second)
	c.applyBackoff(10*time.Second, true)
	assert.Equal(t, 20*time.Second, c.currentInterval())
}

func TestScheduler_ExampleScenario(t *testing.T) {
	// Submit returns {jobid: "7", pending: true, interval: 2000} while
	// the scheduler idles at 10s; a poll then completes the job with an
	// empty notification list, and the emptied registry doubles the
	// interval: min(2*2000, 10000) = 4000.
	var mu sync.Mutex
	completed := false
	c := New(Config{
		MinInterval: 5 * time.Second,
		MaxInterval: 10 * time.Second,
		Transport: transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
			if path == DefaultPollPath {
				mu.Lock()
				completed = true
				mu.Unlock()
				return &Reply{Body: map[string]any{
					"jobs":          []any{map[string]any{"id": "7", "result": map[string]any{"ok": true}}},
					"notifications": []any{},
				}}, nil
			}
			return &Reply{Body: map[string]any{"jobid": "7", "pending": true, "interval": float64(2000)}}, nil
		}),
	})
	defer c.Close()

	c.setInterval(10 * time.Second)
	p := c.Get(context.Background(), "/api/shows/search", Params{"name": "luther"})

	require.Eventually(t, func() bool {
		return c.currentInterval() == 2*time.Second
	}, 2*time.Second, 5*time.Millisecond)

	// Run the poll pass directly rather than waiting 2s of wall clock.
	c.pollOnce()
	mu.Lock()
	require.True(t, completed)
	mu.Unlock()

	result, err := awaitResult(t, p)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, result)
	assert.Equal(t, 0, c.PendingJobs())
	assert.Equal(t, 4*time.Second, c.currentInterval())
}
