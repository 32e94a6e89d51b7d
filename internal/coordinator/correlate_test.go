package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deferredHandle(t *testing.T, c *Coordinator, id string) *Pending {
	t.Helper()
	p := newPending()
	c.mu.Lock()
	c.jobs.add(id, p)
	c.mu.Unlock()
	return p
}

func TestCorrelate_RoundTripPreservesResult(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))
	p := deferredHandle(t, c, "41")

	payload := map[string]any{
		"series":   "The Expanse",
		"episodes": []any{float64(1), float64(2)},
	}
	c.correlate(Batch{Jobs: []JobRecord{{ID: "41", Result: payload}}})

	result, err := p.Result()
	require.NoError(t, err)
	assert.Equal(t, payload, result, "result payload passes through unchanged")
	assert.Equal(t, 0, c.PendingJobs())
}

func TestCorrelate_JobErrorRejectsOnlyThatJob(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))
	failed := deferredHandle(t, c, "1")
	ok := deferredHandle(t, c, "2")

	c.correlate(Batch{Jobs: []JobRecord{
		{ID: "1", Error: map[string]any{"message": "ProviderError: no such show"}},
		{ID: "2", Result: "fine"},
	}})

	_, err := failed.Result()
	require.Error(t, err)
	var jerr *JobError
	require.ErrorAs(t, err, &jerr)
	assert.Contains(t, jerr.Error(), "no such show")

	result, err := ok.Result()
	require.NoError(t, err)
	assert.Equal(t, "fine", result)
}

func TestCorrelate_StaleIDIgnored(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))
	assert.NotPanics(t, func() {
		c.correlate(Batch{Jobs: []JobRecord{{ID: "never-registered", Result: "x"}}})
	})
}

func TestCorrelate_JobsBeforeNotifications(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))
	p := deferredHandle(t, c, "5")

	var jobDoneFirst bool
	c.Subscribe("episode", func(n Notification) {
		select {
		case <-p.Done():
			jobDoneFirst = true
		default:
		}
	})

	c.correlate(Batch{
		Jobs:          []JobRecord{{ID: "5", Result: nil}},
		Notifications: []Notification{{"_ntype": "episode"}},
	})
	assert.True(t, jobDoneFirst, "job pass completes before notification pass")
}

func TestCorrelate_NotificationOrderPreserved(t *testing.T) {
	c := newTestCoordinator(t, transportFunc(emptyBatch))

	var seen []string
	c.Subscribe("episode", func(n Notification) {
		seen = append(seen, n["ep"].(string))
	})

	c.correlate(Batch{Notifications: []Notification{
		{"_ntype": "episode", "ep": "s01e01"},
		{"_ntype": "episode", "ep": "s01e02"},
		{"_ntype": "episode", "ep": "s01e03"},
	}})
	assert.Equal(t, []string{"s01e01", "s01e02", "s01e03"}, seen)
}

func TestBatchFrom_ToleratesMalformedRecords(t *testing.T) {
	b := batchFrom(map[string]any{
		"jobs": []any{
			"not an object",
			map[string]any{"result": "missing id"},
			map[string]any{"id": "good", "result": "ok"},
		},
		"notifications": []any{
			"not an object",
			map[string]any{"_ntype": "episode"},
		},
	})
	require.Len(t, b.Jobs, 1)
	assert.Equal(t, "good", b.Jobs[0].ID)
	require.Len(t, b.Notifications, 1)
}

func TestBatchFrom_AbsentKeys(t *testing.T) {
	b := batchFrom(map[string]any{"status": "ok"})
	assert.True(t, b.empty())
}

func TestCorrelate_ViaPollEndToEnd(t *testing.T) {
	// Full deferral round trip through a live poll cycle.
	delivered := make(chan struct{})
	c := New(Config{
		MinInterval: 20 * time.Millisecond,
		MaxInterval: 40 * time.Millisecond,
		Transport: transportFunc(func(ctx context.Context, method, path string, params Params) (*Reply, error) {
			if path != DefaultPollPath {
				return &Reply{Body: map[string]any{"jobid": "j1", "pending": true}}, nil
			}
			if params["jobs"] != "j1" {
				return &Reply{Body: map[string]any{}}, nil
			}
			select {
			case <-delivered:
			default:
				close(delivered)
			}
			return &Reply{Body: map[string]any{
				"jobs": []any{map[string]any{"id": "j1", "result": "refreshed"}},
			}}, nil
		}),
	})
	defer c.Close()

	p := c.Submit(context.Background(), "POST", "/api/shows/3/refresh", nil)
	result, err := awaitResult(t, p)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", result)
}
