// Package jobs holds server-side deferred work: operations that outlive
// their originating HTTP request park here until a client poll picks up
// the result, alongside push-style notifications for the dashboard.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Retention windows. A finished job waits for its poll; a notification
// nobody collected in time is stale and dropped.
const (
	DefaultJobTTL          = 30 * time.Minute
	DefaultNotificationTTL = time.Minute

	janitorInterval = time.Minute
)

// Error is the wire form of a failed job.
type Error struct {
	Message string `json:"message"`
}

// Record is one completed job as reported to a polling client.
type Record struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Notification is an open key-value record tagged with "_ntype".
type Notification map[string]any

// Batch is the poll response body: completed jobs among the requested
// ids, plus all pending notifications.
type Batch struct {
	Jobs          []Record       `json:"jobs"`
	Notifications []Notification `json:"notifications"`
}

// Job is one deferred operation.
type Job struct {
	ID string

	createdAt time.Time
	done      chan struct{}

	result any
	err    *Error
}

// Done is closed when the operation finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

type queuedNotification struct {
	at     time.Time
	record Notification
}

// Queue tracks in-flight and finished jobs plus pending notifications.
type Queue struct {
	jobTTL   time.Duration
	notifTTL time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*Job
	ordered []string // job ids in creation order
	notifs  []queuedNotification
	nextNID int64
}

// NewQueue creates an empty job queue.
func NewQueue(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobTTL:   DefaultJobTTL,
		notifTTL: DefaultNotificationTTL,
		logger:   logger,
		jobs:     make(map[string]*Job),
	}
}

// Start registers a new job and runs op in the background. The returned
// job id is opaque to clients and unique for the queue's lifetime.
func (q *Queue) Start(ctx context.Context, op func(context.Context) (any, error)) *Job {
	j := &Job{
		ID:        uuid.NewString(),
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}

	q.mu.Lock()
	q.jobs[j.ID] = j
	q.ordered = append(q.ordered, j.ID)
	q.mu.Unlock()

	go func() {
		result, err := op(ctx)
		if err != nil {
			j.err = &Error{Message: err.Error()}
			q.logger.Warn("job failed", "id", j.ID, "error", err)
		} else {
			j.result = result
		}
		close(j.done)
	}()
	return j
}

// Wait blocks up to d for the job to finish. It reports whether the job
// finished within that window; d <= 0 checks without blocking.
func (q *Queue) Wait(j *Job, d time.Duration) bool {
	if d <= 0 {
		return j.finished()
	}
	select {
	case <-j.done:
		return true
	case <-time.After(d):
		return false
	}
}

// PopFinished removes and returns finished jobs among the requested ids,
// together with every pending notification. Requested ids that are
// unknown or still running are skipped; the client keeps polling for
// them. Jobs appear in the order they were requested.
func (q *Queue) PopFinished(ids []string) Batch {
	batch := Batch{Jobs: []Record{}, Notifications: []Notification{}}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.purgeLocked(time.Now())

	for _, id := range ids {
		j, ok := q.jobs[id]
		if !ok || !j.finished() {
			continue
		}
		delete(q.jobs, id)
		rec := Record{ID: id}
		if j.err != nil {
			rec.Error = j.err
		} else {
			rec.Result = j.result
		}
		batch.Jobs = append(batch.Jobs, rec)
	}

	for _, n := range q.notifs {
		batch.Notifications = append(batch.Notifications, n.record)
	}
	q.notifs = nil

	return batch
}

// Notify queues a notification for the next poll to collect.
func (q *Queue) Notify(ntype string, fields map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.appendLocked(ntype, fields)
}

// NotifyReplace queues a notification after dropping any queued
// notification of the same type, so rapid repeats collapse to the
// latest state.
func (q *Queue) NotifyReplace(ntype string, fields map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.notifs[:0]
	for _, n := range q.notifs {
		if t, _ := n.record["_ntype"].(string); t != ntype {
			kept = append(kept, n)
		}
	}
	q.notifs = kept
	q.appendLocked(ntype, fields)
}

func (q *Queue) appendLocked(ntype string, fields map[string]any) {
	q.nextNID++
	record := Notification{"_ntype": ntype, "_nid": q.nextNID}
	for k, v := range fields {
		record[k] = v
	}
	q.notifs = append(q.notifs, queuedNotification{at: time.Now(), record: record})
}

// Pending reports how many jobs are registered, finished or not.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Run purges expired entries until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			q.mu.Lock()
			q.purgeLocked(now)
			q.mu.Unlock()
		}
	}
}

func (q *Queue) purgeLocked(now time.Time) {
	var keptIDs []string
	for _, id := range q.ordered {
		j, ok := q.jobs[id]
		if !ok {
			continue
		}
		if now.Sub(j.createdAt) > q.jobTTL {
			q.logger.Debug("purging expired job", "id", id)
			delete(q.jobs, id)
			continue
		}
		keptIDs = append(keptIDs, id)
	}
	q.ordered = keptIDs

	kept := q.notifs[:0]
	for _, n := range q.notifs {
		if now.Sub(n.at) <= q.notifTTL {
			kept = append(kept, n)
		}
	}
	q.notifs = kept
}
