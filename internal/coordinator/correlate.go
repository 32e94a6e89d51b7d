package coordinator

import (
	"fmt"
	"net/http"
)

// Batch is one poll response: completed jobs and notifications, each in
// server order.
type Batch struct {
	Jobs          []JobRecord
	Notifications []Notification
}

// JobRecord reports one completed job. Exactly one of Result and Error is
// meaningful; Error set means the job failed.
type JobRecord struct {
	ID     string
	Result any
	Error  map[string]any
}

func (b Batch) empty() bool {
	return len(b.Jobs) == 0 && len(b.Notifications) == 0
}

// JobError is the rejection for a job the server reported as failed. The
// origin response of the request that started the job is attached for
// diagnostics.
type JobError struct {
	ID     string
	Detail map[string]any
	Origin *http.Response
}

func (e *JobError) Error() string {
	if msg, ok := e.Detail["message"].(string); ok {
		return fmt.Sprintf("job %s: %s", e.ID, msg)
	}
	return fmt.Sprintf("job %s failed", e.ID)
}

// correlate applies a poll batch: completed jobs terminate their
// registered handles first, then notifications go out to handlers. Both
// passes preserve server order. Records for ids no longer registered are
// ignored; an overlapping earlier batch may have delivered them already.
func (c *Coordinator) correlate(b Batch) {
	for _, rec := range b.Jobs {
		c.mu.Lock()
		p := c.jobs.take(rec.ID)
		c.mu.Unlock()
		if p == nil {
			c.logger.Debug("poll batch listed unknown job id", "id", rec.ID)
			continue
		}
		if rec.Error != nil {
			p.reject(&JobError{ID: rec.ID, Detail: rec.Error, Origin: p.Origin()})
		} else {
			p.resolve(rec.Result)
		}
	}

	for _, n := range b.Notifications {
		c.dispatch(n)
	}
}

// batchFrom extracts the jobs/notifications bundle from a decoded
// response body. Direct API responses may piggyback a batch alongside
// their own fields, so this accepts any response body.
func batchFrom(body map[string]any) Batch {
	var b Batch
	if raw, ok := body["jobs"].([]any); ok {
		for _, item := range raw {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, ok := jobID(rec["id"])
			if !ok {
				continue
			}
			jr := JobRecord{ID: id, Result: rec["result"]}
			if errField, ok := rec["error"].(map[string]any); ok {
				jr.Error = errField
			}
			b.Jobs = append(b.Jobs, jr)
		}
	}
	if raw, ok := body["notifications"].([]any); ok {
		for _, item := range raw {
			if rec, ok := item.(map[string]any); ok {
				b.Notifications = append(b.Notifications, Notification(rec))
			}
		}
	}
	return b
}

// jobID normalizes a server-issued identifier. Ids are opaque but may
// arrive as JSON strings or numbers.
func jobID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return fmt.Sprintf("%.0f", id), true
	default:
		return "", false
	}
}
