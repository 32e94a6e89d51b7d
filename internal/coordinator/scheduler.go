package coordinator

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// The scheduler owns one repeating timer. Its interval adapts between a
// floor and a ceiling: idle polls double it toward the ceiling, any
// activity snaps it back to the floor, and a failed poll jumps straight
// to the ceiling. Constant-interval polling either wastes requests when
// idle or adds latency when busy; this converges to low overhead during
// idle stretches yet recovers responsiveness the moment work appears.

// pollLoop runs until Close. Interval changes made by restart take
// effect immediately via the kick channel; changes decided after a poll
// take effect on the reset that follows it.
func (c *Coordinator) pollLoop() {
	timer := time.NewTimer(c.currentInterval())
	defer timer.Stop()

	for {
		select {
		case <-c.closing:
			return
		case <-c.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.currentInterval())
		case <-timer.C:
			c.pollOnce()
			timer.Reset(c.currentInterval())
		}
	}
}

// restart moves the scheduler to the given interval. Same interval is a
// no-op. The value is clamped to the ceiling only; callers may request
// deliberately fast polling below the floor in response to a server
// hint, and the floor is enforced by the backoff policy instead.
func (c *Coordinator) restart(interval time.Duration) {
	if interval > c.maxInterval {
		interval = c.maxInterval
	}

	c.mu.Lock()
	if c.closed || interval == c.interval {
		c.mu.Unlock()
		return
	}
	c.interval = interval
	c.mu.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) currentInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// pollOnce issues one batched poll listing every registered job id, then
// applies the backoff policy. The request's own timeout equals the
// current interval, so a poll outliving its slot counts as failed.
func (c *Coordinator) pollOnce() {
	c.mu.Lock()
	ids := c.jobs.ids()
	interval := c.interval
	c.mu.Unlock()

	params := Params{}
	if len(ids) > 0 {
		params["jobs"] = strings.Join(ids, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), interval)
	defer cancel()

	reply, err := c.transport.Do(ctx, http.MethodGet, c.pollPath, params)
	if err != nil {
		// A single failure backs off maximally rather than retrying
		// aggressively against a server that may be unreachable.
		c.logger.Warn("poll failed, backing off", "error", err)
		c.setInterval(c.maxInterval)
		return
	}

	batch := batchFrom(reply.Body)
	c.correlate(batch)

	c.mu.Lock()
	idle := c.jobs.size() == 0 && len(batch.Notifications) == 0
	c.mu.Unlock()
	c.applyBackoff(interval, idle)
}

// applyBackoff adjusts the interval after a completed poll. The write is
// conditional on the live interval still being the one the poll ran
// with: a submission may have retuned the scheduler while the poll was
// in flight, and that newer interval must not be stomped by a stale
// backoff decision.
func (c *Coordinator) applyBackoff(ran time.Duration, idle bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval != ran {
		return
	}
	if idle {
		if next := ran * 2; next < c.maxInterval {
			c.interval = next
		} else {
			c.interval = c.maxInterval
		}
	} else if ran > c.minInterval {
		c.interval = c.minInterval
	}
}

func (c *Coordinator) setInterval(interval time.Duration) {
	c.mu.Lock()
	c.interval = interval
	c.mu.Unlock()
}
