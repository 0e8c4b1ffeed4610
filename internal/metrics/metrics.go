package metrics

import (
	"sync"
	"sync/atomic"
)

// counterSet holds thread-safe counters keyed by label, for use from
// services/middlewares and the metrics endpoint.
type counterSet struct {
	total uint64
	mu    sync.Mutex
	byKey map[string]uint64
}

func (c *counterSet) inc(key string) {
	atomic.AddUint64(&c.total, 1)
	c.mu.Lock()
	if c.byKey == nil {
		c.byKey = make(map[string]uint64)
	}
	c.byKey[key]++
	c.mu.Unlock()
}

func (c *counterSet) snapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&c.total)
	c.mu.Lock()
	defer c.mu.Unlock()
	by = make(map[string]uint64, len(c.byKey))
	for k, v := range c.byKey {
		by[k] = v
	}
	return total, by
}

var (
	automationRuns counterSet
	rateLimitDrops counterSet
)

// IncAutomationRun counts one completed trigger evaluation pass by outcome
// ("success" or "failed").
func IncAutomationRun(status string) {
	if status == "" {
		status = "unknown"
	}
	automationRuns.inc(status)
}

// AutomationRunSnapshot returns a copy of the automation pass counters.
func AutomationRunSnapshot() (total uint64, by map[string]uint64) {
	return automationRuns.snapshot()
}

// IncRateLimitDrop counts one rejected request (HTTP 429) for the given
// route prefix. Use prefix "global" for global limiter rejections.
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	rateLimitDrops.inc(prefix)
}

// RateLimitSnapshot returns a copy of the rate limit drop counters.
func RateLimitSnapshot() (total uint64, by map[string]uint64) {
	return rateLimitDrops.snapshot()
}
