package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"hrflow/internal/domain/leave"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu        sync.Mutex
	decisions map[string]map[string]uint64
}

func New() *Collector {
	return &Collector{decisions: map[string]map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordDecision counts router outcomes keyed by event and acting tier.
func (c *Collector) RecordDecision(event string, tier leave.Tier) {
	key := string(tier)
	if key == "" {
		key = "none"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byTier, ok := c.decisions[event]
	if !ok {
		byTier = map[string]uint64{}
		c.decisions[event] = byTier
	}
	byTier[key]++
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	decisions := make(map[string]map[string]uint64, len(c.decisions))
	for event, byTier := range c.decisions {
		cp := make(map[string]uint64, len(byTier))
		for tier, n := range byTier {
			cp[tier] = n
		}
		decisions[event] = cp
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"decisions":        decisions,
	}
}
