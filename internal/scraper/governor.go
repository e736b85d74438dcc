package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// RandomizedGovernor enforces a minimum randomized spacing between outbound
// navigations across the whole process. Every caller, from every job,
// serializes through the same instance so the origin sees one request
// cadence regardless of how many workers are running.
type RandomizedGovernor struct {
	mu       sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
	last     time.Time
	rng      *rand.Rand
}

// NewRandomizedGovernor builds a governor with delays drawn uniformly from
// [minDelay, maxDelay] per call.
func NewRandomizedGovernor(minDelay, maxDelay time.Duration) *RandomizedGovernor {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &RandomizedGovernor{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until the drawn delay has elapsed since the previous
// navigation, then records the new navigation time. The mutex is held for
// the duration of the sleep so concurrent callers queue up behind it.
func (g *RandomizedGovernor) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delay := g.drawDelay()
	if !g.last.IsZero() {
		if remaining := delay - time.Since(g.last); remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return fmt.Errorf("governor wait canceled: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}
	g.last = time.Now()
	return nil
}

func (g *RandomizedGovernor) drawDelay() time.Duration {
	if g.maxDelay == g.minDelay {
		return g.minDelay
	}
	return g.minDelay + time.Duration(g.rng.Int63n(int64(g.maxDelay-g.minDelay)+1))
}
