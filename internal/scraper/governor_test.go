package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGovernor_EnforcesMinimumSpacing(t *testing.T) {
	t.Parallel()

	const calls = 4
	minDelay := 30 * time.Millisecond
	g := NewRandomizedGovernor(minDelay, 40*time.Millisecond)

	start := time.Now()
	for i := 0; i < calls; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, time.Duration(calls-1)*minDelay)
}

func TestGovernor_SerializesConcurrentCallers(t *testing.T) {
	t.Parallel()

	const callers = 5
	minDelay := 20 * time.Millisecond
	g := NewRandomizedGovernor(minDelay, minDelay)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, g.Wait(context.Background()))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, time.Since(start), time.Duration(callers-1)*minDelay)
}

func TestGovernor_FirstCallDoesNotBlock(t *testing.T) {
	t.Parallel()

	g := NewRandomizedGovernor(time.Second, 2*time.Second)
	start := time.Now()
	require.NoError(t, g.Wait(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGovernor_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	g := NewRandomizedGovernor(time.Minute, time.Minute)
	require.NoError(t, g.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
