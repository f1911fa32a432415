package ratelimit

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestAcquireSpacingConcurrent(t *testing.T) {
	const (
		acquirers = 8
		interval  = 10 * time.Millisecond
	)
	l := New(ProviderConfig{MinInterval: interval})

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < acquirers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
			at, err := l.Acquire(context.Background(), "clearout")
			assert.NoError(t, err)
			mu.Lock()
			grants = append(grants, at)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, grants, acquirers)
	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	for i := 1; i < len(grants); i++ {
		gap := grants[i].Sub(grants[i-1])
		assert.GreaterOrEqual(t, gap, interval, "grant %d too close to %d", i, i-1)
	}
}

func TestAcquireIndependentProviders(t *testing.T) {
	l := New(ProviderConfig{MinInterval: time.Hour})

	_, err := l.Acquire(context.Background(), "hunter")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "instantly")
	require.NoError(t, err, "a different provider must not share the gate")
}

func TestAcquireBurst(t *testing.T) {
	l := New(ProviderConfig{MinInterval: time.Hour},
		WithProvider("linkedin", ProviderConfig{MinInterval: time.Hour, Burst: 3}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		_, err := l.Acquire(ctx, "linkedin")
		require.NoError(t, err, "burst grant %d", i)
	}
	_, err := l.Acquire(ctx, "linkedin")
	assert.Error(t, err, "fourth grant must block past the burst")
}

func TestAcquireCancelled(t *testing.T) {
	l := New(ProviderConfig{MinInterval: time.Hour})
	_, err := l.Acquire(context.Background(), "claude")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "claude")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPenalizeDelaysNextGrant(t *testing.T) {
	l := New(ProviderConfig{MinInterval: time.Millisecond})

	_, err := l.Acquire(context.Background(), "hunter")
	require.NoError(t, err)

	l.Penalize("hunter", 50*time.Millisecond)

	start := time.Now()
	_, err = l.Acquire(context.Background(), "hunter")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPenalizeExponentialStreak(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(ProviderConfig{MinInterval: time.Millisecond})
	l.nowFunc = func() time.Time { return now }

	l.Penalize("instantly", time.Second)
	assert.Equal(t, now.Add(time.Second), l.NextEligible("instantly"))

	l.Penalize("instantly", time.Second)
	assert.Equal(t, now.Add(2*time.Second), l.NextEligible("instantly"))

	l.Penalize("instantly", time.Second)
	assert.Equal(t, now.Add(4*time.Second), l.NextEligible("instantly"))
}

func TestPenaltyCapped(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(ProviderConfig{MinInterval: time.Millisecond}, WithMaxPenalty(3*time.Second))
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		l.Penalize("clearout", time.Second)
	}
	assert.Equal(t, now.Add(3*time.Second), l.NextEligible("clearout"))
}

func TestStreakResetsAfterCleanAcquire(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(ProviderConfig{MinInterval: time.Millisecond})
	l.nowFunc = func() time.Time { return now }

	l.Penalize("hunter", time.Second)
	l.Penalize("hunter", time.Second) // streak: deadline now+2s

	// Move past the deadline and acquire cleanly.
	now = now.Add(5 * time.Second)
	_, err := l.Acquire(context.Background(), "hunter")
	require.NoError(t, err)

	// The next penalty starts from scratch.
	l.Penalize("hunter", time.Second)
	assert.Equal(t, now.Add(time.Second), l.NextEligible("hunter"))
}

func TestPenalizeZeroBackoffUsesMinInterval(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(ProviderConfig{MinInterval: 2 * time.Second})
	l.nowFunc = func() time.Time { return now }

	l.Penalize("claude", 0)
	assert.Equal(t, now.Add(2*time.Second), l.NextEligible("claude"))
}

func TestNextEligibleZeroWhenNoPenalty(t *testing.T) {
	l := New(ProviderConfig{MinInterval: time.Millisecond})
	assert.True(t, l.NextEligible("hunter").IsZero())
}
