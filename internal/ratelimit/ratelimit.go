// Package ratelimit gates outbound provider calls on per-provider pacing
// rules. State is process-lifetime only; nothing is persisted.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ProviderConfig sets the pacing for one provider key.
type ProviderConfig struct {
	// MinInterval is the minimum spacing between grants. Default: 1s.
	MinInterval time.Duration

	// Burst allows up to N grants back-to-back before spacing applies.
	// Default: 1 (strict spacing).
	Burst int
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.MinInterval <= 0 {
		c.MinInterval = time.Second
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	return c
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithProvider overrides the pacing for a single provider key.
func WithProvider(key string, cfg ProviderConfig) Option {
	return func(l *Limiter) {
		l.overrides[key] = cfg.withDefaults()
	}
}

// WithMaxPenalty caps the exponential penalty growth. Default: 5m.
func WithMaxPenalty(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.maxPenalty = d
		}
	}
}

// Limiter spaces calls per provider key and absorbs explicit rate-limit
// signals via Penalize. Safe for concurrent use.
type Limiter struct {
	def        ProviderConfig
	overrides  map[string]ProviderConfig
	maxPenalty time.Duration

	mu    sync.Mutex
	gates map[string]*gate

	nowFunc func() time.Time
}

type gate struct {
	mu  sync.Mutex
	lim *rate.Limiter

	penaltyUntil  time.Time
	penaltyStreak int
}

// New creates a Limiter with def as the pacing for any provider key that has
// no explicit override.
func New(def ProviderConfig, opts ...Option) *Limiter {
	l := &Limiter{
		def:        def.withDefaults(),
		overrides:  make(map[string]ProviderConfig),
		maxPenalty: 5 * time.Minute,
		gates:      make(map[string]*gate),
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the provider's minimum inter-call interval has elapsed
// and any active penalty deadline has passed, then returns the grant time.
// The wait is cooperative: ctx cancellation aborts it.
func (l *Limiter) Acquire(ctx context.Context, providerKey string) (time.Time, error) {
	g := l.gate(providerKey)

	g.mu.Lock()
	now := l.nowFunc()

	// A clean acquire past the penalty deadline ends the streak.
	if g.penaltyStreak > 0 && now.After(g.penaltyUntil) {
		g.penaltyStreak = 0
	}

	// Reserving from the penalty deadline keeps grants spaced even while a
	// penalty is active, instead of releasing every waiter at once.
	base := now
	if g.penaltyUntil.After(base) {
		base = g.penaltyUntil
	}
	res := g.lim.ReserveN(base, 1)
	grantAt := base.Add(res.DelayFrom(base))
	g.mu.Unlock()

	if wait := grantAt.Sub(l.nowFunc()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		case <-timer.C:
		}
	}

	return grantAt, nil
}

// Penalize pushes the provider's next eligible grant out by backoff. Repeated
// penalties double the effective backoff up to the configured cap; the streak
// resets on the next acquire that lands past the deadline.
func (l *Limiter) Penalize(providerKey string, backoff time.Duration) {
	if backoff <= 0 {
		backoff = l.providerConfig(providerKey).MinInterval
	}

	g := l.gate(providerKey)

	g.mu.Lock()
	effective := backoff << g.penaltyStreak
	if effective > l.maxPenalty || effective <= 0 {
		effective = l.maxPenalty
	}
	g.penaltyStreak++

	until := l.nowFunc().Add(effective)
	if until.After(g.penaltyUntil) {
		g.penaltyUntil = until
	}
	streak := g.penaltyStreak
	g.mu.Unlock()

	zap.L().Warn("provider penalized",
		zap.String("provider", providerKey),
		zap.Duration("backoff", effective),
		zap.Int("streak", streak),
	)
}

// NextEligible reports when the provider's penalty deadline expires. Zero
// time means no penalty is active.
func (l *Limiter) NextEligible(providerKey string) time.Time {
	g := l.gate(providerKey)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.penaltyUntil.After(l.nowFunc()) {
		return g.penaltyUntil
	}
	return time.Time{}
}

func (l *Limiter) providerConfig(key string) ProviderConfig {
	if cfg, ok := l.overrides[key]; ok {
		return cfg
	}
	return l.def
}

func (l *Limiter) gate(key string) *gate {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.gates[key]
	if !ok {
		cfg := l.providerConfig(key)
		g = &gate{lim: rate.NewLimiter(rate.Every(cfg.MinInterval), cfg.Burst)}
		l.gates[key] = g
	}
	return g
}
