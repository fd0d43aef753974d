package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// DefaultAttempts bounds retries per provider before failing over.
const DefaultAttempts = 3

// Pool iterates a prioritized list of provider adapters, retrying each
// with exponential backoff before failing over to the next one.
type Pool struct {
	providers []ports.Generator
	attempts  int
	shuffle   bool
	initial   time.Duration
	logger    *slog.Logger
}

var _ ports.Generator = (*Pool)(nil)

// PoolOption tunes pool behavior.
type PoolOption func(*Pool)

// WithAttempts overrides the per-provider retry bound.
func WithAttempts(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithShuffle randomizes provider order per call, spreading load across
// endpoints with similar priority.
func WithShuffle(enabled bool) PoolOption {
	return func(p *Pool) { p.shuffle = enabled }
}

// WithInitialInterval overrides the first backoff interval.
func WithInitialInterval(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.initial = d
		}
	}
}

// NewPool builds a failover pool over the given providers.
func NewPool(providers []ports.Generator, logger *slog.Logger, opts ...PoolOption) *Pool {
	p := &Pool{
		providers: providers,
		attempts:  DefaultAttempts,
		initial:   2 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements ports.Generator so a pool can stand in for a provider.
func (p *Pool) Name() string { return "pool" }

// Generate tries each provider in order. Within a provider, failed calls
// are retried up to the attempt bound with exponential backoff between
// attempts; a rate-limit failure on the final attempt fails over to the
// next provider immediately, with no extra wait.
func (p *Pool) Generate(ctx context.Context, system, user string) (string, error) {
	if len(p.providers) == 0 {
		return "", domain.ErrNoProviders
	}

	order := make([]int, len(p.providers))
	for i := range order {
		order[i] = i
	}
	if p.shuffle {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var lastErr error
	for _, idx := range order {
		provider := p.providers[idx]

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = p.initial
		bo.RandomizationFactor = 0

		for attempt := 1; attempt <= p.attempts; attempt++ {
			out, err := provider.Generate(ctx, system, user)
			if err == nil {
				return out, nil
			}
			lastErr = err
			p.warn("provider call failed",
				"provider", provider.Name(), "attempt", attempt, "error", err)

			if attempt == p.attempts {
				// Exhausted this provider. Rate limits in particular
				// must not cost another sleep before failover.
				break
			}
			if err := sleep(ctx, bo.NextBackOff()); err != nil {
				return "", err
			}
		}

		if errors.Is(lastErr, domain.ErrRateLimited) {
			p.warn("provider rate limited, failing over", "provider", provider.Name())
		}
	}

	return "", fmt.Errorf("%w: last error: %v", domain.ErrNoProviders, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pool) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
