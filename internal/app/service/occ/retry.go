// Package occ runs read-recompute-commit loops against the version-checked store.
package occ

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fatflowers/packledger/internal/app/repository"
	"github.com/fatflowers/packledger/internal/app/service/packerr"
	"github.com/fatflowers/packledger/pkg/config"
)

type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{MaxAttempts: 8, BackoffBase: 5 * time.Millisecond, BackoffCap: 200 * time.Millisecond}
	}
	return Policy{
		MaxAttempts: cfg.Concurrency.MaxAttempts,
		BackoffBase: cfg.Concurrency.BackoffBase,
		BackoffCap:  cfg.Concurrency.BackoffCap,
	}
}

func (p Policy) backoff() retry.Backoff {
	base, limit := p.BackoffBase, p.BackoffCap
	if base <= 0 {
		base = time.Millisecond
	}
	if limit < base {
		limit = base
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(limit, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// Retryable reports whether err is a lost optimistic race.
func Retryable(err error) bool {
	return errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrDuplicateKey)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the attempt
// budget runs out. Each call must re-read its state. onConflict, if set, observes
// every lost race. An exhausted budget surfaces as *packerr.ContentionError.
func Do(ctx context.Context, p Policy, assignmentID string, fn func(ctx context.Context) error, onConflict func(attempt int)) (int, error) {
	attempts := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if Retryable(err) {
			if onConflict != nil {
				onConflict(attempts)
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && Retryable(err) {
		return attempts, &packerr.ContentionError{AssignmentID: assignmentID, Attempts: attempts}
	}
	return attempts, err
}
