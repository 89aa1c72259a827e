package db

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRetriesExhausted wraps the last contention error once every attempt has failed.
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// IsRetryable reports whether err is transaction-layer contention that is safe to
// retry from scratch: serialization failures and deadlocks.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	}
	return false
}

// RetryPolicy bounds how often a unit of work is re-run on contention.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	// Retryable classifies errors; defaults to IsRetryable.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the attempts
// run out. Backoff doubles per attempt with full jitter.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if werr := sleep(ctx, p.backoff(attempt)); werr != nil {
				return werr
			}
		}
		err = fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return errors.Join(ErrRetriesExhausted, err)
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseBackoff <= 0 {
		return 0
	}
	ceiling := p.BaseBackoff << (attempt - 1)
	return ceiling/2 + rand.N(ceiling/2+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
