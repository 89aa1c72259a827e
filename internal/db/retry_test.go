package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	serialization := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	deadlock := &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation}

	assert.True(t, IsRetryable(serialization))
	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", deadlock)))
	assert.False(t, IsRetryable(unique))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestRetryPolicy_SucceedsAfterContention(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	})

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.True(t, IsRetryable(err), "last contention error stays inspectable")
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("room unavailable")
	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Hour}

	err := policy.Do(ctx, func(ctx context.Context) error {
		cancel()
		return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_StaysWithinCeiling(t *testing.T) {
	policy := RetryPolicy{BaseBackoff: 40 * time.Millisecond}
	for i := 0; i < 50; i++ {
		d := policy.backoff(2)
		assert.GreaterOrEqual(t, d, 40*time.Millisecond)
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

func TestMigrationDSN(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@host/db", migrationDSN("postgres://u:p@host/db"))
	assert.Equal(t, "pgx5://u:p@host/db", migrationDSN("postgresql://u:p@host/db"))
	assert.Equal(t, "pgx5://host/db", migrationDSN("pgx5://host/db"))
}
