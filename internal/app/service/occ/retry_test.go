package occ

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/packledger/internal/app/repository"
	"github.com/fatflowers/packledger/internal/app/service/packerr"
)

var fast = Policy{MaxAttempts: 3, BackoffBase: time.Microsecond, BackoffCap: time.Microsecond}

func TestDo_RetriesConflictsThenSucceeds(t *testing.T) {
	calls := 0
	var conflicts []int
	attempts, err := Do(context.Background(), fast, "a1", func(context.Context) error {
		calls++
		if calls < 3 {
			return repository.ErrConflict
		}
		return nil
	}, func(attempt int) { conflicts = append(conflicts, attempt) })

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, []int{1, 2}, conflicts)
}

func TestDo_ExhaustedBudgetIsContention(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), fast, "a1", func(context.Context) error {
		calls++
		return repository.ErrDuplicateKey
	}, nil)

	require.Equal(t, 3, calls)
	require.Equal(t, 3, attempts)
	var ce *packerr.ContentionError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "a1", ce.AssignmentID)
	require.Equal(t, 3, ce.Attempts)
}

func TestDo_OtherErrorsAreNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fast, "a1", func(context.Context) error {
		calls++
		return packerr.NotFound("assignment", "a1")
	}, nil)

	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, packerr.ErrNotFound)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, fast, "a1", func(context.Context) error {
		calls++
		return nil
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}
