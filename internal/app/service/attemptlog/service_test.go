package attemptlog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/types"
)

func TestService_SaveAssignsIDAndOutlivesRequest(t *testing.T) {
	var mu sync.Mutex
	var saved []*models.CheckInAttemptLog
	s := &Service{
		log: zap.NewNop().Sugar(),
		write: func(ctx context.Context, l *models.CheckInAttemptLog) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			saved = append(saved, l)
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Save(ctx, &models.CheckInAttemptLog{AssignmentID: "a1", Status: types.CheckInAttemptStatusRecorded})
	cancel()
	s.Save(ctx, nil)
	s.Wait()

	require.Len(t, saved, 1)
	require.NotEmpty(t, saved[0].ID)
}

func TestService_SaveLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := &Service{
		log: zap.New(core).Sugar(),
		write: func(context.Context, *models.CheckInAttemptLog) error {
			return errors.New("db down")
		},
	}

	s.Save(context.Background(), &models.CheckInAttemptLog{AssignmentID: "a1", IdempotencyKey: "k"})
	s.Wait()

	require.Equal(t, 1, logs.FilterMessage("failed to save check-in attempt log").Len())
}
