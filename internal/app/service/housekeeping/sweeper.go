// Package housekeeping persists derived expired and exhausted statuses so that
// status filters can use the stored column. Reads never depend on it.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/packledger/internal/app/repository"
	"github.com/fatflowers/packledger/internal/app/service/lifecycle"
	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/config"
	"github.com/fatflowers/packledger/pkg/metrics"
	"github.com/fatflowers/packledger/pkg/tool"
	types "github.com/fatflowers/packledger/pkg/types"
)

const (
	sweepTimeout = 4 * time.Minute
	// maxRounds bounds one run; rows skipped on conflict are picked up next run.
	maxRounds = 50
)

type Sweeper struct {
	store     repository.Store
	metrics   *metrics.Ledger
	log       *zap.SugaredLogger
	batchSize int
	now       func() time.Time
}

func NewSweeper(store repository.Store, cfg *config.Config, m *metrics.Ledger, log *zap.SugaredLogger) *Sweeper {
	batch := cfg.Housekeeping.BatchSize
	if batch <= 0 {
		batch = 200
	}
	return &Sweeper{store: store, metrics: m, log: log, batchSize: batch, now: time.Now}
}

type SweepResult struct {
	Scanned int
	Updated int
	Skipped int
}

// Sweep writes the derived status of every lagging row with the usual version
// check. A row that changed concurrently is skipped, never retried.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	res := &SweepResult{}
	for round := 0; round < maxRounds; round++ {
		now := s.now()
		rows, err := s.store.ListReconcilable(ctx, now, s.batchSize)
		if err != nil {
			return res, fmt.Errorf("failed to list reconcilable assignments: %w", err)
		}
		updated := 0
		for _, a := range rows {
			res.Scanned++
			ok, err := s.reconcile(ctx, a, now)
			if err != nil {
				return res, err
			}
			if ok {
				updated++
			} else {
				res.Skipped++
			}
		}
		res.Updated += updated
		if len(rows) < s.batchSize || updated == 0 {
			break
		}
	}
	s.log.Infow("housekeeping_sweep", "scanned", res.Scanned, "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

func (s *Sweeper) reconcile(ctx context.Context, a *models.PackAssignment, now time.Time) (bool, error) {
	next := lifecycle.Apply(a, now)
	if next.Status == a.Status {
		return false, nil
	}
	next.Version = a.Version + 1
	err := s.store.Commit(ctx, &repository.Mutation{
		ExpectedVersion: a.Version,
		Assignment:      next,
		Log:             models.NewAssignmentLog(tool.GenerateUUIDV7(), types.AssignmentChangeReasonSweep, "", a, next, nil),
	})
	switch {
	case err == nil:
		s.metrics.StatusChange(string(types.AssignmentChangeReasonSweep))
		return true, nil
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to reconcile assignment %s: %w", a.ID, err)
	}
}

type cronLogger struct{ log *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

func register(lc fx.Lifecycle, cfg *config.Config, s *Sweeper, log *zap.SugaredLogger) error {
	if !cfg.Housekeeping.Enabled {
		log.Infow("housekeeping disabled")
		return nil
	}
	logger := cronLogger{log: log.With("component", "housekeeping")}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	_, err := c.AddFunc(cfg.Housekeeping.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			log.Errorw("housekeeping sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid housekeeping schedule %q: %w", cfg.Housekeeping.Schedule, err)
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Infow("housekeeping started", "schedule", cfg.Housekeeping.Schedule)
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

var Module = fx.Options(
	fx.Provide(NewSweeper),
	fx.Invoke(register),
)
