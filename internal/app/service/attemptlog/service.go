// Package attemptlog keeps a best-effort trail of check-in requests, rejected ones included.
package attemptlog

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/logctx"
	"github.com/fatflowers/packledger/pkg/tool"
)

type Recorder interface {
	Save(ctx context.Context, log *models.CheckInAttemptLog)
}

type Service struct {
	write func(ctx context.Context, log *models.CheckInAttemptLog) error
	log   *zap.SugaredLogger
	wg    sync.WaitGroup
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{
		write: func(ctx context.Context, l *models.CheckInAttemptLog) error {
			return db.WithContext(ctx).Create(l).Error
		},
		log: log,
	}
}

// Save asynchronously persists an attempt log. Nil input is ignored and
// failures are only logged; the caller's outcome never depends on this write.
func (s *Service) Save(ctx context.Context, log *models.CheckInAttemptLog) {
	if log == nil {
		return
	}
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	// the request context is about to be cancelled; keep its values only
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.write(bg, log); err != nil {
			logctx.FromCtx(bg, s.log).Errorw("failed to save check-in attempt log",
				"assignment_id", log.AssignmentID, "idempotency_key", log.IdempotencyKey, "error", err)
		}
	}()
}

// Wait blocks until pending writes finish.
func (s *Service) Wait() { s.wg.Wait() }

func register(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		s.Wait()
		return nil
	}})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(s *Service) Recorder { return s }),
	fx.Invoke(register),
)
