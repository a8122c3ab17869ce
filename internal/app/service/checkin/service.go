package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/packledger/internal/app/repository"
	"github.com/fatflowers/packledger/internal/app/service/attemptlog"
	"github.com/fatflowers/packledger/internal/app/service/lifecycle"
	"github.com/fatflowers/packledger/internal/app/service/occ"
	"github.com/fatflowers/packledger/internal/app/service/packerr"
	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/config"
	"github.com/fatflowers/packledger/pkg/logctx"
	"github.com/fatflowers/packledger/pkg/metrics"
	"github.com/fatflowers/packledger/pkg/tool"
	types "github.com/fatflowers/packledger/pkg/types"
)

const (
	defaultHistoryPageSize = 50
)

type Service struct {
	store    repository.Store
	policy   occ.Policy
	attempts attemptlog.Recorder
	metrics  *metrics.Ledger
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(store repository.Store, cfg *config.Config, attempts attemptlog.Recorder, m *metrics.Ledger, log *zap.SugaredLogger) CheckInManager {
	return newService(store, occ.PolicyFromConfig(cfg), attempts, m, log)
}

func newService(store repository.Store, policy occ.Policy, attempts attemptlog.Recorder, m *metrics.Ledger, log *zap.SugaredLogger) *Service {
	return &Service{
		store:    store,
		policy:   policy,
		attempts: attempts,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) RecordCheckIn(ctx context.Context, req *RecordCheckInRequest) (*RecordCheckInResult, error) {
	if req == nil {
		return nil, packerr.Invalid("", "empty request")
	}
	if req.PerformedBy == "" {
		req.PerformedBy = logctx.OperatorID(ctx)
	}
	if err := packerr.Validate(req); err != nil {
		s.finish(ctx, req, nil, 0, err)
		return nil, err
	}

	var result *RecordCheckInResult
	attempts, err := occ.Do(ctx, s.policy, req.AssignmentID, func(ctx context.Context) error {
		res, err := s.tryRecord(ctx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	}, func(attempt int) {
		s.metrics.ConflictRetry()
		logctx.FromCtx(ctx, s.log).Debugw("check_in_conflict_retry",
			"assignment_id", req.AssignmentID, "idempotency_key", req.IdempotencyKey, "attempt", attempt)
	})
	s.finish(ctx, req, result, attempts, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// tryRecord is one read-recompute-commit attempt.
func (s *Service) tryRecord(ctx context.Context, req *RecordCheckInRequest) (*RecordCheckInResult, error) {
	// a known key is a replay even if the pack has become ineligible since
	existing, err := s.store.FindCheckIn(ctx, req.AssignmentID, req.IdempotencyKey)
	switch {
	case err == nil:
		a, err := s.loadAssignment(ctx, req.AssignmentID)
		if err != nil {
			return nil, err
		}
		return &RecordCheckInResult{Assignment: lifecycle.Apply(a, s.clock()), CheckIn: existing, Replayed: true}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	a, err := s.loadAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if err := lifecycle.CheckEligible(a, now); err != nil {
		return nil, err
	}

	next := a.Clone()
	next.RemainingSessions--
	next.Status = lifecycle.Evaluate(next, now)
	c := &models.CheckIn{
		ID:                   tool.GenerateUUIDV7(),
		AssignmentID:         a.ID,
		IdempotencyKey:       req.IdempotencyKey,
		CheckedInAt:          now,
		PerformedBy:          req.PerformedBy,
		SessionName:          req.SessionName,
		SessionPriceOverride: req.SessionPriceOverride,
	}
	err = s.store.Commit(ctx, &repository.Mutation{
		ExpectedVersion: a.Version,
		Assignment:      next,
		NewCheckIn:      c,
	})
	if err != nil {
		return nil, err
	}
	return &RecordCheckInResult{Assignment: next, CheckIn: c}, nil
}

// finish reports the outcome of a RecordCheckIn call to logs, metrics and the attempt log.
func (s *Service) finish(ctx context.Context, req *RecordCheckInRequest, res *RecordCheckInResult, attempts int, err error) {
	log := logctx.FromCtx(ctx, s.log).With("assignment_id", req.AssignmentID, "idempotency_key", req.IdempotencyKey)
	entry := &models.CheckInAttemptLog{
		AssignmentID:   req.AssignmentID,
		IdempotencyKey: req.IdempotencyKey,
		TraceID:        logctx.TraceID(ctx),
		PerformedBy:    req.PerformedBy,
		Attempts:       attempts,
	}

	var ineligible *packerr.IneligibleError
	switch {
	case err == nil && res.Replayed:
		entry.Status = types.CheckInAttemptStatusReplayed
		s.metrics.CheckIn(metrics.CheckInReplayed)
		log.Infow("check_in_replayed", "check_in_id", res.CheckIn.ID)
	case err == nil:
		entry.Status = types.CheckInAttemptStatusRecorded
		s.metrics.CheckIn(metrics.CheckInRecorded)
		log.Infow("check_in_recorded", "check_in_id", res.CheckIn.ID,
			"remaining_sessions", res.Assignment.RemainingSessions, "status", res.Assignment.Status, "attempts", attempts)
	case errors.As(err, &ineligible):
		entry.Status = types.CheckInAttemptStatusRejected
		entry.Data = map[string]any{"reason": string(ineligible.Reason)}
		s.metrics.CheckIn(metrics.CheckInIneligible)
		log.Infow("check_in_rejected", "reason", ineligible.Reason)
	case errors.Is(err, packerr.ErrNotFound), errors.Is(err, packerr.ErrValidation):
		entry.Status = types.CheckInAttemptStatusRejected
		s.metrics.CheckIn(metrics.CheckInError)
		log.Infow("check_in_rejected", "error", err)
	case errors.Is(err, packerr.ErrContention):
		entry.Status = types.CheckInAttemptStatusFailed
		s.metrics.CheckIn(metrics.CheckInContention)
		log.Warnw("check_in_contention", "attempts", attempts)
	default:
		entry.Status = types.CheckInAttemptStatusFailed
		s.metrics.CheckIn(metrics.CheckInError)
		log.Errorw("check_in_failed", "error", err)
	}
	if res != nil {
		entry.CheckInID = lo.ToPtr(res.CheckIn.ID)
	}
	if err != nil {
		entry.Error = lo.ToPtr(err.Error())
	}
	if s.attempts != nil && req.AssignmentID != "" {
		s.attempts.Save(ctx, entry)
	}
}

func (s *Service) ListCheckIns(ctx context.Context, req *ListCheckInsRequest) (*ListCheckInsResponse, error) {
	if req == nil {
		return nil, packerr.Invalid("", "empty request")
	}
	if err := packerr.Validate(req); err != nil {
		return nil, err
	}
	after, err := repository.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, packerr.Invalid("cursor", err.Error())
	}
	if _, err := s.loadAssignment(ctx, req.AssignmentID); err != nil {
		return nil, err
	}
	size := req.Size
	if size == 0 {
		size = defaultHistoryPageSize
	}

	rows, err := s.store.ListCheckIns(ctx, &repository.CheckInQuery{AssignmentID: req.AssignmentID, After: after, Size: size + 1})
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	res := &ListCheckInsResponse{Items: rows}
	if len(rows) > size {
		res.Items = rows[:size]
		res.NextCursor = repository.EncodeCursor(repository.CursorAfter(rows[size-1]))
	}
	return res, nil
}

func (s *Service) VoidCheckIn(ctx context.Context, req *VoidCheckInRequest) (*VoidCheckInResult, error) {
	if req == nil {
		return nil, packerr.Invalid("", "empty request")
	}
	if req.PerformedBy == "" {
		req.PerformedBy = logctx.OperatorID(ctx)
	}
	if err := packerr.Validate(req); err != nil {
		return nil, err
	}

	// the owning assignment never changes, so it can be resolved once up front
	c, err := s.getCheckIn(ctx, req.CheckInID)
	if err != nil {
		return nil, err
	}

	var result *VoidCheckInResult
	_, err = occ.Do(ctx, s.policy, c.AssignmentID, func(ctx context.Context) error {
		res, err := s.tryVoid(ctx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	s.metrics.StatusChange(string(types.AssignmentChangeReasonVoidCheckIn))
	logctx.FromCtx(ctx, s.log).Infow("check_in_voided",
		"check_in_id", req.CheckInID, "assignment_id", result.Assignment.ID,
		"remaining_sessions", result.Assignment.RemainingSessions, "reason", req.Reason)
	return result, nil
}

func (s *Service) tryVoid(ctx context.Context, req *VoidCheckInRequest) (*VoidCheckInResult, error) {
	c, err := s.getCheckIn(ctx, req.CheckInID)
	if err != nil {
		return nil, err
	}
	if c.Voided() {
		return nil, &packerr.InvalidTransitionError{Detail: fmt.Sprintf("check-in %s is already voided", c.ID)}
	}
	a, err := s.loadAssignment(ctx, c.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a.RemainingSessions >= a.TotalSessions {
		return nil, &packerr.InvalidTransitionError{Detail: fmt.Sprintf("assignment %s has no consumed session to restore", a.ID)}
	}

	now := s.clock()
	next := a.Clone()
	next.RemainingSessions++
	next.Version = a.Version + 1
	if next.Status == types.AssignmentStatusExhausted {
		next.Status = types.AssignmentStatusActive
	}
	next.Status = lifecycle.Evaluate(next, now)

	voided := c.Clone()
	voided.VoidedAt = lo.ToPtr(now)
	voided.VoidedBy = lo.ToPtr(req.PerformedBy)
	voided.VoidReason = lo.ToPtr(req.Reason)

	log := models.NewAssignmentLog(tool.GenerateUUIDV7(), types.AssignmentChangeReasonVoidCheckIn, req.PerformedBy, a, next,
		map[string]any{"check_in_id": c.ID, "idempotency_key": c.IdempotencyKey, "reason": req.Reason})
	err = s.store.Commit(ctx, &repository.Mutation{
		ExpectedVersion: a.Version,
		Assignment:      next,
		VoidCheckIn:     voided,
		Log:             log,
	})
	if err != nil {
		return nil, err
	}
	return &VoidCheckInResult{Assignment: next, CheckIn: voided}, nil
}

func (s *Service) getCheckIn(ctx context.Context, id string) (*models.CheckIn, error) {
	c, err := s.store.GetCheckIn(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, packerr.NotFound("check_in", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// clock is s.now at the precision postgres timestamptz keeps, so a stored row
// reads back equal to what the first response returned.
func (s *Service) clock() time.Time {
	return s.now().Truncate(time.Microsecond)
}

func (s *Service) loadAssignment(ctx context.Context, id string) (*models.PackAssignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, packerr.NotFound("assignment", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
