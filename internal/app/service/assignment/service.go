package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/packledger/internal/app/repository"
	"github.com/fatflowers/packledger/internal/app/service/lifecycle"
	"github.com/fatflowers/packledger/internal/app/service/occ"
	"github.com/fatflowers/packledger/internal/app/service/packerr"
	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/internal/platform/catalog"
	"github.com/fatflowers/packledger/internal/platform/directory"
	"github.com/fatflowers/packledger/pkg/config"
	"github.com/fatflowers/packledger/pkg/logctx"
	"github.com/fatflowers/packledger/pkg/metrics"
	"github.com/fatflowers/packledger/pkg/tool"
	types "github.com/fatflowers/packledger/pkg/types"
)

const defaultPageSize = 20

type Service struct {
	store     repository.Store
	catalog   catalog.Catalog
	directory directory.Directory
	policy    occ.Policy
	metrics   *metrics.Ledger
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewService(store repository.Store, cat catalog.Catalog, dir directory.Directory, cfg *config.Config, m *metrics.Ledger, log *zap.SugaredLogger) AssignmentManager {
	return newService(store, cat, dir, occ.PolicyFromConfig(cfg), m, log)
}

func newService(store repository.Store, cat catalog.Catalog, dir directory.Directory, policy occ.Policy, m *metrics.Ledger, log *zap.SugaredLogger) *Service {
	return &Service{
		store:     store,
		catalog:   cat,
		directory: dir,
		policy:    policy,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

func (s *Service) CreateAssignment(ctx context.Context, req *CreateAssignmentRequest) (*models.PackAssignment, error) {
	if req == nil {
		return nil, packerr.Invalid("", "empty request")
	}
	if err := packerr.Validate(req); err != nil {
		return nil, err
	}
	tpl, err := s.catalog.GetTemplate(ctx, req.PackTemplateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.Lookup(ctx, req.MemberID); err != nil {
		return nil, err
	}

	now := s.clock()
	// the pack keeps its own copy of everything it is entitled to
	terms := *tpl
	if o := req.Overrides; o != nil {
		if o.TotalSessions != nil {
			terms.TotalSessions = *o.TotalSessions
		}
		if o.ValidityDays != nil {
			terms.ValidityDays = lo.ToPtr(*o.ValidityDays)
		}
		if o.PriceTotal != nil {
			terms.PriceTotal = *o.PriceTotal
		}
	}

	a := &models.PackAssignment{
		ID:                tool.GenerateUUIDV7(),
		MemberID:          req.MemberID,
		PackTemplateID:    tpl.ID,
		TemplateSnapshot:  datatypes.NewJSONType(tpl),
		TotalSessions:     terms.TotalSessions,
		RemainingSessions: terms.TotalSessions,
		PriceTotal:        terms.PriceTotal,
		Currency:          terms.Currency,
		PurchasedAt:       now,
		ExpiresAt:         terms.ExpiresAt(now),
		Status:            types.AssignmentStatusActive,
		PaymentStatus:     req.PaymentStatus,
		AmountPaid:        req.AmountPaid,
	}
	var extra map[string]any
	if req.Overrides != nil {
		extra = map[string]any{"overrides": req.Overrides}
	}
	log := models.NewAssignmentLog(tool.GenerateUUIDV7(), types.AssignmentChangeReasonCreate, logctx.OperatorID(ctx), nil, a, extra)
	if err := s.store.CreateAssignment(ctx, a, log); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	s.metrics.StatusChange(string(types.AssignmentChangeReasonCreate))
	logctx.FromCtx(ctx, s.log).Infow("assignment_created",
		"assignment_id", a.ID, "member_id", a.MemberID, "pack_template_id", a.PackTemplateID,
		"total_sessions", a.TotalSessions)
	return lifecycle.Apply(a, now), nil
}

func (s *Service) GetAssignment(ctx context.Context, id string) (*models.PackAssignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return lifecycle.Apply(a, s.clock()), nil
}

func (s *Service) ListAssignments(ctx context.Context, req *ListAssignmentsRequest) (*ListAssignmentsResponse, error) {
	if req == nil {
		req = &ListAssignmentsRequest{}
	}
	if err := packerr.Validate(req); err != nil {
		return nil, err
	}
	now := s.clock()
	q := &repository.AssignmentQuery{Now: now, From: req.From, Size: req.Size}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}

	switch status := types.AssignmentStatus(req.Status); {
	case req.Status == "" || req.Status == "all":
	case status.Valid():
		q.Statuses = []types.AssignmentStatus{status}
	default:
		return nil, packerr.Invalid("status", fmt.Sprintf("unknown status %q", req.Status))
	}

	if req.MemberID != "" {
		q.MemberIDs = []string{req.MemberID}
	}
	// the store resolves the query against the member table itself, uncapped
	q.MemberQuery = req.Query

	rows, total, err := s.store.ListAssignments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return &ListAssignmentsResponse{
		Items: lo.Map(rows, func(a *models.PackAssignment, _ int) *models.PackAssignment { return lifecycle.Apply(a, now) }),
		Total: total,
	}, nil
}

func (s *Service) SetStatus(ctx context.Context, id string, target types.AssignmentStatus) (*models.PackAssignment, error) {
	var out *models.PackAssignment
	err := s.mutate(ctx, id, func(a *models.PackAssignment, now time.Time) (*repository.Mutation, error) {
		current := lifecycle.Evaluate(a, now)
		reason, err := lifecycle.CheckManualTransition(current, target)
		if err != nil {
			return nil, err
		}
		next := a.Clone()
		next.Status = target
		out = next
		return s.mutation(ctx, a, next, reason, nil), nil
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("assignment_status_changed", "assignment_id", id, "status", target)
	return out, nil
}

func (s *Service) UpdatePayment(ctx context.Context, req *UpdatePaymentRequest) (*models.PackAssignment, error) {
	if req == nil {
		return nil, packerr.Invalid("", "empty request")
	}
	if err := packerr.Validate(req); err != nil {
		return nil, err
	}
	var out *models.PackAssignment
	err := s.mutate(ctx, req.AssignmentID, func(a *models.PackAssignment, now time.Time) (*repository.Mutation, error) {
		next := lifecycle.Apply(a, now)
		next.PaymentStatus = req.PaymentStatus
		next.AmountPaid = req.AmountPaid
		out = next
		return s.mutation(ctx, a, next, types.AssignmentChangeReasonPaymentUpdate, nil), nil
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("assignment_payment_updated",
		"assignment_id", req.AssignmentID, "payment_status", req.PaymentStatus, "amount_paid", req.AmountPaid)
	return out, nil
}

// mutate runs one read-recompute-commit cycle per attempt. build sees a fresh
// row each time and returns the mutation to commit, or a domain error to stop.
func (s *Service) mutate(ctx context.Context, id string, build func(a *models.PackAssignment, now time.Time) (*repository.Mutation, error)) error {
	var reason types.AssignmentChangeReason
	_, err := occ.Do(ctx, s.policy, id, func(ctx context.Context) error {
		a, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		m, err := build(a, s.clock())
		if err != nil {
			return err
		}
		reason = m.Log.Reason
		return s.store.Commit(ctx, m)
	}, func(attempt int) {
		logctx.FromCtx(ctx, s.log).Debugw("assignment_conflict_retry", "assignment_id", id, "attempt", attempt)
	})
	if err != nil {
		return err
	}
	s.metrics.StatusChange(string(reason))
	return nil
}

func (s *Service) mutation(ctx context.Context, before, next *models.PackAssignment, reason types.AssignmentChangeReason, extra map[string]any) *repository.Mutation {
	next.Version = before.Version + 1
	return &repository.Mutation{
		ExpectedVersion: before.Version,
		Assignment:      next,
		Log:             models.NewAssignmentLog(tool.GenerateUUIDV7(), reason, logctx.OperatorID(ctx), before, next, extra),
	}
}

// clock is s.now at the precision postgres timestamptz keeps.
func (s *Service) clock() time.Time {
	return s.now().Truncate(time.Microsecond)
}

func (s *Service) load(ctx context.Context, id string) (*models.PackAssignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, packerr.NotFound("assignment", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
