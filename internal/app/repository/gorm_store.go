package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/types"
)

// GormStore is the postgres-backed Store. Commit relies on a conditional
// UPDATE ... WHERE version = ? inside a transaction, never on explicit row locks.
// The *gorm.DB must be opened with TranslateError so unique violations map to
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateAssignment(ctx context.Context, a *models.PackAssignment, log *models.AssignmentLog) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		if log != nil {
			if err := tx.Create(log).Error; err != nil {
				return fmt.Errorf("failed to create assignment log: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) GetAssignment(ctx context.Context, id string) (*models.PackAssignment, error) {
	var a models.PackAssignment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

// notExpiredSQL matches rows whose validity window is still open at the bound time.
const notExpiredSQL = "(expires_at IS NULL OR expires_at >= ?)"

// derivedStatusExpr mirrors lifecycle.Evaluate as a SQL predicate.
func derivedStatusExpr(status types.AssignmentStatus, now time.Time) clause.Expression {
	switch status {
	case types.AssignmentStatusActive:
		return clause.Expr{SQL: "(status = ? AND remaining_sessions > 0 AND " + notExpiredSQL + ")",
			Vars: []any{types.AssignmentStatusActive, now}}
	case types.AssignmentStatusPaused:
		return clause.Expr{SQL: "(status = ? AND " + notExpiredSQL + ")",
			Vars: []any{types.AssignmentStatusPaused, now}}
	case types.AssignmentStatusExhausted:
		return clause.Expr{SQL: "(status = ? OR (status = ? AND remaining_sessions <= 0 AND " + notExpiredSQL + "))",
			Vars: []any{types.AssignmentStatusExhausted, types.AssignmentStatusActive, now}}
	case types.AssignmentStatusExpired:
		return clause.Expr{SQL: "(status = ? OR (status IN (?, ?) AND expires_at < ?))",
			Vars: []any{types.AssignmentStatusExpired, types.AssignmentStatusActive, types.AssignmentStatusPaused, now}}
	default:
		return clause.Expr{SQL: "1=0"}
	}
}

func (s *GormStore) ListAssignments(ctx context.Context, q *AssignmentQuery) ([]*models.PackAssignment, int64, error) {
	if q.MemberIDs != nil && len(q.MemberIDs) == 0 {
		return []*models.PackAssignment{}, 0, nil
	}

	var filters types.FiltersAnd
	if q.MemberIDs != nil {
		filters = append(filters, &types.CommonFilter{Field: "member_id", Operator: types.CommonFilterOperatorIn, Values: lo.ToAnySlice(q.MemberIDs)})
	}

	base := s.db.WithContext(ctx).Model(&models.PackAssignment{}).
		Where(clause.Where{Exprs: []clause.Expression{filters}})
	if q.MemberQuery != "" {
		matching := s.db.Model(&models.Member{}).Select("id").Where(models.MemberSearchExpr(q.MemberQuery))
		base = base.Where("member_id IN (?)", matching)
	}
	if len(q.Statuses) > 0 {
		exprs := lo.Map(q.Statuses, func(st types.AssignmentStatus, _ int) clause.Expression { return derivedStatusExpr(st, q.Now) })
		base = base.Where(clause.Where{Exprs: []clause.Expression{clause.Or(exprs...)}})
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	var rows []*models.PackAssignment
	page := base.Order("purchased_at desc").Order("id desc")
	if q.Size > 0 {
		page = page.Limit(q.Size)
	}
	if q.From > 0 {
		page = page.Offset(q.From)
	}
	if err := page.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	return rows, total, nil
}

func (s *GormStore) ListReconcilable(ctx context.Context, now time.Time, limit int) ([]*models.PackAssignment, error) {
	var rows []*models.PackAssignment
	err := s.db.WithContext(ctx).
		Where("(status IN (?, ?) AND expires_at IS NOT NULL AND expires_at < ?) OR (status = ? AND remaining_sessions <= 0)",
			types.AssignmentStatusActive, types.AssignmentStatusPaused, now, types.AssignmentStatusActive).
		Order("id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reconcilable assignments: %w", err)
	}
	return rows, nil
}

func (s *GormStore) FindCheckIn(ctx context.Context, assignmentID, idempotencyKey string) (*models.CheckIn, error) {
	var c models.CheckIn
	err := s.db.WithContext(ctx).
		Where("assignment_id = ? AND idempotency_key = ?", assignmentID, idempotencyKey).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find check-in: %w", err)
	}
	return &c, nil
}

func (s *GormStore) GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error) {
	var c models.CheckIn
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get check-in: %w", err)
	}
	return &c, nil
}

func (s *GormStore) ListCheckIns(ctx context.Context, q *CheckInQuery) ([]*models.CheckIn, error) {
	tx := s.db.WithContext(ctx).Where("assignment_id = ?", q.AssignmentID)
	if q.After != nil {
		tx = tx.Where("(checked_in_at, id) > (?, ?)", q.After.CheckedInAt, q.After.ID)
	}
	if q.Size > 0 {
		tx = tx.Limit(q.Size)
	}
	var rows []*models.CheckIn
	if err := tx.Order("checked_in_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	return rows, nil
}

func (s *GormStore) CountActiveCheckIns(ctx context.Context, assignmentID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CheckIn{}).
		Where("assignment_id = ? AND voided_at IS NULL", assignmentID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count check-ins: %w", err)
	}
	return n, nil
}

func (s *GormStore) Commit(ctx context.Context, m *Mutation) error {
	next := m.Assignment
	now := time.Now().Truncate(time.Microsecond)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PackAssignment{}).
			Where("id = ? AND version = ?", next.ID, m.ExpectedVersion).
			Updates(map[string]any{
				"remaining_sessions": next.RemainingSessions,
				"status":             next.Status,
				"payment_status":     next.PaymentStatus,
				"amount_paid":        next.AmountPaid,
				"version":            m.ExpectedVersion + 1,
				"updated_at":         now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update assignment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		if m.NewCheckIn != nil {
			if err := tx.Create(m.NewCheckIn).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateKey
				}
				return fmt.Errorf("failed to insert check-in: %w", err)
			}
		}

		if v := m.VoidCheckIn; v != nil {
			res := tx.Model(&models.CheckIn{}).
				Where("id = ? AND assignment_id = ? AND voided_at IS NULL", v.ID, next.ID).
				Updates(map[string]any{"voided_at": v.VoidedAt, "voided_by": v.VoidedBy, "void_reason": v.VoidReason})
			if res.Error != nil {
				return fmt.Errorf("failed to void check-in: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		}

		if m.Log != nil {
			if err := tx.Create(m.Log).Error; err != nil {
				return fmt.Errorf("failed to create assignment log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	next.Version = m.ExpectedVersion + 1
	next.UpdatedAt = now
	return nil
}
