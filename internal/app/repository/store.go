package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"

	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/types"
)

var (
	ErrNotFound = errors.New("repository: record not found")
	// ErrConflict means the row changed since it was read; re-read and retry.
	ErrConflict = errors.New("repository: version conflict")
	// ErrDuplicateKey means another writer committed the same idempotency key first.
	ErrDuplicateKey = errors.New("repository: duplicate idempotency key")
)

// Mutation is one all-or-nothing unit of work against a single assignment.
// It only applies if the stored version still equals ExpectedVersion.
type Mutation struct {
	ExpectedVersion int64
	// Assignment holds the next state. Its Version is set to ExpectedVersion+1 on success.
	Assignment *models.PackAssignment
	// NewCheckIn is inserted; its (assignment_id, idempotency_key) must be unique.
	NewCheckIn *models.CheckIn
	// VoidCheckIn carries the voided_* fields for an existing, not yet voided check-in.
	VoidCheckIn *models.CheckIn
	Log         *models.AssignmentLog
}

type AssignmentQuery struct {
	// Statuses filter on the derived status at Now. Empty means all.
	Statuses []types.AssignmentStatus
	// MemberIDs nil means no member filter; an empty slice matches nothing.
	MemberIDs []string
	// MemberQuery matches member display name or code, case-insensitive
	// substring. Empty means no query filter.
	MemberQuery string
	Now         time.Time
	From        int
	Size        int
}

type CheckInQuery struct {
	AssignmentID string
	After        *Cursor
	Size         int
}

// Cursor marks a position in a check-in history ordered by (checked_in_at, id).
type Cursor struct {
	CheckedInAt time.Time
	ID          string
}

// MemberMatcher resolves a member query to ids for stores that cannot join the
// member table. limit <= 0 returns every match.
type MemberMatcher interface {
	SearchIDs(ctx context.Context, query string, limit int) ([]string, error)
}

// Store persists assignments, their check-ins and change logs.
// Implementations must make Commit atomic and conditional on the row version.
type Store interface {
	CreateAssignment(ctx context.Context, a *models.PackAssignment, log *models.AssignmentLog) error
	GetAssignment(ctx context.Context, id string) (*models.PackAssignment, error)
	ListAssignments(ctx context.Context, q *AssignmentQuery) ([]*models.PackAssignment, int64, error)
	// ListReconcilable returns rows whose stored status lags the derived one at now.
	ListReconcilable(ctx context.Context, now time.Time, limit int) ([]*models.PackAssignment, error)

	FindCheckIn(ctx context.Context, assignmentID, idempotencyKey string) (*models.CheckIn, error)
	GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error)
	ListCheckIns(ctx context.Context, q *CheckInQuery) ([]*models.CheckIn, error)
	CountActiveCheckIns(ctx context.Context, assignmentID string) (int64, error)

	Commit(ctx context.Context, m *Mutation) error
}

func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw := strconv.FormatInt(c.CheckedInAt.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	return &Cursor{CheckedInAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// CursorAfter returns the cursor positioned after c.
func CursorAfter(c *models.CheckIn) *Cursor {
	return &Cursor{CheckedInAt: c.CheckedInAt, ID: c.ID}
}

func (c *Cursor) less(checkedInAt time.Time, id string) bool {
	if !c.CheckedInAt.Equal(checkedInAt) {
		return c.CheckedInAt.Before(checkedInAt)
	}
	return c.ID < id
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewGormStore, fx.As(new(Store)))),
)
