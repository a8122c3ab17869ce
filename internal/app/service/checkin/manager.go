package checkin

import (
	"context"

	models "github.com/fatflowers/packledger/internal/models"
)

type RecordCheckInRequest struct {
	AssignmentID string `json:"-" validate:"required"`
	// IdempotencyKey identifies one physical visit. Client retries must reuse it.
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=128"`
	// PerformedBy defaults to the operator of the request context.
	PerformedBy string  `json:"performed_by" validate:"required,max=64"`
	SessionName *string `json:"session_name,omitempty" validate:"omitempty,max=128"`
	// SessionPriceOverride is informational, in minor currency units.
	SessionPriceOverride *int64 `json:"session_price_override,omitempty" validate:"omitempty,gte=0"`
}

type RecordCheckInResult struct {
	Assignment *models.PackAssignment `json:"assignment"`
	CheckIn    *models.CheckIn        `json:"check_in"`
	// Replayed is true when the key had already been recorded and nothing was debited.
	Replayed bool `json:"replayed"`
}

type ListCheckInsRequest struct {
	AssignmentID string `json:"-" validate:"required"`
	Cursor       string `json:"cursor" form:"cursor"`
	Size         int    `json:"size" form:"size" validate:"gte=0,lte=500"`
}

type ListCheckInsResponse struct {
	Items []*models.CheckIn `json:"items"`
	// NextCursor is empty on the last page.
	NextCursor string `json:"next_cursor"`
}

type VoidCheckInRequest struct {
	CheckInID   string `json:"-" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=255"`
	PerformedBy string `json:"performed_by" validate:"required,max=64"`
}

type VoidCheckInResult struct {
	Assignment *models.PackAssignment `json:"assignment"`
	CheckIn    *models.CheckIn        `json:"check_in"`
}

// CheckInManager is the only writer of remaining sessions.
type CheckInManager interface {
	// RecordCheckIn debits one session at most once per idempotency key.
	RecordCheckIn(ctx context.Context, req *RecordCheckInRequest) (*RecordCheckInResult, error)
	// ListCheckIns pages through an assignment's history ordered by checked_in_at.
	ListCheckIns(ctx context.Context, req *ListCheckInsRequest) (*ListCheckInsResponse, error)
	// VoidCheckIn is the administrative correction: it voids a check-in and
	// restores its session.
	VoidCheckIn(ctx context.Context, req *VoidCheckInRequest) (*VoidCheckInResult, error)
}
