package assignment

import (
	"context"

	models "github.com/fatflowers/packledger/internal/models"
	types "github.com/fatflowers/packledger/pkg/types"
)

// Overrides replace template values on a single assignment.
type Overrides struct {
	TotalSessions *int   `json:"total_sessions,omitempty" validate:"omitempty,gt=0"`
	ValidityDays  *int   `json:"validity_days,omitempty" validate:"omitempty,gt=0"`
	PriceTotal    *int64 `json:"price_total,omitempty" validate:"omitempty,gte=0"`
}

type CreateAssignmentRequest struct {
	MemberID       string              `json:"member_id" validate:"required,max=64"`
	PackTemplateID string              `json:"pack_template_id" validate:"required,max=64"`
	PaymentStatus  types.PaymentStatus `json:"payment_status" validate:"required,oneof=paid partial unpaid"`
	// AmountPaid is in minor currency units.
	AmountPaid int64      `json:"amount_paid" validate:"gte=0"`
	Overrides  *Overrides `json:"overrides,omitempty"`
}

type ListAssignmentsRequest struct {
	// Status is a derived status, "all" or empty.
	Status string `json:"status" form:"status"`
	// Query matches member display name or code, case-insensitive substring.
	Query    string `json:"query" form:"query" validate:"max=128"`
	MemberID string `json:"member_id" form:"member_id" validate:"max=64"`
	From     int    `json:"from" form:"from" validate:"gte=0"`
	Size     int    `json:"size" form:"size" validate:"gte=0,lte=200"`
}

type ListAssignmentsResponse struct {
	Items []*models.PackAssignment `json:"items"`
	Total int64                    `json:"total"`
}

type UpdatePaymentRequest struct {
	AssignmentID  string              `json:"-" validate:"required"`
	PaymentStatus types.PaymentStatus `json:"payment_status" validate:"required,oneof=paid partial unpaid"`
	AmountPaid    int64               `json:"amount_paid" validate:"gte=0"`
}

// AssignmentManager owns pack assignments. Every returned assignment carries
// its derived status at the time of the call.
type AssignmentManager interface {
	CreateAssignment(ctx context.Context, req *CreateAssignmentRequest) (*models.PackAssignment, error)
	GetAssignment(ctx context.Context, id string) (*models.PackAssignment, error)
	ListAssignments(ctx context.Context, req *ListAssignmentsRequest) (*ListAssignmentsResponse, error)
	// SetStatus pauses or resumes an assignment.
	SetStatus(ctx context.Context, id string, target types.AssignmentStatus) (*models.PackAssignment, error)
	// UpdatePayment mirrors the external payment ledger. It never affects eligibility.
	UpdatePayment(ctx context.Context, req *UpdatePaymentRequest) (*models.PackAssignment, error)
}
