package lifecycle

import (
	"time"

	"github.com/fatflowers/packledger/internal/app/service/packerr"
	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/types"
)

// Evaluate derives the effective status of an assignment at now.
// It is a pure function of the stored row, so expiry is visible without a sweeper.
func Evaluate(a *models.PackAssignment, now time.Time) types.AssignmentStatus {
	switch {
	case a.Status == types.AssignmentStatusExhausted:
		return types.AssignmentStatusExhausted
	case a.Status == types.AssignmentStatusExpired:
		return types.AssignmentStatusExpired
	case a.ExpiresAt != nil && now.After(*a.ExpiresAt):
		return types.AssignmentStatusExpired
	case a.Status == types.AssignmentStatusPaused:
		return types.AssignmentStatusPaused
	case a.RemainingSessions <= 0:
		return types.AssignmentStatusExhausted
	default:
		return types.AssignmentStatusActive
	}
}

// Apply returns a copy of a with Status replaced by the derived status.
func Apply(a *models.PackAssignment, now time.Time) *models.PackAssignment {
	if a == nil {
		return nil
	}
	cp := a.Clone()
	cp.Status = Evaluate(a, now)
	return cp
}

// NeedsReconcile reports whether the stored status lags behind the derived one.
func NeedsReconcile(a *models.PackAssignment, now time.Time) bool {
	return a.Status != Evaluate(a, now)
}

// CheckEligible fails with an IneligibleError unless the derived status is active.
func CheckEligible(a *models.PackAssignment, now time.Time) error {
	if status := Evaluate(a, now); status != types.AssignmentStatusActive {
		return &packerr.IneligibleError{AssignmentID: a.ID, Reason: status}
	}
	return nil
}

type transition struct {
	From types.AssignmentStatus
	To   types.AssignmentStatus
}

// manualTransitions lists the only status changes a caller may request.
// exhausted and expired are reached through Evaluate alone.
var manualTransitions = map[transition]types.AssignmentChangeReason{
	{types.AssignmentStatusActive, types.AssignmentStatusPaused}: types.AssignmentChangeReasonPause,
	{types.AssignmentStatusPaused, types.AssignmentStatusActive}: types.AssignmentChangeReasonResume,
}

// CheckManualTransition validates a SetStatus request against the derived status.
func CheckManualTransition(current, target types.AssignmentStatus) (types.AssignmentChangeReason, error) {
	if target != types.AssignmentStatusActive && target != types.AssignmentStatusPaused {
		return "", &packerr.InvalidTransitionError{From: current, To: target, Detail: "only active and paused can be requested"}
	}
	if current.Terminal() {
		return "", &packerr.InvalidTransitionError{From: current, To: target, Detail: "status is terminal"}
	}
	if current == target {
		return "", &packerr.InvalidTransitionError{From: current, To: target, Detail: "already in target status"}
	}
	reason, ok := manualTransitions[transition{current, target}]
	if !ok {
		return "", &packerr.InvalidTransitionError{From: current, To: target}
	}
	return reason, nil
}
