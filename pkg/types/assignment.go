package types

type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusPaused    AssignmentStatus = "paused"
	AssignmentStatusExhausted AssignmentStatus = "exhausted"
	AssignmentStatusExpired   AssignmentStatus = "expired"
)

var AssignmentStatuses = []AssignmentStatus{
	AssignmentStatusActive,
	AssignmentStatusPaused,
	AssignmentStatusExhausted,
	AssignmentStatusExpired,
}

// Terminal reports whether no manual transition may leave the status.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentStatusExhausted || s == AssignmentStatusExpired
}

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusActive, AssignmentStatusPaused, AssignmentStatusExhausted, AssignmentStatusExpired:
		return true
	}
	return false
}

// PaymentStatus mirrors the external payment ledger. It never gates check-in.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
)

type AssignmentChangeReason string

const (
	AssignmentChangeReasonCreate        AssignmentChangeReason = "create"
	AssignmentChangeReasonPause         AssignmentChangeReason = "pause"
	AssignmentChangeReasonResume        AssignmentChangeReason = "resume"
	AssignmentChangeReasonPaymentUpdate AssignmentChangeReason = "payment_update"
	AssignmentChangeReasonVoidCheckIn   AssignmentChangeReason = "void_check_in"
	AssignmentChangeReasonSweep         AssignmentChangeReason = "sweep"
)

type CheckInAttemptStatus string

const (
	CheckInAttemptStatusRecorded CheckInAttemptStatus = "recorded"
	CheckInAttemptStatusReplayed CheckInAttemptStatus = "replayed"
	CheckInAttemptStatusRejected CheckInAttemptStatus = "rejected"
	CheckInAttemptStatusFailed   CheckInAttemptStatus = "failed"
)
