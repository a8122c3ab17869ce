// Package packerr defines the error taxonomy surfaced by the pack ledger.
// Each typed error also matches a sentinel with errors.Is, so callers can pick
// whichever style reads better.
package packerr

import (
	"errors"
	"fmt"

	"github.com/fatflowers/packledger/pkg/types"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrIneligible        = errors.New("ineligible for check-in")
	ErrContention        = errors.New("contention")
	ErrValidation        = errors.New("validation failed")
)

// NotFoundError reports an unknown member, template, assignment or check-in.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.ID) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// InvalidTransitionError reports an illegal manual status change.
type InvalidTransitionError struct {
	From   types.AssignmentStatus
	To     types.AssignmentStatus
	Detail string
}

func (e *InvalidTransitionError) Error() string {
	if e.From == "" && e.To == "" {
		return "invalid transition: " + e.Detail
	}
	msg := fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// IneligibleError reports a check-in against a pack that is not active.
// Reason is one of paused, exhausted or expired.
type IneligibleError struct {
	AssignmentID string
	Reason       types.AssignmentStatus
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("assignment %s is not eligible for check-in: %s", e.AssignmentID, e.Reason)
}
func (e *IneligibleError) Is(target error) bool { return target == ErrIneligible }

// ContentionError reports an exhausted retry budget on the conditional write.
// Callers may retry later with the same idempotency key.
type ContentionError struct {
	AssignmentID string
	Attempts     int
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("assignment %s: write contention after %d attempts", e.AssignmentID, e.Attempts)
}
func (e *ContentionError) Is(target error) bool { return target == ErrContention }

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(field, message string) error { return &ValidationError{Field: field, Message: message} }
