package models

import "time"

// CheckIn is an append-only record of one consumed credit.
// The only permitted change after insert is voiding it through an administrative correction.
type CheckIn struct {
	ID             string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	AssignmentID   string    `gorm:"column:assignment_id;type:uuid;not null;uniqueIndex:uniq_check_in_idempotency,priority:1;index:idx_check_in_history,priority:1" json:"assignment_id"`
	IdempotencyKey string    `gorm:"column:idempotency_key;type:varchar(128);not null;uniqueIndex:uniq_check_in_idempotency,priority:2" json:"idempotency_key"`
	CheckedInAt    time.Time `gorm:"column:checked_in_at;not null;index:idx_check_in_history,priority:2" json:"checked_in_at"`
	PerformedBy    string    `gorm:"column:performed_by;type:varchar(64);not null" json:"performed_by"`
	SessionName    *string   `gorm:"column:session_name;type:varchar(128)" json:"session_name,omitempty"`
	// SessionPriceOverride is informational, in minor currency units.
	SessionPriceOverride *int64     `gorm:"column:session_price_override;type:bigint" json:"session_price_override,omitempty"`
	VoidedAt             *time.Time `gorm:"column:voided_at;default:null" json:"voided_at,omitempty"`
	VoidedBy             *string    `gorm:"column:voided_by;type:varchar(64)" json:"voided_by,omitempty"`
	VoidReason           *string    `gorm:"column:void_reason;type:varchar(255)" json:"void_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

func (CheckIn) TableName() string {
	return "check_in"
}

func (c *CheckIn) Voided() bool {
	return c != nil && c.VoidedAt != nil
}

func (c *CheckIn) Clone() *CheckIn {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
