package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/packledger/pkg/types"
)

// PackAssignment is one member's purchased instance of a pack template.
// TotalSessions, PriceTotal and ExpiresAt are copied from the template at creation and
// never change afterwards. Version is bumped by every conditional write.
type PackAssignment struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	MemberID       string `gorm:"column:member_id;type:varchar(64);not null;index:idx_member_purchased,priority:1" json:"member_id"`
	PackTemplateID string `gorm:"column:pack_template_id;type:varchar(64);not null" json:"pack_template_id"`
	// TemplateSnapshot 购买时的模板快照
	TemplateSnapshot  datatypes.JSONType[*types.PackTemplate] `gorm:"column:template_snapshot;type:jsonb;default:'null'" json:"template_snapshot"`
	TotalSessions     int                                     `gorm:"column:total_sessions;not null;check:chk_pack_assignment_total,total_sessions > 0" json:"total_sessions"`
	RemainingSessions int                                     `gorm:"column:remaining_sessions;not null;check:chk_pack_assignment_remaining,remaining_sessions >= 0 AND remaining_sessions <= total_sessions" json:"remaining_sessions"`
	PriceTotal        int64                                   `gorm:"column:price_total;type:bigint;not null" json:"price_total"`
	Currency          string                                  `gorm:"column:currency;type:varchar(16)" json:"currency"`
	PurchasedAt       time.Time                               `gorm:"column:purchased_at;not null;index:idx_member_purchased,priority:2" json:"purchased_at"`
	// ExpiresAt nil means the pack never expires.
	ExpiresAt     *time.Time             `gorm:"column:expires_at;default:null;index" json:"expires_at"`
	Status        types.AssignmentStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	PaymentStatus types.PaymentStatus    `gorm:"column:payment_status;type:varchar(32);not null" json:"payment_status"`
	AmountPaid    int64                  `gorm:"column:amount_paid;type:bigint;not null;default:0" json:"amount_paid"`
	Version       int64                  `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func (PackAssignment) TableName() string {
	return "pack_assignment"
}

// UsedSessions is the number of credits consumed by non-voided check-ins.
func (a *PackAssignment) UsedSessions() int {
	if a == nil {
		return 0
	}
	return a.TotalSessions - a.RemainingSessions
}

func (a *PackAssignment) Clone() *PackAssignment {
	if a == nil {
		return nil
	}
	cp := *a
	if a.ExpiresAt != nil {
		exp := *a.ExpiresAt
		cp.ExpiresAt = &exp
	}
	return &cp
}
