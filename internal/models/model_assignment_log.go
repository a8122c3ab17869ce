package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/packledger/pkg/types"
)

// AssignmentLog records changes to pack assignments other than plain check-ins
// (those are their own audit rows). Written in the same transaction as the change.
type AssignmentLog struct {
	ID           string                       `gorm:"column:id;type:uuid;primary_key"`
	AssignmentID string                       `gorm:"column:assignment_id;type:uuid;not null;index:idx_assignment_log,priority:1"`
	MemberID     string                       `gorm:"column:member_id;type:varchar(64);not null"`
	Reason       types.AssignmentChangeReason `gorm:"column:reason;type:varchar(64);not null"`
	OperatorID   string                       `gorm:"column:operator_id;type:varchar(64)"`
	// Before is nil for creation.
	Before datatypes.JSONType[*PackAssignment] `gorm:"column:before;type:jsonb;default:'null'"`
	After  datatypes.JSONType[*PackAssignment] `gorm:"column:after;type:jsonb;default:'null'"`
	// Extra carries reason details, e.g. the voided check-in id.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time         `gorm:"index:idx_assignment_log,priority:2"`
}

func (AssignmentLog) TableName() string {
	return "assignment_log"
}

// NewAssignmentLog snapshots before and after. before is nil for creation.
func NewAssignmentLog(id string, reason types.AssignmentChangeReason, operatorID string, before, after *PackAssignment, extra map[string]any) *AssignmentLog {
	l := &AssignmentLog{
		ID:         id,
		Reason:     reason,
		OperatorID: operatorID,
		Before:     datatypes.NewJSONType(before.Clone()),
		After:      datatypes.NewJSONType(after.Clone()),
		Extra:      datatypes.JSONMap(extra),
	}
	if after != nil {
		l.AssignmentID, l.MemberID = after.ID, after.MemberID
	} else if before != nil {
		l.AssignmentID, l.MemberID = before.ID, before.MemberID
	}
	if l.Extra == nil {
		l.Extra = datatypes.JSONMap{}
	}
	return l
}
