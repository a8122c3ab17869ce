package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/packledger/pkg/types"
)

// CheckInAttemptLog stores every check-in request outcome, including rejections,
// for front-desk troubleshooting. It is best effort and not part of the ledger.
type CheckInAttemptLog struct {
	ID             string                     `gorm:"column:id;type:uuid;primary_key" json:"id"`
	AssignmentID   string                     `gorm:"column:assignment_id;type:varchar(64);not null;index" json:"assignment_id"`
	IdempotencyKey string                     `gorm:"column:idempotency_key;type:varchar(128)" json:"idempotency_key"`
	CheckInID      *string                    `gorm:"column:check_in_id;type:uuid" json:"check_in_id"`
	TraceID        string                     `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	PerformedBy    string                     `gorm:"column:performed_by;type:varchar(64)" json:"performed_by"`
	Status         types.CheckInAttemptStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Attempts       int                        `gorm:"column:attempts" json:"attempts"`
	Error          *string                    `gorm:"column:error;type:text" json:"error"`
	Data           datatypes.JSONMap          `gorm:"column:data;type:jsonb;default:'{}'" json:"data"`
	CreatedAt      time.Time                  `json:"created_at"`
}

func (CheckInAttemptLog) TableName() string { return "check_in_attempt_log" }
