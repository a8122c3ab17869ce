package models

import (
	"gorm.io/gorm/clause"

	"github.com/fatflowers/packledger/pkg/types"
)

// Member is a read-only view of the member directory table owned by the member app.
type Member struct {
	ID          string `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	DisplayName string `gorm:"column:display_name;type:varchar(255)" json:"display_name"`
	Code        string `gorm:"column:code;type:varchar(64);index" json:"code"`
}

func (Member) TableName() string {
	return "member"
}

// MemberSearchExpr matches members whose display name or code contains query,
// case-insensitively.
func MemberSearchExpr(query string) clause.Expression {
	return clause.Or(
		&types.CommonFilter{Field: "display_name", Operator: types.CommonFilterOperatorILike, Values: []any{query}},
		&types.CommonFilter{Field: "code", Operator: types.CommonFilterOperatorILike, Values: []any{query}},
	)
}
