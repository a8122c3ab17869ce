package types

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq     CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq  CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt     CommonFilterOperator = "lt"
	CommonFilterOperatorLte    CommonFilterOperator = "lte"
	CommonFilterOperatorGt     CommonFilterOperator = "gt"
	CommonFilterOperatorGte    CommonFilterOperator = "gte"
	CommonFilterOperatorRange  CommonFilterOperator = "range"
	CommonFilterOperatorIn     CommonFilterOperator = "in"
	CommonFilterOperatorILike  CommonFilterOperator = "ilike"
	CommonFilterOperatorIsNull CommonFilterOperator = "is_null"
)

// CommonFilter is a single column predicate. Filters compose with AND through FiltersAnd.
type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
}

// Build constructs a GORM expression.
func (f *CommonFilter) Build(builder clause.Builder) {
	if f.Operator == CommonFilterOperatorIsNull {
		clause.Expr{SQL: "? IS NULL", Vars: []any{clause.Column{Name: f.Field}}}.Build(builder)
		return
	}
	if len(f.Values) == 0 {
		builder.WriteString("1=1")
		return
	}

	value := f.Values[0]

	switch f.Operator {
	case CommonFilterOperatorEq:
		clause.Eq{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorNotEq:
		clause.Neq{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorRange:
		if len(f.Values) < 2 {
			builder.WriteString("1=1")
			return
		}
		clause.And(clause.Gte{Column: f.Field, Value: f.Values[0]}, clause.Lte{Column: f.Field, Value: f.Values[1]}).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: f.Field, Values: f.Values}.Build(builder)
	case CommonFilterOperatorILike:
		pattern := "%" + escapeLike(fmt.Sprint(value)) + "%"
		clause.Expr{SQL: "? ILIKE ?", Vars: []any{clause.Column{Name: f.Field}, pattern}}.Build(builder)
	default:
		builder.WriteString("1=1")
	}
}

// FiltersAnd combines filters into a single clause.Expression.
type FiltersAnd []*CommonFilter

func (w FiltersAnd) Build(builder clause.Builder) {
	if len(w) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w))
	for _, f := range w {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
