// internal/rules/operators.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/alertkeeper/internal/types"
)

/*
 * Condition operators.
 *
 * Operators:
 *   - eq/neq: Equality, numeric values compared as float64 (cost 5)
 *   - lt/lte/gt/gte: Numeric fields only (cost 7)
 *   - in: Membership with equality semantics (cost 8)
 *   - prefix/suffix: Text fields only (cost 10)
 *
 * Values reaching Compare are already coerced to the field's type, so
 * comparisons never mix types except for the numeric int64/float64 case.
 */

// Operator is a condition comparison operator.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpPrefix
	OpSuffix
	OpIn
)

var operatorNames = map[string]Operator{
	"eq":     OpEq,
	"neq":    OpNeq,
	"lt":     OpLt,
	"lte":    OpLte,
	"gt":     OpGt,
	"gte":    OpGte,
	"prefix": OpPrefix,
	"suffix": OpSuffix,
	"in":     OpIn,
}

// ParseOperator converts a rule file operator name to an Operator.
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return OpUnspecified, fmt.Errorf("%w: %q", types.ErrInvalidOperator, name)
	}
	return op, nil
}

// allowedFor reports whether op applies to fieldType.
func (op Operator) allowedFor(fieldType FieldType) bool {
	switch op {
	case OpEq, OpNeq, OpIn:
		return true
	case OpLt, OpLte, OpGt, OpGte:
		return fieldType == FieldTypeNumeric
	case OpPrefix, OpSuffix:
		return fieldType == FieldTypeText
	default:
		return false
	}
}

// Compare applies the operator to compare value against target.
// For OpIn, target is the []any value list.
func Compare(op Operator, value, target any) bool {
	switch op {
	case OpEq:
		return compareEqual(value, target)
	case OpNeq:
		return !compareEqual(value, target)
	case OpLt:
		c, ok := compareNumeric(value, target)
		return ok && c < 0
	case OpLte:
		c, ok := compareNumeric(value, target)
		return ok && c <= 0
	case OpGt:
		c, ok := compareNumeric(value, target)
		return ok && c > 0
	case OpGte:
		c, ok := compareNumeric(value, target)
		return ok && c >= 0
	case OpPrefix:
		vs, ok1 := value.(string)
		ps, ok2 := target.(string)
		return ok1 && ok2 && strings.HasPrefix(vs, ps)
	case OpSuffix:
		vs, ok1 := value.(string)
		ss, ok2 := target.(string)
		return ok1 && ok2 && strings.HasSuffix(vs, ss)
	case OpIn:
		set, ok := target.([]any)
		if !ok {
			return false
		}
		for _, elem := range set {
			if compareEqual(value, elem) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareEqual(a, b any) bool {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	if oka && okb {
		return na == nb
	}
	return a == b
}

// compareNumeric performs three-way numeric comparison.
// ok is false when either side is not numeric.
func compareNumeric(a, b any) (c int, ok bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	if !oka || !okb {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	default:
		return 0, true
	}
}

// toFloat64 converts numeric Go values, including those decoded from YAML.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
