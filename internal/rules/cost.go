// internal/rules/cost.go
package rules

/*
 * Cost model for condition ordering.
 *
 * cost = operator_cost * field_type_multiplier
 *
 * Conditions inside an AND group are evaluated cheapest first so a failing
 * boolean check short-circuits before any string comparison runs.
 */

const (
	// Operator base costs
	CostEq     = 5
	CostNeq    = 5
	CostLt     = 7
	CostLte    = 7
	CostGt     = 7
	CostGte    = 7
	CostIn     = 8
	CostPrefix = 10
	CostSuffix = 10

	// Field type multipliers
	MultiplierBool   = 1
	MultiplierNumber = 4
	MultiplierString = 48
)

// CalculateConditionCost computes the evaluation cost of one condition.
// IN scales with the number of values it compares against.
func CalculateConditionCost(op Operator, fieldType FieldType, inValues int) int {
	cost := operatorCost(op) * typeMultiplier(fieldType)
	if op == OpIn && inValues > 1 {
		cost *= inValues
	}
	return cost
}

func operatorCost(op Operator) int {
	switch op {
	case OpEq, OpNeq:
		return CostEq
	case OpLt, OpLte, OpGt, OpGte:
		return CostLt
	case OpIn:
		return CostIn
	case OpPrefix, OpSuffix:
		return CostPrefix
	default:
		return CostEq
	}
}

func typeMultiplier(ft FieldType) int {
	switch ft {
	case FieldTypeBoolean:
		return MultiplierBool
	case FieldTypeNumeric:
		return MultiplierNumber
	default:
		return MultiplierString
	}
}
