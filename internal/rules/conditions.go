// internal/rules/conditions.go
package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/solatis/alertkeeper/internal/types"
)

/*
 * Structured condition predicates (DNF: OR of AND groups).
 *
 * Compilation workflow:
 *   1. Resolve field type (unknown field -> ErrUnknownField)
 *   2. Parse operator and check it applies to the field type
 *   3. Coerce the value (or each IN value) to the field type
 *   4. Calculate cost and stable-sort each group by ascending cost
 *
 * Evaluation short-circuits: first matching group wins, first failing
 * condition ends its group. Stable sort keeps equal-cost conditions in file
 * order so evaluation is reproducible across reloads.
 */

// Predicate is a compiled boolean test over a record.
type Predicate interface {
	Eval(rec types.Record) bool
}

// CompiledCondition is a validated condition ready for evaluation.
type CompiledCondition struct {
	Field     string
	Operator  Operator
	FieldType FieldType
	Value     any   // unused for OpIn
	Values    []any // OpIn only
	Cost      int
}

// CompiledGroup is a validated AND group, conditions ordered by ascending cost.
type CompiledGroup struct {
	Conditions []CompiledCondition
}

// ConditionSet is a compiled DNF predicate.
type ConditionSet struct {
	Groups []CompiledGroup
}

var errEmptyGroup = errors.New("condition group is empty")

// CompileConditions validates groups and returns a ConditionSet.
func CompileConditions(groups []types.ConditionGroup) (*ConditionSet, error) {
	set := &ConditionSet{Groups: make([]CompiledGroup, 0, len(groups))}

	for gi, group := range groups {
		if len(group.All) == 0 {
			return nil, fmt.Errorf("group %d: %w", gi, errEmptyGroup)
		}
		compiled := CompiledGroup{Conditions: make([]CompiledCondition, 0, len(group.All))}
		for ci, cond := range group.All {
			cc, err := compileCondition(cond)
			if err != nil {
				return nil, fmt.Errorf("group %d condition %d: %w", gi, ci, err)
			}
			compiled.Conditions = append(compiled.Conditions, cc)
		}
		sort.SliceStable(compiled.Conditions, func(i, j int) bool {
			return compiled.Conditions[i].Cost < compiled.Conditions[j].Cost
		})
		set.Groups = append(set.Groups, compiled)
	}

	return set, nil
}

func compileCondition(cond types.Condition) (CompiledCondition, error) {
	ft, err := FieldTypeOf(cond.Field)
	if err != nil {
		return CompiledCondition{}, err
	}

	op, err := ParseOperator(cond.Op)
	if err != nil {
		return CompiledCondition{}, err
	}
	if !op.allowedFor(ft) {
		return CompiledCondition{}, fmt.Errorf("%w: %s on %s field %s", types.ErrInvalidOperator, cond.Op, ft, cond.Field)
	}

	cc := CompiledCondition{Field: cond.Field, Operator: op, FieldType: ft}

	if op == OpIn {
		if len(cond.Values) > types.MaxInOperatorValues {
			return CompiledCondition{}, types.ErrTooManyInValues
		}
		cc.Values = make([]any, 0, len(cond.Values))
		for _, v := range cond.Values {
			coerced, err := coerceConditionValue(cond.Field, ft, v)
			if err != nil {
				return CompiledCondition{}, err
			}
			cc.Values = append(cc.Values, coerced)
		}
	} else {
		coerced, err := coerceConditionValue(cond.Field, ft, cond.Value)
		if err != nil {
			return CompiledCondition{}, err
		}
		cc.Value = coerced
	}

	cc.Cost = CalculateConditionCost(op, ft, len(cc.Values))
	return cc, nil
}

// Eval reports whether any group matches rec.
func (s *ConditionSet) Eval(rec types.Record) bool {
	for _, group := range s.Groups {
		if evaluateGroup(group, rec) {
			return true
		}
	}
	return false
}

func evaluateGroup(group CompiledGroup, rec types.Record) bool {
	for _, cond := range group.Conditions {
		if !evaluateCondition(cond, rec) {
			return false
		}
	}
	return true
}

func evaluateCondition(cond CompiledCondition, rec types.Record) bool {
	value, ok := rec.Field(cond.Field)
	if !ok {
		return false
	}
	target := cond.Value
	if cond.Operator == OpIn {
		target = cond.Values
	}
	return Compare(cond.Operator, value, target)
}
