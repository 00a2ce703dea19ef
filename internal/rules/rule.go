// Package rules classifies weather records.
//
// A RuleSet holds Rules ordered by priority (descending) and registration
// order (ascending). Evaluate returns the action built by the first rule
// that matches. Built-in rules cover storms and heatwaves; further
// categories are added either as Go types implementing Rule or as
// declarative definitions compiled by CompileDefinition.
package rules

import "github.com/solatis/alertkeeper/internal/types"

// Rule is one classification strategy.
//
// Matches and BuildAction must be pure functions of the record. BuildAction
// is only called after Matches returned true for the same record.
type Rule interface {
	ID() types.RuleID
	Priority() int
	Matches(rec types.Record) bool
	BuildAction(rec types.Record) types.Action
}

// Reason explains a MatchResult without an action.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidRecord
	ReasonNoRuleMatched
)

func (r Reason) String() string {
	switch r {
	case ReasonInvalidRecord:
		return "invalid_record"
	case ReasonNoRuleMatched:
		return "no_rule_matched"
	default:
		return "none"
	}
}

// MatchResult contains the outcome of rule set evaluation.
// Reason is ReasonNone exactly when Matched is true.
type MatchResult struct {
	Matched bool
	Action  types.Action
	Reason  Reason
}

// DefaultPriority is the priority of the built-in rules.
const DefaultPriority = 100
