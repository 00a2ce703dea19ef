package rules

import "github.com/solatis/alertkeeper/internal/types"

// Storm message keys, lowest rung first.
const (
	KeyStormAlert        = "storm.alert"
	KeyStormHighSeverity = "storm.high_severity"
	KeyStormApproaching  = "storm.approaching"
	KeyStormHail         = "storm.hail"
)

// StormRuleID is the id of the built-in storm rule.
const StormRuleID types.RuleID = "storm"

var stormLadder = ladder{
	{key: KeyStormAlert, level: types.LevelAdvisory},
	{key: KeyStormHighSeverity, level: types.LevelWatch, reached: func(r types.Record) bool {
		return r.Severity == types.SeverityHigh
	}},
	{key: KeyStormApproaching, level: types.LevelWarning, reached: func(r types.Record) bool {
		return r.Approaching
	}},
	{key: KeyStormHail, level: types.LevelEmergency, reached: func(r types.Record) bool {
		return r.Hail
	}},
}

// StormRule classifies storm records.
//
// Escalation: any storm is an advisory; high severity raises it to a watch,
// approaching on top of that to a warning, and hail on top of that to an
// emergency. Hail on a storm that is not approaching does not escalate.
type StormRule struct {
	priority int
}

// NewStormRule returns a storm rule with the given priority.
func NewStormRule(priority int) *StormRule {
	return &StormRule{priority: priority}
}

func (r *StormRule) ID() types.RuleID { return StormRuleID }

func (r *StormRule) Priority() int { return r.priority }

func (r *StormRule) Matches(rec types.Record) bool {
	return rec.Category == types.CategoryStorm
}

func (r *StormRule) BuildAction(rec types.Record) types.Action {
	top := stormLadder.climb(rec)
	step := stormLadder[top]
	return types.NewAction(StormRuleID, step.level, step.key, map[string]any{
		"category":    string(rec.Category),
		"rung":        top,
		"severity":    rec.Severity.String(),
		"approaching": rec.Approaching,
		"hail":        rec.Hail,
	})
}
