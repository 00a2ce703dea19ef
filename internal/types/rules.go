// internal/types/rules.go
package types

import (
	"time"

	sqltypes "github.com/jmoiron/sqlx/types"
)

/*
 * Declarative rule and history types.
 *
 * RuleDefinition is the data form of a rule as read from a rule file. It is
 * compiled by internal/rules into a DeclarativeRule; nothing here evaluates.
 *
 * Predicates come in two forms which are mutually exclusive per node:
 *   - When: DNF of structured conditions (OR of AND groups)
 *   - Expr: a CEL boolean expression over record fields
 *
 * The ladder lists escalation steps lowest first. A step is reached only if
 * every step below it was reached.
 */

// MaxInOperatorValues limits the IN operator value list.
const MaxInOperatorValues = 64

// Condition is a single comparison against a record field.
type Condition struct {
	Field  string `yaml:"field" json:"field"`
	Op     string `yaml:"op" json:"op"`
	Value  any    `yaml:"value,omitempty" json:"value,omitempty"`
	Values []any  `yaml:"values,omitempty" json:"values,omitempty"`
}

// ConditionGroup is an AND group in DNF (all conditions must match).
type ConditionGroup struct {
	All []Condition `yaml:"all" json:"all"`
}

// LadderStep is one escalation rung of a declarative rule.
// The first step takes no predicate: it is the base alert for the rule.
type LadderStep struct {
	Key     string           `yaml:"key" json:"key"`
	Level   string           `yaml:"level" json:"level"`
	Message string           `yaml:"message,omitempty" json:"message,omitempty"`
	When    []ConditionGroup `yaml:"when,omitempty" json:"when,omitempty"`
	Expr    string           `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// RuleDefinition is a complete declarative rule.
type RuleDefinition struct {
	ID       RuleID            `yaml:"id" json:"id"`
	Name     string            `yaml:"name,omitempty" json:"name,omitempty"`
	Priority int               `yaml:"priority" json:"priority"`
	Category Category          `yaml:"category,omitempty" json:"category,omitempty"`
	When     []ConditionGroup  `yaml:"when,omitempty" json:"when,omitempty"`
	Expr     string            `yaml:"expr,omitempty" json:"expr,omitempty"`
	Ladder   []LadderStep      `yaml:"ladder" json:"ladder"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// AlertID represents a UUIDv7 alert history identifier.
type AlertID string

// AlertEntry is a dispatched action as persisted in alert history.
type AlertEntry struct {
	AlertID    AlertID           `db:"alert_id" json:"alert_id"`
	RecordID   RecordID          `db:"record_id" json:"record_id,omitempty"`
	RuleID     RuleID            `db:"rule_id" json:"rule_id"`
	Level      string            `db:"level" json:"level"`
	MessageKey string            `db:"message_key" json:"message_key"`
	Metadata   sqltypes.JSONText `db:"metadata" json:"metadata"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}
