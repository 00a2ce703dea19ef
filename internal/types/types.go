// Package types provides domain models shared across alertkeeper components.
//
// Record is the immutable input to classification and Action is the
// classification result delivered to handlers. Both are plain values with
// no dependency on the rule engine, dispatcher or storage layers, so every
// package can import them without cycles.
package types

import (
	"fmt"
	"maps"
	"strings"

	"gopkg.in/yaml.v3"
)

// RecordID represents a UUIDv7 record identifier assigned at ingestion.
type RecordID string

// RuleID identifies a rule within a rule set.
// Built-in rules use fixed names ("storm", "heatwave"); declarative rules
// carry the id from their rule file.
type RuleID string

// Category names the kind of weather event a record describes.
// The set is open: rules for new categories register without changes here.
type Category string

const (
	CategoryStorm    Category = "storm"
	CategoryHeatwave Category = "heatwave"
)

// ParseCategory normalises a category name to trimmed lower case.
func ParseCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	*c = ParseCategory(string(text))
	return nil
}

// UnmarshalYAML decodes a scalar category from rule files.
func (c *Category) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}

// Severity is the reported intensity of an observation.
// The zero value means the source did not report one.
type Severity int

const (
	SeverityUnspecified Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

var severityNames = map[Severity]string{
	SeverityUnspecified: "unspecified",
	SeverityLow:         "low",
	SeverityMedium:      "medium",
	SeverityHigh:        "high",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity converts a case-insensitive name to a Severity.
// The empty string parses as SeverityUnspecified.
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return SeverityUnspecified, nil
	}
	for sev, n := range severityNames {
		if n == name {
			return sev, nil
		}
	}
	return SeverityUnspecified, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Level is the escalation level of an Action. Levels are ordered.
type Level int

const (
	LevelAdvisory Level = iota
	LevelWatch
	LevelWarning
	LevelEmergency
)

var levelNames = []string{"advisory", "watch", "warning", "emergency"}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel converts a case-insensitive name to a Level.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelAdvisory, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// Record describes one weather observation.
//
// Records are passed by value; no component holds a pointer to a caller's
// record. Valid is checked once by the rule set before any rule runs.
type Record struct {
	ID          RecordID `json:"id,omitempty"`
	Valid       bool     `json:"valid"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Approaching bool     `json:"approaching"`
	Hail        bool     `json:"hail"`
	Temperature int      `json:"temperature"`
	Humidity    int      `json:"humidity"`
}

// Record field names as used by declarative conditions and expressions.
const (
	FieldValid         = "valid"
	FieldCategory      = "category"
	FieldSeverity      = "severity"
	FieldSeverityLevel = "severity_level"
	FieldApproaching   = "approaching"
	FieldHail          = "hail"
	FieldTemperature   = "temperature"
	FieldHumidity      = "humidity"
)

// Field resolves a record field by name.
// Integers are returned as int64 and severity as its text name.
func (r Record) Field(name string) (any, bool) {
	switch name {
	case FieldValid:
		return r.Valid, true
	case FieldCategory:
		return string(r.Category), true
	case FieldSeverity:
		return r.Severity.String(), true
	case FieldSeverityLevel:
		return int64(r.Severity), true
	case FieldApproaching:
		return r.Approaching, true
	case FieldHail:
		return r.Hail, true
	case FieldTemperature:
		return int64(r.Temperature), true
	case FieldHumidity:
		return int64(r.Humidity), true
	}
	return nil, false
}

// Facts returns every field keyed by name.
func (r Record) Facts() map[string]any {
	facts := make(map[string]any, 8)
	for _, name := range []string{
		FieldValid, FieldCategory, FieldSeverity, FieldSeverityLevel,
		FieldApproaching, FieldHail, FieldTemperature, FieldHumidity,
	} {
		facts[name], _ = r.Field(name)
	}
	return facts
}

// Action is the result of classifying a record. Rules build actions
// through NewAction; handlers receive clones.
type Action struct {
	RuleID     RuleID         `json:"rule_id"`
	Level      Level          `json:"level"`
	MessageKey string         `json:"message_key"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewAction builds an Action, copying metadata so the caller's map is not shared.
func NewAction(ruleID RuleID, level Level, messageKey string, metadata map[string]any) Action {
	return Action{
		RuleID:     ruleID,
		Level:      level,
		MessageKey: messageKey,
		Metadata:   maps.Clone(metadata),
	}
}

// Clone returns a copy whose metadata map is independent of a.
// Metadata values are scalars, so a shallow map copy is sufficient.
func (a Action) Clone() Action {
	a.Metadata = maps.Clone(a.Metadata)
	return a
}
