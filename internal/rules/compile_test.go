package rules

import (
	"errors"
	"testing"

	"github.com/solatis/alertkeeper/internal/types"
)

func floodDefinition() types.RuleDefinition {
	return types.RuleDefinition{
		ID:       "flood",
		Name:     "Flood watch",
		Priority: 50,
		Category: "flood",
		When: []types.ConditionGroup{
			{All: []types.Condition{{Field: "humidity", Op: "gte", Value: 90}}},
		},
		Ladder: []types.LadderStep{
			{Key: "flood.alert", Level: "advisory"},
			{Key: "flood.severe", Level: "warning", Expr: "severity == 'high' && approaching"},
			{Key: "flood.extreme", Level: "emergency", When: []types.ConditionGroup{
				{All: []types.Condition{{Field: "temperature", Op: "lt", Value: 5}}},
			}},
		},
		Metadata: map[string]string{
			"humidity_excess": "humidity - 90",
		},
	}
}

func TestCompileDefinition_Evaluate(t *testing.T) {
	rule, err := CompileDefinition(floodDefinition())
	if err != nil {
		t.Fatalf("CompileDefinition() error = %v, want nil", err)
	}

	tests := []struct {
		name      string
		rec       types.Record
		wantMatch bool
		wantKey   string
		wantRung  int
	}{
		{
			name:      "wrong category",
			rec:       types.Record{Valid: true, Category: types.CategoryStorm, Humidity: 95},
			wantMatch: false,
		},
		{
			name:      "below humidity threshold",
			rec:       types.Record{Valid: true, Category: "flood", Humidity: 80},
			wantMatch: false,
		},
		{
			name:      "base",
			rec:       types.Record{Valid: true, Category: "flood", Humidity: 92, Temperature: 20},
			wantMatch: true,
			wantKey:   "flood.alert",
			wantRung:  0,
		},
		{
			name:      "severe via CEL",
			rec:       types.Record{Valid: true, Category: "flood", Humidity: 92, Severity: types.SeverityHigh, Approaching: true, Temperature: 20},
			wantMatch: true,
			wantKey:   "flood.severe",
			wantRung:  1,
		},
		{
			name:      "extreme requires severe",
			rec:       types.Record{Valid: true, Category: "flood", Humidity: 92, Temperature: 2},
			wantMatch: true,
			wantKey:   "flood.alert",
			wantRung:  0,
		},
		{
			name:      "extreme",
			rec:       types.Record{Valid: true, Category: "flood", Humidity: 99, Severity: types.SeverityHigh, Approaching: true, Temperature: 2},
			wantMatch: true,
			wantKey:   "flood.extreme",
			wantRung:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Matches(tt.rec); got != tt.wantMatch {
				t.Fatalf("Matches() = %v, want %v", got, tt.wantMatch)
			}
			if !tt.wantMatch {
				return
			}
			action := rule.BuildAction(tt.rec)
			if action.MessageKey != tt.wantKey {
				t.Errorf("MessageKey = %v, want %v", action.MessageKey, tt.wantKey)
			}
			if action.Metadata["rung"] != tt.wantRung {
				t.Errorf("rung = %v, want %v", action.Metadata["rung"], tt.wantRung)
			}
		})
	}
}

func TestCompileDefinition_Metadata(t *testing.T) {
	rule, err := CompileDefinition(floodDefinition())
	if err != nil {
		t.Fatalf("CompileDefinition() error = %v, want nil", err)
	}

	action := rule.BuildAction(types.Record{Valid: true, Category: "flood", Humidity: 97})

	got, ok := action.Metadata["humidity_excess"]
	if !ok {
		t.Fatalf("metadata humidity_excess missing")
	}
	if n, ok := toFloat64(got); !ok || n != 7 {
		t.Errorf("humidity_excess = %v (%T), want 7", got, got)
	}
	if action.Metadata["category"] != "flood" {
		t.Errorf("category = %v, want flood", action.Metadata["category"])
	}
}

func TestCompileDefinition_NoPredicateMatchesCategory(t *testing.T) {
	rule, err := CompileDefinition(types.RuleDefinition{
		ID:       "fog",
		Category: "fog",
		Ladder:   []types.LadderStep{{Key: "fog.alert", Level: "advisory"}},
	})
	if err != nil {
		t.Fatalf("CompileDefinition() error = %v, want nil", err)
	}
	if !rule.Matches(types.Record{Valid: true, Category: "fog"}) {
		t.Errorf("Matches(fog) = false, want true")
	}
	if rule.Matches(types.Record{Valid: true, Category: "smog"}) {
		t.Errorf("Matches(smog) = true, want false")
	}
}

func TestCompileDefinition_Errors(t *testing.T) {
	base := func() types.RuleDefinition {
		return types.RuleDefinition{
			ID:     "r",
			Ladder: []types.LadderStep{{Key: "r.alert", Level: "advisory"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*types.RuleDefinition)
		wantErr error
	}{
		{
			name:    "missing id",
			mutate:  func(d *types.RuleDefinition) { d.ID = "" },
			wantErr: types.ErrInvalidRuleDefinition,
		},
		{
			name:    "empty ladder",
			mutate:  func(d *types.RuleDefinition) { d.Ladder = nil },
			wantErr: types.ErrEmptyLadder,
		},
		{
			name:    "unknown level",
			mutate:  func(d *types.RuleDefinition) { d.Ladder[0].Level = "catastrophic" },
			wantErr: types.ErrUnknownLevel,
		},
		{
			name:    "unknown field",
			mutate:  func(d *types.RuleDefinition) { d.When = cond("pressure", "gt", 1000) },
			wantErr: types.ErrUnknownField,
		},
		{
			name:    "unknown operator",
			mutate:  func(d *types.RuleDefinition) { d.When = cond("humidity", "between", 10) },
			wantErr: types.ErrInvalidOperator,
		},
		{
			name:    "ordering on boolean",
			mutate:  func(d *types.RuleDefinition) { d.When = cond("hail", "gt", true) },
			wantErr: types.ErrInvalidOperator,
		},
		{
			name:    "prefix on numeric",
			mutate:  func(d *types.RuleDefinition) { d.When = cond("temperature", "prefix", "1") },
			wantErr: types.ErrInvalidOperator,
		},
		{
			name:    "non numeric value",
			mutate:  func(d *types.RuleDefinition) { d.When = cond("temperature", "gt", "hot") },
			wantErr: types.ErrCoercionFailed,
		},
		{
			name:    "unknown severity",
			mutate:  func(d *types.RuleDefinition) { d.When = cond("severity", "eq", "extreme") },
			wantErr: types.ErrCoercionFailed,
		},
		{
			name: "too many IN values",
			mutate: func(d *types.RuleDefinition) {
				values := make([]any, types.MaxInOperatorValues+1)
				for i := range values {
					values[i] = i
				}
				d.When = []types.ConditionGroup{{All: []types.Condition{{Field: "humidity", Op: "in", Values: values}}}}
			},
			wantErr: types.ErrTooManyInValues,
		},
		{
			name:    "CEL syntax error",
			mutate:  func(d *types.RuleDefinition) { d.Expr = "humidity >" },
			wantErr: types.ErrInvalidRuleDefinition,
		},
		{
			name:    "CEL non bool",
			mutate:  func(d *types.RuleDefinition) { d.Expr = "humidity + 1" },
			wantErr: types.ErrInvalidRuleDefinition,
		},
		{
			name: "when and expr together",
			mutate: func(d *types.RuleDefinition) {
				d.When = cond("humidity", "gt", 1)
				d.Expr = "hail"
			},
			wantErr: types.ErrInvalidRuleDefinition,
		},
		{
			name:    "base step with predicate",
			mutate:  func(d *types.RuleDefinition) { d.Ladder[0].Expr = "hail" },
			wantErr: types.ErrInvalidRuleDefinition,
		},
		{
			name: "upper step without predicate",
			mutate: func(d *types.RuleDefinition) {
				d.Ladder = append(d.Ladder, types.LadderStep{Key: "r.more", Level: "warning"})
			},
			wantErr: types.ErrInvalidRuleDefinition,
		},
		{
			name:    "metadata compile error",
			mutate:  func(d *types.RuleDefinition) { d.Metadata = map[string]string{"x": "pressure * 2"} },
			wantErr: types.ErrInvalidRuleDefinition,
		},
		{
			name:    "reserved metadata key",
			mutate:  func(d *types.RuleDefinition) { d.Metadata = map[string]string{"rung": "1"} },
			wantErr: types.ErrInvalidRuleDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base()
			tt.mutate(&def)
			_, err := CompileDefinition(def)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CompileDefinition() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrInvalidRuleDefinition) {
				t.Errorf("CompileDefinition() error = %v, want wrapped ErrInvalidRuleDefinition", err)
			}
		})
	}
}

func cond(field, op string, value any) []types.ConditionGroup {
	return []types.ConditionGroup{{All: []types.Condition{{Field: field, Op: op, Value: value}}}}
}

func TestCompileConditions_OrderedByCost(t *testing.T) {
	set, err := CompileConditions([]types.ConditionGroup{{All: []types.Condition{
		{Field: "category", Op: "prefix", Value: "st"},
		{Field: "temperature", Op: "gt", Value: 30},
		{Field: "hail", Op: "eq", Value: true},
	}}})
	if err != nil {
		t.Fatalf("CompileConditions() error = %v, want nil", err)
	}

	got := set.Groups[0].Conditions
	want := []string{"hail", "temperature", "category"}
	for i, field := range want {
		if got[i].Field != field {
			t.Errorf("Conditions[%d].Field = %v, want %v", i, got[i].Field, field)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Cost > got[i].Cost {
			t.Errorf("Conditions not ordered by cost: %d > %d", got[i-1].Cost, got[i].Cost)
		}
	}
}

func TestConditionSet_DNF(t *testing.T) {
	set, err := CompileConditions([]types.ConditionGroup{
		{All: []types.Condition{
			{Field: "category", Op: "eq", Value: "storm"},
			{Field: "severity", Op: "in", Values: []any{"High", "medium"}},
		}},
		{All: []types.Condition{
			{Field: "humidity", Op: "gte", Value: "95"},
		}},
	})
	if err != nil {
		t.Fatalf("CompileConditions() error = %v, want nil", err)
	}

	tests := []struct {
		name string
		rec  types.Record
		want bool
	}{
		{"first group", types.Record{Category: types.CategoryStorm, Severity: types.SeverityHigh}, true},
		{"first group partial", types.Record{Category: types.CategoryStorm, Severity: types.SeverityLow}, false},
		{"second group", types.Record{Category: types.CategoryHeatwave, Humidity: 95}, true},
		{"neither", types.Record{Category: types.CategoryHeatwave, Humidity: 94}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Eval(tt.rec); got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileCEL(t *testing.T) {
	p, err := CompileCEL("temperature > 100 && humidity > 60 && category == 'heatwave'")
	if err != nil {
		t.Fatalf("CompileCEL() error = %v, want nil", err)
	}
	if !p.Eval(types.Record{Category: types.CategoryHeatwave, Temperature: 105, Humidity: 65}) {
		t.Errorf("Eval() = false, want true")
	}
	if p.Eval(types.Record{Category: types.CategoryHeatwave, Temperature: 105, Humidity: 50}) {
		t.Errorf("Eval() = true, want false")
	}
	if p.String() == "" {
		t.Errorf("String() is empty")
	}
}

func TestCompileCEL_RuntimeErrorIsNoMatch(t *testing.T) {
	p, err := CompileCEL("100 / humidity > 1")
	if err != nil {
		t.Fatalf("CompileCEL() error = %v, want nil", err)
	}
	if p.Eval(types.Record{Humidity: 0}) {
		t.Errorf("Eval() = true on division by zero, want false")
	}
	if !p.Eval(types.Record{Humidity: 10}) {
		t.Errorf("Eval() = false, want true")
	}
}
