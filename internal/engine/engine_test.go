package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/solatis/alertkeeper/internal/dispatch"
	"github.com/solatis/alertkeeper/internal/metrics"
	"github.com/solatis/alertkeeper/internal/rules"
	"github.com/solatis/alertkeeper/internal/types"
)

var errBoom = errors.New("boom")

func builtinRuleSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	set := rules.NewRuleSet()
	for _, r := range rules.Builtin() {
		if err := set.Add(r); err != nil {
			t.Fatalf("Add(%s) error = %v, want nil", r.ID(), err)
		}
	}
	return set
}

func okHandler(id string) dispatch.Handler {
	return dispatch.HandlerFunc{HandlerID: id, Fn: func(context.Context, types.Action) error { return nil }}
}

func failingHandler(id string) dispatch.Handler {
	return dispatch.HandlerFunc{HandlerID: id, Fn: func(context.Context, types.Action) error { return errBoom }}
}

func TestProcessAlert_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		rec      types.Record
		wantKind Kind
		wantKey  string
	}{
		{
			name:     "high severity storm",
			rec:      types.Record{Valid: true, Category: types.CategoryStorm, Severity: types.SeverityHigh, Approaching: true, Hail: true},
			wantKind: Dispatched,
			wantKey:  rules.KeyStormHail,
		},
		{
			name:     "critical heatwave",
			rec:      types.Record{Valid: true, Category: types.CategoryHeatwave, Temperature: 105, Humidity: 65},
			wantKind: Dispatched,
			wantKey:  rules.KeyHeatwaveHighHumidity,
		},
		{
			name:     "invalid data",
			rec:      types.Record{Valid: false},
			wantKind: Rejected,
		},
		{
			name:     "unknown category",
			rec:      types.Record{Valid: true, Category: "tornado"},
			wantKind: Unmatched,
		},
	}

	d := dispatch.New()
	_ = d.Register(okHandler("log"))
	eng := New(builtinRuleSet(t), d)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := eng.ProcessAlert(context.Background(), tt.rec)
			if out.Kind != tt.wantKind {
				t.Fatalf("Kind = %v, want %v", out.Kind, tt.wantKind)
			}
			if out.Action.MessageKey != tt.wantKey {
				t.Errorf("MessageKey = %q, want %q", out.Action.MessageKey, tt.wantKey)
			}
			if tt.wantKind == Dispatched && len(out.Report.Results) != 1 {
				t.Errorf("len(Results) = %d, want 1", len(out.Report.Results))
			}
			if tt.wantKind != Dispatched && len(out.Report.Results) != 0 {
				t.Errorf("non-dispatched outcome carries report: %+v", out.Report)
			}
		})
	}
}

func TestKind_ZeroValueIsNotAnOutcome(t *testing.T) {
	var out Outcome
	for _, k := range []Kind{Rejected, Unmatched, Dispatched} {
		if out.Kind == k {
			t.Errorf("zero Outcome.Kind = %v, want no valid kind", k)
		}
	}
	if got := out.Kind.String(); got != "unknown" {
		t.Errorf("zero Kind.String() = %q, want unknown", got)
	}

	var k Kind
	if err := k.UnmarshalText([]byte("rejected")); err != nil || k != Rejected {
		t.Errorf("UnmarshalText(rejected) = %v, %v, want Rejected, nil", k, err)
	}
	if err := k.UnmarshalText([]byte("unknown")); err == nil {
		t.Error("UnmarshalText(unknown) error = nil, want error")
	}
}

func TestProcessAlert_EmptyRuleSetUnmatched(t *testing.T) {
	eng := New(rules.NewRuleSet(), dispatch.New())
	out := eng.ProcessAlert(context.Background(), types.Record{Valid: true, Category: types.CategoryStorm})
	if out.Kind != Unmatched {
		t.Errorf("Kind = %v, want Unmatched", out.Kind)
	}
}

func TestProcessAlert_SecondHandlerFails(t *testing.T) {
	d := dispatch.New()
	_ = d.Register(okHandler("first"))
	_ = d.Register(failingHandler("second"))
	_ = d.Register(okHandler("third"))

	reg := metrics.NewNop()
	eng := New(builtinRuleSet(t), d, WithMetrics(reg))

	out := eng.ProcessAlert(context.Background(), types.Record{Valid: true, Category: types.CategoryStorm})

	if out.Kind != Dispatched {
		t.Fatalf("Kind = %v, want Dispatched", out.Kind)
	}
	results := out.Report.Results
	if !results[0].OK() || results[1].OK() || !results[2].OK() {
		t.Errorf("Results = %+v, want only second failed", results)
	}

	if got := testutil.ToFloat64(reg.HandlerDeliveries.WithLabelValues("second", "failed")); got != 1 {
		t.Errorf("deliveries{second,failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.HandlerDeliveries.WithLabelValues("first", "ok")); got != 1 {
		t.Errorf("deliveries{first,ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.Outcomes.WithLabelValues("dispatched")); got != 1 {
		t.Errorf("outcomes{dispatched} = %v, want 1", got)
	}
}

// fixedEvaluator returns the same result for every record.
type fixedEvaluator struct{ result rules.MatchResult }

func (f fixedEvaluator) Evaluate(types.Record) rules.MatchResult { return f.result }

// countingSender counts Dispatch calls.
type countingSender struct{ calls int }

func (c *countingSender) Dispatch(context.Context, types.Action) dispatch.Report {
	c.calls++
	return dispatch.Report{}
}

func TestProcessAlert_NoDispatchWithoutMatch(t *testing.T) {
	for _, reason := range []rules.Reason{rules.ReasonInvalidRecord, rules.ReasonNoRuleMatched} {
		t.Run(reason.String(), func(t *testing.T) {
			sender := &countingSender{}
			eng := New(fixedEvaluator{rules.MatchResult{Reason: reason}}, sender)
			eng.ProcessAlert(context.Background(), types.Record{Valid: true})
			if sender.calls != 0 {
				t.Errorf("Dispatch calls = %d, want 0", sender.calls)
			}
		})
	}
}

func TestProcessAlert_PropertyInvalidRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	sender := &countingSender{}
	eng := New(builtinRuleSet(t), sender)

	properties.Property("invalid records are rejected without dispatch", prop.ForAll(
		func(cat int, sev int, approaching, hail bool, temp, hum int) bool {
			rec := types.Record{
				Valid:       false,
				Category:    []types.Category{types.CategoryStorm, types.CategoryHeatwave, "flood"}[cat],
				Severity:    types.Severity(sev),
				Approaching: approaching,
				Hail:        hail,
				Temperature: temp,
				Humidity:    hum,
			}
			return eng.ProcessAlert(context.Background(), rec).Kind == Rejected && sender.calls == 0
		},
		gen.IntRange(0, 2),
		gen.IntRange(0, 3),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(-40, 130),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestProcessAlert_PropertyIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	d := dispatch.New()
	_ = d.Register(okHandler("a"))
	_ = d.Register(failingHandler("b"))
	eng := New(builtinRuleSet(t), d)

	properties.Property("processing the same record twice yields equal outcomes", prop.ForAll(
		func(valid bool, cat int, sev int, approaching, hail bool, temp, hum int) bool {
			rec := types.Record{
				Valid:       valid,
				Category:    []types.Category{types.CategoryStorm, types.CategoryHeatwave, "flood"}[cat],
				Severity:    types.Severity(sev),
				Approaching: approaching,
				Hail:        hail,
				Temperature: temp,
				Humidity:    hum,
			}
			first := eng.ProcessAlert(context.Background(), rec)
			second := eng.ProcessAlert(context.Background(), rec)
			return reflect.DeepEqual(first, second)
		},
		gen.Bool(),
		gen.IntRange(0, 2),
		gen.IntRange(0, 3),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(-40, 130),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
