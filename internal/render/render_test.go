package render

import (
	"reflect"
	"testing"

	"github.com/solatis/alertkeeper/internal/engine"
	"github.com/solatis/alertkeeper/internal/rules"
	"github.com/solatis/alertkeeper/internal/types"
)

func TestCatalog_Lines(t *testing.T) {
	tests := []struct {
		name string
		out  engine.Outcome
		want []string
	}{
		{
			name: "storm with hail",
			out:  engine.Outcome{Kind: engine.Dispatched, Action: types.Action{MessageKey: rules.KeyStormHail}},
			want: []string{
				"Handling storm alert.",
				"High severity storm detected.",
				"Storm is approaching. Taking immediate actions.",
				"Hail detected. Handling hail-specific actions.",
			},
		},
		{
			name: "critical heatwave",
			out:  engine.Outcome{Kind: engine.Dispatched, Action: types.Action{MessageKey: rules.KeyHeatwaveHighHumidity}},
			want: []string{
				"Handling heatwave alert.",
				"Critical heatwave conditions with temperature over 100.",
				"High humidity encountered during heatwave. Taking additional precautions.",
			},
		},
		{
			name: "base storm",
			out:  engine.Outcome{Kind: engine.Dispatched, Action: types.Action{MessageKey: rules.KeyStormAlert}},
			want: []string{"Handling storm alert."},
		},
		{
			name: "invalid",
			out:  engine.Outcome{Kind: engine.Rejected},
			want: []string{InvalidRecordText},
		},
		{
			name: "unmatched",
			out:  engine.Outcome{Kind: engine.Unmatched},
			want: []string{NoRuleMatchedText},
		},
		{
			name: "unknown key falls back to key",
			out:  engine.Outcome{Kind: engine.Dispatched, Action: types.Action{MessageKey: "fog.alert"}},
			want: []string{"fog.alert"},
		},
	}

	c := NewCatalog()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Lines(tt.out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lines() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCatalog_SetAndCycle(t *testing.T) {
	c := NewCatalog()
	c.Set("a", Entry{Text: "A", Parent: "b"})
	c.Set("b", Entry{Text: "B", Parent: "a"})

	if got := c.Escalation("a"); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Errorf("Escalation(a) = %q, want [B A]", got)
	}
	if got := c.Text("b"); got != "B" {
		t.Errorf("Text(b) = %q, want B", got)
	}
}

func TestCatalog_HeatwaveThreshold(t *testing.T) {
	c := NewCatalog(WithHeatwaveThreshold(90))
	out := engine.Outcome{Kind: engine.Dispatched, Action: types.Action{MessageKey: rules.KeyHeatwaveCriticalTemperature}}

	want := []string{
		"Handling heatwave alert.",
		"Critical heatwave conditions with temperature over 90.",
	}
	if got := c.Lines(out); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}
