package rules

import "github.com/solatis/alertkeeper/internal/types"

// Heatwave message keys, lowest rung first.
const (
	KeyHeatwaveAlert               = "heatwave.alert"
	KeyHeatwaveCriticalTemperature = "heatwave.critical_temperature"
	KeyHeatwaveHighHumidity        = "heatwave.high_humidity"
)

// HeatwaveRuleID is the id of the built-in heatwave rule.
const HeatwaveRuleID types.RuleID = "heatwave"

// HeatwaveConfig tunes the heatwave escalation thresholds.
// Both thresholds are strict: a temperature equal to TemperatureAbove does
// not escalate.
type HeatwaveConfig struct {
	Priority         int
	TemperatureAbove int
	HumidityAbove    int
}

// DefaultHeatwaveConfig returns the standard thresholds (100 / 60).
func DefaultHeatwaveConfig() HeatwaveConfig {
	return HeatwaveConfig{
		Priority:         DefaultPriority,
		TemperatureAbove: 100,
		HumidityAbove:    60,
	}
}

// HeatwaveRule classifies heatwave records.
type HeatwaveRule struct {
	cfg    HeatwaveConfig
	ladder ladder
}

// NewHeatwaveRule returns a heatwave rule using cfg.
func NewHeatwaveRule(cfg HeatwaveConfig) *HeatwaveRule {
	return &HeatwaveRule{
		cfg: cfg,
		ladder: ladder{
			{key: KeyHeatwaveAlert, level: types.LevelAdvisory},
			{key: KeyHeatwaveCriticalTemperature, level: types.LevelWarning, reached: func(r types.Record) bool {
				return r.Temperature > cfg.TemperatureAbove
			}},
			{key: KeyHeatwaveHighHumidity, level: types.LevelEmergency, reached: func(r types.Record) bool {
				return r.Humidity > cfg.HumidityAbove
			}},
		},
	}
}

func (r *HeatwaveRule) ID() types.RuleID { return HeatwaveRuleID }

func (r *HeatwaveRule) Priority() int { return r.cfg.Priority }

func (r *HeatwaveRule) Matches(rec types.Record) bool {
	return rec.Category == types.CategoryHeatwave
}

func (r *HeatwaveRule) BuildAction(rec types.Record) types.Action {
	top := r.ladder.climb(rec)
	step := r.ladder[top]
	return types.NewAction(HeatwaveRuleID, step.level, step.key, map[string]any{
		"category":    string(rec.Category),
		"rung":        top,
		"temperature": rec.Temperature,
		"humidity":    rec.Humidity,
	})
}

// Builtin returns the storm and heatwave rules with default settings.
func Builtin() []Rule {
	return []Rule{
		NewStormRule(DefaultPriority),
		NewHeatwaveRule(DefaultHeatwaveConfig()),
	}
}
