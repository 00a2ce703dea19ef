package rules

import (
	"github.com/rs/zerolog"

	"github.com/solatis/alertkeeper/internal/types"
)

// DeclarativeRule is a rule compiled from a RuleDefinition.
type DeclarativeRule struct {
	def      types.RuleDefinition
	match    Predicate // nil matches every record of the category
	ladder   ladder
	metadata []metadataExpr
	logger   zerolog.Logger
}

func (r *DeclarativeRule) ID() types.RuleID { return r.def.ID }

func (r *DeclarativeRule) Priority() int { return r.def.Priority }

// Name returns the human-readable name, falling back to the id.
func (r *DeclarativeRule) Name() string {
	if r.def.Name != "" {
		return r.def.Name
	}
	return string(r.def.ID)
}

// Definition returns the definition the rule was compiled from.
func (r *DeclarativeRule) Definition() types.RuleDefinition {
	return r.def
}

func (r *DeclarativeRule) Matches(rec types.Record) bool {
	if r.def.Category != "" && rec.Category != r.def.Category {
		return false
	}
	return r.match == nil || r.match.Eval(rec)
}

func (r *DeclarativeRule) BuildAction(rec types.Record) types.Action {
	top := r.ladder.climb(rec)
	step := r.ladder[top]

	meta := map[string]any{
		"category": string(rec.Category),
		"rung":     top,
	}
	if len(r.metadata) > 0 {
		facts := rec.Facts()
		for _, m := range r.metadata {
			v, err := m.evaluate(facts)
			if err != nil {
				r.logger.Warn().Err(err).
					Str("rule_id", string(r.def.ID)).
					Str("key", m.key).
					Msg("metadata expression failed")
				continue
			}
			if !isScalar(v) {
				r.logger.Warn().
					Str("rule_id", string(r.def.ID)).
					Str("key", m.key).
					Msgf("metadata expression returned %T, want scalar", v)
				continue
			}
			meta[m.key] = v
		}
	}

	return types.NewAction(r.def.ID, step.level, step.key, meta)
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string, int, int64, float64:
		return true
	default:
		return false
	}
}
