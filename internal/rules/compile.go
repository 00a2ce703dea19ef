// internal/rules/compile.go
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solatis/alertkeeper/internal/types"
)

/*
 * Declarative rule compilation.
 *
 * Compiles types.RuleDefinition to a DeclarativeRule. Every failure is
 * wrapped in ErrInvalidRuleDefinition together with the rule id, so loaders
 * can report which rule in which file is broken.
 *
 * Compilation workflow:
 *   1. Validate id and ladder shape (base step has no predicate)
 *   2. Compile the match predicate (when -> ConditionSet, expr -> CEL)
 *   3. Compile each ladder step predicate and parse its level
 *   4. Compile metadata expressions (expr-lang)
 *
 * A node may carry `when` or `expr` but not both. A rule with neither
 * matches every record of its category; a rule with neither and no
 * category matches every valid record.
 */

// CompileOption configures CompileDefinition.
type CompileOption func(*compileOptions)

type compileOptions struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for metadata evaluation failures.
func WithLogger(l zerolog.Logger) CompileOption {
	return func(o *compileOptions) { o.logger = l }
}

// CompileDefinition validates def and returns an evaluable rule.
func CompileDefinition(def types.RuleDefinition, opts ...CompileOption) (*DeclarativeRule, error) {
	o := compileOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w %q: %s", types.ErrInvalidRuleDefinition, def.ID, fmt.Sprintf(format, args...))
	}
	wrap := func(what string, err error) error {
		return fmt.Errorf("%w %q: %s: %w", types.ErrInvalidRuleDefinition, def.ID, what, err)
	}

	if strings.TrimSpace(string(def.ID)) == "" {
		return nil, fail("id is required")
	}
	if len(def.Ladder) == 0 {
		return nil, wrap("ladder", types.ErrEmptyLadder)
	}
	if hasPredicate(def.Ladder[0].When, def.Ladder[0].Expr) {
		return nil, fail("base ladder step %q must not have a predicate", def.Ladder[0].Key)
	}

	match, err := compilePredicate(def.When, def.Expr)
	if err != nil {
		return nil, wrap("when", err)
	}

	steps := make(ladder, 0, len(def.Ladder))
	seenKeys := make(map[string]struct{}, len(def.Ladder))
	for i, step := range def.Ladder {
		if step.Key == "" {
			return nil, fail("ladder step %d has no key", i)
		}
		if _, dup := seenKeys[step.Key]; dup {
			return nil, fail("ladder key %q repeated", step.Key)
		}
		seenKeys[step.Key] = struct{}{}

		level, err := types.ParseLevel(step.Level)
		if err != nil {
			return nil, wrap(fmt.Sprintf("ladder step %q", step.Key), err)
		}

		r := rung{key: step.Key, level: level}
		if i > 0 {
			pred, err := compilePredicate(step.When, step.Expr)
			if err != nil {
				return nil, wrap(fmt.Sprintf("ladder step %q", step.Key), err)
			}
			if pred == nil {
				return nil, fail("ladder step %q needs a predicate", step.Key)
			}
			r.reached = pred.Eval
		}
		steps = append(steps, r)
	}

	meta, err := compileMetadata(def.Metadata)
	if err != nil {
		return nil, wrap("metadata", err)
	}

	return &DeclarativeRule{
		def:      def,
		match:    match,
		ladder:   steps,
		metadata: meta,
		logger:   o.logger,
	}, nil
}

func hasPredicate(when []types.ConditionGroup, src string) bool {
	return len(when) > 0 || strings.TrimSpace(src) != ""
}

// compilePredicate returns nil when neither form is given.
func compilePredicate(when []types.ConditionGroup, src string) (Predicate, error) {
	src = strings.TrimSpace(src)
	switch {
	case len(when) > 0 && src != "":
		return nil, errors.New("when and expr are mutually exclusive")
	case len(when) > 0:
		set, err := CompileConditions(when)
		if err != nil {
			return nil, err
		}
		return set, nil
	case src != "":
		p, err := CompileCEL(src)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}
