package rules

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/solatis/alertkeeper/internal/types"
)

// celCostLimit bounds the runtime cost of a single expression evaluation.
const celCostLimit = 100000

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

// recordEnv returns the CEL environment declaring every record field.
func recordEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable(types.FieldValid, cel.BoolType),
			cel.Variable(types.FieldCategory, cel.StringType),
			cel.Variable(types.FieldSeverity, cel.StringType),
			cel.Variable(types.FieldSeverityLevel, cel.IntType),
			cel.Variable(types.FieldApproaching, cel.BoolType),
			cel.Variable(types.FieldHail, cel.BoolType),
			cel.Variable(types.FieldTemperature, cel.IntType),
			cel.Variable(types.FieldHumidity, cel.IntType),
		)
	})
	return celEnv, celEnvErr
}

// CELPredicate is a predicate written as a CEL boolean expression.
// Evaluation errors count as a non-match.
type CELPredicate struct {
	source  string
	program cel.Program
}

// CompileCEL type-checks src against the record fields.
// The expression must produce a bool.
func CompileCEL(src string) (*CELPredicate, error) {
	env, err := recordEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("expression %q must evaluate to bool, got %v", src, ast.OutputType())
	}

	prg, err := env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", src, err)
	}

	return &CELPredicate{source: src, program: prg}, nil
}

// Eval runs the expression with rec's fields bound.
func (p *CELPredicate) Eval(rec types.Record) bool {
	out, _, err := p.program.Eval(rec.Facts())
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// String returns the expression source.
func (p *CELPredicate) String() string {
	return p.source
}
