package rules

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/solatis/alertkeeper/internal/types"
)

// metadataExpr is one compiled metadata value expression.
type metadataExpr struct {
	key     string
	source  string
	program *vm.Program
}

// compileMetadata compiles every expression in defs, sorted by key.
// The environment is the record's fact map, so field names and types
// are checked at compile time.
func compileMetadata(defs map[string]string) ([]metadataExpr, error) {
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := types.Record{}.Facts()
	out := make([]metadataExpr, 0, len(keys))
	for _, k := range keys {
		if reservedMetadataKeys[k] {
			return nil, fmt.Errorf("metadata key %q is reserved", k)
		}
		program, err := expr.Compile(defs[k], expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out = append(out, metadataExpr{key: k, source: defs[k], program: program})
	}
	return out, nil
}

// reservedMetadataKeys are set by DeclarativeRule itself.
var reservedMetadataKeys = map[string]bool{
	"category": true,
	"rung":     true,
}

// evaluate runs the expression against facts.
func (m metadataExpr) evaluate(facts map[string]any) (any, error) {
	return expr.Run(m.program, facts)
}
