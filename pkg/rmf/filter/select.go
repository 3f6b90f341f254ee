package filter

import (
	"errors"
	"fmt"

	"github.com/casbin/govaluate"
)

// ErrNotBoolean is returned when a selection expression does not evaluate
// to true or false.
var ErrNotBoolean = errors.New("selection expression is not boolean")

// Expression parameters available to SelectWhere.
const (
	ParamModel       = "model"
	ParamRegion      = "region"
	ParamPermutation = "permutation"
	ParamInstanced   = "instanced"
	ParamMeshCount   = "mesh_count"
)

// SelectWhere checks every permutation for which expr is true and clears
// every other one, then refreshes the rest of the tree. The expression sees
// the model (or placement) label, region name, permutation name, instanced
// flag and mesh count, e.g.
//
//	region == 'body' && !instanced
//
// It returns the number of permutations selected.
func (f *Filter) SelectWhere(expr string) (int, error) {
	expression, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, fmt.Errorf("parsing selection expression: %w", err)
	}

	perms := f.Permutations()
	states := make([]CheckState, len(perms))
	selected := 0
	for i, n := range perms {
		p := n.Permutation()
		params := map[string]interface{}{
			ParamModel:       n.parent.parent.Label,
			ParamRegion:      n.parent.Label,
			ParamPermutation: p.Name,
			ParamInstanced:   p.Instanced,
			ParamMeshCount:   float64(p.MeshCount),
		}

		result, err := expression.Evaluate(params)
		if err != nil {
			return 0, fmt.Errorf("evaluating %q for %s/%s: %w", expr, n.parent.Label, p.Name, err)
		}
		ok, isBool := result.(bool)
		if !isBool {
			return 0, fmt.Errorf("%w: %q yields %v", ErrNotBoolean, expr, result)
		}

		states[i] = Unchecked
		if ok {
			states[i] = Checked
			selected++
		}
	}

	// apply only once every permutation evaluated cleanly
	for i, n := range perms {
		n.SetState(states[i])
	}
	return selected, nil
}
