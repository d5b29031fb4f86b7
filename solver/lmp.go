package solver

import (
	"context"
	"fmt"
	"strings"

	"github.com/devskill-org/pownet-sim/modeling"
)

// SolveForLMP fixes every binary variable at its incumbent value and
// re-solves the resulting LP, returning the dual of each power-balance
// constraint (named "power_balance[node,t]" by builder.SystemBuilder),
// keyed by the constraint's own name.
func (m *PowerSystemModel) SolveForLMP(ctx context.Context) (map[string]float64, error) {
	if !m.CheckFeasible() {
		return nil, fmt.Errorf("solver.model: SolveForLMP requires a feasible incumbent")
	}
	restore := m.fixBinaries()
	defer restore()

	sol, err := m.Solver.SolveRelaxation(ctx, m.Model)
	if err != nil {
		return nil, fmt.Errorf("solver.model: SolveForLMP: %w", err)
	}
	if sol.Status != modeling.Optimal {
		return nil, fmt.Errorf("solver.model: SolveForLMP: LP with fixed binaries is %v", sol.Status)
	}

	out := make(map[string]float64)
	for name, dual := range sol.DualValues {
		if strings.HasPrefix(name, "power_balance[") {
			out[name] = dual
		}
	}
	return out, nil
}

// fixBinaries narrows every Binary variable's bounds to its incumbent
// value and returns a closure that restores the original bounds.
func (m *PowerSystemModel) fixBinaries() func() {
	type saved struct{ lo, hi float64 }
	restore := make(map[*modeling.Var]saved)
	for _, v := range m.Model.Vars() {
		if v.Kind != modeling.Binary {
			continue
		}
		restore[v] = saved{v.Lower, v.Upper}
		val := m.solution.Value(v)
		rounded := 0.0
		if val >= 0.5 {
			rounded = 1
		}
		v.Fix(rounded)
	}
	return func() {
		for v, s := range restore {
			v.Lower, v.Upper = s.lo, s.hi
		}
	}
}

// SolveForExportPrices reshapes SolveForLMP's output into (node, hour)
// form for a requested subset of shared nodes, over window k's H hours.
func (m *PowerSystemModel) SolveForExportPrices(ctx context.Context, sharedNodes []string, h, k int) (map[string]map[int]float64, error) {
	duals, err := m.SolveForLMP(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[int]float64, len(sharedNodes))
	for _, node := range sharedNodes {
		out[node] = make(map[int]float64, h)
		for t := 1; t <= h; t++ {
			out[node][t] = duals[fmt.Sprintf("power_balance[%s,%d]", node, t)]
		}
	}
	return out, nil
}

// SolveForExportCapacity fixes every binary at its incumbent, adds one
// continuous export variable per (shared node, hour) with objective
// coefficient -1 (so minimizing cost drives export up to its physical
// limit), subtracts it from that node's power-balance constraint, and
// re-solves. Each export variable's optimum is that node's locational
// export capacity for that hour.
func (m *PowerSystemModel) SolveForExportCapacity(ctx context.Context, sharedNodes []string, h, k int) (map[string]map[int]float64, error) {
	if !m.CheckFeasible() {
		return nil, fmt.Errorf("solver.model: SolveForExportCapacity requires a feasible incumbent")
	}
	restoreBinaries := m.fixBinaries()
	defer restoreBinaries()

	type addedVar struct {
		name string
		cons string
		orig *modeling.LinearExpr
	}
	var added []addedVar
	originalObjective := m.Model.Objective
	objective := originalObjective.Clone()

	for _, node := range sharedNodes {
		for t := 1; t <= h; t++ {
			consName := fmt.Sprintf("power_balance[%s,%d]", node, t)
			cons := m.Model.Constraint(consName)
			if cons == nil {
				continue
			}
			varName := fmt.Sprintf("export[%s,%d]", node, t)
			exportVar := m.Model.AddVar(varName, modeling.Continuous, 0, 1e9)
			added = append(added, addedVar{varName, consName, cons.Expr.Clone()})
			cons.Expr.Term(exportVar, -1)
			objective.Term(exportVar, -1)
		}
	}
	m.Model.SetObjective(objective, modeling.Minimize)

	defer func() {
		for _, a := range added {
			if cons := m.Model.Constraint(a.cons); cons != nil {
				cons.Expr = a.orig // restore the constraint body saved before the export term was added
			}
			m.Model.RemoveVar(a.name)
		}
		m.Model.SetObjective(originalObjective, modeling.Minimize)
	}()

	sol, err := m.Solver.SolveRelaxation(ctx, m.Model)
	if err != nil {
		return nil, fmt.Errorf("solver.model: SolveForExportCapacity: %w", err)
	}
	if sol.Status != modeling.Optimal {
		return nil, fmt.Errorf("solver.model: SolveForExportCapacity: LP is %v", sol.Status)
	}

	out := make(map[string]map[int]float64, len(sharedNodes))
	for _, node := range sharedNodes {
		out[node] = make(map[int]float64, h)
		for t := 1; t <= h; t++ {
			out[node][t] = sol.Values[fmt.Sprintf("export[%s,%d]", node, t)]
		}
	}
	return out, nil
}
