package solver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/devskill-org/pownet-sim/modeling"
)

// WriteMPS serializes the model to folder/name.mps in fixed MPS format,
// the same handoff spec.md §4.8's optimize describes for routing a
// model to an external MILP solver via a temporary file.
func (m *PowerSystemModel) WriteMPS(folder, name string) (string, error) {
	path := filepath.Join(folder, name+".mps")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("solver.mps: create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeMPS(f, m.Model); err != nil {
		return "", fmt.Errorf("solver.mps: write %s: %w", path, err)
	}
	return path, nil
}

func writeMPS(f *os.File, model *modeling.Model) error {
	fmt.Fprintf(f, "NAME          %s\n", model.Name)
	fmt.Fprintln(f, "ROWS")
	fmt.Fprintln(f, " N  COST")
	for _, c := range model.Constraints() {
		fmt.Fprintf(f, " %s  %s\n", mpsRowSense(c.Sense), c.Name)
	}

	fmt.Fprintln(f, "COLUMNS")
	obj := model.Objective.Terms()
	for _, v := range model.Vars() {
		if v.IsDiscrete() {
			fmt.Fprintf(f, "    MARKER                 MARKER1                'INTORG'\n")
		}
		if coef, ok := obj[v]; ok && coef != 0 {
			fmt.Fprintf(f, "    %-10s  COST       %.10g\n", v.Name, coef)
		}
		for _, c := range model.Constraints() {
			if coef, ok := c.Expr.Terms()[v]; ok && coef != 0 {
				fmt.Fprintf(f, "    %-10s  %-10s %.10g\n", v.Name, c.Name, coef)
			}
		}
		if v.IsDiscrete() {
			fmt.Fprintf(f, "    MARKER                 MARKER2                'INTEND'\n")
		}
	}

	fmt.Fprintln(f, "RHS")
	for _, c := range model.Constraints() {
		rhs := c.RHS - c.Expr.Constant()
		if rhs != 0 {
			fmt.Fprintf(f, "    RHS        %-10s %.10g\n", c.Name, rhs)
		}
	}

	fmt.Fprintln(f, "BOUNDS")
	for _, v := range model.Vars() {
		switch {
		case v.IsFixed():
			fmt.Fprintf(f, " FX BND        %-10s %.10g\n", v.Name, v.Lower)
		case v.Kind == modeling.Binary:
			// default [0,1] bounds, nothing to emit.
		default:
			fmt.Fprintf(f, " LO BND        %-10s %.10g\n", v.Name, v.Lower)
			fmt.Fprintf(f, " UP BND        %-10s %.10g\n", v.Name, v.Upper)
		}
	}
	fmt.Fprintln(f, "ENDATA")
	return nil
}

func mpsRowSense(s modeling.Sense) string {
	switch s {
	case modeling.LE:
		return "L"
	case modeling.GE:
		return "G"
	default:
		return "E"
	}
}

// WriteILPMPS writes folder/name.ilp, a minimal irreducible infeasible
// subsystem of the model's constraints, alongside the full folder/name.mps
// dump, per spec.md §4.8's write_ilp_mps and §6/§7's infeasibility
// artifacts. The IIS is computed by a deletion filter against the LP
// relaxation: a simplification of a true MILP IIS (which would also
// consider integrality), acceptable here since the reference solver's
// own infeasibility detection operates on the same relaxation.
func (m *PowerSystemModel) WriteILPMPS(ctx context.Context, folder, name string) (mpsPath, ilpPath string, err error) {
	mpsPath, err = m.WriteMPS(folder, name)
	if err != nil {
		return "", "", err
	}

	iis, err := deletionFilterIIS(ctx, m.Model, m.Solver)
	if err != nil {
		return mpsPath, "", fmt.Errorf("solver.mps: IIS computation: %w", err)
	}

	ilpPath = filepath.Join(folder, name+".ilp")
	f, createErr := os.Create(ilpPath)
	if createErr != nil {
		return mpsPath, "", fmt.Errorf("solver.mps: create %s: %w", ilpPath, createErr)
	}
	defer f.Close()

	fmt.Fprintf(f, "# irreducible infeasible subsystem for model %q\n", m.Model.Name)
	for _, name := range iis {
		c := m.Model.Constraint(name)
		if c == nil {
			continue
		}
		fmt.Fprintf(f, "%s: %s %.10g\n", c.Name, mpsRowSense(c.Sense), c.RHS)
	}
	return mpsPath, ilpPath, nil
}

// deletionFilterIIS removes each constraint in turn and re-checks
// feasibility of the LP relaxation; a constraint whose removal restores
// feasibility is essential and stays in the subsystem, everything else
// is dropped. Runs in O(#constraints) relaxation solves.
func deletionFilterIIS(ctx context.Context, model *modeling.Model, slv modeling.Solver) ([]string, error) {
	names := make([]string, 0, len(model.Constraints()))
	for _, c := range model.Constraints() {
		names = append(names, c.Name)
	}
	sort.Strings(names)

	candidate := make(map[string]bool, len(names))
	for _, n := range names {
		candidate[n] = true
	}

	// The filter mutates model as it probes each constraint; every
	// constraint, kept or dropped from the IIS, is restored at the end
	// so the caller's model is left exactly as it found it.
	var dropped []*modeling.Constraint
	for _, name := range names {
		c := model.Constraint(name)
		if c == nil {
			continue
		}
		model.RemoveConstraint(name)

		sol, err := slv.SolveRelaxation(ctx, model)
		stillInfeasible := err == nil && sol.Status == modeling.Infeasible
		if stillInfeasible {
			candidate[name] = false
			dropped = append(dropped, c)
			continue
		}

		model.AddConstraint(c.Name, c.Expr, c.Sense, c.RHS)
	}
	for _, c := range dropped {
		model.AddConstraint(c.Name, c.Expr, c.Sense, c.RHS)
	}

	var iis []string
	for _, n := range names {
		if candidate[n] {
			iis = append(iis, n)
		}
	}
	return iis, nil
}
