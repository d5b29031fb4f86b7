// Package refsolver is the reference modeling.Solver implementation
// used throughout this repo: a dense Big-M simplex for LP relaxations
// and a depth-first branch-and-bound layer for the Integer/Binary
// commitment variables on top of it. It favors a correct, readable
// tableau method over a high-performance one, matching its role as the
// in-repo stand-in for the "opaque" external MILP engine the domain
// spec leaves out of scope.
package refsolver

import (
	"context"
	"fmt"

	"github.com/devskill-org/pownet-sim/modeling"
)

// Solver is the zero-value-usable reference modeling.Solver.
type Solver struct{}

// New returns a ready-to-use reference solver.
func New() *Solver {
	return &Solver{}
}

// Solve runs branch-and-bound to an integer-feasible optimum.
func (s *Solver) Solve(ctx context.Context, m *modeling.Model) (*modeling.Solution, error) {
	return branchAndBound(ctx, m)
}

// SolveRelaxation solves m with every variable's discreteness ignored,
// i.e. purely by its declared Lower/Upper bounds.
func (s *Solver) SolveRelaxation(ctx context.Context, m *modeling.Model) (*modeling.Solution, error) {
	return solveRelaxationRaw(ctx, m)
}

func solveRelaxationRaw(ctx context.Context, m *modeling.Model) (*modeling.Solution, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	sf, err := buildStandardForm(m, true)
	if err != nil {
		return nil, fmt.Errorf("refsolver: %w", err)
	}
	status, err := sf.solve(maxSimplexIts)
	if err != nil {
		return nil, err
	}
	if status != modeling.Optimal {
		return &modeling.Solution{Status: status}, nil
	}

	values := sf.extract(m)
	return &modeling.Solution{
		Status:     modeling.Optimal,
		Objective:  sf.objectiveValue(m, values),
		Values:     values,
		DualValues: sf.duals(),
	}, nil
}
