package modeling

import "context"

// Status classifies the outcome of a solve attempt.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	TimeLimitReached
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case TimeLimitReached:
		return "time_limit"
	default:
		return "unknown"
	}
}

// Solution is the result of solving a Model.
type Solution struct {
	Status    Status
	Objective float64
	Values    map[string]float64 // variable name -> value

	// DualValues holds shadow prices per constraint name when the
	// solver supports them (the LP relaxation of a MILP solve only;
	// solver.PowerSystemModel.SolveForLMP relies on this).
	DualValues map[string]float64
}

// Value returns the solved value of v, or 0 if v has no entry (e.g. the
// solve did not reach Optimal).
func (s *Solution) Value(v *Var) float64 {
	if s == nil || s.Values == nil {
		return 0
	}
	return s.Values[v.Name]
}

// Solver is the boundary between the modeling layer and whatever MILP
// engine actually carries out a solve. The domain spec this module
// implements explicitly scopes the solver out as "an opaque callable";
// this interface is that callable, and modeling/refsolver is the one
// implementation wired into this repo.
type Solver interface {
	// Solve returns the optimal solution to m, or a Solution with a
	// non-Optimal Status and a nil error when the model is infeasible
	// or unbounded. A non-nil error indicates the solver itself failed
	// (e.g. ctx was canceled), not that the model has no solution.
	Solve(ctx context.Context, m *Model) (*Solution, error)

	// SolveRelaxation solves m with every Integer/Binary variable's
	// discreteness relaxed to continuous, used for LP-relaxation duals
	// (locational marginal prices) and as the rounding heuristic's
	// starting point.
	SolveRelaxation(ctx context.Context, m *Model) (*Solution, error)
}
