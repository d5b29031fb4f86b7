package solver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devskill-org/pownet-sim/modeling"
)

// RoundingStrategy selects how many fractional status variables get fixed
// per iteration of OptimizeWithRounding.
type RoundingStrategy int

const (
	// StrategySlow fixes only the single fractional status variable with
	// the largest value per iteration.
	StrategySlow RoundingStrategy = iota
	// StrategyFast fixes every fractional status variable in one pass.
	StrategyFast
)

const fractionalTol = 1e-5

type fixedBound struct{ lo, hi float64 }

// RoundingResult mirrors spec.md §4.9's success return: the model solved
// to integer feasibility via relaxation + fixing, without a full MILP
// solve.
type RoundingResult struct {
	Solution          *modeling.Solution
	RelaxationRuntime float64
	Iterations        int
	FellBackToMIP     bool
}

// OptimizeWithRounding implements pownet/optim_model/rounding_algo.py's
// loop: solve the LP relaxation, and while any status[*] variable is
// still fractional, fix status variables toward 0/1 per strategy and
// re-solve, up to maxIter times. Falls back to a full MILP solve if the
// relaxation is ever infeasible or maxIter is exhausted without
// convergence, per spec.md §4.9's recovery policy.
func (m *PowerSystemModel) OptimizeWithRounding(ctx context.Context, strategy RoundingStrategy, threshold float64, maxIter int) (*RoundingResult, error) {
	statusVars := m.statusVars()

	fixed := make(map[*modeling.Var]fixedBound)
	restore := func() {
		for v, b := range fixed {
			v.Lower, v.Upper = b.lo, b.hi
		}
	}

	fallback := func() (*RoundingResult, error) {
		restore()
		sol, err := m.Optimize(ctx, DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("solver.rounding: MILP fallback: %w", err)
		}
		return &RoundingResult{Solution: sol, FellBackToMIP: true}, nil
	}

	var runtime float64
	start := time.Now()
	sol, err := m.Solver.SolveRelaxation(ctx, m.Model)
	if err != nil {
		return nil, fmt.Errorf("solver.rounding: initial relaxation: %w", err)
	}
	runtime += time.Since(start).Seconds()

	for iter := 1; iter <= maxIter; iter++ {
		if sol.Status != modeling.Optimal {
			return fallback()
		}

		frac := fractionalStatusVars(statusVars, sol)
		if len(frac) == 0 {
			m.solution = sol
			return &RoundingResult{Solution: sol, RelaxationRuntime: runtime, Iterations: iter - 1}, nil
		}

		switch strategy {
		case StrategySlow:
			v := mostFractionalVar(frac, sol)
			fixStatusVar(v, sol.Value(v), threshold, fixed)
		case StrategyFast:
			for _, v := range frac {
				fixStatusVar(v, sol.Value(v), threshold, fixed)
			}
		}

		start = time.Now()
		sol, err = m.Solver.SolveRelaxation(ctx, m.Model)
		if err != nil {
			return nil, fmt.Errorf("solver.rounding: relaxation iteration %d: %w", iter, err)
		}
		runtime += time.Since(start).Seconds()
	}

	return fallback()
}

// statusVars returns every status[*] variable in the model, the family
// spec.md §4.9 checks for fractional values.
func (m *PowerSystemModel) statusVars() []*modeling.Var {
	var out []*modeling.Var
	for _, v := range m.Model.Vars() {
		if strings.HasPrefix(v.Name, "status[") {
			out = append(out, v)
		}
	}
	return out
}

func fractionalStatusVars(vars []*modeling.Var, sol *modeling.Solution) []*modeling.Var {
	var frac []*modeling.Var
	for _, v := range vars {
		val := sol.Value(v)
		if val > fractionalTol && val < 1-fractionalTol {
			frac = append(frac, v)
		}
	}
	return frac
}

func mostFractionalVar(vars []*modeling.Var, sol *modeling.Solution) *modeling.Var {
	best := vars[0]
	bestVal := sol.Value(best)
	for _, v := range vars[1:] {
		if val := sol.Value(v); val > bestVal {
			best, bestVal = v, val
		}
	}
	return best
}

func fixStatusVar(v *modeling.Var, val, threshold float64, fixed map[*modeling.Var]fixedBound) {
	if _, already := fixed[v]; !already {
		fixed[v] = fixedBound{v.Lower, v.Upper}
	}
	if val >= threshold {
		v.Fix(1)
	} else {
		v.Fix(0)
	}
}
