// Package coupler implements the fixed-point power-water reoperation
// loop of spec.md §4.12: after the power MILP solves a window, a
// reservoir operator proposes revised daily hydropower capacities, and
// the model is re-solved with them until the dispatch and the proposal
// agree within tolerance.
package coupler

import (
	"context"
	"fmt"
	"math"

	"github.com/devskill-org/pownet-sim/builder"
	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/solver"
	"github.com/devskill-org/pownet-sim/system"
)

// ReservoirOperator proposes a revised daily hydropower capacity per
// (unit, day) given the window's observed daily dispatch. Implementations
// live outside this package (a physical reservoir simulator, a test
// double); this package only drives the fixed point.
type ReservoirOperator interface {
	ProposeDailyCapacity(observed map[string]map[int]float64) (map[string]map[int]float64, error)
}

// Tolerance is the relative deviation spec.md §4.12 step 3 allows
// between a proposed capacity and the dispatch that produced it before
// calling the fixed point converged.
const Tolerance = 0.05

// DefaultMaxReopIter is spec.md §4.12's typical reoperation cap.
const DefaultMaxReopIter = 100

// PowerWaterCoupler drives the reoperation loop for one window.
type PowerWaterCoupler struct {
	Reservoir   ReservoirOperator
	MaxReopIter int
}

// New returns a coupler with spec.md's typical iteration cap.
func New(reservoir ReservoirOperator) *PowerWaterCoupler {
	return &PowerWaterCoupler{Reservoir: reservoir, MaxReopIter: DefaultMaxReopIter}
}

// Result reports what Reoperate did for one window, for the driver to
// fold into its own run-level reporting.
type Result struct {
	Iterations int
	Converged  bool
}

// NonConvergenceError carries the last deviation map, per spec.md §5's
// error-propagation note for coupler non-convergence.
type NonConvergenceError struct {
	Iterations int
	Deviation  map[string]map[int]float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("coupler: failed to converge after %d iterations", e.Iterations)
}

// Reoperate implements spec.md §4.12: aggregate phydro into daily
// dispatch, ask the reservoir operator for a revision, check the 5%
// tolerance, and if not converged ask ModelBuilder to replace only the
// daily hydro-limit constraints and re-optimize. Returns once converged
// or after MaxReopIter attempts.
func (c *PowerWaterCoupler) Reoperate(ctx context.Context, k, h int, sys *system.SystemInput, mb *builder.ModelBuilder, ps *solver.PowerSystemModel) (*Result, error) {
	if c == nil || c.Reservoir == nil {
		return &Result{Converged: true}, nil
	}

	for iter := 1; iter <= c.MaxReopIter; iter++ {
		sol := ps.GetSolution()
		observed := aggregateDailyDispatch(sys, mb, sol, k, h)

		proposed, err := c.Reservoir.ProposeDailyCapacity(observed)
		if err != nil {
			return nil, fmt.Errorf("coupler: reservoir operator: %w", err)
		}

		deviation, converged := checkConvergence(observed, proposed)
		if converged {
			return &Result{Iterations: iter, Converged: true}, nil
		}
		if iter == c.MaxReopIter {
			return nil, &NonConvergenceError{Iterations: iter, Deviation: deviation}
		}

		for unit, byDay := range proposed {
			for absDay, cap := range byDay {
				if err := mb.Hydro.UpdateDailyCapacity(k, unit, absDay, cap); err != nil {
					return nil, fmt.Errorf("coupler: updating daily capacity for %q day %d: %w", unit, absDay, err)
				}
			}
		}

		resolved, err := ps.Optimize(ctx, solver.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("coupler: re-optimize: %w", err)
		}
		if resolved.Status != modeling.Optimal {
			return nil, fmt.Errorf("coupler: re-optimized model is %v, not optimal", resolved.Status)
		}
	}

	return nil, &NonConvergenceError{Iterations: c.MaxReopIter}
}

// aggregateDailyDispatch sums window k's phydro[unit,t] solution values
// into absolute-day totals, for every daily-resolution hydro unit.
func aggregateDailyDispatch(sys *system.SystemInput, mb *builder.ModelBuilder, sol *modeling.Solution, k, h int) map[string]map[int]float64 {
	out := make(map[string]map[int]float64)
	phydro := mb.Hydro.Phydro
	for name, u := range sys.Hydro {
		if u.Resolution != system.HydroDaily {
			continue
		}
		byDay := make(map[int]float64)
		for t := 1; t <= h; t++ {
			abs := system.AbsoluteHour(t, k)
			absDay := (abs-1)/24 + 1
			v, ok := phydro[name]
			if !ok || v[t] == nil {
				continue
			}
			byDay[absDay] += sol.Value(v[t])
		}
		out[name] = byDay
	}
	return out
}

// checkConvergence implements spec.md §4.12 step 3's relative-deviation
// test against every (unit, day) the reservoir operator proposed a
// capacity for.
func checkConvergence(observed, proposed map[string]map[int]float64) (map[string]map[int]float64, bool) {
	deviation := make(map[string]map[int]float64)
	converged := true
	for unit, byDay := range proposed {
		deviation[unit] = make(map[int]float64)
		for day, cap := range byDay {
			obs := observed[unit][day]
			diff := math.Abs(cap - obs)
			deviation[unit][day] = diff
			if obs == 0 {
				if diff > 1e-9 {
					converged = false
				}
				continue
			}
			if diff > Tolerance*obs {
				converged = false
			}
		}
	}
	return deviation, converged
}
