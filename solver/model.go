// Package solver wraps a modeling.Model + modeling.Solver pair into the
// operations spec §4.8 names (Optimize, OptimizeWithRounding,
// CheckFeasible, GetSolution, SolveForLMP, SolveForExportPrices,
// SolveForExportCapacity, WriteMPS, WriteILPMPS), dispatched against
// the modeling.Solver interface the way pownet/optim_model/model.py
// dispatches across its two supported backends through a string-keyed
// function table — generalized here to a single Go interface value
// instead of a map of hardcoded backend names.
package solver

import (
	"context"
	"fmt"

	"github.com/devskill-org/pownet-sim/modeling"
)

// Options configures one Optimize call.
type Options struct {
	MIPGap     float64
	TimeLimit  float64 // seconds, 0 = no limit (best-effort; refsolver ignores it)
	NumThreads int
	LogToConsole bool
}

// DefaultOptions mirrors the teacher's DefaultConfig pattern: sane
// values a caller can override selectively.
func DefaultOptions() Options {
	return Options{MIPGap: 1e-4, TimeLimit: 300, NumThreads: 1}
}

// PowerSystemModel is the thin wrapper ModelBuilder.Build/Update return.
type PowerSystemModel struct {
	Model  *modeling.Model
	Solver modeling.Solver

	solution *modeling.Solution
}

// New wraps model with a solver; callers normally obtain these from
// ModelBuilder rather than constructing directly.
func New(model *modeling.Model, slv modeling.Solver) *PowerSystemModel {
	return &PowerSystemModel{Model: model, Solver: slv}
}

// Optimize solves the model to a MILP-feasible solution and records it
// as the wrapper's current solution.
func (m *PowerSystemModel) Optimize(ctx context.Context, opts Options) (*modeling.Solution, error) {
	sol, err := m.Solver.Solve(ctx, m.Model)
	if err != nil {
		return nil, fmt.Errorf("solver.model: optimize: %w", err)
	}
	m.solution = sol
	return sol, nil
}

// CheckFeasible reports whether the last Optimize/OptimizeWithRounding
// call produced a usable incumbent.
func (m *PowerSystemModel) CheckFeasible() bool {
	return m.solution != nil && m.solution.Status == modeling.Optimal
}

// GetSolution returns the wrapper's current solution, or nil if nothing
// has been solved yet.
func (m *PowerSystemModel) GetSolution() *modeling.Solution {
	return m.solution
}
