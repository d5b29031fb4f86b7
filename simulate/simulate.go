// Package simulate drives the rolling-horizon loop of spec.md §4.11:
// build or update the MILP for each window, optimize, check feasibility,
// optionally reoperate with a reservoir coupler, record the solution,
// and derive the next window's initial conditions.
package simulate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/devskill-org/pownet-sim/builder"
	"github.com/devskill-org/pownet-sim/coupler"
	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/record"
	"github.com/devskill-org/pownet-sim/solver"
	"github.com/devskill-org/pownet-sim/system"
)

// Recorder persists each window's solution somewhere durable (package
// store implements this against Postgres); nil means no persistence.
type Recorder interface {
	PersistWindow(ctx context.Context, runID string, k, h int, sol *modeling.Solution) error
	PersistInfeasible(ctx context.Context, runID string, k int, mpsPath, ilpPath string, rec *record.SystemRecord) error
}

// ProgressEvent is broadcast after every window, mirroring SPEC_FULL.md
// §12's `{window, hour_range_from, hour_range_to, objective, feasible,
// rounding_iters, coupler_iters}` payload.
type ProgressEvent struct {
	Window        int     `json:"window"`
	HourRangeFrom int     `json:"hour_range_from"`
	HourRangeTo   int     `json:"hour_range_to"`
	Objective     float64 `json:"objective"`
	Feasible      bool    `json:"feasible"`
	RoundingIters int     `json:"rounding_iters"`
	CouplerIters  int     `json:"coupler_iters"`
}

// ProgressBroadcaster pushes a ProgressEvent to whatever live dashboard
// is attached (package ops implements this over a websocket); nil means
// no broadcasting.
type ProgressBroadcaster interface {
	Broadcast(event ProgressEvent)
}

// InfeasibleError is returned when a window's MILP cannot be solved,
// per spec.md §4.11 step "if not check_feasible: dump ILP + MPS, abort".
type InfeasibleError struct {
	Window  int
	Status  modeling.Status
	MPSPath string
	ILPPath string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("simulate: window %d is %v; artifacts written to %s, %s", e.Window, e.Status, e.MPSPath, e.ILPPath)
}

// Config carries the options simulate.Run needs beyond what's already
// in system.SystemInput.Config.
type Config struct {
	RequestedSteps int
	RunID          string
	OutputFolder   string // where infeasibility ILP/MPS dumps are written
	SolverOptions  solver.Options

	UseRounding       bool
	RoundingStrategy  solver.RoundingStrategy
	RoundingThreshold float64
	RoundingMaxIter   int
}

// Simulator owns the pieces spec.md §4.11 sequences: the builder, the
// solver engine, an optional reservoir coupler, and optional
// persistence/progress hooks.
type Simulator struct {
	Sys     *system.SystemInput
	Builder *builder.ModelBuilder
	Engine  modeling.Solver
	Coupler *coupler.PowerWaterCoupler // nil disables reoperation

	Recorder Recorder            // nil disables persistence
	Progress ProgressBroadcaster // nil disables live progress

	Logger *log.Logger
}

// New wires a Simulator from its required pieces; Recorder, Progress,
// Coupler, and Logger are all optional (nil-safe).
func New(sys *system.SystemInput, slv modeling.Solver) *Simulator {
	return &Simulator{
		Sys:     sys,
		Builder: builder.NewModelBuilder(sys),
		Engine:  slv,
		Logger:  log.Default(),
	}
}

// Run executes the rolling-horizon loop for K = min(cfg.RequestedSteps,
// NumSimDays) windows and returns the accumulated SystemRecord.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*record.SystemRecord, error) {
	K := cfg.RequestedSteps
	if s.Sys.Config.NumSimDays < K {
		K = s.Sys.Config.NumSimDays
	}
	H := s.Sys.Config.SimHorizonHours

	rec := record.New(s.Sys)
	init := coldStartConditions(s.Sys)

	for k := 1; k <= K; k++ {
		var model *modeling.Model
		var err error
		if k == 1 {
			model, err = s.Builder.Build(k, init)
		} else {
			model, err = s.Builder.Update(k, init)
		}
		if err != nil {
			return rec, fmt.Errorf("simulate: window %d: assembling model: %w", k, err)
		}

		ps := solver.New(model, s.Engine)
		roundingIters := 0
		var sol *modeling.Solution
		if cfg.UseRounding {
			result, rerr := ps.OptimizeWithRounding(ctx, cfg.RoundingStrategy, cfg.RoundingThreshold, cfg.RoundingMaxIter)
			if rerr != nil {
				return rec, fmt.Errorf("simulate: window %d: rounding heuristic: %w", k, rerr)
			}
			sol = result.Solution
			roundingIters = result.Iterations
		} else {
			sol, err = ps.Optimize(ctx, cfg.SolverOptions)
			if err != nil {
				return rec, fmt.Errorf("simulate: window %d: optimize: %w", k, err)
			}
		}

		if !ps.CheckFeasible() {
			mpsPath, ilpPath, dumpErr := ps.WriteILPMPS(ctx, cfg.OutputFolder, infeasibleName(H, k))
			if dumpErr != nil {
				s.logf("window %d: failed to write infeasibility artifacts: %v", k, dumpErr)
			}
			if s.Recorder != nil {
				if perr := s.Recorder.PersistInfeasible(ctx, cfg.RunID, k, mpsPath, ilpPath, rec); perr != nil {
					s.logf("window %d: failed to persist infeasibility snapshot: %v", k, perr)
				}
			}
			s.broadcast(ProgressEvent{Window: k, HourRangeFrom: system.AbsoluteHour(1, k), HourRangeTo: system.AbsoluteHour(H, k), Feasible: false})
			return rec, &InfeasibleError{Window: k, Status: sol.Status, MPSPath: mpsPath, ILPPath: ilpPath}
		}

		couplerIters := 0
		if s.Coupler != nil {
			result, cerr := s.Coupler.Reoperate(ctx, k, H, s.Sys, s.Builder, ps)
			if cerr != nil {
				return rec, fmt.Errorf("simulate: window %d: coupler: %w", k, cerr)
			}
			couplerIters = result.Iterations
			sol = ps.GetSolution()
		}

		rec.RecordWindow(k, H, sol)
		init = rec.DeriveInitialConditions(k, H)

		if s.Recorder != nil {
			if perr := s.Recorder.PersistWindow(ctx, cfg.RunID, k, H, sol); perr != nil {
				s.logf("window %d: failed to persist solution: %v", k, perr)
			}
		}
		s.broadcast(ProgressEvent{
			Window:        k,
			HourRangeFrom: system.AbsoluteHour(1, k),
			HourRangeTo:   system.AbsoluteHour(H, k),
			Objective:     sol.Objective,
			Feasible:      true,
			RoundingIters: roundingIters,
			CouplerIters:  couplerIters,
		})
	}

	return rec, nil
}

// coldStartConditions seeds a zero-value InitialConditions per spec.md
// §4.10's cold-start rule, with storage at each unit's minimum state of
// charge (the distilled spec names no separate "initial SOC" input
// column, so the floor of its operating range is the documented
// starting point).
func coldStartConditions(sys *system.SystemInput) builder.InitialConditions {
	init := builder.NewInitialConditions()
	for name, u := range sys.Storage {
		init.StorageCharge[name] = u.MinStateOfCharge
	}
	return init
}

func infeasibleName(h, k int) string {
	return fmt.Sprintf("infeasible_model_%d_%d_%s", h, k, time.Now().Format("20060102_150405"))
}

func (s *Simulator) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *Simulator) broadcast(event ProgressEvent) {
	if s.Progress != nil {
		s.Progress.Broadcast(event)
	}
}
