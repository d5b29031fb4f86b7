// Package builder assembles the MILP that represents one rolling-horizon
// window: a ComponentBuilder per physical subsystem (thermal, hydro,
// non-dispatch, storage) plus a System builder that ties them together
// over the network, composed by the ModelBuilder facade.
package builder

import "github.com/devskill-org/pownet-sim/modeling"

// InitialConditions carries everything a builder needs from the end of
// the previous window to correctly constrain the first hours of the
// next one. A cold-start simulation uses the zero value except for
// StorageCharge, which simulate seeds from each unit's
// MinStateOfCharge.
type InitialConditions struct {
	ThermalDispatch  map[string]float64 // initial_p: dispatch above min capacity, by unit
	ThermalStatus    map[string]float64 // initial_u: 0/1
	ThermalStartup   map[string]float64 // initial_v: 0/1
	ThermalShutdown  map[string]float64 // initial_w: 0/1
	ThermalMinOnLeft map[string]int     // remaining mandatory on-hours
	ThermalMinOffLeft map[string]int    // remaining mandatory off-hours

	StorageCharge map[string]float64 // state of charge carried into hour 1
}

// NewInitialConditions returns a cold-start InitialConditions: every
// thermal unit off with no remaining min-up/min-down obligation, and
// every storage unit at 0 state of charge (callers that want a
// different starting SoC should overwrite StorageCharge afterward).
func NewInitialConditions() InitialConditions {
	return InitialConditions{
		ThermalDispatch:   make(map[string]float64),
		ThermalStatus:     make(map[string]float64),
		ThermalStartup:    make(map[string]float64),
		ThermalShutdown:   make(map[string]float64),
		ThermalMinOnLeft:  make(map[string]int),
		ThermalMinOffLeft: make(map[string]int),
		StorageCharge:     make(map[string]float64),
	}
}

// CrossRefs is the bundle of sibling variable-handle tables the System
// builder needs to write its own constraints (power balance, spinning
// reserve, curtailment). Each table is keyed [unit name][hour t] and is
// a live reference into the owning builder's own storage — System never
// copies these, so a Thermal update_variables call is immediately
// visible to System without any re-wiring step.
type CrossRefs struct {
	ThermalDispatch map[string]map[int]*modeling.Var // pthermal[g,t]
	ThermalPbar     map[string]map[int]*modeling.Var // pbar[g,t]
	ThermalStatus   map[string]map[int]*modeling.Var // status[g,t]
	ThermalSpin     map[string]map[int]*modeling.Var // spin[g,t], nil map if unused

	HydroDispatch map[string]map[int]*modeling.Var // phydro[g,t]

	Solar  map[string]map[int]*modeling.Var // psolar[g,t]
	Wind   map[string]map[int]*modeling.Var // pwind[g,t]
	Import map[string]map[int]*modeling.Var // pimp[g,t]

	StorageCharge    map[string]map[int]*modeling.Var // pcharge[s,t]
	StorageDischarge map[string]map[int]*modeling.Var // pdischarge[s,t]
	StorageState     map[string]map[int]*modeling.Var // charge_state[s,t]
}

// ComponentVariables is the read-only view a builder hands back via
// GetVariables, keyed the same way as CrossRefs' matching fields.
type ComponentVariables map[string]map[int]*modeling.Var

// ComponentBuilder is the contract every subsystem builder satisfies,
// per the window lifecycle the facade drives: variables, then
// objective terms, then constraints, on the first window; variables
// and constraints are narrowed/rebuilt (never re-created from scratch)
// on every later window.
type ComponentBuilder interface {
	// AddVariables creates this component's decision variables for
	// window k, with bounds drawn from constant parameters or window
	// k's slice of whatever timeseries apply.
	AddVariables(k int)

	// GetFixedObjectiveTerms returns cost terms whose coefficients do
	// not change across windows (e.g. fixed cost * rated capacity *
	// status). Called once, after the first AddVariables.
	GetFixedObjectiveTerms() *modeling.LinearExpr

	// GetVariableObjectiveTerms returns cost terms whose coefficients
	// are looked up from a timeseries at window k (fuel cost,
	// curtailment penalty).
	GetVariableObjectiveTerms(k int) *modeling.LinearExpr

	// AddConstraints assembles every constraint this component owns
	// for window k, given the previous window's InitialConditions and
	// (for the System builder only) its siblings' CrossRefs.
	AddConstraints(k int, init InitialConditions, refs CrossRefs) error

	// UpdateVariables re-bounds every variable whose upper bound came
	// from a timeseries, for the new window k. Constant-bound
	// variables are left untouched.
	UpdateVariables(k int)

	// UpdateConstraints removes and re-adds every constraint that
	// depends on window timeseries or the previous window's
	// InitialConditions; time-invariant constraints are left in place.
	UpdateConstraints(k int, init InitialConditions, refs CrossRefs) error

	// GetVariables exposes this component's variable tables for
	// siblings (chiefly System) to reference in their own constraints.
	GetVariables() ComponentVariables
}
