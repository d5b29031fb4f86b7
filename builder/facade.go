package builder

import (
	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

// ModelBuilder composes the five component builders against one shared
// modeling.Model, per spec §4.7: a fixed ordering of variables,
// objective, then cross-component constraints on every Build/Update
// call.
type ModelBuilder struct {
	sys *system.SystemInput

	Thermal     *ThermalBuilder
	Hydro       *HydroBuilder
	NonDispatch *NonDispatchBuilder
	Storage     *StorageBuilder
	System      *SystemBuilder

	model      *modeling.Model
	fixedTerms *modeling.LinearExpr // cached across Update calls
}

// NewModelBuilder creates the five sub-builders against a fresh Model.
// Build must be called before any other method.
func NewModelBuilder(sys *system.SystemInput) *ModelBuilder {
	model := modeling.NewModel("pownet")
	return &ModelBuilder{
		sys:         sys,
		model:       model,
		Thermal:     NewThermalBuilder(model, sys),
		Hydro:       NewHydroBuilder(model, sys),
		NonDispatch: NewNonDispatchBuilder(model, sys),
		Storage:     NewStorageBuilder(model, sys),
		System:      NewSystemBuilder(model, sys),
	}
}

func (mb *ModelBuilder) components() []ComponentBuilder {
	return []ComponentBuilder{mb.Thermal, mb.Hydro, mb.NonDispatch, mb.Storage}
}

func (mb *ModelBuilder) crossRefs() CrossRefs {
	return CrossRefs{
		ThermalDispatch: mb.Thermal.Pthermal,
		ThermalPbar:     mb.Thermal.Pbar,
		ThermalStatus:   mb.Thermal.Status,
		ThermalSpin:     mb.Thermal.Spin,

		HydroDispatch: mb.Hydro.Phydro,

		Solar:  mb.NonDispatch.ByKind(system.Solar),
		Wind:   mb.NonDispatch.ByKind(system.Wind),
		Import: mb.NonDispatch.ByKind(system.Import),

		StorageCharge:    mb.Storage.Pcharge,
		StorageDischarge: mb.Storage.Pdischarge,
		StorageState:     mb.Storage.ChargeState,
	}
}

// Build assembles window k=1's model: every component's variables,
// then the combined objective, then every component's constraints,
// System last so it can reference its siblings' variable handles.
func (mb *ModelBuilder) Build(k int, init InitialConditions) (*modeling.Model, error) {
	for _, c := range mb.components() {
		c.AddVariables(k)
	}
	mb.System.AddVariables(k)

	fixed := modeling.NewExpr(0)
	variable := modeling.NewExpr(0)
	for _, c := range mb.components() {
		fixed.Add(c.GetFixedObjectiveTerms(), 1)
		variable.Add(c.GetVariableObjectiveTerms(k), 1)
	}
	fixed.Add(mb.System.GetFixedObjectiveTerms(), 1)
	variable.Add(mb.System.GetVariableObjectiveTerms(k), 1)
	mb.fixedTerms = fixed

	objective := fixed.Clone().Add(variable, 1)
	mb.model.SetObjective(objective, modeling.Minimize)

	refs := mb.crossRefs()
	for _, c := range mb.components() {
		if err := c.AddConstraints(k, init, refs); err != nil {
			return nil, err
		}
	}
	if err := mb.System.AddConstraints(k, init, refs); err != nil {
		return nil, err
	}
	return mb.model, nil
}

// Update narrows/rebuilds the model for window k>1: re-bound
// timeseries-driven variables, re-add timeseries/init-dependent
// constraints, and rebuild only the variable half of the objective
// (the fixed half is cached from Build).
func (mb *ModelBuilder) Update(k int, init InitialConditions) (*modeling.Model, error) {
	for _, c := range mb.components() {
		c.UpdateVariables(k)
	}
	mb.System.UpdateVariables(k)

	variable := modeling.NewExpr(0)
	for _, c := range mb.components() {
		variable.Add(c.GetVariableObjectiveTerms(k), 1)
	}
	variable.Add(mb.System.GetVariableObjectiveTerms(k), 1)

	objective := mb.fixedTerms.Clone().Add(variable, 1)
	mb.model.SetObjective(objective, modeling.Minimize)

	refs := mb.crossRefs()
	for _, c := range mb.components() {
		if err := c.UpdateConstraints(k, init, refs); err != nil {
			return nil, err
		}
	}
	if err := mb.System.UpdateConstraints(k, init, refs); err != nil {
		return nil, err
	}
	return mb.model, nil
}

// Model returns the shared underlying model, for callers (the solver
// wrapper, the rounding heuristic) that need direct access.
func (mb *ModelBuilder) Model() *modeling.Model { return mb.model }
