package builder

import (
	"fmt"
	"time"

	"github.com/devskill-org/pownet-sim/forecast"
	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

// NonDispatchBuilder owns solar, wind, and import dispatch variables,
// each upper-bounded by its hourly availability timeseries and,
// separately, its contracted-capacity cap, per spec §4.4.
type NonDispatchBuilder struct {
	model *modeling.Model
	sys   *system.SystemInput

	P      map[string]map[int]*modeling.Var // dispatch, keyed by unit name across all three kinds
	Status map[string]map[int]*modeling.Var // optional on/off indicator, nil entries if unused
}

func NewNonDispatchBuilder(model *modeling.Model, sys *system.SystemInput) *NonDispatchBuilder {
	return &NonDispatchBuilder{
		model:  model,
		sys:    sys,
		P:      make(map[string]map[int]*modeling.Var),
		Status: make(map[string]map[int]*modeling.Var),
	}
}

func (b *NonDispatchBuilder) AddVariables(k int) {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.NonDispatch {
		b.P[name] = make(map[int]*modeling.Var, H)
		if u.HasStatusIndicator {
			b.Status[name] = make(map[int]*modeling.Var, H)
		}
		for t := 1; t <= H; t++ {
			ub := availabilityUB(u, b.sys, t, k)
			b.P[name][t] = b.model.AddVar(fmt.Sprintf("p%s[%s,%d]", u.Kind, name, t), modeling.Continuous, 0, ub)
			if u.HasStatusIndicator {
				b.Status[name][t] = b.model.AddVar(fmt.Sprintf("u%s[%s,%d]", u.Kind, name, t), modeling.Binary, 0, 1)
			}
		}
	}
}

func availabilityUB(u *system.NonDispatchUnit, sys *system.SystemInput, t, k int) float64 {
	h := system.AbsoluteHour(t, k)
	ub := 0.0
	switch {
	case h >= 1 && h <= len(u.CapacityTimeseries):
		ub = u.CapacityTimeseries[h-1]
	case u.Kind == system.Solar && u.Lat != 0 && u.Lon != 0 && !sys.StartTime.IsZero():
		// Past the recorded solar.csv series: fall back to a
		// sun-position/cloud-cover estimate instead of clamping to 0.
		hourTime := sys.StartTime.Add(time.Duration(h-1) * time.Hour)
		cloud := forecast.CloudCoverageAt(sys.CloudForecast, hourTime)
		ub = forecast.SolarCapacity(u.Lat, u.Lon, hourTime, cloud, u.RatedCapacity)
	}
	if u.ContractedCapacity >= 0 && u.ContractedCapacity < ub {
		ub = u.ContractedCapacity
	}
	return ub
}

func (b *NonDispatchBuilder) GetFixedObjectiveTerms() *modeling.LinearExpr {
	return modeling.NewExpr(0)
}

func (b *NonDispatchBuilder) GetVariableObjectiveTerms(k int) *modeling.LinearExpr {
	expr := modeling.NewExpr(0)
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.NonDispatch {
		contract := b.sys.Contracts[u.Contract]
		for t := 1; t <= H; t++ {
			h := system.AbsoluteHour(t, k)
			expr.Term(b.P[name][t], contract.CostAt(h))
		}
	}
	return expr
}

func (b *NonDispatchBuilder) AddConstraints(k int, init InitialConditions, refs CrossRefs) error {
	return b.addContractedCapConstraints(k, true)
}

func (b *NonDispatchBuilder) UpdateVariables(k int) {
	for name, u := range b.sys.NonDispatch {
		H := b.sys.Config.SimHorizonHours
		for t := 1; t <= H; t++ {
			b.P[name][t].Upper = availabilityUB(u, b.sys, t, k)
		}
	}
}

func (b *NonDispatchBuilder) UpdateConstraints(k int, init InitialConditions, refs CrossRefs) error {
	return b.addContractedCapConstraints(k, false)
}

// addContractedCapConstraints adds the status-linkage constraint
// (p <= contracted_cap * u) for units with a status indicator. It is
// time-invariant (the cap is static), so it is only (re)added on first
// build; update only narrows the variable upper bound.
func (b *NonDispatchBuilder) addContractedCapConstraints(k int, first bool) error {
	if !first {
		return nil
	}
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.NonDispatch {
		if !u.HasStatusIndicator || u.ContractedCapacity < 0 {
			continue
		}
		for t := 1; t <= H; t++ {
			b.model.AddConstraint(fmt.Sprintf("nondispatch_status_link[%s,%d]", name, t),
				modeling.NewExpr(0).Term(b.P[name][t], 1).Term(b.Status[name][t], -u.ContractedCapacity), modeling.LE, 0)
		}
	}
	return nil
}

func (b *NonDispatchBuilder) GetVariables() ComponentVariables {
	return ComponentVariables(b.P)
}

// ByKind returns the dispatch-variable table restricted to units of one
// NonDispatchKind, used by System builder to wire psolar/pwind/pimp into
// CrossRefs separately per spec §4.6's curtailment handling.
func (b *NonDispatchBuilder) ByKind(kind system.NonDispatchKind) map[string]map[int]*modeling.Var {
	out := make(map[string]map[int]*modeling.Var)
	for name, u := range b.sys.NonDispatch {
		if u.Kind == kind {
			out[name] = b.P[name]
		}
	}
	return out
}

var _ ComponentBuilder = (*NonDispatchBuilder)(nil)
