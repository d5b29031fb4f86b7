package builder

import (
	"fmt"
	"math"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

// SystemBuilder is the hardest single component: it ties every other
// builder's variables together over the network — spinning reserve,
// nodal power balance, DC-OPF, and curtailment of must-take units —
// per spec §4.6.
type SystemBuilder struct {
	model *modeling.Model
	sys   *system.SystemInput

	PosMismatch   map[string]map[int]*modeling.Var // node -> t
	NegMismatch   map[string]map[int]*modeling.Var
	SpinShortfall map[int]*modeling.Var

	FlowFwd map[[2]string]map[int]*modeling.Var // edge -> t
	FlowBwd map[[2]string]map[int]*modeling.Var
	Theta   map[string]map[int]*modeling.Var // node -> t, only if voltage_angle

	// Curtail holds one entry per must-take unit (thermal/hydro/solar/
	// wind/import, keyed by unit name) -> t.
	Curtail map[string]map[int]*modeling.Var
}

func NewSystemBuilder(model *modeling.Model, sys *system.SystemInput) *SystemBuilder {
	return &SystemBuilder{
		model:         model,
		sys:           sys,
		PosMismatch:   make(map[string]map[int]*modeling.Var),
		NegMismatch:   make(map[string]map[int]*modeling.Var),
		SpinShortfall: make(map[int]*modeling.Var),
		FlowFwd:       make(map[[2]string]map[int]*modeling.Var),
		FlowBwd:       make(map[[2]string]map[int]*modeling.Var),
		Theta:         make(map[string]map[int]*modeling.Var),
		Curtail:       make(map[string]map[int]*modeling.Var),
	}
}

func (b *SystemBuilder) AddVariables(k int) {
	H := b.sys.Config.SimHorizonHours
	for _, node := range b.sys.NodeNames() {
		b.PosMismatch[node] = make(map[int]*modeling.Var, H)
		b.NegMismatch[node] = make(map[int]*modeling.Var, H)
		for t := 1; t <= H; t++ {
			b.PosMismatch[node][t] = b.model.AddVar(fmt.Sprintf("pos_mismatch[%s,%d]", node, t), modeling.Continuous, 0, math.MaxFloat64/2)
			b.NegMismatch[node][t] = b.model.AddVar(fmt.Sprintf("neg_mismatch[%s,%d]", node, t), modeling.Continuous, 0, math.MaxFloat64/2)
		}
		if b.sys.Config.DCOPF == "voltage_angle" {
			b.Theta[node] = make(map[int]*modeling.Var, H)
			for t := 1; t <= H; t++ {
				b.Theta[node][t] = b.model.AddVar(fmt.Sprintf("theta[%s,%d]", node, t), modeling.Continuous, -math.Pi, math.Pi)
			}
		}
	}
	for t := 1; t <= H; t++ {
		b.SpinShortfall[t] = b.model.AddVar(fmt.Sprintf("spin_shortfall[%d]", t), modeling.Continuous, 0, math.MaxFloat64/2)
	}
	for _, e := range b.sys.Edges {
		key := e.Key()
		b.FlowFwd[key] = make(map[int]*modeling.Var, H)
		b.FlowBwd[key] = make(map[int]*modeling.Var, H)
		for t := 1; t <= H; t++ {
			ub := flowUB(b.sys, e, t, k)
			b.FlowFwd[key][t] = b.model.AddVar(fmt.Sprintf("flow_fwd[%s-%s,%d]", e.Source, e.Sink, t), modeling.Continuous, 0, ub)
			b.FlowBwd[key][t] = b.model.AddVar(fmt.Sprintf("flow_bwd[%s-%s,%d]", e.Source, e.Sink, t), modeling.Continuous, 0, ub)
		}
	}
	b.addCurtailVariables(k)
}

func flowUB(sys *system.SystemInput, e *system.Edge, t, k int) float64 {
	h := system.AbsoluteHour(t, k)
	if h < 1 || h > len(e.LineCapacity) {
		return 0
	}
	return sys.Config.LineCapacityFactor * e.LineCapacity[h-1]
}

func (b *SystemBuilder) addCurtailVariables(k int) {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Thermal {
		if !u.MustTake {
			continue
		}
		b.Curtail[name] = make(map[int]*modeling.Var, H)
		for t := 1; t <= H; t++ {
			b.Curtail[name][t] = b.model.AddVar(fmt.Sprintf("curtail[%s,%d]", name, t), modeling.Continuous, 0, pbarUpperBound(u, b.sys, t, k)+u.MinCapacity)
		}
	}
	for name, u := range b.sys.Hydro {
		if !u.MustTake {
			continue
		}
		b.Curtail[name] = make(map[int]*modeling.Var, H)
		for t := 1; t <= H; t++ {
			b.Curtail[name][t] = b.model.AddVar(fmt.Sprintf("curtail[%s,%d]", name, t), modeling.Continuous, 0, u.ContractedCapacity)
		}
	}
	for name, u := range b.sys.NonDispatch {
		if !u.MustTake {
			continue
		}
		b.Curtail[name] = make(map[int]*modeling.Var, H)
		for t := 1; t <= H; t++ {
			b.Curtail[name][t] = b.model.AddVar(fmt.Sprintf("curtail[%s,%d]", name, t), modeling.Continuous, 0, availabilityUB(u, b.sys, t, k))
		}
	}
}

func (b *SystemBuilder) GetFixedObjectiveTerms() *modeling.LinearExpr {
	expr := modeling.NewExpr(0)
	H := b.sys.Config.SimHorizonHours
	for _, node := range b.sys.NodeNames() {
		for t := 1; t <= H; t++ {
			expr.Term(b.PosMismatch[node][t], b.sys.Config.LoadShortfallPenaltyFactor)
			expr.Term(b.NegMismatch[node][t], b.sys.Config.LoadCurtailPenaltyFactor)
		}
	}
	for t := 1; t <= H; t++ {
		expr.Term(b.SpinShortfall[t], b.sys.Config.SpinShortfallPenaltyFactor)
	}
	return expr
}

// GetVariableObjectiveTerms applies the curtailment penalty: each
// must-take unit's curtailed MW is penalized at the marginal cost it
// would have earned if dispatched, scaled by CurtailPenaltyScale, so
// the solver only curtails when physically forced to.
func (b *SystemBuilder) GetVariableObjectiveTerms(k int) *modeling.LinearExpr {
	expr := modeling.NewExpr(0)
	H := b.sys.Config.SimHorizonHours
	scale := b.sys.Config.CurtailPenaltyScale

	for name, u := range b.sys.Thermal {
		v, ok := b.Curtail[name]
		if !ok {
			continue
		}
		contract := b.sys.Contracts[u.Contract]
		for t := 1; t <= H; t++ {
			h := system.AbsoluteHour(t, k)
			coef := (contract.CostAt(h)*u.HeatRate + u.OperationCost) * scale
			expr.Term(v[t], coef)
		}
	}
	for name, u := range b.sys.Hydro {
		v, ok := b.Curtail[name]
		if !ok {
			continue
		}
		contract := b.sys.Contracts[u.Contract]
		for t := 1; t <= H; t++ {
			expr.Term(v[t], contract.CostAt(system.AbsoluteHour(t, k))*scale)
		}
	}
	for name, u := range b.sys.NonDispatch {
		v, ok := b.Curtail[name]
		if !ok {
			continue
		}
		contract := b.sys.Contracts[u.Contract]
		for t := 1; t <= H; t++ {
			expr.Term(v[t], contract.CostAt(system.AbsoluteHour(t, k))*scale)
		}
	}
	return expr
}

func (b *SystemBuilder) AddConstraints(k int, init InitialConditions, refs CrossRefs) error {
	if err := b.addSpinReserve(k, refs); err != nil {
		return err
	}
	b.addPowerBalance(k, refs)
	if err := b.addDCOPF(k); err != nil {
		return err
	}
	b.addCurtailBalance(k, refs)
	return nil
}

func (b *SystemBuilder) UpdateVariables(k int) {
	H := b.sys.Config.SimHorizonHours
	for _, e := range b.sys.Edges {
		key := e.Key()
		for t := 1; t <= H; t++ {
			ub := flowUB(b.sys, e, t, k)
			b.FlowFwd[key][t].Upper = ub
			b.FlowBwd[key][t].Upper = ub
		}
	}
	for name, u := range b.sys.Thermal {
		if v, ok := b.Curtail[name]; ok {
			for t := 1; t <= H; t++ {
				v[t].Upper = pbarUpperBound(u, b.sys, t, k) + u.MinCapacity
			}
		}
	}
	for name, u := range b.sys.NonDispatch {
		if v, ok := b.Curtail[name]; ok {
			for t := 1; t <= H; t++ {
				v[t].Upper = availabilityUB(u, b.sys, t, k)
			}
		}
	}
}

func (b *SystemBuilder) UpdateConstraints(k int, init InitialConditions, refs CrossRefs) error {
	for t := 1; t <= b.sys.Config.SimHorizonHours; t++ {
		b.model.RemoveConstraint(fmt.Sprintf("spin_reserve[%d]", t))
	}
	for _, node := range b.sys.NodeNames() {
		for t := 1; t <= b.sys.Config.SimHorizonHours; t++ {
			b.model.RemoveConstraint(fmt.Sprintf("power_balance[%s,%d]", node, t))
		}
	}
	for name := range b.Curtail {
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("curtail_balance[%s,", name))
	}
	b.model.RemoveConstraintsWithPrefix("theta_ref[")
	b.model.RemoveConstraintsWithPrefix("dcopf_angle[")
	b.model.RemoveConstraintsWithPrefix("dcopf_kirchhoff[")

	if err := b.addSpinReserve(k, refs); err != nil {
		return err
	}
	b.addPowerBalance(k, refs)
	if err := b.addDCOPF(k); err != nil {
		return err
	}
	b.addCurtailBalance(k, refs)
	return nil
}

func (b *SystemBuilder) addSpinReserve(k int, refs CrossRefs) error {
	H := b.sys.Config.SimHorizonHours
	for t := 1; t <= H; t++ {
		h := system.AbsoluteHour(t, k)
		var req float64
		if h >= 1 && h <= len(b.sys.SpinRequirement) {
			req = b.sys.SpinRequirement[h-1]
		}
		expr := modeling.NewExpr(0).Term(b.SpinShortfall[t], 1)
		if b.sys.Config.UseSpinVar {
			for name, series := range refs.ThermalSpin {
				expr.Term(series[t], 1)
				_ = name
			}
			for name, series := range refs.StorageState {
				expr.Term(series[t], 1)
				_ = name
			}
		} else {
			for name, series := range refs.ThermalPbar {
				u := b.sys.Thermal[name]
				expr.Term(series[t], 1).Term(refs.ThermalStatus[name][t], u.MinCapacity)
			}
			for name, series := range refs.StorageState {
				expr.Term(series[t], 1)
				_ = name
			}
			req += b.totalDemand(h)
		}
		b.model.AddConstraint(fmt.Sprintf("spin_reserve[%d]", t), expr, modeling.GE, req)
	}
	return nil
}

func (b *SystemBuilder) totalDemand(h int) float64 {
	return b.sys.TotalDemand(h)
}

// addPowerBalance is the nodal power-flow balance: generation (after
// generator losses) + net incoming flow (after line losses) + mismatch
// + storage discharge at the node = demand + storage charge at the node.
func (b *SystemBuilder) addPowerBalance(k int, refs CrossRefs) {
	H := b.sys.Config.SimHorizonHours
	genLoss := 1 - b.sys.Config.GenLossFactor
	lineLoss := 1 - b.sys.Config.LineLossFactor

	for _, node := range b.sys.NodeNames() {
		for t := 1; t <= H; t++ {
			h := system.AbsoluteHour(t, k)
			expr := modeling.NewExpr(0)

			for _, gname := range b.sys.NodeGenerators[node] {
				if series, ok := refs.ThermalDispatch[gname]; ok {
					expr.Term(series[t], genLoss)
				}
				if series, ok := refs.HydroDispatch[gname]; ok {
					expr.Term(series[t], genLoss)
				}
				if series, ok := refs.Solar[gname]; ok {
					expr.Term(series[t], genLoss)
				}
				if series, ok := refs.Wind[gname]; ok {
					expr.Term(series[t], genLoss)
				}
				if series, ok := refs.Import[gname]; ok {
					expr.Term(series[t], genLoss)
				}
			}

			for _, e := range b.sys.NodeEdges[node] {
				key := e.Key()
				netFwd := modeling.NewExpr(0).Term(b.FlowFwd[key][t], 1).Term(b.FlowBwd[key][t], -1)
				if e.Source == node {
					expr.Add(netFwd, -1) // flow leaves at unity
				} else {
					expr.Add(netFwd, lineLoss) // flow arrives, derated by line loss
				}
			}

			for sname, u := range b.sys.Storage {
				attachedHere := (u.AttachToNode == node)
				if attachedHere {
					expr.Term(refs.StorageDischarge[sname][t], 1)
					expr.Term(refs.StorageCharge[sname][t], -1)
				}
			}

			expr.Term(b.PosMismatch[node][t], 1).Term(b.NegMismatch[node][t], -1)

			demand := 0.0
			if series, ok := b.sys.Demand[node]; ok && h >= 1 && h <= len(series) {
				demand = series[h-1]
			}
			b.model.AddConstraint(fmt.Sprintf("power_balance[%s,%d]", node, t), expr, modeling.EQ, demand)
		}
	}
}

func (b *SystemBuilder) addDCOPF(k int) error {
	H := b.sys.Config.SimHorizonHours
	switch b.sys.Config.DCOPF {
	case "voltage_angle":
		ref := b.sys.ReferenceNode()
		if ref == "" {
			return fmt.Errorf("voltage-angle DC-OPF requires a reference bus")
		}
		for t := 1; t <= H; t++ {
			b.model.AddConstraint(fmt.Sprintf("theta_ref[%d]", t),
				modeling.NewExpr(0).Term(b.Theta[ref][t], 1), modeling.EQ, 0)
		}
		for _, e := range b.sys.Edges {
			key := e.Key()
			for t := 1; t <= H; t++ {
				h := system.AbsoluteHour(t, k)
				var susceptance float64
				if h >= 1 && h <= len(e.Susceptance) {
					susceptance = e.Susceptance[h-1]
				}
				expr := modeling.NewExpr(0).
					Term(b.FlowFwd[key][t], 1).Term(b.FlowBwd[key][t], -1).
					Term(b.Theta[e.Source][t], -susceptance).
					Term(b.Theta[e.Sink][t], susceptance)
				b.model.AddConstraint(fmt.Sprintf("dcopf_angle[%s-%s,%d]", e.Source, e.Sink, t), expr, modeling.EQ, 0)
			}
		}
	case "kirchhoff":
		for ci, cycle := range b.sys.CycleBasis() {
			for t := 1; t <= H; t++ {
				expr := modeling.NewExpr(0)
				h := system.AbsoluteHour(t, k)
				for i := 0; i < len(cycle); i++ {
					a, bNode := cycle[i], cycle[(i+1)%len(cycle)]
					e, forward, ok := b.sys.EdgeBetween(a, bNode)
					if !ok {
						continue
					}
					var reactance float64
					if h >= 1 && h <= len(e.Susceptance) && e.Susceptance[h-1] != 0 {
						reactance = 1 / e.Susceptance[h-1]
					}
					sign := 1.0
					if !forward {
						sign = -1.0
					}
					key := e.Key()
					expr.Term(b.FlowFwd[key][t], sign*reactance).Term(b.FlowBwd[key][t], -sign*reactance)
				}
				b.model.AddConstraint(fmt.Sprintf("dcopf_kirchhoff[%d,%d]", ci, t), expr, modeling.EQ, 0)
			}
		}
	default:
		return fmt.Errorf("unknown dc_opf formulation %q", b.sys.Config.DCOPF)
	}
	return nil
}

// addCurtailBalance links each must-take unit's dispatch, curtailment,
// and any co-located storage charge back to its full capacity.
func (b *SystemBuilder) addCurtailBalance(k int, refs CrossRefs) {
	H := b.sys.Config.SimHorizonHours
	for name, series := range b.Curtail {
		dispatch, cap := b.dispatchAndCapacityRefs(name, refs)
		if dispatch == nil {
			continue
		}
		for t := 1; t <= H; t++ {
			h := system.AbsoluteHour(t, k)
			expr := modeling.NewExpr(0).Term(dispatch[t], 1).Term(series[t], 1)
			for sname, u := range b.sys.Storage {
				if u.AttachToGenerator == name {
					expr.Term(refs.StorageCharge[sname][t], 1)
				}
			}
			b.model.AddConstraint(fmt.Sprintf("curtail_balance[%s,%d]", name, t), expr, modeling.EQ, cap(h))
		}
	}
}

// dispatchAndCapacityRefs returns the dispatch variable table for a
// must-take unit and a function computing its full (uncurtailed)
// available capacity at a given absolute hour.
func (b *SystemBuilder) dispatchAndCapacityRefs(name string, refs CrossRefs) (map[int]*modeling.Var, func(h int) float64) {
	if u, ok := b.sys.Thermal[name]; ok {
		return refs.ThermalDispatch[name], func(h int) float64 {
			if h >= 1 && h <= len(u.DeratedCapacity) {
				return u.DeratedCapacity[h-1]
			}
			return 0
		}
	}
	if u, ok := b.sys.Hydro[name]; ok {
		return refs.HydroDispatch[name], func(h int) float64 { return u.ContractedCapacity }
	}
	if u, ok := b.sys.NonDispatch[name]; ok {
		var table map[string]map[int]*modeling.Var
		switch u.Kind {
		case system.Solar:
			table = refs.Solar
		case system.Wind:
			table = refs.Wind
		case system.Import:
			table = refs.Import
		}
		return table[name], func(h int) float64 {
			if h >= 1 && h <= len(u.CapacityTimeseries) {
				return u.CapacityTimeseries[h-1]
			}
			return 0
		}
	}
	return nil, nil
}

func (b *SystemBuilder) GetVariables() ComponentVariables {
	return ComponentVariables(b.PosMismatch)
}

var _ ComponentBuilder = (*SystemBuilder)(nil)
