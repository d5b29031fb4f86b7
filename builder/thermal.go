package builder

import (
	"fmt"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

// ThermalBuilder owns every thermal-unit variable and constraint:
// dispatch decomposition, the status/startup/shutdown state machine,
// minimum up/down time, and ramp limits, per spec §4.2.
type ThermalBuilder struct {
	model *modeling.Model
	sys   *system.SystemInput

	Pthermal map[string]map[int]*modeling.Var
	P        map[string]map[int]*modeling.Var
	Pbar     map[string]map[int]*modeling.Var
	Status   map[string]map[int]*modeling.Var
	Startup  map[string]map[int]*modeling.Var
	Shutdown map[string]map[int]*modeling.Var
	Spin     map[string]map[int]*modeling.Var // nil entries if UseSpinVar is false
}

// NewThermalBuilder returns a builder ready for AddVariables.
func NewThermalBuilder(model *modeling.Model, sys *system.SystemInput) *ThermalBuilder {
	return &ThermalBuilder{
		model:    model,
		sys:      sys,
		Pthermal: make(map[string]map[int]*modeling.Var),
		P:        make(map[string]map[int]*modeling.Var),
		Pbar:     make(map[string]map[int]*modeling.Var),
		Status:   make(map[string]map[int]*modeling.Var),
		Startup:  make(map[string]map[int]*modeling.Var),
		Shutdown: make(map[string]map[int]*modeling.Var),
		Spin:     make(map[string]map[int]*modeling.Var),
	}
}

func (b *ThermalBuilder) AddVariables(k int) {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Thermal {
		b.Pthermal[name] = make(map[int]*modeling.Var, H)
		b.P[name] = make(map[int]*modeling.Var, H)
		b.Pbar[name] = make(map[int]*modeling.Var, H)
		b.Status[name] = make(map[int]*modeling.Var, H)
		b.Startup[name] = make(map[int]*modeling.Var, H)
		b.Shutdown[name] = make(map[int]*modeling.Var, H)
		if b.sys.Config.UseSpinVar {
			b.Spin[name] = make(map[int]*modeling.Var, H)
		}
		for t := 1; t <= H; t++ {
			pbarUB := pbarUpperBound(u, b.sys, t, k)
			b.Pthermal[name][t] = b.model.AddVar(fmt.Sprintf("pthermal[%s,%d]", name, t), modeling.Continuous, 0, pbarUB+u.MinCapacity)
			b.P[name][t] = b.model.AddVar(fmt.Sprintf("p[%s,%d]", name, t), modeling.Continuous, 0, pbarUB)
			b.Pbar[name][t] = b.model.AddVar(fmt.Sprintf("pbar[%s,%d]", name, t), modeling.Continuous, 0, pbarUB)
			b.Status[name][t] = b.model.AddVar(fmt.Sprintf("status[%s,%d]", name, t), modeling.Binary, 0, 1)
			b.Startup[name][t] = b.model.AddVar(fmt.Sprintf("startup[%s,%d]", name, t), modeling.Binary, 0, 1)
			b.Shutdown[name][t] = b.model.AddVar(fmt.Sprintf("shutdown[%s,%d]", name, t), modeling.Binary, 0, 1)
			if b.sys.Config.UseSpinVar {
				b.Spin[name][t] = b.model.AddVar(fmt.Sprintf("spin[%s,%d]", name, t), modeling.Continuous, 0, pbarUB)
			}
		}
	}
}

// pbarUpperBound returns derated capacity above minimum capacity at
// absolute hour t+(k-1)*24, the shared upper bound for p/pbar/spin;
// pthermal, which includes the minimum-capacity block, is bounded by
// this value plus MinCapacity.
func pbarUpperBound(u *system.ThermalUnit, sys *system.SystemInput, t, k int) float64 {
	h := system.AbsoluteHour(t, k)
	if h < 1 || h > len(u.DeratedCapacity) {
		return 0
	}
	ub := u.DeratedCapacity[h-1] - u.MinCapacity
	if ub < 0 {
		return 0
	}
	return ub
}

func (b *ThermalBuilder) GetFixedObjectiveTerms() *modeling.LinearExpr {
	expr := modeling.NewExpr(0)
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Thermal {
		rated := u.RatedCapacity()
		for t := 1; t <= H; t++ {
			expr.Term(b.Status[name][t], rated*u.FixedCostPerMW)
			expr.Term(b.Startup[name][t], rated*u.StartupCostPerMW)
		}
	}
	return expr
}

func (b *ThermalBuilder) GetVariableObjectiveTerms(k int) *modeling.LinearExpr {
	expr := modeling.NewExpr(0)
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Thermal {
		contract := b.sys.Contracts[u.Contract]
		for t := 1; t <= H; t++ {
			h := system.AbsoluteHour(t, k)
			fuelCost := contract.CostAt(h)
			coef := fuelCost*u.HeatRate + u.OperationCost
			expr.Term(b.Pthermal[name][t], coef)
		}
	}
	return expr
}

func (b *ThermalBuilder) AddConstraints(k int, init InitialConditions, refs CrossRefs) error {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Thermal {
		if err := b.addUnitConstraints(name, u, H, k, init, true); err != nil {
			return err
		}
	}
	return nil
}

func (b *ThermalBuilder) UpdateVariables(k int) {
	for name, u := range b.sys.Thermal {
		H := b.sys.Config.SimHorizonHours
		for t := 1; t <= H; t++ {
			ub := pbarUpperBound(u, b.sys, t, k)
			b.Pthermal[name][t].Upper = ub + u.MinCapacity
			b.P[name][t].Upper = ub
			b.Pbar[name][t].Upper = ub
			if b.sys.Config.UseSpinVar {
				b.Spin[name][t].Upper = ub
			}
		}
	}
}

func (b *ThermalBuilder) UpdateConstraints(k int, init InitialConditions, refs CrossRefs) error {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Thermal {
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("thermal_upper_bound[%s,", name))
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("thermal_logical[%s,", name))
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("thermal_min_up_init[%s", name))
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("thermal_min_down_init[%s", name))
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("thermal_ramp_up[%s,", name))
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("thermal_ramp_down[%s,", name))
		if err := b.addUnitConstraints(name, u, H, k, init, false); err != nil {
			return err
		}
	}
	return nil
}

// addUnitConstraints builds every constraint for one unit. first
// controls whether the constraints that are truly time-invariant
// (dispatch decomposition, spin linkage, min-up/down rolling sums) are
// added; they are skipped on update since they never depend on k or
// init. The min-up/min-down initial-carryover constraints depend on
// init.ThermalMinOnLeft/MinOffLeft, which change every window, so they
// are rebuilt unconditionally regardless of first.
func (b *ThermalBuilder) addUnitConstraints(name string, u *system.ThermalUnit, H, k int, init InitialConditions, first bool) error {
	initU := init.ThermalStatus[name]
	initP := init.ThermalDispatch[name]
	minOnLeft := init.ThermalMinOnLeft[name]
	minOffLeft := init.ThermalMinOffLeft[name]
	su := u.EffectiveStartupRate()
	sd := u.EffectiveShutdownRate()

	for t := 1; t <= H; t++ {
		status, startup, shutdown := b.Status[name][t], b.Startup[name][t], b.Shutdown[name][t]
		pthermal, p, pbar := b.Pthermal[name][t], b.P[name][t], b.Pbar[name][t]

		// Logical linkage: status_t - status_{t-1} = startup_t - shutdown_t.
		logical := modeling.NewExpr(0).Term(status, 1).Term(startup, -1).Term(shutdown, 1)
		rhs := 0.0
		if t == 1 {
			rhs = initU
		} else {
			logical.Term(b.Status[name][t-1], -1)
		}
		b.model.AddConstraint(fmt.Sprintf("thermal_logical[%s,%d]", name, t), logical, modeling.EQ, rhs)

		b.model.AddConstraint(fmt.Sprintf("thermal_upper_bound[%s,%d]", name, t),
			modeling.NewExpr(0).Term(pbar, 1).Term(status, -pbarUpperBound(u, b.sys, t, k)), modeling.LE, 0)

		if first {
			b.model.AddConstraint(fmt.Sprintf("thermal_dispatch[%s,%d]", name, t),
				modeling.NewExpr(0).Term(pthermal, 1).Term(p, -1).Term(status, -u.MinCapacity), modeling.EQ, 0)

			if b.sys.Config.UseSpinVar {
				b.model.AddConstraint(fmt.Sprintf("thermal_spin_link[%s,%d]", name, t),
					modeling.NewExpr(0).Term(pbar, 1).Term(p, -1).Term(b.Spin[name][t], -1), modeling.EQ, 0)
			} else {
				b.model.AddConstraint(fmt.Sprintf("thermal_spin_min[%s,%d]", name, t),
					modeling.NewExpr(0).Term(pbar, 1).Term(p, -1), modeling.GE, 0)
			}
		}

		// Ramp-up: pbar[t] - p[t-1] <= (SU-P-RU)*startup[t] + RU*status[t].
		rampUpRHS := su - u.MinCapacity - u.RampUp
		if t == 1 {
			b.model.AddConstraint(fmt.Sprintf("thermal_ramp_up[%s,%d]", name, t),
				modeling.NewExpr(0).Term(pbar, 1).Term(startup, -rampUpRHS).Term(status, -u.RampUp), modeling.LE, initP)
		} else {
			b.model.AddConstraint(fmt.Sprintf("thermal_ramp_up[%s,%d]", name, t),
				modeling.NewExpr(0).Term(pbar, 1).Term(b.P[name][t-1], -1).Term(startup, -rampUpRHS).Term(status, -u.RampUp), modeling.LE, 0)
		}

		// Ramp-down: p[t-1] - p[t] <= (SD-P-RD)*shutdown[t] + RD*status[t-1].
		rampDownRHS := sd - u.MinCapacity - u.RampDown
		if t == 1 {
			b.model.AddConstraint(fmt.Sprintf("thermal_ramp_down[%s,%d]", name, t),
				modeling.NewExpr(0).Term(p, -1).Term(shutdown, -rampDownRHS), modeling.LE, u.RampDown*initU-initP)
		} else {
			b.model.AddConstraint(fmt.Sprintf("thermal_ramp_down[%s,%d]", name, t),
				modeling.NewExpr(0).Term(p, -1).Term(b.P[name][t-1], 1).Term(shutdown, -rampDownRHS).Term(b.Status[name][t-1], -u.RampDown), modeling.LE, 0)
		}
	}

	// Minimum down-time initial: force off for min(initial_min_off, H)
	// hours. Depends on init.ThermalMinOffLeft, which changes every
	// window, so this must be rebuilt on every call, not just first.
	minDT := minInt(minOffLeft, H)
	for t := 1; t <= minDT; t++ {
		b.model.AddConstraint(fmt.Sprintf("thermal_min_down_init[%s,%d]", name, t),
			modeling.NewExpr(0).Term(b.Status[name][t], 1), modeling.EQ, 0)
	}
	// Minimum up-time initial: force on for min(initial_min_on, H) hours.
	// Same per-window dependency as above via init.ThermalMinOnLeft.
	minUT := minInt(minOnLeft, H)
	if minUT > 0 {
		sum := modeling.NewExpr(0)
		for t := 1; t <= minUT; t++ {
			sum.Term(b.Status[name][t], 1)
		}
		b.model.AddConstraint(fmt.Sprintf("thermal_min_up_init[%s]", name), sum, modeling.EQ, float64(minUT))
	}

	if first {
		// Rolling minimum down-time: for t in [TD, H], sum of shutdowns
		// in the trailing TD-hour window <= 1 - status[t].
		if u.MinDownTime > 0 {
			for t := u.MinDownTime; t <= H; t++ {
				sum := modeling.NewExpr(0)
				for i := t - u.MinDownTime + 1; i <= t; i++ {
					sum.Term(b.Shutdown[name][i], 1)
				}
				sum.Term(b.Status[name][t], 1)
				b.model.AddConstraint(fmt.Sprintf("thermal_min_down[%s,%d]", name, t), sum, modeling.LE, 1)
			}
		}
		// Rolling minimum up-time: for t in [TU, H], sum of startups in
		// the trailing TU-hour window <= status[t].
		if u.MinUpTime > 0 {
			for t := u.MinUpTime; t <= H; t++ {
				sum := modeling.NewExpr(0)
				for i := t - u.MinUpTime + 1; i <= t; i++ {
					sum.Term(b.Startup[name][i], 1)
				}
				sum.Term(b.Status[name][t], -1)
				b.model.AddConstraint(fmt.Sprintf("thermal_min_up[%s,%d]", name, t), sum, modeling.LE, 0)
			}
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (b *ThermalBuilder) GetVariables() ComponentVariables {
	return ComponentVariables(b.Pthermal)
}

var _ ComponentBuilder = (*ThermalBuilder)(nil)
