package builder

import (
	"fmt"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

// StorageBuilder owns charge/discharge dispatch, the charge/discharge
// indicator binaries, and the state-of-charge energy balance, per
// spec §4.5.
type StorageBuilder struct {
	model *modeling.Model
	sys   *system.SystemInput

	Pcharge     map[string]map[int]*modeling.Var
	Pdischarge  map[string]map[int]*modeling.Var
	ChargeState map[string]map[int]*modeling.Var
	Ucharge     map[string]map[int]*modeling.Var
	Udischarge  map[string]map[int]*modeling.Var
}

func NewStorageBuilder(model *modeling.Model, sys *system.SystemInput) *StorageBuilder {
	return &StorageBuilder{
		model:       model,
		sys:         sys,
		Pcharge:     make(map[string]map[int]*modeling.Var),
		Pdischarge:  make(map[string]map[int]*modeling.Var),
		ChargeState: make(map[string]map[int]*modeling.Var),
		Ucharge:     make(map[string]map[int]*modeling.Var),
		Udischarge:  make(map[string]map[int]*modeling.Var),
	}
}

func (b *StorageBuilder) AddVariables(k int) {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Storage {
		b.Pcharge[name] = make(map[int]*modeling.Var, H)
		b.Pdischarge[name] = make(map[int]*modeling.Var, H)
		b.ChargeState[name] = make(map[int]*modeling.Var, H)
		b.Ucharge[name] = make(map[int]*modeling.Var, H)
		b.Udischarge[name] = make(map[int]*modeling.Var, H)
		for t := 1; t <= H; t++ {
			b.Pcharge[name][t] = b.model.AddVar(fmt.Sprintf("pcharge[%s,%d]", name, t), modeling.Continuous, 0, u.MaxChargeRate)
			b.Pdischarge[name][t] = b.model.AddVar(fmt.Sprintf("pdischarge[%s,%d]", name, t), modeling.Continuous, 0, u.MaxDischargeRate)
			b.ChargeState[name][t] = b.model.AddVar(fmt.Sprintf("charge_state[%s,%d]", name, t), modeling.Continuous, 0, storageCapUB(u, t, k))
			b.Ucharge[name][t] = b.model.AddVar(fmt.Sprintf("ucharge[%s,%d]", name, t), modeling.Binary, 0, 1)
			b.Udischarge[name][t] = b.model.AddVar(fmt.Sprintf("udischarge[%s,%d]", name, t), modeling.Binary, 0, 1)
		}
	}
}

func storageCapUB(u *system.StorageUnit, t, k int) float64 {
	h := system.AbsoluteHour(t, k)
	if h >= 1 && h <= len(u.MaxStateOfCharge) {
		return u.MaxStateOfCharge[h-1]
	}
	return 0
}

func (b *StorageBuilder) GetFixedObjectiveTerms() *modeling.LinearExpr {
	return modeling.NewExpr(0)
}

func (b *StorageBuilder) GetVariableObjectiveTerms(k int) *modeling.LinearExpr {
	expr := modeling.NewExpr(0)
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Storage {
		contract := b.sys.Contracts[u.Contract]
		for t := 1; t <= H; t++ {
			h := system.AbsoluteHour(t, k)
			expr.Term(b.Pdischarge[name][t], contract.CostAt(h))
		}
	}
	return expr
}

func (b *StorageBuilder) AddConstraints(k int, init InitialConditions, refs CrossRefs) error {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Storage {
		for t := 1; t <= H; t++ {
			b.addLinkageConstraints(name, u, t)
		}
		b.addBalanceConstraints(name, u, H, k, init)
	}
	return nil
}

func (b *StorageBuilder) UpdateVariables(k int) {
	for name, u := range b.sys.Storage {
		H := b.sys.Config.SimHorizonHours
		for t := 1; t <= H; t++ {
			b.ChargeState[name][t].Upper = storageCapUB(u, t, k)
		}
	}
}

func (b *StorageBuilder) UpdateConstraints(k int, init InitialConditions, refs CrossRefs) error {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Storage {
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("storage_balance[%s,", name))
		b.addBalanceConstraints(name, u, H, k, init)
	}
	return nil
}

func (b *StorageBuilder) addLinkageConstraints(name string, u *system.StorageUnit, t int) {
	pcharge, pdischarge := b.Pcharge[name][t], b.Pdischarge[name][t]
	ucharge, udischarge := b.Ucharge[name][t], b.Udischarge[name][t]

	b.model.AddConstraint(fmt.Sprintf("storage_charge_link[%s,%d]", name, t),
		modeling.NewExpr(0).Term(pcharge, 1).Term(ucharge, -u.MaxChargeRate), modeling.LE, 0)
	b.model.AddConstraint(fmt.Sprintf("storage_discharge_link[%s,%d]", name, t),
		modeling.NewExpr(0).Term(pdischarge, 1).Term(udischarge, -u.MaxDischargeRate), modeling.LE, 0)
	b.model.AddConstraint(fmt.Sprintf("storage_mutex[%s,%d]", name, t),
		modeling.NewExpr(0).Term(ucharge, 1).Term(udischarge, 1), modeling.LE, 1)
}

func (b *StorageBuilder) addBalanceConstraints(name string, u *system.StorageUnit, H, k int, init InitialConditions) {
	for t := 1; t <= H; t++ {
		state := b.ChargeState[name][t]
		expr := modeling.NewExpr(0).Term(state, 1).
			Term(b.Pcharge[name][t], -u.ChargeEfficiency).
			Term(b.Pdischarge[name][t], 1/u.DischargeEfficiency)
		var rhs float64
		if t == 1 {
			rhs = (1 - u.SelfDischargeRate) * init.StorageCharge[name]
		} else {
			expr.Term(b.ChargeState[name][t-1], -(1 - u.SelfDischargeRate))
		}
		b.model.AddConstraint(fmt.Sprintf("storage_balance[%s,%d]", name, t), expr, modeling.EQ, rhs)
	}
}

func (b *StorageBuilder) GetVariables() ComponentVariables {
	return ComponentVariables(b.ChargeState)
}

var _ ComponentBuilder = (*StorageBuilder)(nil)
