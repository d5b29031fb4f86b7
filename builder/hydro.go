package builder

import (
	"fmt"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

// HydroBuilder owns phydro[g,t] and its hourly/daily/weekly availability
// limits per spec §4.3. The daily limit is the one the power-water
// coupler rebuilds every reoperation iteration via UpdateDailyCapacity.
type HydroBuilder struct {
	model *modeling.Model
	sys   *system.SystemInput

	Phydro map[string]map[int]*modeling.Var

	// dailyCaps overrides system.HydroUnit.DailyCapacity per (unit, day)
	// once the coupler has proposed a revision; nil until then.
	dailyCaps map[string]map[int]float64
}

func NewHydroBuilder(model *modeling.Model, sys *system.SystemInput) *HydroBuilder {
	return &HydroBuilder{
		model:     model,
		sys:       sys,
		Phydro:    make(map[string]map[int]*modeling.Var),
		dailyCaps: make(map[string]map[int]float64),
	}
}

func (b *HydroBuilder) AddVariables(k int) {
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Hydro {
		b.Phydro[name] = make(map[int]*modeling.Var, H)
		for t := 1; t <= H; t++ {
			ub := u.ContractedCapacity
			if u.Resolution == system.HydroHourly {
				h := system.AbsoluteHour(t, k)
				if h >= 1 && h <= len(u.HourlyCapacity) && u.HourlyCapacity[h-1] < ub {
					ub = u.HourlyCapacity[h-1]
				}
			}
			b.Phydro[name][t] = b.model.AddVar(fmt.Sprintf("phydro[%s,%d]", name, t), modeling.Continuous, 0, ub)
		}
	}
}

func (b *HydroBuilder) GetFixedObjectiveTerms() *modeling.LinearExpr {
	return modeling.NewExpr(0)
}

func (b *HydroBuilder) GetVariableObjectiveTerms(k int) *modeling.LinearExpr {
	expr := modeling.NewExpr(0)
	H := b.sys.Config.SimHorizonHours
	for name, u := range b.sys.Hydro {
		contract := b.sys.Contracts[u.Contract]
		for t := 1; t <= H; t++ {
			h := system.AbsoluteHour(t, k)
			expr.Term(b.Phydro[name][t], contract.CostAt(h))
		}
	}
	return expr
}

func (b *HydroBuilder) AddConstraints(k int, init InitialConditions, refs CrossRefs) error {
	return b.addLimitConstraints(k)
}

func (b *HydroBuilder) UpdateVariables(k int) {
	for name, u := range b.sys.Hydro {
		if u.Resolution != system.HydroHourly {
			continue
		}
		H := b.sys.Config.SimHorizonHours
		for t := 1; t <= H; t++ {
			ub := u.ContractedCapacity
			h := system.AbsoluteHour(t, k)
			if h >= 1 && h <= len(u.HourlyCapacity) && u.HourlyCapacity[h-1] < ub {
				ub = u.HourlyCapacity[h-1]
			}
			b.Phydro[name][t].Upper = ub
		}
	}
}

func (b *HydroBuilder) UpdateConstraints(k int, init InitialConditions, refs CrossRefs) error {
	for name := range b.sys.Hydro {
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("hydro_daily[%s,", name))
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("hydro_weekly[%s,", name))
		b.model.RemoveConstraintsWithPrefix(fmt.Sprintf("hydro_weekly_min[%s,", name))
	}
	return b.addLimitConstraints(k)
}

func (b *HydroBuilder) addLimitConstraints(k int) error {
	H := b.sys.Config.SimHorizonHours
	if H%24 != 0 {
		return fmt.Errorf("hydro daily/weekly limits require a horizon divisible by 24, got %d", H)
	}
	for name, u := range b.sys.Hydro {
		switch u.Resolution {
		case system.HydroDaily:
			numDays := H / 24
			for d := 0; d < numDays; d++ {
				absDay := system.AbsoluteHour(1, k)/24 + d + 1
				cap := b.dailyCapFor(name, absDay, u)
				sum := modeling.NewExpr(0)
				for t := d*24 + 1; t <= d*24+24; t++ {
					sum.Term(b.Phydro[name][t], 1)
				}
				b.model.AddConstraint(fmt.Sprintf("hydro_daily[%s,%d]", name, d), sum, modeling.LE, cap)
			}
		case system.HydroWeekly:
			numWeeks := H / (24 * 7)
			for w := 0; w < numWeeks; w++ {
				absWeek := system.AbsoluteHour(1, k)/(24*7) + w + 1
				capMax := 0.0
				if absWeek >= 1 && absWeek <= len(u.WeeklyCapacity) {
					capMax = u.WeeklyCapacity[absWeek-1]
				}
				sum := modeling.NewExpr(0)
				for t := w*24*7 + 1; t <= w*24*7+24*7 && t <= H; t++ {
					sum.Term(b.Phydro[name][t], 1)
				}
				b.model.AddConstraint(fmt.Sprintf("hydro_weekly[%s,%d]", name, w), sum, modeling.LE, capMax)
				if absWeek >= 1 && absWeek <= len(u.WeeklyMinimum) && u.WeeklyMinimum[absWeek-1] > 0 {
					sumMin := modeling.NewExpr(0)
					for t := w*24*7 + 1; t <= w*24*7+24*7 && t <= H; t++ {
						sumMin.Term(b.Phydro[name][t], 1)
					}
					b.model.AddConstraint(fmt.Sprintf("hydro_weekly_min[%s,%d]", name, w), sumMin, modeling.GE, u.WeeklyMinimum[absWeek-1])
				}
			}
		}
	}
	return nil
}

func (b *HydroBuilder) dailyCapFor(name string, absDay int, u *system.HydroUnit) float64 {
	if overrides, ok := b.dailyCaps[name]; ok {
		if v, ok := overrides[absDay]; ok {
			return v
		}
	}
	if absDay >= 1 && absDay <= len(u.DailyCapacity) {
		return u.DailyCapacity[absDay-1]
	}
	return 0
}

// UpdateDailyCapacity replaces the daily-limit constraint for (unit,
// absolute day) with a new capacity proposed by the reservoir coupler,
// removing and re-adding exactly that constraint (spec §4.3/§4.12).
func (b *HydroBuilder) UpdateDailyCapacity(k int, unit string, absDay int, newCap float64) error {
	u, ok := b.sys.Hydro[unit]
	if !ok || u.Resolution != system.HydroDaily {
		return fmt.Errorf("unit %q is not a daily-resolution hydro unit", unit)
	}
	if b.dailyCaps[unit] == nil {
		b.dailyCaps[unit] = make(map[int]float64)
	}
	b.dailyCaps[unit][absDay] = newCap

	H := b.sys.Config.SimHorizonHours
	firstDay := system.AbsoluteHour(1, k) / 24
	d := absDay - firstDay - 1
	if d < 0 || d*24 >= H {
		return nil // day not in this window; applies to a future rebuild
	}
	name := fmt.Sprintf("hydro_daily[%s,%d]", unit, d)
	b.model.RemoveConstraint(name)
	sum := modeling.NewExpr(0)
	for t := d*24 + 1; t <= d*24+24; t++ {
		sum.Term(b.Phydro[unit][t], 1)
	}
	b.model.AddConstraint(name, sum, modeling.LE, newCap)
	return nil
}

func (b *HydroBuilder) GetVariables() ComponentVariables {
	return ComponentVariables(b.Phydro)
}

var _ ComponentBuilder = (*HydroBuilder)(nil)
