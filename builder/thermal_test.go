package builder

import (
	"context"
	"testing"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/modeling/refsolver"
	"github.com/devskill-org/pownet-sim/system"
)

func fixtureThermalSystem() *system.SystemInput {
	cfg := system.DefaultConfig()
	cfg.SimHorizonHours = 24
	cfg.NumSimDays = 1
	cfg.UseSpinVar = false
	cfg.SpinReserveFactor = 0
	si := system.New(cfg)
	si.AddNode("bus1")
	si.Contracts["fuel1"] = &system.Contract{ID: "fuel1", CostPerMWh: constSeries(24, 10)}
	si.Thermal["gen1"] = &system.ThermalUnit{
		Name: "gen1", Node: "bus1", Contract: "fuel1",
		MinCapacity:      50,
		DeratedCapacity:  constSeries(24, 100),
		MinUpTime:        1,
		MinDownTime:      1,
		RampUp:           1000,
		RampDown:         1000,
		FixedCostPerMW:   1,
		StartupCostPerMW: 1,
	}
	return si
}

func constSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// TestThermalUpperBoundCoefficient is scenario S1 at the constraint
// level: with MinCapacity 50 and derated capacity 100, pbarUpperBound
// is 50, and the link constraint must be pbar <= 50*status (coefficient
// -50 on status), not the 2*P-derated = 0 an inverted sign would give.
func TestThermalUpperBoundCoefficient(t *testing.T) {
	si := fixtureThermalSystem()
	model := modeling.NewModel("test")
	tb := NewThermalBuilder(model, si)
	tb.AddVariables(1)
	if err := tb.AddConstraints(1, NewInitialConditions(), CrossRefs{}); err != nil {
		t.Fatalf("AddConstraints: %v", err)
	}

	c := model.Constraint("thermal_upper_bound[gen1,1]")
	if c == nil {
		t.Fatal("expected thermal_upper_bound[gen1,1] constraint")
	}
	if c.Sense != modeling.LE || c.RHS != 0 {
		t.Errorf("expected pbar - 50*status <= 0, got sense=%v rhs=%v", c.Sense, c.RHS)
	}
	terms := c.Expr.Terms()
	pbar := model.Var("pbar[gen1,1]")
	status := model.Var("status[gen1,1]")
	if got := terms[pbar]; got != 1 {
		t.Errorf("expected pbar coefficient 1, got %v", got)
	}
	if got := terms[status]; got != -50 {
		t.Errorf("expected status coefficient -50 (derated-min), got %v", got)
	}
}

// TestThermalUpperBoundAllowsRatedDispatch is scenario S1 end-to-end: a
// unit with MinCapacity 50 and derated capacity 100 facing demand 75
// must be able to dispatch 75, not get capped at 50.
func TestThermalUpperBoundAllowsRatedDispatch(t *testing.T) {
	si := fixtureThermalSystem()
	si.Demand["bus1"] = constSeries(24, 75)
	if err := si.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	mb := NewModelBuilder(si)
	model, err := mb.Build(1, NewInitialConditions())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sol, err := refsolver.New().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != modeling.Optimal {
		t.Fatalf("expected optimal, got %v", sol.Status)
	}

	got := sol.Value(mb.Thermal.Pthermal["gen1"][1])
	if got < 74.999 {
		t.Errorf("expected gen1 to dispatch ~75MW to meet demand without spurious shortfall, got %v", got)
	}
}

// TestThermalRampDownBoundsDecrease checks the ramp-down constraint
// bounds p[t-1]-p[t] (the decrease), not p[t]-p[t-1] (the increase),
// and that the t=1 case compares against the correct initial dispatch.
func TestThermalRampDownBoundsDecrease(t *testing.T) {
	si := fixtureThermalSystem()
	si.Thermal["gen1"].RampDown = 20
	si.Thermal["gen1"].RampUp = 1000

	model := modeling.NewModel("test")
	tb := NewThermalBuilder(model, si)
	tb.AddVariables(1)

	init := NewInitialConditions()
	init.ThermalDispatch["gen1"] = 30
	init.ThermalStatus["gen1"] = 1
	if err := tb.AddConstraints(1, init, CrossRefs{}); err != nil {
		t.Fatalf("AddConstraints: %v", err)
	}

	// t=1: initial_p - p[1] <= RD*init_u, i.e.
	// -p[1] <= 20*1 - 30 == -10 with the shutdown term dropped (rampDownRHS==0
	// since SD defaults to MinCapacity+RampDown).
	c1 := model.Constraint("thermal_ramp_down[gen1,1]")
	if c1 == nil {
		t.Fatal("expected thermal_ramp_down[gen1,1] constraint")
	}
	p1 := model.Var("p[gen1,1]")
	terms1 := c1.Expr.Terms()
	if got := terms1[p1]; got != -1 {
		t.Errorf("expected p[1] coefficient -1 (bounds the decrease), got %v", got)
	}
	wantRHS1 := 20.0*1 - 30
	if c1.RHS != wantRHS1 {
		t.Errorf("expected t=1 RHS %v (RD*init_u - init_p), got %v", wantRHS1, c1.RHS)
	}

	// t=2: p[1] - p[2] <= RD*status[1], i.e. -p[2] + p[1] - RD*status[1] <= 0.
	c2 := model.Constraint("thermal_ramp_down[gen1,2]")
	if c2 == nil {
		t.Fatal("expected thermal_ramp_down[gen1,2] constraint")
	}
	p2 := model.Var("p[gen1,2]")
	status1 := model.Var("status[gen1,1]")
	terms2 := c2.Expr.Terms()
	if got := terms2[p2]; got != -1 {
		t.Errorf("expected p[2] coefficient -1 (bounds the decrease), got %v", got)
	}
	if got := terms2[p1]; got != 1 {
		t.Errorf("expected p[1] coefficient +1, got %v", got)
	}
	if got := terms2[status1]; got != -20 {
		t.Errorf("expected status[1] coefficient -RampDown (-20), got %v", got)
	}
	if c2.RHS != 0 {
		t.Errorf("expected t>1 RHS 0, got %v", c2.RHS)
	}
}

// TestThermalMinDownCarriesOverAcrossWindows covers the spec §4.10
// carryover case: a unit still owing min-down hours at a window
// boundary must stay forced off at the start of the next window, even
// though UpdateConstraints rebuilds with first=false.
func TestThermalMinDownCarriesOverAcrossWindows(t *testing.T) {
	si := fixtureThermalSystem()

	model := modeling.NewModel("test")
	tb := NewThermalBuilder(model, si)
	tb.AddVariables(1)
	if err := tb.AddConstraints(1, NewInitialConditions(), CrossRefs{}); err != nil {
		t.Fatalf("AddConstraints: %v", err)
	}

	tb.UpdateVariables(2)
	init2 := NewInitialConditions()
	init2.ThermalMinOffLeft["gen1"] = 2
	if err := tb.UpdateConstraints(2, init2, CrossRefs{}); err != nil {
		t.Fatalf("UpdateConstraints: %v", err)
	}

	c := model.Constraint("thermal_min_down_init[gen1,1]")
	if c == nil {
		t.Fatal("expected thermal_min_down_init[gen1,1] to survive the window-2 rebuild")
	}
	status1 := model.Var("status[gen1,1]")
	if got := c.Expr.Terms()[status1]; got != 1 {
		t.Errorf("expected status[1] coefficient 1, got %v", got)
	}
	if c.Sense != modeling.EQ || c.RHS != 0 {
		t.Errorf("expected status[1] == 0 (forced off), got sense=%v rhs=%v", c.Sense, c.RHS)
	}

	c2 := model.Constraint("thermal_min_down_init[gen1,2]")
	if c2 == nil {
		t.Fatal("expected thermal_min_down_init[gen1,2] (2 remaining off-hours) to exist too")
	}
}
