package simulate

import (
	"context"
	"testing"

	"github.com/devskill-org/pownet-sim/modeling/refsolver"
	"github.com/devskill-org/pownet-sim/solver"
	"github.com/devskill-org/pownet-sim/system"
)

func tinySystem(t *testing.T) *system.SystemInput {
	t.Helper()
	cfg := system.DefaultConfig()
	cfg.SimHorizonHours = 24
	cfg.NumSimDays = 1
	cfg.UseSpinVar = false
	cfg.SpinReserveFactor = 0

	si := system.New(cfg)
	si.AddNode("bus1")

	demand := make([]float64, 24)
	for i := range demand {
		demand[i] = 50
	}
	si.Demand["bus1"] = demand

	si.Contracts["fuel1"] = &system.Contract{ID: "fuel1", CostPerMWh: constSeries(24, 20)}

	si.Thermal["gen1"] = &system.ThermalUnit{
		Name: "gen1", Node: "bus1", Contract: "fuel1",
		MinCapacity:      10,
		DeratedCapacity:  constSeries(24, 100),
		MinUpTime:        1,
		MinDownTime:      1,
		RampUp:           1000,
		RampDown:         1000,
		FixedCostPerMW:   1,
		StartupCostPerMW: 1,
		OperationCost:    0,
		HeatRate:         1,
	}

	if err := si.Validate(); err != nil {
		t.Fatalf("tinySystem: Validate: %v", err)
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

func TestSimulatorRunSingleWindow(t *testing.T) {
	si := tinySystem(t)
	sim := New(si, refsolver.New())

	rec, err := sim.Run(context.Background(), Config{
		RequestedSteps: 1,
		SolverOptions:  solver.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	found := false
	for _, nv := range rec.NodeValues {
		if nv.Node == "bus1" && nv.Variable == "pthermal[gen1]" {
			found = true
			if nv.Value < 50 {
				t.Errorf("expected gen1 to dispatch at least 50MW to meet demand, got %v at hour %d", nv.Value, nv.Hour)
			}
		}
	}
	if !found {
		t.Fatal("expected at least one recorded pthermal[gen1] value")
	}
}

func TestSimulatorRunLargeDemandStaysFeasible(t *testing.T) {
	si := tinySystem(t)
	for i := range si.Demand["bus1"] {
		si.Demand["bus1"][i] = 1e6 // far beyond gen1's capacity, unmet by design
	}

	sim := New(si, refsolver.New())
	_, err := sim.Run(context.Background(), Config{
		RequestedSteps: 1,
		SolverOptions:  solver.DefaultOptions(),
	})
	// The system builder always has a load-shortfall slack, so this
	// particular scenario stays feasible rather than infeasible; the
	// assertion here is simply that Run completes without error.
	if err != nil {
		t.Fatalf("Run with a large demand spike should still be feasible via load-shortfall slack, got: %v", err)
	}
}
