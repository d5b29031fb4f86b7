package record

import (
	"testing"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

func testSystem() *system.SystemInput {
	si := system.New(system.DefaultConfig())
	si.AddNode("bus1")
	si.Thermal["gen1"] = &system.ThermalUnit{
		Name: "gen1", Node: "bus1", MinUpTime: 3, MinDownTime: 2,
		DeratedCapacity: []float64{100, 100, 100, 100, 100, 100},
	}
	si.Storage["batt1"] = &system.StorageUnit{Name: "batt1", AttachToNode: "bus1"}
	return si
}

func TestRecordWindowSnapsBinaryValues(t *testing.T) {
	si := testSystem()
	r := New(si)

	sol := &modeling.Solution{
		Status:    modeling.Optimal,
		Objective: 1234.5,
		Values: map[string]float64{
			"pthermal[gen1,1]":    50,
			"status[gen1,1]":      0.9999,
			"startup[gen1,1]":     1,
			"shutdown[gen1,1]":    0,
			"pcharge[batt1,1]":    0,
			"pdischarge[batt1,1]": 0,
			"charge_state[batt1,1]": 10,
			"pos_mismatch[bus1,1]": 0,
			"neg_mismatch[bus1,1]": 0,
			"spin_shortfall[1]":   0,
		},
	}

	r.RecordWindow(1, 1, sol)

	if got := r.thermal["gen1"].status[1]; got != 1 {
		t.Errorf("status should snap to 1, got %v", got)
	}
	if got := r.thermal["gen1"].startup[1]; got != 1 {
		t.Errorf("startup should be 1, got %v", got)
	}

	foundDispatch := false
	for _, nv := range r.NodeValues {
		if nv.Node == "bus1" && nv.Variable == "pthermal[gen1]" && nv.Value == 50 {
			foundDispatch = true
		}
	}
	if !foundDispatch {
		t.Error("expected a pthermal node value row for gen1 at bus1")
	}
}

func TestDeriveInitialConditionsMinUpObligation(t *testing.T) {
	si := testSystem()
	r := New(si)

	// Window k=1, H=3: gen1 starts up at t=2, so it must stay on for
	// TU=3 hours; by the end of the window (t=3) it has 1 hour left
	// remaining, and 2 more hours of obligation into the next window.
	sol := &modeling.Solution{
		Status: modeling.Optimal,
		Values: map[string]float64{
			"pthermal[gen1,1]": 0, "status[gen1,1]": 0, "startup[gen1,1]": 0, "shutdown[gen1,1]": 0,
			"pthermal[gen1,2]": 50, "status[gen1,2]": 1, "startup[gen1,2]": 1, "shutdown[gen1,2]": 0,
			"pthermal[gen1,3]": 50, "status[gen1,3]": 1, "startup[gen1,3]": 0, "shutdown[gen1,3]": 0,
			"pcharge[batt1,1]": 0, "pdischarge[batt1,1]": 0, "charge_state[batt1,1]": 0,
			"pcharge[batt1,2]": 0, "pdischarge[batt1,2]": 0, "charge_state[batt1,2]": 0,
			"pcharge[batt1,3]": 0, "pdischarge[batt1,3]": 0, "charge_state[batt1,3]": 5,
			"pos_mismatch[bus1,1]": 0, "neg_mismatch[bus1,1]": 0,
			"pos_mismatch[bus1,2]": 0, "neg_mismatch[bus1,2]": 0,
			"pos_mismatch[bus1,3]": 0, "neg_mismatch[bus1,3]": 0,
			"spin_shortfall[1]": 0, "spin_shortfall[2]": 0, "spin_shortfall[3]": 0,
		},
	}
	r.RecordWindow(1, 3, sol)

	init := r.DeriveInitialConditions(1, 3)
	if init.ThermalStatus["gen1"] != 1 {
		t.Errorf("expected gen1 status 1 at end of window, got %v", init.ThermalStatus["gen1"])
	}
	// TU=3, H=3, last startup at t=2 -> max(0, 3-(3-2)) = 2
	if got := init.ThermalMinOnLeft["gen1"]; got != 2 {
		t.Errorf("expected min-on-left 2, got %d", got)
	}
	if got := init.ThermalMinOffLeft["gen1"]; got != 0 {
		t.Errorf("expected min-off-left 0 (no shutdown in window), got %d", got)
	}
	if got := init.StorageCharge["batt1"]; got != 5 {
		t.Errorf("expected storage carryover 5, got %v", got)
	}
}
