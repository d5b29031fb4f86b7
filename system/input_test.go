package system

import "testing"

func tinyValidSystem() *SystemInput {
	cfg := DefaultConfig()
	cfg.SimHorizonHours = 24
	cfg.NumSimDays = 1
	si := New(cfg)
	si.AddNode("bus1")
	si.AddNode("bus2")
	si.Demand["bus1"] = constSeries(24, 10)
	si.Demand["bus2"] = constSeries(24, 40)
	return si
}

func constSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAbsoluteHour(t *testing.T) {
	cases := []struct {
		t, k, want int
	}{
		{1, 1, 1},
		{24, 1, 24},
		{1, 2, 25},
		{24, 2, 48},
	}
	for _, c := range cases {
		if got := AbsoluteHour(c.t, c.k); got != c.want {
			t.Errorf("AbsoluteHour(%d,%d) = %d, want %d", c.t, c.k, got, c.want)
		}
	}
}

func TestDetermineReferenceBusPicksPeakDemand(t *testing.T) {
	si := tinyValidSystem()
	si.DetermineReferenceBus()
	if si.ReferenceNode() != "bus2" {
		t.Errorf("expected bus2 (peak demand 40) as reference, got %q", si.ReferenceNode())
	}
}

func TestDetermineReferenceBusTieBreaksLexicographically(t *testing.T) {
	si := tinyValidSystem()
	si.Demand["bus1"] = constSeries(24, 40)
	si.Demand["bus2"] = constSeries(24, 40)
	si.DetermineReferenceBus()
	if si.ReferenceNode() != "bus1" {
		t.Errorf("expected bus1 to win the peak-demand tie lexicographically, got %q", si.ReferenceNode())
	}
}

func TestValidateRejectsNonMultipleOf24Horizon(t *testing.T) {
	si := tinyValidSystem()
	si.Config.SimHorizonHours = 25
	if err := si.Validate(); err == nil {
		t.Error("expected Validate to reject a horizon that isn't a multiple of 24")
	}
}

func TestValidateRejectsThermalDeratedBelowMinCapacity(t *testing.T) {
	si := tinyValidSystem()
	si.Thermal["gen1"] = &ThermalUnit{
		Name: "gen1", Node: "bus1",
		MinCapacity:     50,
		DeratedCapacity: constSeries(24, 10), // below MinCapacity
	}
	if err := si.Validate(); err == nil {
		t.Error("expected Validate to reject derated capacity below min capacity")
	}
}

func TestValidateRejectsUnknownNode(t *testing.T) {
	si := tinyValidSystem()
	si.Thermal["gen1"] = &ThermalUnit{Name: "gen1", Node: "nowhere", DeratedCapacity: constSeries(24, 100)}
	if err := si.Validate(); err == nil {
		t.Error("expected Validate to reject a thermal unit on an unknown node")
	}
}

func TestValidateSucceedsAndResolvesSpinRequirement(t *testing.T) {
	si := tinyValidSystem()
	si.Config.SpinReserveFactor = 0.1
	if err := si.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(si.SpinRequirement) != 24 {
		t.Fatalf("expected 24 hours of resolved spin requirement, got %d", len(si.SpinRequirement))
	}
	want := 0.1 * 50 // bus1(10) + bus2(40)
	if got := si.SpinRequirement[0]; got != want {
		t.Errorf("expected spin requirement %v at hour 1, got %v", want, got)
	}
}

func TestTotalDemandSumsAcrossNodes(t *testing.T) {
	si := tinyValidSystem()
	if got := si.TotalDemand(1); got != 50 {
		t.Errorf("expected total demand 50 at hour 1, got %v", got)
	}
}
