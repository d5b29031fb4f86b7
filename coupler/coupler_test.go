package coupler

import "testing"

type stubReservoir struct {
	propose map[string]map[int]float64
	err     error
}

func (s *stubReservoir) ProposeDailyCapacity(observed map[string]map[int]float64) (map[string]map[int]float64, error) {
	return s.propose, s.err
}

func TestCheckConvergenceWithinTolerance(t *testing.T) {
	observed := map[string]map[int]float64{"res1": {1: 800}}
	proposed := map[string]map[int]float64{"res1": {1: 800}}

	_, converged := checkConvergence(observed, proposed)
	if !converged {
		t.Error("expected exact match to converge")
	}

	proposed = map[string]map[int]float64{"res1": {1: 830}}
	_, converged = checkConvergence(observed, proposed)
	if !converged {
		t.Error("expected 830 vs 800 (3.75% deviation) to converge within 5% tolerance")
	}

	proposed = map[string]map[int]float64{"res1": {1: 900}}
	_, converged = checkConvergence(observed, proposed)
	if converged {
		t.Error("expected 900 vs 800 (12.5% deviation) to not converge")
	}
}

func TestReoperateNilCouplerIsNoop(t *testing.T) {
	var c *PowerWaterCoupler
	result, err := c.Reoperate(nil, 1, 24, nil, nil, nil)
	if err != nil {
		t.Fatalf("nil coupler should be a no-op, got error: %v", err)
	}
	if !result.Converged {
		t.Error("nil coupler should report converged")
	}
}
