package pricefeed

import (
	"testing"
	"time"

	"github.com/devskill-org/pownet-sim/entsoe"
)

func testDoc(t *testing.T) *entsoe.PublicationMarketDocument {
	t.Helper()
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	return &entsoe.PublicationMarketDocument{
		PeriodTimeInterval: entsoe.TimeInterval{
			Start: start,
			End:   start.Add(24 * time.Hour),
		},
		TimeSeries: []entsoe.TimeSeries{
			{
				Period: entsoe.Period{
					TimeInterval: entsoe.TimeInterval{Start: start, End: start.Add(24 * time.Hour)},
					Resolution:   time.Hour,
					Points: []entsoe.Point{
						{Position: 1, PriceAmount: 30},
						{Position: 2, PriceAmount: 35},
						{Position: 3, PriceAmount: 40},
					},
				},
			},
		},
	}
}

func TestFillContractCostsAppliesFromRefHour(t *testing.T) {
	contracts := map[string][]float64{
		"fuel1": {10, 10, 10, 10, 10},
	}
	FillContractCosts(contracts, testDoc(t), 1)

	got := contracts["fuel1"]
	if got[0] != 10 {
		t.Errorf("hour before refHour should stay untouched, got %v", got[0])
	}
	if got[1] != 30 || got[2] != 35 || got[3] != 40 {
		t.Errorf("expected feed prices at indices 1..3, got %v", got[1:4])
	}
	if got[4] != 10 {
		t.Errorf("hour past the feed's coverage should stay untouched, got %v", got[4])
	}
}

func TestFillContractCostsNilDocIsNoop(t *testing.T) {
	contracts := map[string][]float64{"fuel1": {10, 10}}
	FillContractCosts(contracts, nil, 0)
	if contracts["fuel1"][0] != 10 {
		t.Error("nil doc should leave contract costs untouched")
	}
}
