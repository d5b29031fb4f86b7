package ingest

import (
	"testing"
	"time"

	"github.com/devskill-org/pownet-sim/entsoe"
	"github.com/devskill-org/pownet-sim/system"
)

func TestApplyPriceFeedNilDocumentIsNoOp(t *testing.T) {
	si := system.New(system.DefaultConfig())
	si.Contracts["spot"] = &system.Contract{ID: "spot", CostPerMWh: []float64{10, 10, 10}}

	ApplyPriceFeed(si, nil, 0)

	if got := si.Contracts["spot"].CostPerMWh; got[0] != 10 || got[1] != 10 || got[2] != 10 {
		t.Errorf("expected cost series untouched by a nil document, got %v", got)
	}
}

func TestApplyPriceFeedOverwritesFromRefHour(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := &entsoe.PublicationMarketDocument{
		PeriodTimeInterval: entsoe.TimeInterval{
			Start: start,
			End:   start.Add(3 * time.Hour),
		},
		TimeSeries: []entsoe.TimeSeries{
			{
				Period: entsoe.Period{
					TimeInterval: entsoe.TimeInterval{Start: start, End: start.Add(3 * time.Hour)},
					Resolution:   time.Hour,
					Points: []entsoe.Point{
						{Position: 1, PriceAmount: 50},
						{Position: 2, PriceAmount: 60},
						{Position: 3, PriceAmount: 70},
					},
				},
			},
		},
	}

	si := system.New(system.DefaultConfig())
	si.Contracts["spot"] = &system.Contract{ID: "spot", CostPerMWh: []float64{10, 10, 10}}

	ApplyPriceFeed(si, doc, 1)

	got := si.Contracts["spot"].CostPerMWh
	if got[0] != 10 {
		t.Errorf("expected hour before refHour left untouched, got %v", got[0])
	}
	if got[1] != 50 || got[2] != 60 {
		t.Errorf("expected hours from refHour onward overwritten with the feed's prices, got %v", got)
	}
}
