package ingest

import (
	"github.com/devskill-org/pownet-sim/entsoe"
	"github.com/devskill-org/pownet-sim/pricefeed"
	"github.com/devskill-org/pownet-sim/system"
)

// ApplyPriceFeed overwrites every contract's cost series from refHour
// onward with doc's day-ahead prices, an optional ingestion path
// alongside contract_cost.csv per spec.md §6: a caller that has a live
// ENTSO-E publication document can call this after LoadSystemInput to
// refresh the near-term price outlook without re-running the CSV load.
// Contracts with no matching hour in doc keep their CSV-loaded cost.
func ApplyPriceFeed(si *system.SystemInput, doc *entsoe.PublicationMarketDocument, refHour int) {
	series := make(map[string][]float64, len(si.Contracts))
	for name, c := range si.Contracts {
		series[name] = c.CostPerMWh
	}
	pricefeed.FillContractCosts(series, doc, refHour)
}
