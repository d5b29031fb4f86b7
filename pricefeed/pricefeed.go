// Package pricefeed adapts the ENTSO-E day-ahead market feed into the
// simulator's fuel/spot contract cost series, an alternative/supplement
// to loading contract_cost.csv per spec.md §6.
package pricefeed

import (
	"time"

	"github.com/devskill-org/pownet-sim/entsoe"
)

// FillContractCosts overwrites every contract's cost series from index
// refHour onward with the day-ahead price doc reports for that hour's
// clock time, derived from doc's own period start rather than a
// caller-supplied clock. refHour is the index into each series (the
// absolute simulation hour, 0-based) that the feed should start
// applying from; hours with no matching price in doc are left
// untouched, so a contract_cost.csv baseline still covers any gap the
// feed doesn't.
func FillContractCosts(contracts map[string][]float64, doc *entsoe.PublicationMarketDocument, refHour int) {
	if doc == nil {
		return
	}
	periodStart := doc.PeriodTimeInterval.Start

	for _, series := range contracts {
		for i := refHour; i < len(series); i++ {
			hourTime := periodStart.Add(time.Duration(i-refHour) * time.Hour)
			price, found := doc.LookupAveragePriceInHourByTime(hourTime)
			if !found {
				continue
			}
			series[i] = price
		}
	}
}
