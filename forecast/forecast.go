// Package forecast extends a solar non-dispatch unit's availability
// timeseries past the horizon covered by its recorded solar.csv, by
// combining sun altitude (github.com/sixdouglas/suncalc) with
// cloud-coverage forecast data (package meteo), per SPEC_FULL.md §14.
package forecast

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"

	"github.com/devskill-org/pownet-sim/meteo"
)

// clearSkyExponent shapes how steeply capacity falls off as the sun
// drops toward the horizon; 1.0 altitude radians (~57 degrees) is
// treated as full clear-sky output.
const clearSkyExponent = 1.0

// cloudAttenuation is the fraction of clear-sky capacity lost at 100%
// cloud coverage; partial coverage interpolates linearly between 1 and
// a floor of 1-cloudAttenuation.
const cloudAttenuation = 0.75

// SolarCapacity estimates a solar unit's available capacity at hour,
// as a fraction of ratedCapacity: the sun's altitude at (lat, lon)
// bounds clear-sky output, and cloudCoverage (a percentage, nil if
// unavailable) linearly attenuates it. Returns 0 when the sun is below
// the horizon.
func SolarCapacity(lat, lon float64, hour time.Time, cloudCoverage *float64, ratedCapacity float64) float64 {
	pos := suncalc.GetPosition(hour, lat, lon)
	if pos.Altitude <= 0 {
		return 0
	}

	clearSkyFraction := math.Min(1, pos.Altitude/clearSkyExponent)

	attenuation := 1.0
	if cloudCoverage != nil {
		coverage := math.Max(0, math.Min(100, *cloudCoverage)) / 100
		attenuation = 1 - coverage*cloudAttenuation
	}

	return ratedCapacity * clearSkyFraction * attenuation
}

// CloudCoverageAt reads the cloud-area-fraction percentage nearest
// hour out of a MET Norway forecast (package meteo), mirroring
// scheduler/data.go's fetchCloudCoverage lookup but against an
// arbitrary requested hour rather than "now". Returns nil if the
// forecast has no timeseries entries.
func CloudCoverageAt(f *meteo.METJSONForecast, hour time.Time) *float64 {
	if f == nil || f.Properties == nil {
		return nil
	}

	var best *meteo.ForecastTimeStep
	var bestDelta time.Duration
	for i := range f.Properties.Timeseries {
		step := &f.Properties.Timeseries[i]
		delta := step.Time.Sub(hour)
		if delta < 0 {
			delta = -delta
		}
		if best == nil || delta < bestDelta {
			best = step
			bestDelta = delta
		}
	}
	return best.GetCloudCoverage()
}
