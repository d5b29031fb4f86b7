package forecast

import (
	"testing"
	"time"

	"github.com/devskill-org/pownet-sim/meteo"
)

func TestSolarCapacityZeroAtNight(t *testing.T) {
	midnight := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	got := SolarCapacity(51.5, -0.1, midnight, nil, 100)
	if got != 0 {
		t.Errorf("expected 0 capacity at midnight, got %v", got)
	}
}

func TestSolarCapacityCloudCoverageAttenuates(t *testing.T) {
	noon := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	clear := SolarCapacity(51.5, -0.1, noon, nil, 100)
	fullyOvercast := 100.0
	cloudy := SolarCapacity(51.5, -0.1, noon, &fullyOvercast, 100)

	if clear <= 0 {
		t.Fatalf("expected positive clear-sky capacity at noon, got %v", clear)
	}
	if cloudy >= clear {
		t.Errorf("expected full cloud coverage to reduce capacity below clear-sky, got cloudy=%v clear=%v", cloudy, clear)
	}
}

func TestCloudCoverageAtNilForecast(t *testing.T) {
	if CloudCoverageAt(nil, time.Now()) != nil {
		t.Error("expected nil cloud coverage for nil forecast")
	}
}

func TestCloudCoverageAtPicksNearestTimestep(t *testing.T) {
	base := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	near := 42.0
	far := 90.0
	f := &meteo.METJSONForecast{
		Properties: &meteo.Forecast{
			Timeseries: []meteo.ForecastTimeStep{
				{
					Time: base,
					Data: &meteo.ForecastTimeStepData{
						Instant: &meteo.ForecastInstantData{
							Details: &meteo.ForecastTimeInstant{CloudAreaFraction: &far},
						},
					},
				},
				{
					Time: base.Add(time.Hour),
					Data: &meteo.ForecastTimeStepData{
						Instant: &meteo.ForecastInstantData{
							Details: &meteo.ForecastTimeInstant{CloudAreaFraction: &near},
						},
					},
				},
			},
		},
	}

	got := CloudCoverageAt(f, base.Add(50*time.Minute))
	if got == nil || *got != near {
		t.Errorf("expected nearest timestep's coverage %v, got %v", near, got)
	}
}
