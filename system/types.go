// Package system holds the static and time-varying data model of a bulk
// power system: nodes, edges, generators, storage, demand, and contracts.
// SystemInput loads this data once, validates it once, and exposes it
// immutably for the lifetime of a simulation.
package system

// Node is a bus in the transmission network.
type Node struct {
	Name string
	// IsReference marks the slack/reference bus: the node with peak demand
	// across the simulation year.
	IsReference bool
}

// Edge is an ordered transmission line between two distinct nodes, stored
// in one canonical direction. LineCapacity and Susceptance are indexed by
// absolute hour (1-based).
type Edge struct {
	Source       string
	Sink         string
	LineCapacity []float64 // MW, per absolute hour
	Susceptance  []float64 // per absolute hour
}

// Key returns the canonical (source, sink) identity of the edge.
func (e Edge) Key() [2]string { return [2]string{e.Source, e.Sink} }

// HydroResolution identifies the temporal resolution of a hydro unit's
// energy-availability timeseries. Exactly one resolution applies per unit.
type HydroResolution int

const (
	HydroHourly HydroResolution = iota
	HydroDaily
	HydroWeekly
)

// NonDispatchKind distinguishes the three non-dispatchable generator
// categories that share a builder.
type NonDispatchKind int

const (
	Solar NonDispatchKind = iota
	Wind
	Import
)

func (k NonDispatchKind) String() string {
	switch k {
	case Solar:
		return "solar"
	case Wind:
		return "wind"
	case Import:
		return "import"
	default:
		return "unknown"
	}
}

// ThermalUnit is a dispatchable fuel-burning generator with commitment
// (on/off) state, minimum up/down times, and ramp limits.
type ThermalUnit struct {
	Name     string
	Node     string
	FuelType string
	Contract string // fuel contract id

	MinCapacity      float64   // P, MW
	DeratedCapacity  []float64 // P̄(t), MW, per absolute hour; P̄(t) >= MinCapacity
	MinUpTime        int       // TU, hours
	MinDownTime      int       // TD, hours
	RampUp           float64   // RU, MW/h
	RampDown         float64   // RD, MW/h
	StartupRate      float64   // SU, MW/h; defaults to MinCapacity+RampUp if zero
	ShutdownRate     float64   // SD, MW/h; defaults to MinCapacity+RampDown if zero
	FixedCostPerMW   float64   // $/MW of rated capacity, per hour committed
	StartupCostPerMW float64   // $/MW of rated capacity, per startup
	OperationCost    float64   // $/MWh, fixed opex
	HeatRate         float64   // fuel units per MWh
	MustTake         bool
}

// RatedCapacity is the unit's nameplate capacity used for fixed/startup
// cost scaling: the maximum value in its derated-capacity series.
func (t *ThermalUnit) RatedCapacity() float64 {
	max := 0.0
	for _, v := range t.DeratedCapacity {
		if v > max {
			max = v
		}
	}
	return max
}

// EffectiveStartupRate returns SU, defaulting to MinCapacity+RampUp.
func (t *ThermalUnit) EffectiveStartupRate() float64 {
	if t.StartupRate > 0 {
		return t.StartupRate
	}
	return t.MinCapacity + t.RampUp
}

// EffectiveShutdownRate returns SD, defaulting to MinCapacity+RampDown.
func (t *ThermalUnit) EffectiveShutdownRate() float64 {
	if t.ShutdownRate > 0 {
		return t.ShutdownRate
	}
	return t.MinCapacity + t.RampDown
}

// HydroUnit is a non-thermal generator whose availability is bounded by
// water, expressed at hourly, daily, or weekly resolution.
type HydroUnit struct {
	Name       string
	Node       string
	Contract   string
	Resolution HydroResolution

	HourlyCapacity []float64 // MW, per absolute hour (if Resolution == HydroHourly)
	DailyCapacity  []float64 // MWh, per absolute day (if Resolution == HydroDaily)
	WeeklyCapacity []float64 // MWh, per absolute week (if Resolution == HydroWeekly)
	WeeklyMinimum  []float64 // MWh, lower bound per absolute week, optional

	ContractedCapacity float64 // MW cap
	MustTake           bool
}

// NonDispatchUnit is a solar, wind, or import generator whose availability
// is an hourly capacity timeseries.
type NonDispatchUnit struct {
	Name     string
	Node     string
	Contract string
	Kind     NonDispatchKind

	CapacityTimeseries  []float64 // MW, per absolute hour
	ContractedCapacity  float64   // MW; -1 means unbounded
	HasStatusIndicator  bool      // create an on/off binary
	MustTake            bool

	// Lat, Lon, and RatedCapacity are optional, set only for solar units
	// whose site coordinates were supplied in the fleet file. When set,
	// NonDispatchBuilder extends CapacityTimeseries past its last
	// recorded hour with a sun-position/cloud-cover forecast instead of
	// clamping availability to 0; see package forecast.
	Lat           float64
	Lon           float64
	RatedCapacity float64
}

// StorageUnit is an energy-storage device attached either to a grid node
// or co-located with another generator.
type StorageUnit struct {
	Name     string
	Contract string // discharge-cost contract id

	AttachToNode      string // set if grid-connected
	AttachToGenerator string // set if co-located with a generator

	MaxChargeRate      float64   // MW
	MaxDischargeRate   float64   // MW
	MinStateOfCharge   float64   // MWh
	MaxStateOfCharge   []float64 // MWh, per absolute hour (derated capacity)
	ChargeEfficiency   float64   // eta_c, [0,1]
	DischargeEfficiency float64  // eta_d, [0,1]
	SelfDischargeRate  float64   // sigma, [0,1]
}

// IsColocated reports whether the storage unit shares a curtailment source
// with a generator rather than connecting directly to a node.
func (s *StorageUnit) IsColocated() bool { return s.AttachToGenerator != "" }

// Contract holds an hourly cost-per-MWh timeseries indexed by absolute
// hour (1-based).
type Contract struct {
	ID       string
	CostPerMWh []float64
}

// CostAt returns the contract's $/MWh at the given absolute hour.
func (c *Contract) CostAt(absoluteHour int) float64 {
	if absoluteHour < 1 || absoluteHour > len(c.CostPerMWh) {
		return 0
	}
	return c.CostPerMWh[absoluteHour-1]
}
