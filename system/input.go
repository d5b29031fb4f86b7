package system

import (
	"fmt"
	"time"

	"github.com/devskill-org/pownet-sim/meteo"
)

// SpinMode selects how the spinning-reserve requirement is expressed.
type SpinMode int

const (
	SpinFraction SpinMode = iota // fraction of total hourly demand
	SpinAbsoluteMW
)

// Config captures the load-time options that shape SystemInput validation
// and the model formulations downstream builders select between. Field
// names mirror the "Configuration options recognized by SystemInput" table
// in spec.md §6.
type Config struct {
	SimHorizonHours int // H, multiple of 24
	NumSimDays      int // defaults to 365

	UseSpinVar              bool
	UseNonDispatchStatusVar bool
	DCOPF                   string // "voltage_angle" | "kirchhoff"

	SpinReserveFactor float64 // used when SpinMode == SpinFraction
	SpinReserveMW     float64 // used when SpinMode == SpinAbsoluteMW
	SpinMode          SpinMode

	GenLossFactor       float64
	LineLossFactor      float64
	LineCapacityFactor  float64

	LoadShortfallPenaltyFactor float64 // $/MWh
	LoadCurtailPenaltyFactor   float64 // $/MWh
	SpinShortfallPenaltyFactor float64 // $/MWh

	CurtailPenaltyScale float64 // user factor on must-take curtailment penalty, default 1
}

// DefaultConfig returns the formulation defaults used when a config file
// omits a field.
func DefaultConfig() Config {
	return Config{
		SimHorizonHours:            24,
		NumSimDays:                 365,
		UseSpinVar:                 true,
		UseNonDispatchStatusVar:    false,
		DCOPF:                      "voltage_angle",
		SpinReserveFactor:          0.15,
		SpinMode:                   SpinFraction,
		GenLossFactor:              0,
		LineLossFactor:             0,
		LineCapacityFactor:         1,
		LoadShortfallPenaltyFactor: 1000,
		LoadCurtailPenaltyFactor:   500,
		SpinShortfallPenaltyFactor: 1000,
		CurtailPenaltyScale:        1,
	}
}

// SystemInput is the immutable (post-validation) description of the power
// system being simulated: topology, fleet, storage, demand, reserves, and
// contracts, plus the derived lookup structures builders rely on.
type SystemInput struct {
	Config Config

	Nodes       map[string]*Node
	nodeOrder   []string
	Edges       []*Edge
	edgeIndex   map[[2]string]*Edge

	Thermal     map[string]*ThermalUnit
	Hydro       map[string]*HydroUnit
	NonDispatch map[string]*NonDispatchUnit
	Storage     map[string]*StorageUnit
	Contracts   map[string]*Contract

	Demand          map[string][]float64 // node -> per absolute hour
	SpinRequirement []float64             // per absolute hour, resolved to MW

	// Derived topology, computed by buildTopology().
	NodeGenerators map[string][]string // node -> unit names (any category)
	NodeEdges      map[string][]*Edge  // node -> incident edges (either direction)
	cycleBasis     [][]string

	LoadedAt time.Time

	// StartTime is the clock time of absolute hour 1, used to convert an
	// absolute hour into a time.Time for the solar forecast extension
	// (package forecast). Zero if the model directory didn't supply one.
	StartTime time.Time
	// CloudForecast is an optional MET Norway forecast document (loaded
	// via package meteo) shared by every solar unit's look-ahead
	// capacity estimate once CapacityTimeseries runs out.
	CloudForecast *meteo.METJSONForecast
}

// New creates an empty SystemInput with the given configuration; callers
// populate it via the ingest package and then call Validate.
func New(cfg Config) *SystemInput {
	return &SystemInput{
		Config:         cfg,
		Nodes:          make(map[string]*Node),
		edgeIndex:      make(map[[2]string]*Edge),
		Thermal:        make(map[string]*ThermalUnit),
		Hydro:          make(map[string]*HydroUnit),
		NonDispatch:    make(map[string]*NonDispatchUnit),
		Storage:        make(map[string]*StorageUnit),
		Contracts:      make(map[string]*Contract),
		Demand:         make(map[string][]float64),
		NodeGenerators: make(map[string][]string),
		NodeEdges:      make(map[string][]*Edge),
	}
}

// AddNode registers a node. No node is marked as the reference bus until
// DetermineReferenceBus runs, which should happen after all demand is
// loaded.
func (si *SystemInput) AddNode(name string) *Node {
	if n, ok := si.Nodes[name]; ok {
		return n
	}
	n := &Node{Name: name}
	si.Nodes[name] = n
	si.nodeOrder = append(si.nodeOrder, name)
	return n
}

// AddEdge registers a transmission line. Returns an error if it would
// create a self-loop or duplicate a reversed existing edge.
func (si *SystemInput) AddEdge(e *Edge) error {
	if e.Source == e.Sink {
		return fmt.Errorf("edge %s-%s: self-loops are not allowed", e.Source, e.Sink)
	}
	if _, ok := si.edgeIndex[[2]string{e.Source, e.Sink}]; ok {
		return fmt.Errorf("edge %s-%s: duplicate edge", e.Source, e.Sink)
	}
	if _, ok := si.edgeIndex[[2]string{e.Sink, e.Source}]; ok {
		return fmt.Errorf("edge %s-%s: reversed duplicate of existing edge %s-%s", e.Source, e.Sink, e.Sink, e.Source)
	}
	si.Edges = append(si.Edges, e)
	si.edgeIndex[e.Key()] = e
	return nil
}

// NodeNames returns node names in insertion order, for deterministic
// iteration (e.g. lexicographic tie-breaks on equal peak demand).
func (si *SystemInput) NodeNames() []string {
	out := make([]string, len(si.nodeOrder))
	copy(out, si.nodeOrder)
	return out
}

// DetermineReferenceBus sets IsReference on the node with peak demand
// across the simulation year, breaking ties by lexicographically smallest
// node name (deterministic, per spec.md §8 scenario S2).
func (si *SystemInput) DetermineReferenceBus() {
	var best string
	bestPeak := -1.0
	names := si.NodeNames()
	for _, name := range names {
		peak := 0.0
		for _, d := range si.Demand[name] {
			if d > peak {
				peak = d
			}
		}
		if peak > bestPeak || (peak == bestPeak && (best == "" || name < best)) {
			bestPeak = peak
			best = name
		}
	}
	for _, n := range si.Nodes {
		n.IsReference = false
	}
	if best != "" {
		si.Nodes[best].IsReference = true
	}
}

// ReferenceNode returns the reference bus name, or "" if none is set.
func (si *SystemInput) ReferenceNode() string {
	for _, n := range si.Nodes {
		if n.IsReference {
			return n.Name
		}
	}
	return ""
}

// AbsoluteHour maps a window-local hour t (1-based) in window k (1-based)
// to the absolute hour of the simulation year, per spec.md §3.
func AbsoluteHour(t, k int) int {
	return t + (k-1)*24
}

// buildTopology populates NodeGenerators and NodeEdges from the currently
// loaded fleet and edges. Called by Validate.
func (si *SystemInput) buildTopology() {
	si.NodeGenerators = make(map[string][]string)
	si.NodeEdges = make(map[string][]*Edge)

	addGen := func(node, name string) {
		si.NodeGenerators[node] = append(si.NodeGenerators[node], name)
	}
	for _, u := range si.Thermal {
		addGen(u.Node, u.Name)
	}
	for _, u := range si.Hydro {
		addGen(u.Node, u.Name)
	}
	for _, u := range si.NonDispatch {
		addGen(u.Node, u.Name)
	}

	for _, e := range si.Edges {
		si.NodeEdges[e.Source] = append(si.NodeEdges[e.Source], e)
		si.NodeEdges[e.Sink] = append(si.NodeEdges[e.Sink], e)
	}
}

// CycleBasis returns the precomputed undirected cycle basis: an ordered
// list of node sequences, one per independent cycle, used for Kirchhoff
// voltage-law constraints.
func (si *SystemInput) CycleBasis() [][]string {
	return si.cycleBasis
}

// SetCycleBasis overrides the cycle basis that would otherwise be
// derived by computeCycleBasis, for loaders that read a precomputed
// pownet_cycle_map.json. Validate still computes a basis by DFS when
// SetCycleBasis has not been called.
func (si *SystemInput) SetCycleBasis(cycles [][]string) {
	si.cycleBasis = cycles
}

// EdgeBetween returns the canonical edge between a and b in either
// direction, and whether it is stored in the (a,b) or (b,a) orientation.
func (si *SystemInput) EdgeBetween(a, b string) (edge *Edge, forward bool, ok bool) {
	if e, found := si.edgeIndex[[2]string{a, b}]; found {
		return e, true, true
	}
	if e, found := si.edgeIndex[[2]string{b, a}]; found {
		return e, false, true
	}
	return nil, false, false
}

// TotalDemand returns system-wide demand at the given absolute hour.
func (si *SystemInput) TotalDemand(absoluteHour int) float64 {
	total := 0.0
	for _, series := range si.Demand {
		if absoluteHour >= 1 && absoluteHour <= len(series) {
			total += series[absoluteHour-1]
		}
	}
	return total
}

// ResolveSpinRequirement computes the SpinRequirement series from the
// configured mode, given the total-demand series has been loaded.
func (si *SystemInput) ResolveSpinRequirement(hours int) {
	si.SpinRequirement = make([]float64, hours)
	for h := 1; h <= hours; h++ {
		switch si.Config.SpinMode {
		case SpinAbsoluteMW:
			si.SpinRequirement[h-1] = si.Config.SpinReserveMW
		default:
			si.SpinRequirement[h-1] = si.Config.SpinReserveFactor * si.TotalDemand(h)
		}
	}
}
