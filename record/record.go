// Package record accumulates per-window solution values into the
// long-form tables spec.md §4.10 describes, and derives each window's
// InitialConditions for the next window from those tables.
package record

import (
	"sort"

	"github.com/devskill-org/pownet-sim/builder"
	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/system"
)

// binarySnapTol is the tolerance spec.md §4.10 names for snapping a
// binary variable's solved value to exactly 0 or 1 before it is stored.
const binarySnapTol = 1e-4

// NodeValue is one row of the node-keyed long table: a variable's value
// at one node and absolute hour.
type NodeValue struct {
	Hour     int
	Node     string
	Variable string
	Value    float64
}

// FlowValue is one row of the flow-keyed long table: a transmission
// line's forward/backward flow at one absolute hour.
type FlowValue struct {
	Hour     int
	Source   string
	Sink     string
	Variable string
	Value    float64
}

// SystemValue is one row of the system-wide long table: a variable with
// no node or edge identity (spinning-reserve shortfall, objective).
type SystemValue struct {
	Hour     int
	Variable string
	Value    float64
}

// unitState is the per-unit, per-hour commitment snapshot SystemRecord
// keeps internally so DeriveInitialConditions doesn't have to re-scan
// the long tables by string matching.
type unitState struct {
	dispatch map[int]float64 // p[g,t]: dispatch above min capacity
	status   map[int]float64 // u[g,t]
	startup  map[int]float64 // v[g,t]
	shutdown map[int]float64 // w[g,t]
}

// SystemRecord accumulates every window's solved values into the three
// long tables named above, append-only across the whole simulation, per
// spec.md §3's SystemRecord lifecycle note.
type SystemRecord struct {
	sys *system.SystemInput

	NodeValues   []NodeValue
	FlowValues   []FlowValue
	SystemValues []SystemValue

	thermal map[string]*unitState
	storage map[string]map[int]float64 // charge_state[s,t]
}

// New returns an empty SystemRecord bound to sys's fleet, for
// DeriveInitialConditions to look up unit parameters (TU/TD) by name.
func New(sys *system.SystemInput) *SystemRecord {
	r := &SystemRecord{
		sys:     sys,
		thermal: make(map[string]*unitState),
		storage: make(map[string]map[int]float64),
	}
	for name := range sys.Thermal {
		r.thermal[name] = &unitState{
			dispatch: make(map[int]float64),
			status:   make(map[int]float64),
			startup:  make(map[int]float64),
			shutdown: make(map[int]float64),
		}
	}
	for name := range sys.Storage {
		r.storage[name] = make(map[int]float64)
	}
	return r
}

// RecordWindow appends window k's solved values (hours t=1..h, absolute
// hour = system.AbsoluteHour(t,k)) into the long tables, reading each
// component's variables by the naming convention its builder uses.
func (r *SystemRecord) RecordWindow(k, h int, sol *modeling.Solution) {
	for t := 1; t <= h; t++ {
		abs := system.AbsoluteHour(t, k)
		r.recordThermal(abs, t, sol)
		r.recordHydro(abs, t, sol)
		r.recordNonDispatch(abs, t, sol)
		r.recordStorage(abs, t, sol)
		r.recordSystem(abs, t, sol)
	}
}

func snapBinary(v float64) float64 {
	switch {
	case v >= 1-binarySnapTol:
		return 1
	case v <= binarySnapTol:
		return 0
	default:
		return v
	}
}

func (r *SystemRecord) recordThermal(abs, t int, sol *modeling.Solution) {
	for name, u := range r.sys.Thermal {
		st := r.thermal[name]
		dispatch := sol.Values[varName("pthermal", name, t)]
		status := snapBinary(sol.Values[varName("status", name, t)])
		startup := snapBinary(sol.Values[varName("startup", name, t)])
		shutdown := snapBinary(sol.Values[varName("shutdown", name, t)])

		st.dispatch[abs] = dispatch
		st.status[abs] = status
		st.startup[abs] = startup
		st.shutdown[abs] = shutdown

		r.NodeValues = append(r.NodeValues,
			NodeValue{abs, u.Node, "pthermal[" + name + "]", dispatch},
			NodeValue{abs, u.Node, "status[" + name + "]", status},
		)
	}
}

func (r *SystemRecord) recordHydro(abs, t int, sol *modeling.Solution) {
	for name, u := range r.sys.Hydro {
		v := sol.Values[varName("phydro", name, t)]
		r.NodeValues = append(r.NodeValues, NodeValue{abs, u.Node, "phydro[" + name + "]", v})
	}
}

func (r *SystemRecord) recordNonDispatch(abs, t int, sol *modeling.Solution) {
	for name, u := range r.sys.NonDispatch {
		varPrefix := "p" + u.Kind.String()
		v := sol.Values[varName(varPrefix, name, t)]
		r.NodeValues = append(r.NodeValues, NodeValue{abs, u.Node, varPrefix + "[" + name + "]", v})
	}
}

func (r *SystemRecord) recordStorage(abs, t int, sol *modeling.Solution) {
	for name, u := range r.sys.Storage {
		charge := sol.Values[varName("pcharge", name, t)]
		discharge := sol.Values[varName("pdischarge", name, t)]
		state := sol.Values[varName("charge_state", name, t)]
		r.storage[name][abs] = state

		node := u.AttachToNode
		if u.IsColocated() {
			if gen, ok := r.sys.Thermal[u.AttachToGenerator]; ok {
				node = gen.Node
			} else if gen, ok := r.sys.Hydro[u.AttachToGenerator]; ok {
				node = gen.Node
			} else if gen, ok := r.sys.NonDispatch[u.AttachToGenerator]; ok {
				node = gen.Node
			}
		}
		r.NodeValues = append(r.NodeValues,
			NodeValue{abs, node, "pcharge[" + name + "]", charge},
			NodeValue{abs, node, "pdischarge[" + name + "]", discharge},
			NodeValue{abs, node, "charge_state[" + name + "]", state},
		)
	}
}

func (r *SystemRecord) recordSystem(abs, t int, sol *modeling.Solution) {
	for _, node := range r.sys.NodeNames() {
		pos := sol.Values[varName("pos_mismatch", node, t)]
		neg := sol.Values[varName("neg_mismatch", node, t)]
		r.NodeValues = append(r.NodeValues,
			NodeValue{abs, node, "pos_mismatch", pos},
			NodeValue{abs, node, "neg_mismatch", neg},
		)
	}
	for _, e := range r.sys.Edges {
		fwd := sol.Values[flowVarName("flow_fwd", e.Source, e.Sink, t)]
		bwd := sol.Values[flowVarName("flow_bwd", e.Source, e.Sink, t)]
		r.FlowValues = append(r.FlowValues,
			FlowValue{abs, e.Source, e.Sink, "flow_fwd", fwd},
			FlowValue{abs, e.Source, e.Sink, "flow_bwd", bwd},
		)
	}
	r.SystemValues = append(r.SystemValues, SystemValue{abs, "spin_shortfall", sol.Values[hourVarName("spin_shortfall", t)]})
	r.SystemValues = append(r.SystemValues, SystemValue{abs, "objective", sol.Objective})
}

// DeriveInitialConditions computes the InitialConditions the next window
// needs from the hours just recorded, per spec.md §4.10's exact
// formulas: dispatch/status/startup/shutdown carry over from the
// window's final absolute hour, and the remaining min-up/min-down
// obligation is max(0, TU-(H-t_last)) (resp. TD) measured from the
// latest startup (resp. shutdown) hour in the window, or -H if none
// occurred, which forces the max()  to 0.
func (r *SystemRecord) DeriveInitialConditions(k, h int) builder.InitialConditions {
	init := builder.NewInitialConditions()
	finalAbs := system.AbsoluteHour(h, k)
	windowStart := system.AbsoluteHour(1, k)

	for name, u := range r.sys.Thermal {
		st := r.thermal[name]
		init.ThermalDispatch[name] = st.dispatch[finalAbs]
		init.ThermalStatus[name] = st.status[finalAbs]
		init.ThermalStartup[name] = st.startup[finalAbs]
		init.ThermalShutdown[name] = st.shutdown[finalAbs]

		lastStartup := -h
		lastShutdown := -h
		for abs := windowStart; abs <= finalAbs; abs++ {
			t := abs - windowStart + 1
			if st.startup[abs] >= 1-binarySnapTol {
				lastStartup = t
			}
			if st.shutdown[abs] >= 1-binarySnapTol {
				lastShutdown = t
			}
		}
		init.ThermalMinOnLeft[name] = maxInt(0, u.MinUpTime-(h-lastStartup))
		init.ThermalMinOffLeft[name] = maxInt(0, u.MinDownTime-(h-lastShutdown))
	}

	for name := range r.sys.Storage {
		init.StorageCharge[name] = r.storage[name][finalAbs]
	}
	return init
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SortedNodeNames is a small convenience export for callers (store,
// cmd/pownet-sim) that want deterministic iteration over recorded nodes
// without reaching back into system.SystemInput.
func (r *SystemRecord) SortedNodeNames() []string {
	seen := make(map[string]bool)
	for _, v := range r.NodeValues {
		seen[v.Node] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
