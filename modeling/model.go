package modeling

import "fmt"

// ObjectiveSense selects whether Model.Solve minimizes or maximizes the
// objective expression.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Model collects the variables, constraints, and objective of one
// optimization problem. builder.ModelBuilder builds one Model for the
// first rolling-horizon window and reuses it: Update re-bounds variables
// and removes/re-adds window-dependent constraints in place.
type Model struct {
	Name string

	vars        []*Var
	varsByName  map[string]*Var
	constraints []*Constraint
	consByName  map[string]*Constraint

	Objective *LinearExpr
	Sense     ObjectiveSense
}

// NewModel returns an empty model ready for AddVar/AddConstraint calls.
func NewModel(name string) *Model {
	return &Model{
		Name:       name,
		varsByName: make(map[string]*Var),
		consByName: make(map[string]*Constraint),
		Objective:  NewExpr(0),
		Sense:      Minimize,
	}
}

// AddVar registers a new variable. Panics on a duplicate name within the
// model, since that always indicates a builder bug rather than bad
// input data.
func (m *Model) AddVar(name string, kind VarKind, lower, upper float64) *Var {
	if _, dup := m.varsByName[name]; dup {
		panic(fmt.Sprintf("modeling: duplicate variable name %q", name))
	}
	if kind == Binary {
		lower, upper = 0, 1
	}
	v := &Var{Name: name, Kind: kind, Lower: lower, Upper: upper, index: len(m.vars)}
	m.vars = append(m.vars, v)
	m.varsByName[name] = v
	return v
}

// Var looks up a previously added variable by name, or returns nil.
func (m *Model) Var(name string) *Var { return m.varsByName[name] }

// RemoveVar drops a variable by name. Used for the solver package's
// diagnostic export-capacity solve, which adds a throwaway variable and
// removes it once the diagnostic solve is done; ordinary builders never
// call this since their variables live for the model's whole lifetime.
func (m *Model) RemoveVar(name string) bool {
	v, ok := m.varsByName[name]
	if !ok {
		return false
	}
	delete(m.varsByName, name)
	m.vars = append(m.vars[:v.index], m.vars[v.index+1:]...)
	for i := v.index; i < len(m.vars); i++ {
		m.vars[i].index = i
	}
	return true
}

// AddConstraint registers a named linear constraint.
func (m *Model) AddConstraint(name string, expr *LinearExpr, sense Sense, rhs float64) *Constraint {
	if _, dup := m.consByName[name]; dup {
		panic(fmt.Sprintf("modeling: duplicate constraint name %q", name))
	}
	c := &Constraint{Name: name, Expr: expr, Sense: sense, RHS: rhs, index: len(m.constraints)}
	m.constraints = append(m.constraints, c)
	m.consByName[name] = c
	return c
}

// Constraint looks up a previously added constraint by name, or nil.
func (m *Model) Constraint(name string) *Constraint { return m.consByName[name] }

// RemoveConstraint drops a constraint by name, for the rolling-horizon
// rebuild path where a timeseries-driven constraint must be removed and
// re-added at every window transition. Reports whether it existed.
func (m *Model) RemoveConstraint(name string) bool {
	c, ok := m.consByName[name]
	if !ok {
		return false
	}
	delete(m.consByName, name)
	m.constraints = append(m.constraints[:c.index], m.constraints[c.index+1:]...)
	for i := c.index; i < len(m.constraints); i++ {
		m.constraints[i].index = i
	}
	return true
}

// RemoveConstraintsWithPrefix removes every constraint whose name has
// the given prefix and returns how many were removed. Builders use this
// to clear a whole family of per-hour constraints (e.g. "thermal_ramp_up[gen1,")
// in one call before re-adding them for the new window.
func (m *Model) RemoveConstraintsWithPrefix(prefix string) int {
	removed := 0
	for _, name := range m.constraintNamesWithPrefix(prefix) {
		if m.RemoveConstraint(name) {
			removed++
		}
	}
	return removed
}

func (m *Model) constraintNamesWithPrefix(prefix string) []string {
	var names []string
	for name := range m.consByName {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			names = append(names, name)
		}
	}
	return names
}

// SetObjective replaces the model's objective expression and sense.
func (m *Model) SetObjective(expr *LinearExpr, sense ObjectiveSense) {
	m.Objective = expr
	m.Sense = sense
}

// Vars returns every variable in insertion order.
func (m *Model) Vars() []*Var { return m.vars }

// Constraints returns every constraint in insertion order.
func (m *Model) Constraints() []*Constraint { return m.constraints }

// Fix narrows a variable's bounds to a single value, the mechanism
// both the rounding heuristic and the LMP re-solve (package solver) use
// to pin a variable without rebuilding the model.
func (v *Var) Fix(value float64) {
	v.Lower, v.Upper = value, value
}

// IsFixed reports whether the variable's bounds have been narrowed to a
// single point.
func (v *Var) IsFixed() bool { return v.Lower == v.Upper }

// IsDiscrete reports whether the variable must take integer values.
func (v *Var) IsDiscrete() bool { return v.Kind == Integer || v.Kind == Binary }
