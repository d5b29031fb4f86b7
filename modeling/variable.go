// Package modeling is a small, solver-agnostic mixed-integer linear
// programming layer: variables, linear expressions, constraints, and a
// Model that collects them. It exists because the retrieved example
// pack carries no MILP/LP solver binding anywhere (no glpk/cbc/highs/
// or-tools wrapper turned up in any go.mod); the domain spec itself
// treats the solver as an opaque callable out of scope, so this package
// defines the Solver boundary the rest of the simulator programs
// against, and modeling/refsolver supplies the one concrete
// implementation used in this repo.
package modeling

import "fmt"

// VarKind selects the domain a Var is restricted to.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// Var is a decision variable registered with a Model. Callers compare
// Vars by pointer identity; the zero value is not usable.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64

	index int // position in Model.vars, assigned at AddVar time
}

// Index returns the variable's position in its owning Model, used by
// solvers that work against dense column order.
func (v *Var) Index() int { return v.index }
