package refsolver

import (
	"context"
	"math"
	"testing"

	"github.com/devskill-org/pownet-sim/modeling"
)

func TestSolveRelaxationSimpleLP(t *testing.T) {
	m := modeling.NewModel("lp")
	x := m.AddVar("x", modeling.Continuous, 0, 40)
	y := m.AddVar("y", modeling.Continuous, 0, 40)

	// maximize 3x + 2y s.t. x + y <= 4, x + 3y <= 6
	m.AddConstraint("c1", modeling.NewExpr(0).Term(x, 1).Term(y, 1), modeling.LE, 4)
	m.AddConstraint("c2", modeling.NewExpr(0).Term(x, 1).Term(y, 3), modeling.LE, 6)
	m.SetObjective(modeling.NewExpr(0).Term(x, 3).Term(y, 2), modeling.Maximize)

	sol, err := New().SolveRelaxation(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != modeling.Optimal {
		t.Fatalf("status = %v, want Optimal", sol.Status)
	}
	if math.Abs(sol.Objective-12) > 1e-6 {
		t.Fatalf("objective = %v, want 12", sol.Objective)
	}
	if math.Abs(sol.Value(x)-4) > 1e-6 || math.Abs(sol.Value(y)-0) > 1e-6 {
		t.Fatalf("x=%v y=%v, want x=4 y=0", sol.Value(x), sol.Value(y))
	}
}

func TestSolveBinaryCommitment(t *testing.T) {
	m := modeling.NewModel("mip")
	u := m.AddVar("u", modeling.Binary, 0, 1)
	p := m.AddVar("p", modeling.Continuous, 0, 100)

	// minimize 500*u + 20*p s.t. p <= 100*u, p >= 30
	m.AddConstraint("link", modeling.NewExpr(0).Term(p, 1).Term(u, -100), modeling.LE, 0)
	m.AddConstraint("demand", modeling.NewExpr(0).Term(p, 1), modeling.GE, 30)
	m.SetObjective(modeling.NewExpr(0).Term(u, 500).Term(p, 20), modeling.Minimize)

	sol, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != modeling.Optimal {
		t.Fatalf("status = %v, want Optimal", sol.Status)
	}
	if math.Abs(sol.Value(u)-1) > 1e-6 {
		t.Fatalf("u = %v, want 1", sol.Value(u))
	}
	if math.Abs(sol.Value(p)-30) > 1e-6 {
		t.Fatalf("p = %v, want 30", sol.Value(p))
	}
}

func TestSolveInfeasible(t *testing.T) {
	m := modeling.NewModel("infeasible")
	x := m.AddVar("x", modeling.Continuous, 0, 5)
	m.AddConstraint("lower", modeling.NewExpr(0).Term(x, 1), modeling.GE, 10)
	m.SetObjective(modeling.NewExpr(0).Term(x, 1), modeling.Minimize)

	sol, err := New().SolveRelaxation(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != modeling.Infeasible {
		t.Fatalf("status = %v, want Infeasible", sol.Status)
	}
}
