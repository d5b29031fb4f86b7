package solver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/modeling/refsolver"
)

// tinyModel is a one-variable-min-cost LP: minimize x subject to
// x >= 10, 0 <= x <= 100.
func tinyModel() *modeling.Model {
	m := modeling.NewModel("tiny")
	x := m.AddVar("x", modeling.Continuous, 0, 100)
	m.AddConstraint("x_floor", modeling.NewExpr(0).Term(x, 1), modeling.GE, 10)
	m.SetObjective(modeling.NewExpr(0).Term(x, 1), modeling.Minimize)
	return m
}

func TestOptimizeAndCheckFeasible(t *testing.T) {
	m := New(tinyModel(), refsolver.New())

	if m.CheckFeasible() {
		t.Fatal("expected CheckFeasible false before any Optimize call")
	}

	sol, err := m.Optimize(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if sol.Status != modeling.Optimal {
		t.Fatalf("expected optimal, got %v", sol.Status)
	}
	if !m.CheckFeasible() {
		t.Fatal("expected CheckFeasible true after a successful Optimize")
	}
	if got := m.GetSolution().Value(m.Model.Var("x")); got != 10 {
		t.Errorf("expected x=10 at the floor constraint, got %v", got)
	}
}

func TestWriteMPSProducesRowsAndColumns(t *testing.T) {
	m := New(tinyModel(), refsolver.New())
	dir := t.TempDir()

	path, err := m.WriteMPS(dir, "tiny")
	if err != nil {
		t.Fatalf("WriteMPS: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	for _, want := range []string{"NAME          tiny", "ROWS", "x_floor", "COLUMNS", "RHS"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected MPS output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestSolveForLMPRequiresFeasibleIncumbent(t *testing.T) {
	m := New(tinyModel(), refsolver.New())
	if _, err := m.SolveForLMP(context.Background()); err == nil {
		t.Fatal("expected SolveForLMP to fail before any Optimize call")
	}
}

func TestOptimizeWithRoundingReachesIntegerFeasible(t *testing.T) {
	model := modeling.NewModel("rounding")
	status := model.AddVar("status[gen1,1]", modeling.Binary, 0, 1)
	p := model.AddVar("p[gen1,1]", modeling.Continuous, 0, 50)
	model.AddConstraint("link", modeling.NewExpr(0).Term(p, 1).Term(status, -50), modeling.LE, 0)
	model.AddConstraint("floor", modeling.NewExpr(0).Term(p, 1), modeling.GE, 25)
	model.SetObjective(modeling.NewExpr(0).Term(p, 1).Term(status, 10), modeling.Minimize)

	m := New(model, refsolver.New())
	res, err := m.OptimizeWithRounding(context.Background(), StrategySlow, fractionalTol, 50)
	if err != nil {
		t.Fatalf("OptimizeWithRounding: %v", err)
	}
	if res.Solution.Status != modeling.Optimal {
		t.Fatalf("expected optimal, got %v", res.Solution.Status)
	}
	got := res.Solution.Value(status)
	if got != 0 && got != 1 {
		t.Errorf("expected status fully fixed to 0 or 1, got %v", got)
	}
}

func TestSolveForLMPReturnsPowerBalanceDuals(t *testing.T) {
	model := modeling.NewModel("lmp")
	gen := model.AddVar("pthermal[gen1,1]", modeling.Continuous, 0, 100)
	status := model.AddVar("status[gen1,1]", modeling.Binary, 0, 1)
	model.AddConstraint("power_balance[bus1,1]", modeling.NewExpr(0).Term(gen, 1), modeling.EQ, 50)
	model.AddConstraint("status_link", modeling.NewExpr(0).Term(gen, 1).Term(status, -100), modeling.LE, 0)
	model.SetObjective(modeling.NewExpr(0).Term(gen, 10).Term(status, 1), modeling.Minimize)

	m := New(model, refsolver.New())
	if _, err := m.Optimize(context.Background(), DefaultOptions()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	duals, err := m.SolveForLMP(context.Background())
	if err != nil {
		t.Fatalf("SolveForLMP: %v", err)
	}
	if _, ok := duals["power_balance[bus1,1]"]; !ok {
		t.Errorf("expected a dual for power_balance[bus1,1], got %v", duals)
	}
}
