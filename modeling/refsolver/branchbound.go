package refsolver

import (
	"context"
	"math"

	"github.com/devskill-org/pownet-sim/modeling"
)

const (
	intTol        = 1e-6
	maxBBNodes    = 20000
	maxSimplexIts = 5000
)

// node is one subproblem in the branch-and-bound tree: a set of
// tightened bounds layered on top of the parent Model's own bounds.
type node struct {
	overrides map[*modeling.Var][2]float64 // var -> (lower, upper)
}

func (n node) boundsFor(v *modeling.Var) (float64, float64) {
	if b, ok := n.overrides[v]; ok {
		return b[0], b[1]
	}
	return v.Lower, v.Upper
}

// branchAndBound finds the optimal integer-feasible solution to m by
// depth-first search over fractional discrete variables, using the LP
// relaxation as both the subproblem solver and the pruning bound.
func branchAndBound(ctx context.Context, m *modeling.Model) (*modeling.Solution, error) {
	discrete := make([]*modeling.Var, 0)
	for _, v := range m.Vars() {
		if v.IsDiscrete() && !v.IsFixed() {
			discrete = append(discrete, v)
		}
	}

	root := node{overrides: map[*modeling.Var][2]float64{}}
	if len(discrete) == 0 {
		return solveLP(ctx, m, root)
	}

	var best *modeling.Solution
	bestObj := math.Inf(1)
	if m.Sense == modeling.Maximize {
		bestObj = math.Inf(-1)
	}
	better := func(candidate float64) bool {
		if m.Sense == modeling.Maximize {
			return candidate > bestObj+1e-9
		}
		return candidate < bestObj-1e-9
	}

	stack := []node{root}
	nodesExplored := 0
	for len(stack) > 0 && nodesExplored < maxBBNodes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodesExplored++

		sol, err := solveLP(ctx, m, n)
		if err != nil {
			return nil, err
		}
		if sol.Status != modeling.Optimal {
			continue // infeasible or unbounded subtree, prune
		}
		if best != nil && !better(sol.Objective) {
			continue // bound-dominated, prune
		}

		branchVar, frac := mostFractional(discrete, sol, n)
		if branchVar == nil {
			// integer feasible: candidate incumbent
			if best == nil || better(sol.Objective) {
				best = sol
				bestObj = sol.Objective
			}
			continue
		}

		lo, hi := n.boundsFor(branchVar)
		floor := math.Floor(frac)
		ceil := math.Ceil(frac)

		down := cloneNode(n)
		down.overrides[branchVar] = [2]float64{lo, math.Min(hi, floor)}
		up := cloneNode(n)
		up.overrides[branchVar] = [2]float64{math.Max(lo, ceil), hi}

		stack = append(stack, down, up)
	}

	if best == nil {
		return &modeling.Solution{Status: modeling.Infeasible}, nil
	}
	return best, nil
}

func cloneNode(n node) node {
	out := node{overrides: make(map[*modeling.Var][2]float64, len(n.overrides)+1)}
	for v, b := range n.overrides {
		out.overrides[v] = b
	}
	return out
}

// mostFractional returns the discrete variable whose relaxed value is
// farthest from an integer, and that fractional value itself.
func mostFractional(discrete []*modeling.Var, sol *modeling.Solution, n node) (*modeling.Var, float64) {
	var best *modeling.Var
	var bestVal float64
	bestDist := intTol
	for _, v := range discrete {
		val := sol.Value(v)
		dist := math.Abs(val - math.Round(val))
		if dist > bestDist {
			bestDist = dist
			best = v
			bestVal = val
		}
	}
	return best, bestVal
}

// solveLP solves m's LP relaxation with node's bound overrides applied
// on top of each variable's own Lower/Upper, without mutating m.
func solveLP(ctx context.Context, m *modeling.Model, n node) (*modeling.Solution, error) {
	if len(n.overrides) == 0 {
		return solveRelaxationRaw(ctx, m)
	}
	saved := make(map[*modeling.Var][2]float64, len(n.overrides))
	for v, b := range n.overrides {
		saved[v] = [2]float64{v.Lower, v.Upper}
		v.Lower, v.Upper = b[0], b[1]
	}
	defer func() {
		for v, b := range saved {
			v.Lower, v.Upper = b[0], b[1]
		}
	}()
	return solveRelaxationRaw(ctx, m)
}
