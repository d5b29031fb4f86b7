package refsolver

import (
	"fmt"
	"math"

	"github.com/devskill-org/pownet-sim/modeling"
)

// bigM is the penalty cost attached to artificial variables. Chosen
// large relative to the cost coefficients this simulator's builders
// produce ($/MWh and $/MW figures, rarely above 1e5) so an artificial
// variable is never cheaper than a legitimate basic solution.
const bigM = 1e9

const feasTol = 1e-7

// standardForm is a Model translated into the shape the tableau simplex
// consumes: every structural variable shifted so its lower bound is 0,
// every constraint rewritten as an equality via slack/surplus/artificial
// columns.
type standardForm struct {
	vars   []*modeling.Var // structural vars, in y = x - shift order
	shift  []float64       // y_i = vars[i] - shift[i]
	ranges []float64       // y_i <= ranges[i] (math.Inf(1) if unbounded)

	consNames []string // one per original constraint, for dual lookup
	rowIsUB   []bool    // true for the synthetic "y_i <= range_i" rows
	rowSense  []modeling.Sense // original (pre-normalization) sense, for dual sign
	slackOf   []int     // row -> its slack/surplus column, or -1
	artOf     []int     // row -> its artificial column, or -1
	flipped   []bool    // row was negated to make its RHS non-negative

	numStructural int
	numSlackCols  int // one per <=/>= row and per UB row
	numArtificial int // one per >=/= row (and every UB row, which is a <=)

	// tableau is (numRows+1) x (numCols+1): row 0 is the objective,
	// last column is RHS. Columns: structural | slack/surplus | artificial | RHS.
	tableau [][]float64
	basis   []int // basis[row] = column index of that row's basic variable

	colKind []colKind
	colVar  int // for kindStructural columns, index into vars; else -1
}

type colKind int

const (
	kindStructural colKind = iota
	kindSlack
	kindArtificial
)

// buildStandardForm lowers m into tableau form. relax, when true, treats
// every Integer/Binary variable as Continuous (the LP-relaxation path).
func buildStandardForm(m *modeling.Model, relax bool) (*standardForm, error) {
	sf := &standardForm{}
	for _, v := range m.Vars() {
		lo, hi := v.Lower, v.Upper
		if hi < lo {
			return nil, fmt.Errorf("variable %q has upper bound %g below lower bound %g", v.Name, hi, lo)
		}
		sf.vars = append(sf.vars, v)
		sf.shift = append(sf.shift, lo)
		rng := hi - lo
		sf.ranges = append(sf.ranges, rng)
	}
	sf.numStructural = len(sf.vars)
	_ = relax // discreteness is handled by the branch-and-bound layer, not here

	type rowSpec struct {
		name   string
		coefs  map[int]float64 // var index -> coef, in y-space
		sense  modeling.Sense
		rhs    float64
		isUB   bool
	}
	var rows []rowSpec

	varIndex := make(map[*modeling.Var]int, len(sf.vars))
	for i, v := range sf.vars {
		varIndex[v] = i
	}

	for _, c := range m.Constraints() {
		coefs := make(map[int]float64)
		rhs := c.RHS - c.Expr.Constant()
		for v, coef := range c.Expr.Terms() {
			i, ok := varIndex[v]
			if !ok {
				return nil, fmt.Errorf("constraint %q references variable %q not registered on this model", c.Name, v.Name)
			}
			coefs[i] += coef
			rhs -= coef * sf.shift[i]
		}
		rows = append(rows, rowSpec{name: c.Name, coefs: coefs, sense: c.Sense, rhs: rhs})
	}
	for i, rng := range sf.ranges {
		if math.IsInf(rng, 1) {
			continue
		}
		rows = append(rows, rowSpec{
			name:  fmt.Sprintf("__ub_%s", sf.vars[i].Name),
			coefs: map[int]float64{i: 1},
			sense: modeling.LE,
			rhs:   rng,
			isUB:  true,
		})
	}

	numRows := len(rows)
	// Normalize rows to non-negative RHS by flipping sense+coefs when rhs < 0.
	normalized := make([]rowSpec, numRows)
	origSense := make([]modeling.Sense, numRows)
	flippedRow := make([]bool, numRows)
	for i, r := range rows {
		origSense[i] = r.sense
		if r.rhs < 0 {
			flippedRow[i] = true
			flipped := make(map[int]float64, len(r.coefs))
			for k, v := range r.coefs {
				flipped[k] = -v
			}
			sense := r.sense
			switch sense {
			case modeling.LE:
				sense = modeling.GE
			case modeling.GE:
				sense = modeling.LE
			}
			normalized[i] = rowSpec{name: r.name, coefs: flipped, sense: sense, rhs: -r.rhs, isUB: r.isUB}
		} else {
			normalized[i] = r
		}
	}
	rows = normalized

	// Column layout: structural | slack(one per row needing it) | artificial.
	slackCol := make([]int, numRows) // row -> slack column index, or -1
	artCol := make([]int, numRows)   // row -> artificial column index, or -1
	for i := range slackCol {
		slackCol[i], artCol[i] = -1, -1
	}
	numCols := sf.numStructural
	for i, r := range rows {
		switch r.sense {
		case modeling.LE:
			slackCol[i] = numCols
			numCols++
		case modeling.GE:
			slackCol[i] = numCols // surplus, coefficient -1
			numCols++
			artCol[i] = numCols
			numCols++
		case modeling.EQ:
			artCol[i] = numCols
			numCols++
		}
	}

	sf.colKind = make([]colKind, numCols)
	sf.colVar = 0
	colVarOf := make([]int, numCols)
	for i := range colVarOf {
		colVarOf[i] = -1
	}
	for i := range sf.vars {
		sf.colKind[i] = kindStructural
		colVarOf[i] = i
	}
	for i, c := range slackCol {
		if c >= 0 {
			sf.colKind[c] = kindSlack
		}
		_ = i
	}
	for i, c := range artCol {
		if c >= 0 {
			sf.colKind[c] = kindArtificial
		}
		_ = i
	}

	sf.tableau = make([][]float64, numRows+1)
	for i := range sf.tableau {
		sf.tableau[i] = make([]float64, numCols+1)
	}
	sf.basis = make([]int, numRows)
	sf.consNames = make([]string, numRows)
	sf.rowIsUB = make([]bool, numRows)
	sf.rowSense = make([]modeling.Sense, numRows)
	sf.slackOf = make([]int, numRows)
	sf.artOf = make([]int, numRows)
	sf.flipped = flippedRow

	for i, r := range rows {
		row := sf.tableau[i+1]
		for idx, coef := range r.coefs {
			row[idx] = coef
		}
		switch r.sense {
		case modeling.LE:
			row[slackCol[i]] = 1
			sf.basis[i] = slackCol[i]
		case modeling.GE:
			row[slackCol[i]] = -1
			row[artCol[i]] = 1
			sf.basis[i] = artCol[i]
		case modeling.EQ:
			row[artCol[i]] = 1
			sf.basis[i] = artCol[i]
		}
		row[numCols] = r.rhs
		sf.consNames[i] = r.name
		sf.rowIsUB[i] = r.isUB
		sf.rowSense[i] = origSense[i]
		sf.slackOf[i] = slackCol[i]
		sf.artOf[i] = artCol[i]
	}

	// Objective row: minimize c^T y + bigM * sum(artificials), with a
	// Maximize objective negated into a minimization. Row 0 holds reduced
	// costs, so the simplex's "improve while negative" rule is uniform.
	obj := sf.tableau[0]
	sense := 1.0
	if m.Sense == modeling.Maximize {
		sense = -1.0
	}
	for v, coef := range m.Objective.Terms() {
		i, ok := varIndex[v]
		if !ok {
			return nil, fmt.Errorf("objective references variable %q not registered on this model", v.Name)
		}
		obj[i] += sense * coef
	}
	for i, c := range artCol {
		if c >= 0 {
			obj[c] += bigM
			_ = i
		}
	}
	// Price out the artificial columns initially in the basis so row 0
	// reflects reduced costs relative to the starting basic solution.
	for row, basisCol := range sf.basis {
		if sf.colKind[basisCol] != kindArtificial {
			continue
		}
		factor := obj[basisCol]
		if factor == 0 {
			continue
		}
		for col := range obj {
			obj[col] -= factor * sf.tableau[row+1][col]
		}
	}

	return sf, nil
}

// solve runs the two-phase-equivalent Big-M simplex to optimality,
// infeasibility, or unboundedness.
func (sf *standardForm) solve(maxIter int) (modeling.Status, error) {
	numCols := len(sf.tableau[0]) - 1
	for iter := 0; iter < maxIter; iter++ {
		obj := sf.tableau[0]
		enter := -1
		best := -feasTol
		for col := 0; col < numCols; col++ {
			if obj[col] < best {
				best = obj[col]
				enter = col
			}
		}
		if enter == -1 {
			break // optimal
		}

		leave := -1
		bestRatio := math.Inf(1)
		for row := 1; row < len(sf.tableau); row++ {
			coef := sf.tableau[row][enter]
			if coef <= feasTol {
				continue
			}
			ratio := sf.tableau[row][numCols] / coef
			if ratio < bestRatio-feasTol {
				bestRatio = ratio
				leave = row
			}
		}
		if leave == -1 {
			return modeling.Unbounded, nil
		}
		pivot(sf.tableau, leave, enter)
		sf.basis[leave-1] = enter

		if iter == maxIter-1 {
			return modeling.TimeLimitReached, nil
		}
	}

	for row, col := range sf.basis {
		if sf.colKind[col] == kindArtificial && sf.tableau[row+1][numCols] > feasTol {
			return modeling.Infeasible, nil
		}
	}
	return modeling.Optimal, nil
}

func pivot(t [][]float64, row, col int) {
	pv := t[row][col]
	for j := range t[row] {
		t[row][j] /= pv
	}
	for r := range t {
		if r == row {
			continue
		}
		factor := t[r][col]
		if factor == 0 {
			continue
		}
		for j := range t[r] {
			t[r][j] -= factor * t[row][j]
		}
	}
}

// extract reads structural variable values and the objective value out
// of a solved tableau, back in original x-space.
func (sf *standardForm) extract(m *modeling.Model) map[string]float64 {
	numCols := len(sf.tableau[0]) - 1
	y := make([]float64, sf.numStructural)
	for row, col := range sf.basis {
		if col < sf.numStructural {
			y[col] = sf.tableau[row+1][numCols]
		}
	}
	values := make(map[string]float64, sf.numStructural)
	for i, v := range sf.vars {
		values[v.Name] = y[i] + sf.shift[i]
	}
	return values
}

func (sf *standardForm) objectiveValue(m *modeling.Model, values map[string]float64) float64 {
	total := m.Objective.Constant()
	for v, coef := range m.Objective.Terms() {
		total += coef * values[v.Name]
	}
	return total
}

// duals reads shadow prices for the original (non-UB) constraint rows:
// the negative of the final reduced cost on that row's slack/surplus
// column, which at optimality equals the rate of objective improvement
// per unit relaxation of the constraint. GE rows carry a surplus
// column with coefficient -1, so their sign is flipped back here to
// read as a standard shadow price. Equality rows have no slack column;
// their dual is read off the artificial column instead.
func (sf *standardForm) duals() map[string]float64 {
	obj := sf.tableau[0]
	out := make(map[string]float64)
	for row, name := range sf.consNames {
		if sf.rowIsUB[row] || name == "" {
			continue
		}
		col := sf.slackOf[row]
		if col < 0 {
			// The artificial column costs bigM, so its final reduced
			// cost is bigM minus the row's dual.
			price := bigM - obj[sf.artOf[row]]
			if sf.flipped[row] {
				price = -price
			}
			out[name] = price
			continue
		}
		price := -obj[col]
		if sf.rowSense[row] == modeling.GE {
			price = -price
		}
		out[name] = price
	}
	return out
}
