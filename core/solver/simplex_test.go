package solver

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tol = 1e-6

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %g want %g", name, got, want)
	}
}

// Two producers meet a fixed demand of 10. The cheap one is capped at 6, so
// the marginal unit comes from the expensive one: the demand row's shadow
// price must equal its cost.
func TestSimplexDualsOfDemandRow(t *testing.T) {
	p := NewProblem()
	x := p.AddColumn(2, 0, 6)
	y := p.AddColumn(3, 0, math.Inf(1))
	demand := p.AddRow(10, 10, Term{Col: x, Coeff: 1}, Term{Col: y, Coeff: 1})

	sol, err := NewSimplex().Solve(p, Minimise)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	approx(t, "objective", sol.Objective, 24)
	approx(t, "x", sol.X[x], 6)
	approx(t, "y", sol.X[y], 4)
	approx(t, "demand dual", sol.Duals[demand], 3)
	// x sits at its upper bound; forcing it down by one unit costs 3-2.
	approx(t, "rc(x)", sol.ReducedCosts[x], -1)
	approx(t, "rc(y)", sol.ReducedCosts[y], 0)
}

func TestSimplexMaximise(t *testing.T) {
	p := NewProblem()
	x := p.AddColumn(3, 0, 2)
	y := p.AddColumn(2, 0, math.Inf(1))
	cap := p.AddRow(math.Inf(-1), 4, Term{Col: x, Coeff: 1}, Term{Col: y, Coeff: 1})

	sol, err := NewSimplex().Solve(p, Maximise)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	approx(t, "objective", sol.Objective, 10)
	approx(t, "x", sol.X[x], 2)
	approx(t, "y", sol.X[y], 2)
	// One more unit of shared capacity is worth the marginal producer's
	// coefficient.
	approx(t, "cap dual", sol.Duals[cap], 2)
	approx(t, "rc(x)", sol.ReducedCosts[x], 1)
}

func TestSimplexRangedRowLowerBinding(t *testing.T) {
	p := NewProblem()
	x := p.AddColumn(5, 0, math.Inf(1))
	r := p.AddRow(2, 8, Term{Col: x, Coeff: 1})

	sol, err := NewSimplex().Solve(p, Minimise)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	approx(t, "x", sol.X[x], 2)
	// Raising the binding lower bound costs 5 per unit.
	approx(t, "row dual", sol.Duals[r], 5)
}

func TestSimplexInfeasible(t *testing.T) {
	p := NewProblem()
	x := p.AddColumn(1, 0, 1)
	p.AddRow(2, math.Inf(1), Term{Col: x, Coeff: 1})

	sol, err := NewSimplex().Solve(p, Minimise)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible got %v", err)
	}
	if sol == nil || sol.Status != StatusInfeasible {
		t.Fatalf("expected infeasible status, got %+v", sol)
	}
}

func TestSimplexUnbounded(t *testing.T) {
	p := NewProblem()
	x := p.AddColumn(-1, 0, math.Inf(1))
	p.AddRow(0, math.Inf(1), Term{Col: x, Coeff: 1})

	_, err := NewSimplex().Solve(p, Minimise)
	if !errors.Is(err, ErrUnbounded) {
		t.Fatalf("expected ErrUnbounded got %v", err)
	}
}

func TestSimplexSolverFailureSurfaces(t *testing.T) {
	orig := simplexSolve
	simplexSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		return 0, nil, errors.New("boom")
	}
	defer func() { simplexSolve = orig }()

	p := NewProblem()
	x := p.AddColumn(1, 0, 1)
	p.AddRow(0, 1, Term{Col: x, Coeff: 1})
	if _, err := NewSimplex().Solve(p, Minimise); err == nil {
		t.Fatal("expected error from injected solver failure")
	}
}

func TestProblemCounts(t *testing.T) {
	p := NewProblem()
	a := p.AddColumn(1, 0, 1)
	b := p.AddColumn(1, 0, 1)
	p.AddRow(0, 1, Term{Col: a, Coeff: 1}, Term{Col: b, Coeff: 1})
	if p.NumCols() != 2 || p.NumRows() != 1 {
		t.Fatalf("counts: cols=%d rows=%d", p.NumCols(), p.NumRows())
	}
}
