package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Simplex solves linear programs with gonum's simplex implementation.
//
// gonum's simplex does not expose the optimal basis, so shadow prices cannot
// be read off the primal solve. Instead the explicit dual program is solved
// with the same algorithm; reduced costs then follow as c - Aᵀy over the
// structural rows.
type Simplex struct {
	// Tol is the simplex convergence tolerance.
	Tol float64
}

// NewSimplex returns a Simplex with the default tolerance.
func NewSimplex() *Simplex { return &Simplex{Tol: 1e-7} }

// simplexSolve points to the underlying simplex call. It can be overridden in
// tests to simulate solver failures.
var simplexSolve = lp.Simplex

// ineqSource records which problem row or column bound an inequality row of
// the general form was generated from.
type ineqSource struct {
	row       int  // structural row index, -1 for column bounds
	col       int  // column index, -1 for structural rows
	lowerSide bool // true when generated from the lower bound
}

// generalForm is the problem expressed as min cᵀx s.t. Gx <= h, Ax = b with
// free x; variable bounds are folded into G.
type generalForm struct {
	n       int
	c       []float64
	eqTerms [][]Term
	eqRHS   []float64
	eqRows  []int // structural row index per equality
	gTerms  [][]Term
	gRHS    []float64
	gSrc    []ineqSource
}

func buildGeneralForm(p *Problem, sense Sense) (*generalForm, error) {
	n := len(p.cols)
	if n == 0 {
		return nil, fmt.Errorf("solver: problem has no variables")
	}
	gf := &generalForm{n: n, c: make([]float64, n)}
	for j, col := range p.cols {
		gf.c[j] = col.cost
		if sense == Maximise {
			gf.c[j] = -col.cost
		}
		if finite(col.upper) {
			gf.gTerms = append(gf.gTerms, []Term{{Col: Col(j), Coeff: 1}})
			gf.gRHS = append(gf.gRHS, col.upper)
			gf.gSrc = append(gf.gSrc, ineqSource{row: -1, col: j})
		}
		if finite(col.lower) {
			gf.gTerms = append(gf.gTerms, []Term{{Col: Col(j), Coeff: -1}})
			gf.gRHS = append(gf.gRHS, -col.lower)
			gf.gSrc = append(gf.gSrc, ineqSource{row: -1, col: j, lowerSide: true})
		}
	}
	for i, r := range p.rows {
		switch {
		case isEq(r.lower, r.upper):
			gf.eqTerms = append(gf.eqTerms, r.terms)
			gf.eqRHS = append(gf.eqRHS, r.lower)
			gf.eqRows = append(gf.eqRows, i)
		default:
			if finite(r.upper) {
				gf.gTerms = append(gf.gTerms, r.terms)
				gf.gRHS = append(gf.gRHS, r.upper)
				gf.gSrc = append(gf.gSrc, ineqSource{row: i, col: -1})
			}
			if finite(r.lower) {
				neg := make([]Term, len(r.terms))
				for k, t := range r.terms {
					neg[k] = Term{Col: t.Col, Coeff: -t.Coeff}
				}
				gf.gTerms = append(gf.gTerms, neg)
				gf.gRHS = append(gf.gRHS, -r.lower)
				gf.gSrc = append(gf.gSrc, ineqSource{row: i, col: -1, lowerSide: true})
			}
		}
	}
	if len(gf.eqRHS) == 0 && len(gf.gRHS) == 0 {
		return nil, fmt.Errorf("solver: problem has no constraints or bounds")
	}
	return gf, nil
}

// standardForm converts the general form to min c̃ᵀz s.t. Ãz = b̃, z >= 0 with
// z = [x⁺ x⁻ s]: free variables split into signed parts, one slack per
// inequality.
func (gf *generalForm) standardForm() (cStd []float64, aStd *mat.Dense, bStd []float64) {
	n := gf.n
	mEq := len(gf.eqRHS)
	mIneq := len(gf.gRHS)
	zDim := 2*n + mIneq

	cStd = make([]float64, zDim)
	for j := 0; j < n; j++ {
		cStd[j] = gf.c[j]
		cStd[n+j] = -gf.c[j]
	}

	aStd = mat.NewDense(mEq+mIneq, zDim, nil)
	bStd = make([]float64, mEq+mIneq)
	for i, terms := range gf.eqTerms {
		for _, t := range terms {
			aStd.Set(i, int(t.Col), aStd.At(i, int(t.Col))+t.Coeff)
			aStd.Set(i, n+int(t.Col), aStd.At(i, n+int(t.Col))-t.Coeff)
		}
		bStd[i] = gf.eqRHS[i]
	}
	for k, terms := range gf.gTerms {
		i := mEq + k
		for _, t := range terms {
			aStd.Set(i, int(t.Col), aStd.At(i, int(t.Col))+t.Coeff)
			aStd.Set(i, n+int(t.Col), aStd.At(i, n+int(t.Col))-t.Coeff)
		}
		aStd.Set(i, 2*n+k, 1)
		bStd[i] = gf.gRHS[k]
	}
	return cStd, aStd, bStd
}

// Solve implements Solver.
func (s *Simplex) Solve(p *Problem, sense Sense) (*Solution, error) {
	gf, err := buildGeneralForm(p, sense)
	if err != nil {
		return nil, err
	}

	cStd, aStd, bStd := gf.standardForm()
	opt, zStd, err := simplexSolve(cStd, aStd, bStd, s.Tol, nil)
	if err != nil {
		switch err {
		case lp.ErrInfeasible:
			return &Solution{Status: StatusInfeasible}, ErrInfeasible
		case lp.ErrUnbounded:
			return &Solution{Status: StatusUnbounded}, ErrUnbounded
		}
		return nil, fmt.Errorf("solver: simplex failed: %w", err)
	}

	n := gf.n
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = zStd[j] - zStd[n+j]
	}

	mu, lambda, err := s.solveDual(gf)
	if err != nil {
		return nil, fmt.Errorf("solver: recover duals: %w", err)
	}

	// Shadow price per structural row: -mu for equalities, and the net of
	// upper/lower side multipliers for ranged rows.
	duals := make([]float64, len(p.rows))
	for i, rowIdx := range gf.eqRows {
		duals[rowIdx] = -mu[i]
	}
	for k, src := range gf.gSrc {
		if src.row < 0 {
			continue
		}
		if src.lowerSide {
			duals[src.row] += lambda[k]
		} else {
			duals[src.row] -= lambda[k]
		}
	}

	// Reduced cost: objective coefficient minus the structural rows' dual
	// contribution, rc = c - Aᵀy.
	reduced := make([]float64, n)
	copy(reduced, gf.c)
	for i, r := range p.rows {
		if duals[i] == 0 {
			continue
		}
		for _, t := range r.terms {
			reduced[t.Col] -= duals[i] * t.Coeff
		}
	}

	objective := opt
	if sense == Maximise {
		objective = -opt
		for i := range duals {
			duals[i] = -duals[i]
		}
		for j := range reduced {
			reduced[j] = -reduced[j]
		}
	}

	return &Solution{
		Status:       StatusOptimal,
		Objective:    objective,
		X:            x,
		Duals:        duals,
		ReducedCosts: reduced,
	}, nil
}

// solveDual solves min bᵀμ + hᵀλ s.t. Aᵀμ + Gᵀλ = -c, λ >= 0 and returns the
// multipliers for the equality and inequality rows of the general form.
func (s *Simplex) solveDual(gf *generalForm) (mu, lambda []float64, err error) {
	n := gf.n
	mEq := len(gf.eqRHS)
	mIneq := len(gf.gRHS)
	zDim := 2*mEq + mIneq // mu split into signed parts, lambda >= 0

	cD := make([]float64, zDim)
	for i := 0; i < mEq; i++ {
		cD[i] = gf.eqRHS[i]
		cD[mEq+i] = -gf.eqRHS[i]
	}
	for k := 0; k < mIneq; k++ {
		cD[2*mEq+k] = gf.gRHS[k]
	}

	aD := mat.NewDense(n, zDim, nil)
	bD := make([]float64, n)
	for j := 0; j < n; j++ {
		bD[j] = -gf.c[j]
	}
	for i, terms := range gf.eqTerms {
		for _, t := range terms {
			aD.Set(int(t.Col), i, aD.At(int(t.Col), i)+t.Coeff)
			aD.Set(int(t.Col), mEq+i, aD.At(int(t.Col), mEq+i)-t.Coeff)
		}
	}
	for k, terms := range gf.gTerms {
		for _, t := range terms {
			aD.Set(int(t.Col), 2*mEq+k, aD.At(int(t.Col), 2*mEq+k)+t.Coeff)
		}
	}

	_, zD, err := simplexSolve(cD, aD, bD, s.Tol, nil)
	if err != nil {
		return nil, nil, err
	}

	mu = make([]float64, mEq)
	for i := 0; i < mEq; i++ {
		mu[i] = zD[i] - zD[mEq+i]
	}
	lambda = make([]float64, mIneq)
	for k := 0; k < mIneq; k++ {
		lambda[k] = zD[2*mEq+k]
	}
	return mu, lambda, nil
}
