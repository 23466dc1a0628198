// Package solver wraps a linear-programming solver behind a small boundary:
// build a problem from columns and sparse rows, solve it, and read back the
// primal point, one dual value per row and one reduced cost per column.
package solver

import (
	"errors"
	"fmt"
	"math"
)

// Sense is the optimisation direction.
type Sense int

const (
	Minimise Sense = iota
	Maximise
)

// Status is the solver outcome.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ErrInfeasible indicates the problem has no feasible point.
var ErrInfeasible = errors.New("solver: infeasible")

// ErrUnbounded indicates the objective is unbounded.
var ErrUnbounded = errors.New("solver: unbounded")

// Col is a column (variable) index.
type Col int

// Row is a row (constraint) index.
type Row int

// Term is one coefficient of a sparse row.
type Term struct {
	Col   Col
	Coeff float64
}

type column struct {
	cost  float64
	lower float64
	upper float64
}

type row struct {
	terms []Term
	lower float64
	upper float64
}

// Problem is a linear program under construction. Rows with equal bounds are
// equality constraints; use ±Inf for one-sided rows and free bounds.
type Problem struct {
	cols []column
	rows []row
}

// NewProblem returns an empty problem.
func NewProblem() *Problem { return &Problem{} }

// AddColumn adds a variable with the given objective cost and bounds and
// returns its index.
func (p *Problem) AddColumn(cost, lower, upper float64) Col {
	p.cols = append(p.cols, column{cost: cost, lower: lower, upper: upper})
	return Col(len(p.cols) - 1)
}

// AddRow adds a constraint lower <= terms <= upper and returns its index.
func (p *Problem) AddRow(lower, upper float64, terms ...Term) Row {
	ts := make([]Term, len(terms))
	copy(ts, terms)
	p.rows = append(p.rows, row{terms: ts, lower: lower, upper: upper})
	return Row(len(p.rows) - 1)
}

// NumCols returns the number of variables added so far.
func (p *Problem) NumCols() int { return len(p.cols) }

// NumRows returns the number of constraints added so far.
func (p *Problem) NumRows() int { return len(p.rows) }

// Solution is the result of a successful solve.
type Solution struct {
	Status    Status
	Objective float64
	// X holds one primal value per column.
	X []float64
	// Duals holds one shadow price per row: the marginal change of the
	// objective per unit increase of the row's binding bound.
	Duals []float64
	// ReducedCosts holds one value per column: the marginal change of the
	// objective for forcing a bound-bound variable off its bound.
	ReducedCosts []float64
}

// Solver solves linear programs. Implementations must be safe for concurrent
// use by independent problems.
type Solver interface {
	Solve(p *Problem, sense Sense) (*Solution, error)
}

func isEq(lo, hi float64) bool { return lo == hi }

func finite(v float64) bool { return !math.IsInf(v, 0) }
