// Package dispatch builds and solves the least-cost dispatch optimisation for
// one milestone year: one signed flow variable per asset, commodity and time
// slice, plus unmet-demand slacks, subject to proportionality, capacity,
// availability, balance and volume-limit constraints.
package dispatch

import (
	"fmt"

	"github.com/kilianp07/gridplan/core/logger"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/solver"
)

// Options modify a dispatch solve.
type Options struct {
	// Subset restricts the solve to the given commodities (partial
	// dispatch). Only assets producing a subset commodity participate,
	// balance rows exist only for subset commodities, and flows crossing
	// the boundary are priced with PrevPrices instead of being
	// re-optimised. Nil means the complete system.
	Subset map[model.CommodityID]bool
	// PrevPrices prices boundary flows in partial mode.
	PrevPrices model.PriceTable
	// CO2Price costs carbon output directly in the objective.
	CO2Price *float64
	// CO2Budget adds a hard cap on annual carbon output.
	CO2Budget *float64
}

// Engine builds and solves dispatch problems.
type Engine struct {
	solver solver.Solver
	log    logger.Logger
}

// New returns an Engine using the given solver.
func New(s solver.Solver, log logger.Logger) *Engine {
	return &Engine{solver: s, log: log}
}

// Solve runs the dispatch optimisation for one year over the active
// portfolio. It returns solver.ErrInfeasible (wrapped with year context) when
// no feasible operating point exists; retry policy is the caller's.
func (e *Engine) Solve(m *model.Model, portfolio model.Portfolio, year int, opts Options) (*Result, error) {
	b := newBuilder(m, portfolio.Sorted(), year, opts)
	b.addFlowVariables()
	b.addUnmetVariables()
	b.addBalanceConstraints()
	b.addProportionalityConstraints()
	b.addCapacityConstraints()
	b.addSeasonalAvailabilityConstraints()
	b.addCommodityLimits()
	b.addCarbonBudget()

	sol, err := e.solver.Solve(b.problem, solver.Minimise)
	if err != nil {
		return nil, fmt.Errorf("dispatch year %d: %w", year, err)
	}
	e.log.Debugw("dispatch solved", map[string]any{
		"year":      year,
		"objective": sol.Objective,
		"vars":      b.problem.NumCols(),
		"rows":      b.problem.NumRows(),
		"partial":   opts.Subset != nil,
	})
	return b.result(sol), nil
}
