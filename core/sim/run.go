package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/invest"
	"github.com/kilianp07/gridplan/core/logger"
	"github.com/kilianp07/gridplan/core/metrics"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/prices"
	"github.com/kilianp07/gridplan/core/solver"
	"github.com/kilianp07/gridplan/internal/eventbus"
)

// Runner owns the milestone-year pipeline. It is the only writer of the
// portfolio and price table; dispatch, pricing and appraisal receive
// snapshots.
type Runner struct {
	model     *model.Model
	engine    *dispatch.Engine
	appraiser *invest.Appraiser
	graph     *CommodityGraph
	log       logger.Logger
	sink      metrics.MetricsSink
	warnings  *eventbus.TypedBus[Warning]
	cfg       Config
	agentIDs  []model.AgentID
}

// New builds a Runner on the given solver. The model must already be
// validated.
func New(m *model.Model, s solver.Solver, log logger.Logger, sink metrics.MetricsSink, cfg Config) *Runner {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	agentIDs := make([]model.AgentID, 0, len(m.Agents))
	for id := range m.Agents {
		agentIDs = append(agentIDs, id)
	}
	sort.Slice(agentIDs, func(i, j int) bool { return agentIDs[i] < agentIDs[j] })
	return &Runner{
		model:     m,
		engine:    dispatch.New(s, log),
		appraiser: invest.NewAppraiser(s, log),
		graph:     NewCommodityGraph(m),
		log:       log,
		sink:      sink,
		warnings:  eventbus.NewTyped[Warning](),
		cfg:       cfg.withDefaults(),
		agentIDs:  agentIDs,
	}
}

// Warnings exposes the bus non-fatal diagnostics are published on.
func (r *Runner) Warnings() *eventbus.TypedBus[Warning] { return r.warnings }

// Run executes the base-year calibration and every subsequent milestone
// year, returning one result per year in order.
func (r *Runner) Run(ctx context.Context, base model.Portfolio) ([]*YearResult, error) {
	if err := r.model.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.graph.Order(); err != nil {
		// cyclic dependencies are allowed; layering is bounded instead
		r.log.Warnf("%v, layered investment falls back to bounded frontier iteration", err)
	}

	baseYear := r.model.BaseYear()
	portfolio := base.Sorted()
	first, table, err := r.calibrate(baseYear, portfolio)
	if err != nil {
		return nil, err
	}
	results := []*YearResult{first}

	prevPrices := table
	prevCO2 := 0.0
	for _, year := range r.model.Years[1:] {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		yr, err := r.runYear(ctx, year, portfolio, prevPrices, prevCO2)
		if err != nil {
			return results, err
		}
		results = append(results, yr)
		portfolio = yr.Portfolio
		prevPrices = yr.Prices
		prevCO2 = yr.CO2Price
	}
	return results, nil
}

// calibrate runs the base-year dispatch with candidates at epsilon capacity
// and derives the initial price table. Unmet demand here is fatal.
func (r *Runner) calibrate(year int, portfolio model.Portfolio) (*YearResult, model.PriceTable, error) {
	withCands := append(portfolio.Sorted(), r.seedAllCandidates(year)...)
	res, err := r.dispatch(year, withCands, dispatch.Options{})
	if err != nil {
		return nil, nil, fmt.Errorf("calibration: %w", err)
	}
	if unmet := res.TotalUnmet(); unmet > 1e-6 {
		return nil, nil, fmt.Errorf("%w: unmet demand %g in year %d", ErrCalibration, unmet, year)
	}
	table := prices.Derive(r.model, withCands, res, r.cfg.PriceStrategy)
	table = prices.ImputeAbsent(r.model, table, year)

	r.recordYearSummary(metrics.YearSummaryEvent{
		Year:       year,
		Iterations: 1,
		Converged:  true,
		Assets:     len(portfolio),
		Time:       time.Now(),
	})
	return &YearResult{
		Year:      year,
		Portfolio: portfolio,
		Prices:    table,
		Dispatch:  res,
		State:     Converged,
		Layering:  LayersDone,
	}, table, nil
}

// runYear advances one milestone year: decommission, then iterate layered
// investment, carbon resolution and price discovery until prices settle or
// the iteration cap is hit.
func (r *Runner) runYear(ctx context.Context, year int, portfolio model.Portfolio,
	prevPrices model.PriceTable, prevCO2 float64) (*YearResult, error) {

	kept, removed := portfolio.Decommission(year)
	yr := &YearResult{Year: year, Portfolio: kept, State: MaxIterationsReached, Layering: LayersDone}
	for _, a := range removed {
		yr.Decommissioned = append(yr.Decommissioned, a.ID)
	}

	table := prevPrices.Clone()
	seed := r.investmentSeed(nil)
	var prevAvg map[model.CommodityID]float64

	for k := 1; k <= r.cfg.MaxIterations; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lay, err := r.layeredInvestment(year, yr.Portfolio, table, seed)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", year, err)
		}
		yr.Portfolio = lay.portfolio
		yr.Layering = lay.state
		yr.Unserved = mergeCommodities(yr.Unserved, lay.unserved)
		yr.Decommissioned = append(yr.Decommissioned, lay.decommissioned...)

		// the full-system dispatch carries fresh candidates at epsilon
		// capacity so their reduced costs show up in the price table
		withCands := append(yr.Portfolio.Active(year), r.seedAllCandidates(year)...)
		res, co2, err := r.resolveCarbon(year, withCands, prevCO2)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", year, err)
		}
		yr.Dispatch = res
		yr.CO2Price = co2
		yr.Iterations = k

		newTable := prices.Derive(r.model, withCands, res, r.cfg.PriceStrategy)
		newTable = prices.ImputeAbsent(r.model, newTable, year)
		avg := loadWeightedSEDPrices(r.model, res, newTable)

		var delta float64
		var moved []model.CommodityID
		var converged bool
		if k == 1 {
			// the first pass has no in-year baseline to compare
			// against; a model without SED commodities is done
			moved = sortedKeys(avg)
			converged = len(avg) == 0
		} else {
			delta, moved = priceDelta(prevAvg, avg, r.cfg.Tolerance)
			converged = delta <= r.cfg.Tolerance
		}
		table, prevAvg = newTable, avg

		r.recordIteration(metrics.IterationEvent{
			Year:       year,
			Iteration:  k,
			PriceDelta: delta,
			Converged:  converged,
			Time:       time.Now(),
		})
		if converged {
			yr.State = Converged
			break
		}
		// next pass revisits only the commodities whose prices moved
		seed = r.investmentSeed(moved)
	}
	yr.Prices = table

	if yr.State == MaxIterationsReached {
		r.warn(Warning{
			Year:        year,
			Kind:        WarnNonConvergence,
			Commodities: sortedKeys(prevAvg),
			Message:     fmt.Sprintf("prices still moving after %d iterations in %d", r.cfg.MaxIterations, year),
			Time:        time.Now(),
		})
	}
	r.recordYearSummary(metrics.YearSummaryEvent{
		Year:        year,
		Iterations:  yr.Iterations,
		Converged:   yr.State == Converged,
		UnmetDemand: yr.Dispatch.TotalUnmet(),
		CO2Price:    yr.CO2Price,
		Assets:      len(yr.Portfolio),
		Time:        time.Now(),
	})
	return yr, nil
}

// investmentSeed picks the frontier seed: the service commodities by
// default, or the given moved commodities on later convergence passes.
func (r *Runner) investmentSeed(moved []model.CommodityID) []model.CommodityID {
	if len(moved) > 0 {
		return moved
	}
	return r.model.SVDCommodities()
}

// dispatch wraps the engine with solve metrics.
func (r *Runner) dispatch(year int, portfolio model.Portfolio, opts dispatch.Options) (*dispatch.Result, error) {
	kind := metrics.SolveFull
	if opts.Subset != nil {
		kind = metrics.SolvePartial
	}
	start := time.Now()
	res, err := r.engine.Solve(r.model, portfolio, year, opts)
	if err != nil {
		return nil, err
	}
	_ = r.sink.RecordSolve(metrics.SolveEvent{
		Year:     year,
		Kind:     kind,
		Vars:     res.Vars,
		Rows:     res.Rows,
		Duration: time.Since(start),
		Time:     time.Now(),
	})
	return res, nil
}

// The sink contract only requires RecordSolve; the richer events are
// delivered when the sink opts in, mirroring how MultiSink forwards them.

func (r *Runner) recordIteration(ev metrics.IterationEvent) {
	if rec, ok := r.sink.(metrics.IterationRecorder); ok {
		_ = rec.RecordIteration(ev)
	}
}

func (r *Runner) recordInvestment(ev metrics.InvestmentEvent) {
	if rec, ok := r.sink.(metrics.InvestmentRecorder); ok {
		_ = rec.RecordInvestment(ev)
	}
}

func (r *Runner) recordYearSummary(ev metrics.YearSummaryEvent) {
	if rec, ok := r.sink.(metrics.YearSummaryRecorder); ok {
		_ = rec.RecordYearSummary(ev)
	}
}

func (r *Runner) warn(w Warning) {
	r.log.Warnf("%s: %s", w.Kind, w.Message)
	r.warnings.Publish(w)
}

func mergeCommodities(a, b []model.CommodityID) []model.CommodityID {
	seen := make(map[model.CommodityID]bool, len(a)+len(b))
	for _, c := range a {
		seen[c] = true
	}
	for _, c := range b {
		seen[c] = true
	}
	out := make([]model.CommodityID, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
