// Package invest sizes and selects assets to serve a commodity's demand:
// each option is appraised with a small LP (profit-maximising NPV or
// cost-minimising LCOX), ranked, and committed tranche by tranche.
package invest

import (
	"fmt"
	"math"

	"github.com/kilianp07/gridplan/core/finance"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/prices"
	"github.com/kilianp07/gridplan/core/solver"
)

// DemandProfile is demand per time slice for one commodity and region.
type DemandProfile map[model.TimeSliceID]float64

// Total returns the summed demand.
func (d DemandProfile) Total() float64 {
	var sum float64
	for _, v := range d {
		sum += v
	}
	return sum
}

// Clone copies the profile.
func (d DemandProfile) Clone() DemandProfile {
	out := make(DemandProfile, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// toolResult is the outcome of appraising one option against one tranche.
type toolResult struct {
	// capacity chosen by the sub-LP (fixed for existing assets)
	capacity float64
	// activity per time slice, in PAC units
	activity map[model.TimeSliceID]float64
	// metric ranks options; lower is better. Metrics from different
	// objectives must never be compared.
	metric float64
}

// production returns the option's output of the commodity per slice.
func (r *toolResult) production(coeff float64) map[model.TimeSliceID]float64 {
	out := make(map[model.TimeSliceID]float64, len(r.activity))
	for ts, act := range r.activity {
		out[ts] = act * coeff
	}
	return out
}

// annualFixedCost is the yearly fixed cost per unit capacity: annualised
// capital plus fixed O&M.
func annualFixedCost(p *model.Process) float64 {
	return finance.AnnualCapitalCost(p.Param.CapitalCost, p.Param.Lifetime, p.Param.DiscountRate) +
		p.Param.FixedOM
}

// appraise runs the agent's appraisal tool for one option against a demand
// tranche at the commodity's balance granularity.
func appraise(s solver.Solver, m *model.Model, a *model.Asset, commodity model.CommodityID,
	year int, tranche DemandProfile, prev model.PriceTable, objective model.Objective) (*toolResult, error) {

	flow, ok := a.Process.FlowFor(commodity)
	if !ok || !flow.Output() {
		return nil, fmt.Errorf("process %s does not produce %s", a.Process.ID, commodity)
	}
	fixed := annualFixedCost(a.Process)
	com := m.Commodities[commodity]

	p := solver.NewProblem()

	// capacity variable: pinned for existing assets, bounded by the
	// process build limit for candidates
	capLo, capHi := a.Capacity, a.Capacity
	if a.Candidate {
		capLo, capHi = 0, math.Inf(1)
		if a.Process.Param.CapMaxBuild > 0 {
			capHi = a.Process.Param.CapMaxBuild
		}
	}
	capCost := fixed
	if objective == model.ObjectiveNPV {
		capCost = -fixed
	}
	capVar := p.AddColumn(capCost, capLo, capHi)

	// activity variables with per-slice cost or surplus coefficients
	actVars := make(map[model.TimeSliceID]solver.Col, len(m.TimeSlices.Slices))
	for _, ts := range m.TimeSlices.Slices {
		costPerAct, _ := prices.MarginalCost(m, a.Process, commodity, a.Region, year, ts, prev)
		costPerAct *= flow.Coeff // per unit activity
		var coeff float64
		switch objective {
		case model.ObjectiveNPV:
			price, _ := prev.Get(commodity, a.Region, ts)
			coeff = (price * flow.Coeff) - costPerAct // surplus per activity
		case model.ObjectiveLCOX:
			coeff = costPerAct
		}
		actVars[ts] = p.AddColumn(coeff, 0, math.Inf(1))
	}

	// activity within availability limits scaled by the capacity variable
	for _, ts := range m.TimeSlices.Slices {
		bounds := a.Process.ActivityBoundsFor(m.TimeSlices, ts)
		// act - upper*cap <= 0
		p.AddRow(math.Inf(-1), 0,
			solver.Term{Col: actVars[ts], Coeff: 1},
			solver.Term{Col: capVar, Coeff: -bounds.Upper},
		)
		if bounds.Lower > 0 || bounds.Fixed {
			// act - lower*cap >= 0
			p.AddRow(0, math.Inf(1),
				solver.Term{Col: actVars[ts], Coeff: 1},
				solver.Term{Col: capVar, Coeff: -bounds.Lower},
			)
		}
	}

	// demand rows at the commodity balance granularity
	level := com.BalanceLevel
	if com.Kind == model.KindSVD {
		level = model.LevelSlice
	}
	for _, sel := range m.TimeSlices.Selections(level) {
		var terms []solver.Term
		var trancheSel float64
		for _, ts := range m.TimeSlices.SlicesIn(sel) {
			terms = append(terms, solver.Term{Col: actVars[ts], Coeff: flow.Coeff})
			trancheSel += tranche[ts]
		}
		switch objective {
		case model.ObjectiveNPV:
			// serve at most the tranche
			p.AddRow(math.Inf(-1), trancheSel, terms...)
		case model.ObjectiveLCOX:
			// meet the tranche exactly, with VoLL-penalised slack
			u := p.AddColumn(com.VoLL, 0, math.Inf(1))
			terms = append(terms, solver.Term{Col: u, Coeff: 1})
			p.AddRow(trancheSel, trancheSel, terms...)
		}
	}

	sense := solver.Minimise
	if objective == model.ObjectiveNPV {
		sense = solver.Maximise
	}
	sol, err := s.Solve(p, sense)
	if err != nil {
		return nil, fmt.Errorf("appraise %s for %s: %w", a.Process.ID, commodity, err)
	}

	res := &toolResult{
		capacity: sol.X[capVar],
		activity: make(map[model.TimeSliceID]float64, len(actVars)),
	}
	var totalAct, totalCost, totalSurplus float64
	for _, ts := range m.TimeSlices.Slices {
		act := sol.X[actVars[ts]]
		if act < 0 {
			act = 0
		}
		res.activity[ts] = act
		totalAct += act
		costPerAct, _ := prices.MarginalCost(m, a.Process, commodity, a.Region, year, ts, prev)
		costPerAct *= flow.Coeff
		totalCost += act * costPerAct
		price, _ := prev.Get(commodity, a.Region, ts)
		totalSurplus += act * ((price * flow.Coeff) - costPerAct)
	}

	switch objective {
	case model.ObjectiveNPV:
		switch {
		case totalAct <= 0:
			res.metric = math.Inf(1)
		case fixed*res.capacity == 0:
			// free capacity with positive surplus: best possible rank
			res.metric = math.Inf(-1)
		default:
			res.metric = -(totalSurplus / (fixed * res.capacity))
		}
	case model.ObjectiveLCOX:
		output := totalAct * flow.Coeff
		if output <= 0 {
			res.metric = math.Inf(1)
		} else {
			res.metric = (fixed*res.capacity + totalCost) / output
		}
	}
	return res, nil
}
