package dispatch

import (
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/solver"
)

// Result is the outcome of one dispatch solve. It is produced by one solve
// call, consumed by price discovery and investment appraisal, and then
// discarded.
type Result struct {
	Year      int
	Objective float64
	// Flows holds the signed flow quantity per asset, commodity and time
	// slice (negative = consumed, positive = produced).
	Flows map[FlowKey]float64
	// Unmet holds unserved demand per commodity, region and slice.
	Unmet map[UnmetKey]float64
	// BalanceDuals holds the dual value of each commodity balance
	// constraint, in the solver's native sign convention.
	BalanceDuals map[BalanceKey]float64
	// ActivityDuals holds the dual of each asset's slice-level
	// capacity/availability constraint.
	ActivityDuals map[ActivityKey]float64
	// ReducedCosts holds the reduced cost of each flow variable.
	ReducedCosts map[FlowKey]float64
	// CO2Dual is the dual of the carbon budget row, when one was added.
	CO2Dual *float64
	// Vars and Rows record the size of the solved problem.
	Vars int
	Rows int
}

func (b *builder) result(sol *solver.Solution) *Result {
	r := &Result{
		Year:          b.year,
		Objective:     sol.Objective,
		Flows:         make(map[FlowKey]float64, len(b.flowKeys)),
		Unmet:         make(map[UnmetKey]float64, len(b.unmetKeys)),
		BalanceDuals:  make(map[BalanceKey]float64, len(b.balanceRows)),
		ActivityDuals: make(map[ActivityKey]float64, len(b.activityRows)),
		ReducedCosts:  make(map[FlowKey]float64, len(b.flowKeys)),
		Vars:          b.problem.NumCols(),
		Rows:          b.problem.NumRows(),
	}
	for _, key := range b.flowKeys {
		col := b.flowVars[key]
		r.Flows[key] = sol.X[col]
		r.ReducedCosts[key] = sol.ReducedCosts[col]
	}
	for _, key := range b.unmetKeys {
		r.Unmet[key] = sol.X[b.unmetVars[key]]
	}
	for key, row := range b.balanceRows {
		r.BalanceDuals[key] = sol.Duals[row]
	}
	for key, row := range b.activityRows {
		r.ActivityDuals[key] = sol.Duals[row]
	}
	if b.co2Row != nil {
		d := sol.Duals[*b.co2Row]
		r.CO2Dual = &d
	}
	return r
}

// Production returns the summed positive flow of a commodity in a region and
// slice.
func (r *Result) Production(commodity model.CommodityID, region model.RegionID, ts model.TimeSliceID) float64 {
	var sum float64
	for key, flow := range r.Flows {
		if key.Commodity == commodity && key.Region == region && key.Slice == ts && flow > 0 {
			sum += flow
		}
	}
	return sum
}

// Consumption returns the summed magnitude of negative flows of a commodity
// in a region and slice.
func (r *Result) Consumption(commodity model.CommodityID, region model.RegionID, ts model.TimeSliceID) float64 {
	var sum float64
	for key, flow := range r.Flows {
		if key.Commodity == commodity && key.Region == region && key.Slice == ts && flow < 0 {
			sum -= flow
		}
	}
	return sum
}

// TotalUnmet returns the summed unserved demand across the solution.
func (r *Result) TotalUnmet() float64 {
	var sum float64
	for _, v := range r.Unmet {
		sum += v
	}
	return sum
}

// DemandProfile returns per commodity, region and slice the demand served in
// this solution (summed positive flows) for the given commodities.
func (r *Result) DemandProfile(commodities map[model.CommodityID]bool) map[UnmetKey]float64 {
	out := make(map[UnmetKey]float64)
	for key, flow := range r.Flows {
		if flow > 0 && commodities[key.Commodity] {
			out[UnmetKey{Commodity: key.Commodity, Region: key.Region, Slice: key.Slice}] += flow
		}
	}
	return out
}

// CarbonOutput returns the total carbon commodity production.
func (r *Result) CarbonOutput(carbon model.CommodityID) float64 {
	var sum float64
	for key, flow := range r.Flows {
		if key.Commodity == carbon && flow > 0 {
			sum += flow
		}
	}
	return sum
}
