package invest

import (
	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/prices"
)

// ServingEntry is one asset currently serving a commodity in a time slice:
// its marginal cost and the quantity it produced in the last dispatch.
type ServingEntry struct {
	Asset    model.AssetID
	Cost     float64
	Quantity float64
}

// ServingStack holds the current servers of a commodity per time slice.
type ServingStack map[model.TimeSliceID][]ServingEntry

// BuildServingStack derives the serving stack for a commodity and region
// from the previous dispatch solution and price table.
func BuildServingStack(m *model.Model, portfolio model.Portfolio, res *dispatch.Result,
	commodity model.CommodityID, region model.RegionID, year int, prev model.PriceTable) ServingStack {
	stack := make(ServingStack)
	for _, a := range portfolio {
		if a.Region != region || !a.Process.Produces(commodity) {
			continue
		}
		for _, ts := range m.TimeSlices.Slices {
			flow := res.Flows[dispatch.FlowKey{Asset: a.ID, Region: region, Commodity: commodity, Slice: ts}]
			if flow <= 0 {
				continue
			}
			cost, ok := prices.MarginalCost(m, a.Process, commodity, region, year, ts, prev)
			if !ok {
				continue
			}
			stack[ts] = append(stack[ts], ServingEntry{Asset: a.ID, Cost: cost, Quantity: flow})
		}
	}
	return stack
}

// marginalUtilisation estimates the quantity an option could competitively
// serve in each time slice: an option cheaper than a current server absorbs
// that server's quantity; equal prices do not displace. The estimate is
// capped by the option's own activity limit and the remaining demand.
func marginalUtilisation(m *model.Model, a *model.Asset, commodity model.CommodityID,
	year int, remaining DemandProfile, stack ServingStack, prev model.PriceTable) DemandProfile {

	flow, ok := a.Process.FlowFor(commodity)
	if !ok || !flow.Output() {
		return DemandProfile{}
	}
	out := make(DemandProfile, len(m.TimeSlices.Slices))
	for _, ts := range m.TimeSlices.Slices {
		optCost, ok := prices.MarginalCost(m, a.Process, commodity, a.Region, year, ts, prev)
		if !ok {
			continue
		}
		// demand not covered by any other server is always up for grabs;
		// an option's own serving quantity stays claimable, it does not
		// compete with itself
		served := 0.0
		displaced := 0.0
		for _, entry := range stack[ts] {
			if entry.Asset == a.ID {
				continue
			}
			served += entry.Quantity
			if optCost < entry.Cost {
				displaced += entry.Quantity
			}
		}
		open := remaining[ts] - served
		if open < 0 {
			open = 0
		}
		potential := open + displaced
		// capped by the option's own availability at current capacity;
		// candidates are bounded by their build limit, if any
		capacity := a.Capacity
		bounded := true
		if a.Candidate {
			if a.Process.Param.CapMaxBuild > 0 {
				capacity = a.Process.Param.CapMaxBuild
			} else {
				bounded = false
			}
		}
		if bounded {
			bounds := a.Process.ActivityBoundsFor(m.TimeSlices, ts)
			if limit := bounds.Upper * capacity * flow.Coeff; potential > limit {
				potential = limit
			}
		}
		if potential > remaining[ts] {
			potential = remaining[ts]
		}
		if potential > 0 {
			out[ts] = potential
		}
	}
	return out
}
