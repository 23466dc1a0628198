package dispatch

import (
	"math"

	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/solver"
)

// addBalanceConstraints adds one row per balanced commodity, region and time
// slice selection at the commodity's balance level. SED commodities balance
// to zero, SVD commodities to the demand profile; unmet-demand slacks are
// added where permitted.
func (b *builder) addBalanceConstraints() {
	for _, id := range b.m.CommodityIDs() {
		com := b.m.Commodities[id]
		if !com.Balanced() || !b.commodityInScope(id) {
			continue
		}
		level := com.BalanceLevel
		if com.Kind == model.KindSVD {
			// demand is specified per slice, so SVD balances per slice
			level = model.LevelSlice
		}
		for _, region := range b.m.Regions {
			for _, sel := range b.m.TimeSlices.Selections(level) {
				var terms []solver.Term
				rhs := 0.0
				for _, ts := range b.m.TimeSlices.SlicesIn(sel) {
					for _, a := range b.assets {
						if a.Region != region {
							continue
						}
						key := FlowKey{Asset: a.ID, Region: region, Commodity: id, Slice: ts}
						if v, ok := b.flowVars[key]; ok {
							terms = append(terms, solver.Term{Col: v, Coeff: 1})
						}
					}
					if v, ok := b.unmetVars[UnmetKey{Commodity: id, Region: region, Slice: ts}]; ok {
						terms = append(terms, solver.Term{Col: v, Coeff: 1})
					}
					if com.Kind == model.KindSVD {
						rhs += com.Demand.Get(region, b.year, ts)
					}
				}
				if len(terms) == 0 && rhs == 0 {
					continue
				}
				row := b.problem.AddRow(rhs, rhs, terms...)
				b.balanceRows[BalanceKey{Commodity: id, Region: region, Selection: sel}] = row
			}
		}
	}
}

// addProportionalityConstraints ties every non-PAC flow of a standard asset
// to its first PAC flow via the process flow coefficients. Flexible assets
// get an aggregate activity balance plus flow-share bounds instead.
func (b *builder) addProportionalityConstraints() {
	for _, a := range b.assets {
		if a.Process.Flexible {
			b.addFlexibleRows(a)
			continue
		}
		pac := a.Process.PACs()[0]
		for _, ts := range b.m.TimeSlices.Slices {
			pacVar := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: pac.Commodity, Slice: ts}]
			for _, f := range a.Process.Flows {
				if f.Commodity == pac.Commodity {
					continue
				}
				v := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: f.Commodity, Slice: ts}]
				// var/coeff - pacVar/pacCoeff = 0
				b.problem.AddRow(0, 0,
					solver.Term{Col: v, Coeff: 1 / f.Coeff},
					solver.Term{Col: pacVar, Coeff: -1 / pac.Coeff},
				)
			}
		}
	}
}

// addFlexibleRows links the aggregate input and output activity of a
// flexible asset and bounds individual flow shares.
func (b *builder) addFlexibleRows(a *model.Asset) {
	for _, ts := range b.m.TimeSlices.Slices {
		var terms []solver.Term
		// output activity minus input activity sums to zero; input
		// vars are negative, so -1/coeff keeps their sign consistent
		for _, f := range a.Process.Flows {
			v := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: f.Commodity, Slice: ts}]
			coeff := 1 / f.Coeff
			if f.Input() {
				coeff = -1 / f.Coeff
			}
			terms = append(terms, solver.Term{Col: v, Coeff: coeff})
		}
		b.problem.AddRow(0, 0, terms...)

		for _, f := range a.Process.Flows {
			if f.ShareMin == 0 && f.ShareMax == 0 {
				continue
			}
			b.addShareRows(a, f, ts)
		}
	}
}

// addShareRows bounds a flow's share of the aggregate flow on its side
// (input or output) of a flexible asset.
func (b *builder) addShareRows(a *model.Asset, f model.Flow, ts model.TimeSliceID) {
	sign := 1.0
	if f.Input() {
		sign = -1.0
	}
	v := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: f.Commodity, Slice: ts}]

	side := func(share float64) []solver.Term {
		var terms []solver.Term
		for _, g := range a.Process.Flows {
			if g.Input() != f.Input() {
				continue
			}
			gv := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: g.Commodity, Slice: ts}]
			coeff := -share * sign
			if gv == v {
				coeff += sign
			}
			terms = append(terms, solver.Term{Col: gv, Coeff: coeff})
		}
		return terms
	}

	if f.ShareMax > 0 {
		// q_f <= shareMax * Q_side
		b.problem.AddRow(math.Inf(-1), 0, side(f.ShareMax)...)
	}
	if f.ShareMin > 0 {
		// q_f >= shareMin * Q_side
		b.problem.AddRow(0, math.Inf(1), side(f.ShareMin)...)
	}
}

// addCapacityConstraints bounds the summed PAC flow of each asset in each
// time slice by capacity, cap2act, slice duration and availability. A fixed
// availability bound pins the flow and supersedes the capacity limit.
func (b *builder) addCapacityConstraints() {
	for _, a := range b.assets {
		pacs := a.Process.PACs()
		isInput := pacs[0].Input()
		for _, ts := range b.m.TimeSlices.Slices {
			var terms []solver.Term
			for _, f := range pacs {
				v := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: f.Commodity, Slice: ts}]
				terms = append(terms, solver.Term{Col: v, Coeff: 1})
			}
			limits := a.ActivityLimits(b.m.TimeSlices, ts)
			lo, hi := limits.Lower, limits.Upper
			if isInput {
				// input PAC flows are negative; invert the range
				lo, hi = -hi, -lo
			}
			row := b.problem.AddRow(lo, hi, terms...)
			b.activityRows[ActivityKey{Asset: a.ID, Slice: ts}] = row
		}
	}
}

// addSeasonalAvailabilityConstraints adds availability bounds declared at
// season or annual granularity.
func (b *builder) addSeasonalAvailabilityConstraints() {
	for _, a := range b.assets {
		pacs := a.Process.PACs()
		isInput := pacs[0].Input()
		for _, level := range []model.TimeSliceLevel{model.LevelSeason, model.LevelAnnual} {
			for _, sel := range b.m.TimeSlices.Selections(level) {
				bounds, ok := a.Process.SeasonalBoundsFor(b.m.TimeSlices, sel)
				if !ok {
					continue
				}
				var terms []solver.Term
				for _, ts := range b.m.TimeSlices.SlicesIn(sel) {
					for _, f := range pacs {
						v := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: f.Commodity, Slice: ts}]
						terms = append(terms, solver.Term{Col: v, Coeff: 1})
					}
				}
				lo, hi := bounds.Lower*a.Capacity, bounds.Upper*a.Capacity
				if isInput {
					lo, hi = -hi, -lo
				}
				b.problem.AddRow(lo, hi, terms...)
			}
		}
	}
}

// addCommodityLimits adds net volume constraints (e.g. emission caps) for the
// current year.
func (b *builder) addCommodityLimits() {
	for _, lim := range b.m.Limits {
		if lim.Year != b.year {
			continue
		}
		var terms []solver.Term
		for _, a := range b.assets {
			if lim.Scope == model.ScopeRegion && a.Region != lim.Region {
				continue
			}
			for _, ts := range b.m.TimeSlices.Slices {
				key := FlowKey{Asset: a.ID, Region: a.Region, Commodity: lim.Commodity, Slice: ts}
				if v, ok := b.flowVars[key]; ok {
					terms = append(terms, solver.Term{Col: v, Coeff: 1})
				}
			}
		}
		if len(terms) == 0 {
			continue
		}
		b.problem.AddRow(lim.Lower, lim.Upper, terms...)
	}
}

// addCarbonBudget caps annual carbon output when a budget is supplied with
// the solve options. The row's dual is the implied carbon price.
func (b *builder) addCarbonBudget() {
	if b.opts.CO2Budget == nil || b.m.Carbon == nil {
		return
	}
	var terms []solver.Term
	for _, a := range b.assets {
		f, ok := a.Process.FlowFor(b.m.Carbon.Commodity)
		if !ok || !f.Output() {
			continue
		}
		for _, ts := range b.m.TimeSlices.Slices {
			v := b.flowVars[FlowKey{Asset: a.ID, Region: a.Region, Commodity: f.Commodity, Slice: ts}]
			terms = append(terms, solver.Term{Col: v, Coeff: 1})
		}
	}
	if len(terms) == 0 {
		return
	}
	row := b.problem.AddRow(math.Inf(-1), *b.opts.CO2Budget, terms...)
	b.co2Row = &row
}
