package prices

import (
	"math"

	"github.com/kilianp07/gridplan/core/finance"
	"github.com/kilianp07/gridplan/core/model"
)

// MarginalCost returns the operating cost of producing one unit of the given
// commodity with the process, valuing input and co-product flows at the
// prices in the table. Inputs without a price are treated as free; the
// second return is false when the process does not output the commodity.
func MarginalCost(m *model.Model, p *model.Process, commodity model.CommodityID,
	region model.RegionID, year int, ts model.TimeSliceID, table model.PriceTable) (float64, bool) {
	target, ok := p.FlowFor(commodity)
	if !ok || !target.Output() {
		return 0, false
	}

	// cost per unit of activity
	cost := p.Param.VarOM
	for _, f := range p.Flows {
		cost += math.Abs(f.Coeff) * f.Cost
		if com := m.Commodities[f.Commodity]; com != nil {
			if levy, ok := com.Levies.Get(region, year, ts); ok && levyAppliesToFlow(levy, f) {
				cost += math.Abs(f.Coeff) * levy.Value
			}
		}
		if f.Commodity == commodity {
			continue
		}
		price, ok := table.Get(f.Commodity, region, ts)
		if !ok {
			continue
		}
		if f.Input() {
			cost += -f.Coeff * price
		} else {
			cost -= f.Coeff * price // co-product revenue
		}
	}
	return cost / target.Coeff, true
}

func levyAppliesToFlow(levy model.Levy, f model.Flow) bool {
	switch levy.Balance {
	case model.LevyConsumption:
		return f.Input()
	case model.LevyProduction:
		return f.Output()
	}
	return true
}

// ImputeAbsent fills in prices for commodities absent from the dispatch (no
// producing asset active): each missing commodity is priced at the least-cost
// candidate process, valued at its marginal cost plus its annualised fixed
// cost spread over full utilisation, using already-discovered input prices.
func ImputeAbsent(m *model.Model, table model.PriceTable, year int) model.PriceTable {
	out := table.Clone()
	for _, id := range m.CommodityIDs() {
		com := m.Commodities[id]
		if !com.Balanced() {
			continue
		}
		for _, region := range m.Regions {
			for _, ts := range m.TimeSlices.Slices {
				if _, ok := out.Get(id, region, ts); ok {
					continue
				}
				if price, ok := imputeOne(m, out, id, region, year, ts); ok {
					out.Set(id, region, ts, price)
				}
			}
		}
	}
	return out
}

func imputeOne(m *model.Model, table model.PriceTable, commodity model.CommodityID,
	region model.RegionID, year int, ts model.TimeSliceID) (float64, bool) {
	best := math.Inf(1)
	found := false
	for _, pid := range m.ProcessIDs() {
		p := m.Processes[pid]
		if !p.OperatesIn(region, year) || !p.Produces(commodity) {
			continue
		}
		marginal, ok := MarginalCost(m, p, commodity, region, year, ts, table)
		if !ok {
			continue
		}
		flow, _ := p.FlowFor(commodity)
		annualFixed := finance.AnnualCapitalCost(p.Param.CapitalCost, p.Param.Lifetime, p.Param.DiscountRate) +
			p.Param.FixedOM
		// fixed cost per unit output at full-year utilisation
		unitFixed := 0.0
		if p.Param.Cap2Act > 0 {
			unitFixed = annualFixed / (p.Param.Cap2Act * flow.Coeff)
		}
		if cost := marginal + unitFixed; cost < best {
			best = cost
			found = true
		}
	}
	return best, found
}
