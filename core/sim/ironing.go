package sim

import (
	"math"
	"sort"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
)

// loadWeightedSEDPrices averages each SED commodity's price across regions
// and slices, weighted by the quantity served. Commodities with no load fall
// back to a plain average so an idle commodity still participates in the
// convergence test.
func loadWeightedSEDPrices(m *model.Model, res *dispatch.Result, table model.PriceTable) map[model.CommodityID]float64 {
	out := make(map[model.CommodityID]float64)
	for _, cid := range m.CommodityIDs() {
		if m.Commodities[cid].Kind != model.KindSED {
			continue
		}
		var weighted, load, plain float64
		var n int
		for _, region := range m.Regions {
			for _, ts := range m.TimeSlices.Slices {
				price, ok := table.Get(cid, region, ts)
				if !ok {
					continue
				}
				q := res.Production(cid, region, ts)
				weighted += price * q
				load += q
				plain += price
				n++
			}
		}
		switch {
		case load > 0:
			out[cid] = weighted / load
		case n > 0:
			out[cid] = plain / float64(n)
		}
	}
	return out
}

// priceDelta returns the maximum relative change between two averaged price
// maps and the commodities that moved beyond the tolerance.
func priceDelta(prev, cur map[model.CommodityID]float64, tol float64) (float64, []model.CommodityID) {
	var worst float64
	var moved []model.CommodityID
	for _, cid := range sortedKeys(cur) {
		old, seen := prev[cid]
		if !seen {
			// a commodity priced for the first time always counts as moved
			moved = append(moved, cid)
			worst = math.Inf(1)
			continue
		}
		base := math.Abs(old)
		if base < 1e-12 {
			base = 1e-12
		}
		rel := math.Abs(cur[cid]-old) / base
		if rel > worst {
			worst = rel
		}
		if rel > tol {
			moved = append(moved, cid)
		}
	}
	// a commodity that lost its price (last producer retired) is movement
	// too; convergence is never declared over a shrinking price set
	for _, cid := range sortedKeys(prev) {
		if _, ok := cur[cid]; !ok {
			moved = append(moved, cid)
			worst = math.Inf(1)
		}
	}
	sort.Slice(moved, func(i, j int) bool { return moved[i] < moved[j] })
	return worst, moved
}

func sortedKeys(m map[model.CommodityID]float64) []model.CommodityID {
	out := make([]model.CommodityID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
