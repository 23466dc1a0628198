// Package prices derives time-sliced commodity prices from dispatch duals
// and imputes prices for commodities the dispatch did not touch.
package prices

import (
	"fmt"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
)

// Strategy is the pricing rule. It is a closed set: call sites switch
// exhaustively so a new strategy is a compile-time change.
type Strategy int

const (
	// StrategyShadow prices a commodity at the dual of its balance
	// constraint.
	StrategyShadow Strategy = iota
	// StrategyScarcityAdjusted removes scarcity rent from the balance
	// dual: the price is the maximum over serving assets of
	// (balance dual - that asset's capacity rent).
	StrategyScarcityAdjusted
)

func (s Strategy) String() string {
	switch s {
	case StrategyShadow:
		return "shadow_prices"
	case StrategyScarcityAdjusted:
		return "scarcity_adjusted"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy maps a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "shadow_prices", "":
		return StrategyShadow, nil
	case "scarcity_adjusted":
		return StrategyScarcityAdjusted, nil
	}
	return 0, fmt.Errorf("unknown pricing strategy %q", s)
}

// Derive builds a price table from a dispatch solution. It is a pure
// function of its inputs: the same solution and strategy always produce the
// same table.
func Derive(m *model.Model, portfolio model.Portfolio, res *dispatch.Result, strategy Strategy) model.PriceTable {
	table := make(model.PriceTable)
	for key, dual := range res.BalanceDuals {
		for _, ts := range m.TimeSlices.SlicesIn(key.Selection) {
			price := dual
			if strategy == StrategyScarcityAdjusted {
				price = scarcityAdjusted(m, portfolio, res, key.Commodity, key.Region, ts, dual)
			}
			table.Set(key.Commodity, key.Region, ts, price)
		}
	}
	applyLevies(m, res.Year, table)
	return table
}

// scarcityAdjusted subtracts the smallest capacity rent among assets serving
// the commodity from the balance dual. When every server is
// capacity-constrained this deflates the price back to the cheapest server's
// own marginal cost; one unconstrained server means no adjustment.
func scarcityAdjusted(m *model.Model, portfolio model.Portfolio, res *dispatch.Result,
	commodity model.CommodityID, region model.RegionID, ts model.TimeSliceID, dual float64) float64 {
	best := 0.0
	found := false
	for _, a := range portfolio {
		if a.Region != region || !a.Process.Produces(commodity) {
			continue
		}
		activityDual, ok := res.ActivityDuals[dispatch.ActivityKey{Asset: a.ID, Slice: ts}]
		if !ok {
			continue
		}
		// Capacity rent in native convention is a non-positive dual;
		// sign-correct and ignore binding lower bounds.
		rent := -activityDual
		if rent < 0 {
			rent = 0
		}
		adjusted := dual - rent
		if !found || adjusted > best {
			best = adjusted
			found = true
		}
	}
	if !found {
		return dual
	}
	return best
}

// applyLevies floors each priced commodity at its levy and prices otherwise
// unpriced levied commodities at the levy itself.
func applyLevies(m *model.Model, year int, table model.PriceTable) {
	for _, id := range m.CommodityIDs() {
		com := m.Commodities[id]
		if len(com.Levies) == 0 {
			continue
		}
		for _, region := range m.Regions {
			for _, ts := range m.TimeSlices.Slices {
				levy, ok := com.Levies.Get(region, year, ts)
				if !ok {
					continue
				}
				if price, ok := table.Get(id, region, ts); !ok || levy.Value > price {
					table.Set(id, region, ts, levy.Value)
				}
			}
		}
	}
}
