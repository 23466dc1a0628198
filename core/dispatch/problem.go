package dispatch

import (
	"math"

	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/solver"
)

// FlowKey identifies a flow decision variable.
type FlowKey struct {
	Asset     model.AssetID
	Region    model.RegionID
	Commodity model.CommodityID
	Slice     model.TimeSliceID
}

// UnmetKey identifies an unmet-demand variable.
type UnmetKey struct {
	Commodity model.CommodityID
	Region    model.RegionID
	Slice     model.TimeSliceID
}

// BalanceKey identifies a commodity balance constraint.
type BalanceKey struct {
	Commodity model.CommodityID
	Region    model.RegionID
	Selection model.Selection
}

// ActivityKey identifies an asset's capacity/availability constraint in one
// time slice.
type ActivityKey struct {
	Asset model.AssetID
	Slice model.TimeSliceID
}

// builder assembles the LP for one dispatch solve.
type builder struct {
	m         *model.Model
	portfolio model.Portfolio
	year      int
	opts      Options
	problem   *solver.Problem

	// included assets, in portfolio order
	assets model.Portfolio

	flowVars  map[FlowKey]solver.Col
	flowKeys  []FlowKey
	unmetVars map[UnmetKey]solver.Col
	unmetKeys []UnmetKey

	balanceRows  map[BalanceKey]solver.Row
	activityRows map[ActivityKey]solver.Row
	co2Row       *solver.Row
}

func newBuilder(m *model.Model, portfolio model.Portfolio, year int, opts Options) *builder {
	b := &builder{
		m:            m,
		portfolio:    portfolio,
		year:         year,
		opts:         opts,
		problem:      solver.NewProblem(),
		flowVars:     make(map[FlowKey]solver.Col),
		unmetVars:    make(map[UnmetKey]solver.Col),
		balanceRows:  make(map[BalanceKey]solver.Row),
		activityRows: make(map[ActivityKey]solver.Row),
	}
	for _, a := range portfolio {
		if b.assetInScope(a) {
			b.assets = append(b.assets, a)
		}
	}
	return b
}

// assetInScope reports whether an asset participates in this solve. In
// partial mode only producers of subset commodities do.
func (b *builder) assetInScope(a *model.Asset) bool {
	if !a.Process.OperatesIn(a.Region, b.year) {
		return false
	}
	if b.opts.Subset == nil {
		return true
	}
	for _, f := range a.Process.Flows {
		if f.Output() && b.opts.Subset[f.Commodity] {
			return true
		}
	}
	return false
}

// commodityInScope reports whether balance rows are built for a commodity.
func (b *builder) commodityInScope(id model.CommodityID) bool {
	return b.opts.Subset == nil || b.opts.Subset[id]
}

func (b *builder) addFlowVariables() {
	for _, a := range b.assets {
		for _, f := range a.Process.Flows {
			for _, ts := range b.m.TimeSlices.Slices {
				cost := b.costCoefficient(a, f, ts)
				lo, hi := 0.0, math.Inf(1)
				if f.Input() {
					lo, hi = math.Inf(-1), 0.0
				}
				key := FlowKey{Asset: a.ID, Region: a.Region, Commodity: f.Commodity, Slice: ts}
				b.flowVars[key] = b.problem.AddColumn(cost, lo, hi)
				b.flowKeys = append(b.flowKeys, key)
			}
		}
	}
}

// costCoefficient is the objective weight of one flow variable: per-flow
// cost, variable O&M on PACs, levies by balance type, carbon price on carbon
// output, and previous-year prices on boundary flows in partial mode. The
// coefficient is negated for inputs so consumption always costs, never pays.
func (b *builder) costCoefficient(a *model.Asset, f model.Flow, ts model.TimeSliceID) float64 {
	c := f.Cost
	if f.IsPAC {
		c += a.Process.Param.VarOM
	}
	if com := b.m.Commodities[f.Commodity]; com != nil {
		if levy, ok := com.Levies.Get(a.Region, b.year, ts); ok && levyApplies(levy, f) {
			c += levy.Value
		}
	}
	if b.opts.CO2Price != nil && b.m.Carbon != nil && f.Commodity == b.m.Carbon.Commodity && f.Output() {
		c += *b.opts.CO2Price
	}
	if b.opts.Subset != nil && !b.opts.Subset[f.Commodity] {
		if price, ok := b.opts.PrevPrices.Get(f.Commodity, a.Region, ts); ok {
			if f.Input() {
				c += price // bought across the boundary
			} else {
				c -= price // sold across the boundary
			}
		}
	}
	if f.Input() {
		return -c
	}
	return c
}

func levyApplies(levy model.Levy, f model.Flow) bool {
	switch levy.Balance {
	case model.LevyConsumption:
		return f.Input()
	case model.LevyProduction:
		return f.Output()
	}
	return true
}

func (b *builder) addUnmetVariables() {
	for _, id := range b.m.CommodityIDs() {
		com := b.m.Commodities[id]
		if !com.Balanced() || !com.AllowUnmet || !b.commodityInScope(id) {
			continue
		}
		for _, region := range b.m.Regions {
			for _, ts := range b.m.TimeSlices.Slices {
				key := UnmetKey{Commodity: id, Region: region, Slice: ts}
				b.unmetVars[key] = b.problem.AddColumn(com.VoLL, 0, math.Inf(1))
				b.unmetKeys = append(b.unmetKeys, key)
			}
		}
	}
}
