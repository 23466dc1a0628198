package dispatch

import (
	"errors"
	"math"
	"testing"

	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/solver"
	"github.com/kilianp07/gridplan/infra/logger"
)

var (
	winterDay = model.TimeSliceID{Season: "winter", TimeOfDay: "day"}
	summerDay = model.TimeSliceID{Season: "summer", TimeOfDay: "day"}
	heat      = model.CommodityID("heat")
	gas       = model.CommodityID("gas")
	co2       = model.CommodityID("co2")
	north     = model.RegionID("north")
)

// energyModel is a two-slice heat system: boiler burns gas and emits CO2,
// heat pump produces heat directly at a higher operating cost.
func energyModel() *model.Model {
	return &model.Model{
		Regions: []model.RegionID{north},
		TimeSlices: &model.TimeSliceInfo{
			Slices:    []model.TimeSliceID{winterDay, summerDay},
			Fractions: map[model.TimeSliceID]float64{winterDay: 0.5, summerDay: 0.5},
			Seasons:   []string{"winter", "summer"},
		},
		Years: []int{2025},
		Commodities: map[model.CommodityID]*model.Commodity{
			heat: {ID: heat, Kind: model.KindSVD, AllowUnmet: true, VoLL: 1000,
				Demand: model.DemandMap{
					{Region: north, Year: 2025, Slice: winterDay}: 6,
					{Region: north, Year: 2025, Slice: summerDay}: 4,
				}},
			gas: {ID: gas, Kind: model.KindSED, BalanceLevel: model.LevelSlice},
			co2: {ID: co2, Kind: model.KindOutput},
		},
		Processes: map[model.ProcessID]*model.Process{
			"gas_boiler": {
				ID: "gas_boiler", StartYear: 2000, EndYear: 2100,
				Flows: []model.Flow{
					{Commodity: heat, Coeff: 1, IsPAC: true},
					{Commodity: gas, Coeff: -1},
					{Commodity: co2, Coeff: 1},
				},
				Param: model.ProcessParam{VarOM: 10, Lifetime: 20, Cap2Act: 1},
			},
			"heat_pump": {
				ID: "heat_pump", StartYear: 2000, EndYear: 2100,
				Flows: []model.Flow{
					{Commodity: heat, Coeff: 1, IsPAC: true},
				},
				Param: model.ProcessParam{VarOM: 15, Lifetime: 20, Cap2Act: 1},
			},
			"gas_well": {
				ID: "gas_well", StartYear: 2000, EndYear: 2100,
				Flows: []model.Flow{
					{Commodity: gas, Coeff: 1, IsPAC: true},
				},
				Param: model.ProcessParam{Lifetime: 20, Cap2Act: 1},
			},
		},
		Agents: map[model.AgentID]*model.Agent{},
	}
}

func asset(m *model.Model, process model.ProcessID, id model.AssetID, capacity float64) *model.Asset {
	return &model.Asset{
		ID:             id,
		Process:        m.Processes[process],
		Region:         north,
		Agent:          "a1",
		Capacity:       capacity,
		CommissionYear: 2020,
	}
}

func fullPortfolio(m *model.Model) model.Portfolio {
	return model.Portfolio{
		asset(m, "gas_boiler", "boiler-1", 20),
		asset(m, "heat_pump", "pump-1", 20),
		asset(m, "gas_well", "well-1", 40),
	}
}

func solve(t *testing.T, m *model.Model, p model.Portfolio, opts Options) *Result {
	t.Helper()
	res, err := New(solver.NewSimplex(), logger.NopLogger{}).Solve(m, p, 2025, opts)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	return res
}

func TestDispatchSEDBalance(t *testing.T) {
	m := energyModel()
	res := solve(t, m, fullPortfolio(m), Options{})
	for _, ts := range m.TimeSlices.Slices {
		prod := res.Production(gas, north, ts)
		cons := res.Consumption(gas, north, ts)
		if math.Abs(prod-cons) > 1e-6 {
			t.Fatalf("gas imbalance in %v: produced %g, consumed %g", ts, prod, cons)
		}
	}
}

func TestDispatchSVDExact(t *testing.T) {
	m := energyModel()
	res := solve(t, m, fullPortfolio(m), Options{})
	for _, ts := range m.TimeSlices.Slices {
		want := m.Commodities[heat].Demand.Get(north, 2025, ts)
		got := res.Production(heat, north, ts) + res.Unmet[UnmetKey{Commodity: heat, Region: north, Slice: ts}]
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("heat served %g in %v, want %g", got, ts, want)
		}
	}
	if res.TotalUnmet() > 1e-6 {
		t.Fatalf("unmet = %g with ample capacity", res.TotalUnmet())
	}
}

func TestDispatchCO2Crossover(t *testing.T) {
	m := energyModel()
	m.Carbon = &model.CarbonPolicy{Commodity: co2}
	p := fullPortfolio(m)

	// gas route costs 10/unit, pump 15/unit, one unit CO2 per unit heat:
	// crossover at a carbon price of 5
	zero := 0.0
	res := solve(t, m, p, Options{CO2Price: &zero})
	if got := flowTotal(res, "pump-1", heat); got > 1e-6 {
		t.Fatalf("heat pump ran %g units at zero carbon price", got)
	}
	if got := flowTotal(res, "boiler-1", heat); math.Abs(got-10) > 1e-6 {
		t.Fatalf("boiler served %g, want 10", got)
	}

	above := 6.0
	res = solve(t, m, p, Options{CO2Price: &above})
	if got := flowTotal(res, "boiler-1", heat); got > 1e-6 {
		t.Fatalf("boiler ran %g units past the carbon crossover", got)
	}
	if got := flowTotal(res, "pump-1", heat); math.Abs(got-10) > 1e-6 {
		t.Fatalf("heat pump served %g, want 10", got)
	}
}

func TestDispatchCarbonBudgetDual(t *testing.T) {
	m := energyModel()
	m.Carbon = &model.CarbonPolicy{Commodity: co2}
	p := fullPortfolio(m)

	// a 4-unit budget forces 6 units onto the pump; the budget's shadow
	// price equals the 5/unit cost differential
	budget := 4.0
	res := solve(t, m, p, Options{CO2Budget: &budget})
	if got := res.CarbonOutput(co2); got > budget+1e-6 {
		t.Fatalf("carbon output %g exceeds budget %g", got, budget)
	}
	if res.CO2Dual == nil {
		t.Fatalf("no dual recorded for the budget row")
	}
	if price := -*res.CO2Dual; math.Abs(price-5) > 1e-6 {
		t.Fatalf("carbon price = %g, want 5", price)
	}
}

func TestDispatchPartialBoundaryPricing(t *testing.T) {
	m := energyModel()
	prev := model.PriceTable{}
	for _, ts := range m.TimeSlices.Slices {
		prev.Set(gas, north, ts, 3)
	}
	res := solve(t, m, fullPortfolio(m), Options{
		Subset:     map[model.CommodityID]bool{heat: true},
		PrevPrices: prev,
	})

	// gas has no balance row: the boiler buys it at the boundary price,
	// 10+3 = 13, still under the pump's 15
	if got := flowTotal(res, "boiler-1", heat); math.Abs(got-10) > 1e-6 {
		t.Fatalf("boiler served %g in partial mode, want 10", got)
	}
	for key := range res.BalanceDuals {
		if key.Commodity == gas {
			t.Fatalf("balance row built for out-of-subset commodity")
		}
	}
	// the well produces nothing: its output has no balance row and
	// selling at the boundary price would be pure arbitrage
	if got := flowTotal(res, "well-1", gas); got > 40-1e-6 {
		t.Fatalf("unbounded boundary arbitrage: well at %g", got)
	}
}

func TestDispatchInfeasibleWithoutSlack(t *testing.T) {
	m := energyModel()
	m.Commodities[heat].AllowUnmet = false
	p := model.Portfolio{asset(m, "heat_pump", "pump-1", 2)} // max 1/slice

	_, err := New(solver.NewSimplex(), logger.NopLogger{}).Solve(m, p, 2025, Options{})
	if err == nil {
		t.Fatalf("expected infeasibility")
	}
	if !errors.Is(err, solver.ErrInfeasible) {
		t.Fatalf("error = %v, want ErrInfeasible", err)
	}
}

func flowTotal(res *Result, a model.AssetID, c model.CommodityID) float64 {
	var sum float64
	for key, v := range res.Flows {
		if key.Asset == a && key.Commodity == c && v > 0 {
			sum += v
		}
	}
	return sum
}
