package prices

import (
	"math"
	"reflect"
	"testing"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
)

var (
	tsDay   = model.TimeSliceID{Season: "all", TimeOfDay: "day"}
	tsNight = model.TimeSliceID{Season: "all", TimeOfDay: "night"}
	elc     = model.CommodityID("elc")
	north   = model.RegionID("north")
)

func priceModel() *model.Model {
	return &model.Model{
		Regions: []model.RegionID{north},
		TimeSlices: &model.TimeSliceInfo{
			Slices:    []model.TimeSliceID{tsDay, tsNight},
			Fractions: map[model.TimeSliceID]float64{tsDay: 0.5, tsNight: 0.5},
			Seasons:   []string{"all"},
		},
		Years: []int{2025},
		Commodities: map[model.CommodityID]*model.Commodity{
			elc: {ID: elc, Kind: model.KindSED, BalanceLevel: model.LevelSlice},
		},
		Processes: map[model.ProcessID]*model.Process{
			"turbine": {
				ID: "turbine", StartYear: 2000, EndYear: 2100,
				Flows: []model.Flow{{Commodity: elc, Coeff: 1, IsPAC: true}},
				Param: model.ProcessParam{VarOM: 8, Lifetime: 20, Cap2Act: 1},
			},
		},
		Agents: map[model.AgentID]*model.Agent{},
	}
}

func turbineAsset(m *model.Model) *model.Asset {
	return &model.Asset{
		ID: "t-1", Process: m.Processes["turbine"], Region: north,
		Agent: "a1", Capacity: 10, CommissionYear: 2020,
	}
}

// fakeResult builds a dispatch result with the given balance and activity
// duals, the way the solver would report them.
func fakeResult(balanceDual, activityDual float64) *dispatch.Result {
	sel := model.Selection{Level: model.LevelSlice, Slice: tsDay}
	return &dispatch.Result{
		Year: 2025,
		BalanceDuals: map[dispatch.BalanceKey]float64{
			{Commodity: elc, Region: north, Selection: sel}: balanceDual,
		},
		ActivityDuals: map[dispatch.ActivityKey]float64{
			{Asset: "t-1", Slice: tsDay}: activityDual,
		},
		Flows: map[dispatch.FlowKey]float64{
			{Asset: "t-1", Region: north, Commodity: elc, Slice: tsDay}: 5,
		},
	}
}

func TestDeriveShadow(t *testing.T) {
	m := priceModel()
	res := fakeResult(12, -4)
	table := Derive(m, model.Portfolio{turbineAsset(m)}, res, StrategyShadow)
	got, ok := table.Get(elc, north, tsDay)
	if !ok || math.Abs(got-12) > 1e-9 {
		t.Fatalf("shadow price = %g (%v), want 12", got, ok)
	}
}

func TestDeriveScarcityAdjusted(t *testing.T) {
	m := priceModel()
	portfolio := model.Portfolio{turbineAsset(m)}

	// capacity binding with rent 4: the adjusted price strips the rent
	table := Derive(m, portfolio, fakeResult(12, -4), StrategyScarcityAdjusted)
	if got, _ := table.Get(elc, north, tsDay); math.Abs(got-8) > 1e-9 {
		t.Fatalf("adjusted price = %g, want 8", got)
	}

	// unconstrained server: no rent to strip
	table = Derive(m, portfolio, fakeResult(12, 0), StrategyScarcityAdjusted)
	if got, _ := table.Get(elc, north, tsDay); math.Abs(got-12) > 1e-9 {
		t.Fatalf("adjusted price = %g, want 12", got)
	}
}

func TestDeriveIdempotent(t *testing.T) {
	m := priceModel()
	portfolio := model.Portfolio{turbineAsset(m)}
	res := fakeResult(12, -4)
	for _, s := range []Strategy{StrategyShadow, StrategyScarcityAdjusted} {
		a := Derive(m, portfolio, res, s)
		b := Derive(m, portfolio, res, s)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("strategy %v not idempotent: %v vs %v", s, a, b)
		}
	}
}

func TestDeriveLevyFloor(t *testing.T) {
	m := priceModel()
	m.Commodities[elc].Levies = model.LevyMap{
		{Region: north, Year: 2025, Slice: tsDay}: {Balance: model.LevyNet, Value: 20},
	}
	table := Derive(m, model.Portfolio{turbineAsset(m)}, fakeResult(12, 0), StrategyShadow)
	if got, _ := table.Get(elc, north, tsDay); math.Abs(got-20) > 1e-9 {
		t.Fatalf("levied price = %g, want floored at 20", got)
	}
}

func TestMarginalCostValuesInputs(t *testing.T) {
	m := priceModel()
	fuel := model.CommodityID("fuel")
	m.Commodities[fuel] = &model.Commodity{ID: fuel, Kind: model.KindSED}
	m.Processes["burner"] = &model.Process{
		ID: "burner", StartYear: 2000, EndYear: 2100,
		Flows: []model.Flow{
			{Commodity: elc, Coeff: 2, IsPAC: true},
			{Commodity: fuel, Coeff: -1, Cost: 0.5},
		},
		Param: model.ProcessParam{VarOM: 3, Lifetime: 20, Cap2Act: 1},
	}
	table := model.PriceTable{}
	table.Set(fuel, north, tsDay, 6)

	// per activity: 3 varom + 0.5 flow cost + 6 fuel = 9.5, over 2 units out
	got, ok := MarginalCost(m, m.Processes["burner"], elc, north, 2025, tsDay, table)
	if !ok {
		t.Fatalf("burner should price elc")
	}
	if math.Abs(got-4.75) > 1e-9 {
		t.Fatalf("marginal cost = %g, want 4.75", got)
	}
	if _, ok := MarginalCost(m, m.Processes["burner"], fuel, north, 2025, tsDay, table); ok {
		t.Fatalf("an input flow must not be priced as an output")
	}
}

func TestImputeAbsentUsesCheapestProcess(t *testing.T) {
	m := priceModel()
	m.Processes["turbine"].Param.CapitalCost = 100
	m.Processes["turbine"].Param.FixedOM = 2
	// annualised capital 100/20 = 5, +2 fixed, over cap2act 1: 7/unit
	table := ImputeAbsent(m, model.PriceTable{}, 2025)
	got, ok := table.Get(elc, north, tsDay)
	if !ok {
		t.Fatalf("no imputed price for elc")
	}
	if math.Abs(got-15) > 1e-9 {
		t.Fatalf("imputed price = %g, want 8 varom + 7 fixed = 15", got)
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy("scarcity_adjusted"); err != nil || s != StrategyScarcityAdjusted {
		t.Fatalf("parse scarcity_adjusted: %v %v", s, err)
	}
	if s, err := ParseStrategy(""); err != nil || s != StrategyShadow {
		t.Fatalf("default strategy: %v %v", s, err)
	}
	if _, err := ParseStrategy("vickrey"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
