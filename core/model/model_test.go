package model

import (
	"math"
	"testing"
)

var (
	tsWinter = TimeSliceID{Season: "winter", TimeOfDay: "day"}
	tsSummer = TimeSliceID{Season: "summer", TimeOfDay: "day"}
)

func testInfo() *TimeSliceInfo {
	return &TimeSliceInfo{
		Slices:    []TimeSliceID{tsWinter, tsSummer},
		Fractions: map[TimeSliceID]float64{tsWinter: 0.4, tsSummer: 0.6},
		Seasons:   []string{"winter", "summer"},
	}
}

func plant(id AssetID, commissioned, lifetime int) *Asset {
	return &Asset{
		ID: id,
		Process: &Process{
			ID:    "plant",
			Flows: []Flow{{Commodity: "elc", Coeff: 1, IsPAC: true}},
			Param: ProcessParam{Lifetime: lifetime, Cap2Act: 1},
		},
		Region: "north", Agent: "a1", Capacity: 5, CommissionYear: commissioned,
	}
}

func TestExpiredByBoundaryInclusive(t *testing.T) {
	a := plant("p-1", 2010, 10)
	if a.ExpiredBy(2019) {
		t.Fatalf("asset should still live in 2019")
	}
	if !a.ExpiredBy(2020) {
		t.Fatalf("asset commissioned 2010 with lifetime 10 must be gone by 2020")
	}
}

func TestPortfolioDecommission(t *testing.T) {
	p := Portfolio{plant("p-1", 2010, 10), plant("p-2", 2015, 10)}
	kept, removed := p.Decommission(2020)
	if len(kept) != 1 || kept[0].ID != "p-2" {
		t.Fatalf("kept = %v", kept)
	}
	if len(removed) != 1 || removed[0].ID != "p-1" {
		t.Fatalf("removed = %v", removed)
	}
}

func TestPortfolioActive(t *testing.T) {
	p := Portfolio{plant("p-1", 2010, 10), plant("p-2", 2030, 10)}
	active := p.Active(2025)
	// p-1 expired in 2020, p-2 not yet commissioned
	if len(active) != 0 {
		t.Fatalf("active = %v", active)
	}
	if got := p.Active(2015); len(got) != 1 || got[0].ID != "p-1" {
		t.Fatalf("active 2015 = %v", got)
	}
}

func TestPortfolioSortedIsStable(t *testing.T) {
	a := plant("a-2", 2020, 10)
	b := plant("a-1", 2020, 10)
	c := plant("a-3", 2020, 10)
	c.Process = &Process{ID: "battery", Flows: c.Process.Flows, Param: c.Process.Param}
	sorted := Portfolio{a, b, c}.Sorted()
	want := []AssetID{"a-3", "a-1", "a-2"} // battery before plant, then asset ID
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("sorted[%d] = %s, want %s", i, sorted[i].ID, id)
		}
	}
}

func TestPriceTableCloneIsIndependent(t *testing.T) {
	table := PriceTable{}
	table.Set("elc", "north", tsWinter, 10)
	clone := table.Clone()
	clone.Set("elc", "north", tsWinter, 99)
	if got, _ := table.Get("elc", "north", tsWinter); got != 10 {
		t.Fatalf("clone mutation leaked into the original: %g", got)
	}
}

func TestSelectionsAndSlices(t *testing.T) {
	info := testInfo()
	if got := info.Selections(LevelSlice); len(got) != 2 {
		t.Fatalf("slice selections = %v", got)
	}
	seasons := info.Selections(LevelSeason)
	if len(seasons) != 2 || seasons[0].Season != "winter" {
		t.Fatalf("season selections = %v", seasons)
	}
	annual := Selection{Level: LevelAnnual}
	if got := info.SlicesIn(annual); len(got) != 2 {
		t.Fatalf("annual slices = %v", got)
	}
	if got := info.SelectionFraction(annual); math.Abs(got-1) > 1e-12 {
		t.Fatalf("annual fraction = %g", got)
	}
	winter := Selection{Level: LevelSeason, Season: "winter"}
	if got := info.SlicesIn(winter); len(got) != 1 || got[0] != tsWinter {
		t.Fatalf("winter slices = %v", got)
	}
}

func TestActivityBoundsWithAvailability(t *testing.T) {
	info := testInfo()
	p := &Process{
		ID:    "plant",
		Flows: []Flow{{Commodity: "elc", Coeff: 1, IsPAC: true}},
		Param: ProcessParam{Lifetime: 10, Cap2Act: 8760},
		Avail: []Availability{
			{Level: LevelSlice, Slice: tsWinter, Kind: BoundUpper, Value: 0.5},
		},
	}
	// winter: 0.4 of the year, capped at 50% utilisation
	b := p.ActivityBoundsFor(info, tsWinter)
	if math.Abs(b.Upper-8760*0.4*0.5) > 1e-9 {
		t.Fatalf("winter upper = %g", b.Upper)
	}
	// summer: no availability row, full slice share
	b = p.ActivityBoundsFor(info, tsSummer)
	if math.Abs(b.Upper-8760*0.6) > 1e-9 {
		t.Fatalf("summer upper = %g", b.Upper)
	}

	a := &Asset{ID: "p-1", Process: p, Capacity: 2}
	limits := a.ActivityLimits(info, tsWinter)
	if math.Abs(limits.Upper-2*8760*0.4*0.5) > 1e-9 {
		t.Fatalf("asset winter upper = %g", limits.Upper)
	}
}

func TestValidateRejectsMixedPACs(t *testing.T) {
	m := &Model{
		Years:      []int{2020},
		TimeSlices: testInfo(),
		Commodities: map[CommodityID]*Commodity{
			"elc": {ID: "elc", Kind: KindSED},
			"gas": {ID: "gas", Kind: KindSED},
		},
		Processes: map[ProcessID]*Process{
			"p": {ID: "p", Flows: []Flow{
				{Commodity: "elc", Coeff: 1, IsPAC: true},
				{Commodity: "gas", Coeff: -1, IsPAC: true},
			}, Param: ProcessParam{Lifetime: 10, Cap2Act: 1}},
		},
		Agents: map[AgentID]*Agent{},
	}
	if err := m.Validate(); err == nil {
		t.Fatalf("expected mixed PAC rejection")
	}
}
