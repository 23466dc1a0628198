package model

import (
	"fmt"
	"math"
	"sort"
)

// PriceKey locates a price in a PriceTable.
type PriceKey struct {
	Commodity CommodityID
	Region    RegionID
	Slice     TimeSliceID
}

// PriceTable maps commodity, region and time slice to a price. A table is
// built fresh each milestone year and never mutated in place; a new table
// replaces the old one.
type PriceTable map[PriceKey]float64

// Get returns the price and whether one is present.
func (t PriceTable) Get(commodity CommodityID, region RegionID, ts TimeSliceID) (float64, bool) {
	v, ok := t[PriceKey{Commodity: commodity, Region: region, Slice: ts}]
	return v, ok
}

// Set records a price.
func (t PriceTable) Set(commodity CommodityID, region RegionID, ts TimeSliceID, price float64) {
	t[PriceKey{Commodity: commodity, Region: region, Slice: ts}] = price
}

// Clone returns a copy of the table.
func (t PriceTable) Clone() PriceTable {
	out := make(PriceTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// CarbonPolicy configures either an annual emissions budget or a flat price
// on the carbon commodity. At most one of the two is set per year.
type CarbonPolicy struct {
	Commodity CommodityID
	Budget    map[int]float64
	Price     map[int]float64
}

// BudgetFor returns the budget for a year, if configured.
func (c *CarbonPolicy) BudgetFor(year int) (float64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.Budget[year]
	return v, ok
}

// PriceFor returns the flat carbon price for a year, if configured.
func (c *CarbonPolicy) PriceFor(year int) (float64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.Price[year]
	return v, ok
}

// Model is the validated, immutable system description for a run.
type Model struct {
	Regions     []RegionID
	TimeSlices  *TimeSliceInfo
	Years       []int // milestone years, ascending; Years[0] is the base year
	Commodities map[CommodityID]*Commodity
	Processes   map[ProcessID]*Process
	Agents      map[AgentID]*Agent
	Limits      []CommodityLimit
	Carbon      *CarbonPolicy
}

// CommodityIDs returns all commodity IDs in lexical order.
func (m *Model) CommodityIDs() []CommodityID {
	out := make([]CommodityID, 0, len(m.Commodities))
	for id := range m.Commodities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProcessIDs returns all process IDs in lexical order.
func (m *Model) ProcessIDs() []ProcessID {
	out := make([]ProcessID, 0, len(m.Processes))
	for id := range m.Processes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SVDCommodities returns the service-demand commodities in lexical order.
func (m *Model) SVDCommodities() []CommodityID {
	var out []CommodityID
	for _, id := range m.CommodityIDs() {
		if m.Commodities[id].Kind == KindSVD {
			out = append(out, id)
		}
	}
	return out
}

// BaseYear returns the first milestone year.
func (m *Model) BaseYear() int { return m.Years[0] }

// Validate checks the structural invariants the core depends on. Full
// cross-reference validation happens in the input loader; the checks here are
// the ones the solve pipeline would silently miscompute without.
func (m *Model) Validate() error {
	if len(m.Years) == 0 {
		return fmt.Errorf("model has no milestone years")
	}
	if err := m.TimeSlices.Validate(); err != nil {
		return err
	}
	for _, id := range m.ProcessIDs() {
		p := m.Processes[id]
		if err := p.Validate(); err != nil {
			return err
		}
		// SVD commodities are final demands only, never asset inputs.
		for _, f := range p.Flows {
			c, ok := m.Commodities[f.Commodity]
			if !ok {
				return fmt.Errorf("process %s references unknown commodity %s", p.ID, f.Commodity)
			}
			if c.Kind == KindSVD && f.Input() {
				return fmt.Errorf("process %s consumes service-demand commodity %s", p.ID, f.Commodity)
			}
		}
	}
	if err := m.validatePortions(); err != nil {
		return err
	}
	return nil
}

// validatePortions checks that demand portions sum to one per commodity and
// region across agents.
func (m *Model) validatePortions() error {
	sums := make(map[PortionKey]float64)
	for _, agent := range m.Agents {
		for key, portion := range agent.Portions {
			sums[key] += portion
		}
	}
	for key, sum := range sums {
		if math.Abs(sum-1.0) > 1e-9 {
			return fmt.Errorf("demand portions for %s in %s sum to %g, want 1",
				key.Commodity, key.Region, sum)
		}
	}
	return nil
}
