package model

import "fmt"

// ProcessID identifies a technology blueprint.
type ProcessID string

// Flow is a commodity flow coefficient of a process, per unit of activity.
// Negative coefficients are inputs, positive coefficients outputs.
type Flow struct {
	Commodity CommodityID
	Coeff     float64
	// IsPAC marks a primary activity commodity. Capacity limits apply to
	// the summed PAC flow. PACs of a process are all inputs or all
	// outputs.
	IsPAC bool
	// Cost is a per-unit-flow cost, always charged as a positive cost
	// regardless of direction.
	Cost float64
	// ShareMin/ShareMax bound this flow's share of the aggregate
	// input (or output) of a flexible process. Both zero means
	// unconstrained.
	ShareMin float64
	ShareMax float64
}

// Input reports whether the flow is consumed by the process.
func (f Flow) Input() bool { return f.Coeff < 0 }

// Output reports whether the flow is produced by the process.
func (f Flow) Output() bool { return f.Coeff > 0 }

// BoundKind is the sense of an availability bound.
type BoundKind int

const (
	BoundLower BoundKind = iota
	BoundUpper
	BoundFixed
)

// Availability bounds the utilisation of a process, as a fraction of maximum
// activity, at slice, season or annual granularity. A fixed bound at slice
// granularity supersedes the capacity constraint.
type Availability struct {
	Level  TimeSliceLevel
	Season string      // for LevelSeason
	Slice  TimeSliceID // for LevelSlice
	Kind   BoundKind
	Value  float64
}

// ProcessParam holds the economic and lifetime parameters of a process.
type ProcessParam struct {
	CapitalCost  float64 // per unit capacity
	FixedOM      float64 // per unit capacity per year
	VarOM        float64 // per unit PAC activity
	Lifetime     int     // years
	DiscountRate float64
	// Cap2Act converts one unit of capacity into maximum annual activity.
	Cap2Act float64
	// CapMaxBuild caps the capacity a single investment round may add.
	// Zero means unlimited.
	CapMaxBuild float64
}

// Process is an immutable technology blueprint. Distinct processes may cover
// different operating year ranges.
type Process struct {
	ID          ProcessID
	Description string
	Regions     map[RegionID]bool // empty means all regions
	StartYear   int
	EndYear     int
	Flows       []Flow
	// Flexible processes have no fixed input/output proportions; their
	// flows are linked by an aggregate activity balance and optional
	// flow-share bounds.
	Flexible bool
	Param    ProcessParam
	Avail    []Availability
}

// OperatesIn reports whether the process may run in the given region and year.
func (p *Process) OperatesIn(region RegionID, year int) bool {
	if year < p.StartYear || year > p.EndYear {
		return false
	}
	return len(p.Regions) == 0 || p.Regions[region]
}

// PACs returns the primary activity commodity flows.
func (p *Process) PACs() []Flow {
	var out []Flow
	for _, f := range p.Flows {
		if f.IsPAC {
			out = append(out, f)
		}
	}
	return out
}

// FlowFor returns the flow for a commodity, if the process has one.
func (p *Process) FlowFor(commodity CommodityID) (Flow, bool) {
	for _, f := range p.Flows {
		if f.Commodity == commodity {
			return f, true
		}
	}
	return Flow{}, false
}

// Produces reports whether the process has an output flow of the commodity.
func (p *Process) Produces(commodity CommodityID) bool {
	f, ok := p.FlowFor(commodity)
	return ok && f.Output()
}

// ActivityBounds is a per-unit-capacity activity range for one time slice.
// Multiply by capacity to get absolute flow limits for the summed PAC flow.
type ActivityBounds struct {
	Lower float64
	Upper float64
	// Fixed marks an EQ availability bound: activity is pinned to Lower
	// (== Upper) and the capacity constraint is superseded.
	Fixed bool
}

// ActivityBoundsFor resolves availability bounds for a slice against the
// default capacity limit cap2act * fraction.
func (p *Process) ActivityBoundsFor(info *TimeSliceInfo, ts TimeSliceID) ActivityBounds {
	frac := info.Fraction(ts)
	max := p.Param.Cap2Act * frac
	b := ActivityBounds{Lower: 0, Upper: max}
	for _, a := range p.Avail {
		if a.Level != LevelSlice || a.Slice != ts {
			continue
		}
		switch a.Kind {
		case BoundLower:
			b.Lower = a.Value * max
		case BoundUpper:
			b.Upper = a.Value * max
		case BoundFixed:
			v := a.Value * max
			b.Lower, b.Upper, b.Fixed = v, v, true
		}
	}
	return b
}

// SeasonalBoundsFor returns availability bounds declared at season or annual
// granularity, expressed per unit capacity over the given selection. The
// second return is false when the process declares no bound for the
// selection.
func (p *Process) SeasonalBoundsFor(info *TimeSliceInfo, sel Selection) (ActivityBounds, bool) {
	max := p.Param.Cap2Act * info.SelectionFraction(sel)
	b := ActivityBounds{Lower: 0, Upper: max}
	found := false
	for _, a := range p.Avail {
		if a.Level != sel.Level {
			continue
		}
		if sel.Level == LevelSeason && a.Season != sel.Season {
			continue
		}
		found = true
		switch a.Kind {
		case BoundLower:
			b.Lower = a.Value * max
		case BoundUpper:
			b.Upper = a.Value * max
		case BoundFixed:
			v := a.Value * max
			b.Lower, b.Upper, b.Fixed = v, v, true
		}
	}
	return b, found
}

// Validate performs basic structural checks on the process definition.
func (p *Process) Validate() error {
	if len(p.Flows) == 0 {
		return fmt.Errorf("process %s has no flows", p.ID)
	}
	pacs := p.PACs()
	if len(pacs) == 0 {
		return fmt.Errorf("process %s has no primary activity commodity", p.ID)
	}
	in := pacs[0].Input()
	for _, f := range pacs[1:] {
		if f.Input() != in {
			return fmt.Errorf("process %s mixes input and output PACs", p.ID)
		}
	}
	for _, f := range p.Flows {
		if f.Coeff == 0 {
			return fmt.Errorf("process %s has zero flow coefficient for %s", p.ID, f.Commodity)
		}
	}
	return nil
}
