package model

import "fmt"

// CommodityID identifies a commodity, e.g. "ELC".
type CommodityID string

// RegionID identifies a region, e.g. "GBR".
type RegionID string

// CommodityKind is the balance type of a commodity.
type CommodityKind int

const (
	// KindSED is an intermediate commodity balanced by a strict
	// supply-equals-demand constraint.
	KindSED CommodityKind = iota
	// KindSVD is a service (final) demand commodity. It is never consumed
	// as an asset input.
	KindSVD
	// KindInput is an unbalanced commodity that only enters the system
	// (e.g. a primary resource).
	KindInput
	// KindOutput is an unbalanced commodity that only leaves the system
	// (e.g. an emission).
	KindOutput
)

func (k CommodityKind) String() string {
	switch k {
	case KindSED:
		return "sed"
	case KindSVD:
		return "svd"
	case KindInput:
		return "inc"
	case KindOutput:
		return "ouc"
	}
	return fmt.Sprintf("CommodityKind(%d)", int(k))
}

// LevyBalance selects which flow direction a levy applies to.
type LevyBalance int

const (
	LevyNet LevyBalance = iota
	LevyConsumption
	LevyProduction
)

// Levy is a per-unit cost (or, if negative, incentive) on a commodity flow.
type Levy struct {
	Balance LevyBalance
	Value   float64
}

// LevyKey locates a levy in a LevyMap.
type LevyKey struct {
	Region RegionID
	Year   int
	Slice  TimeSliceID
}

// LevyMap holds levies per region, year and time slice.
type LevyMap map[LevyKey]Levy

// Get returns the levy for the given parameters, if any.
func (m LevyMap) Get(region RegionID, year int, ts TimeSliceID) (Levy, bool) {
	l, ok := m[LevyKey{Region: region, Year: year, Slice: ts}]
	return l, ok
}

// DemandKey locates a demand value in a DemandMap.
type DemandKey struct {
	Region RegionID
	Year   int
	Slice  TimeSliceID
}

// DemandMap holds exogenous demand for an SVD commodity. Demand is specified
// at time slice resolution only.
type DemandMap map[DemandKey]float64

// Get returns the demand for the given parameters, or zero.
func (m DemandMap) Get(region RegionID, year int, ts TimeSliceID) float64 {
	return m[DemandKey{Region: region, Year: year, Slice: ts}]
}

// Commodity is a traded or emitted good within the system.
type Commodity struct {
	ID          CommodityID
	Description string
	Kind        CommodityKind
	// BalanceLevel is the granularity of the balance constraint for SED
	// commodities. SVD commodities are always balanced per slice.
	BalanceLevel TimeSliceLevel
	Levies       LevyMap
	Demand       DemandMap
	// AllowUnmet permits an unmet-demand slack in dispatch, penalised at
	// VoLL per unit.
	AllowUnmet bool
	VoLL       float64
}

// Balanced reports whether the commodity gets a balance constraint in
// dispatch.
func (c *Commodity) Balanced() bool {
	return c.Kind == KindSED || c.Kind == KindSVD
}

// LimitScope is the spatial scope of a commodity volume limit.
type LimitScope int

const (
	ScopeSystem LimitScope = iota
	ScopeRegion
)

// CommodityLimit is a net volume constraint on a commodity over a year, e.g.
// an emissions cap. Lower/Upper use ±Inf when unbounded.
type CommodityLimit struct {
	Commodity CommodityID
	Scope     LimitScope
	Region    RegionID // set for ScopeRegion
	Year      int
	Lower     float64
	Upper     float64
}
