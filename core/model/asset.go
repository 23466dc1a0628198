package model

import (
	"sort"

	"github.com/google/uuid"
)

// AssetID identifies an asset instance.
type AssetID string

// Asset is an instantiated process: a concrete plant with a capacity, an
// owning agent, a region and a commission year. Multiple assets may
// instantiate the same process with different capacities and vintages.
type Asset struct {
	ID             AssetID
	Process        *Process
	Region         RegionID
	Agent          AgentID
	Capacity       float64
	CommissionYear int
	// Candidate assets are appraisal options not yet committed to the
	// portfolio. Their capacity is a decision variable during appraisal
	// and near-zero during calibration dispatches.
	Candidate bool
}

// NewAsset creates an asset with a fresh identifier.
func NewAsset(p *Process, region RegionID, agent AgentID, capacity float64, commissionYear int) *Asset {
	return &Asset{
		ID:             AssetID(uuid.NewString()),
		Process:        p,
		Region:         region,
		Agent:          agent,
		Capacity:       capacity,
		CommissionYear: commissionYear,
	}
}

// ExpiredBy reports whether the asset reaches end of life at or before the
// given year. The expiry year itself is inclusive: an asset commissioned in
// 2010 with a 10 year lifetime is gone by 2020.
func (a *Asset) ExpiredBy(year int) bool {
	return a.CommissionYear+a.Process.Param.Lifetime <= year
}

// ActivityLimits returns the absolute activity bounds for the summed PAC flow
// in a time slice.
func (a *Asset) ActivityLimits(info *TimeSliceInfo, ts TimeSliceID) ActivityBounds {
	b := a.Process.ActivityBoundsFor(info, ts)
	b.Lower *= a.Capacity
	b.Upper *= a.Capacity
	return b
}

// Portfolio is the set of assets active in a milestone year. It is owned by
// the orchestrator; dispatch and appraisal receive it read-only.
type Portfolio []*Asset

// Active returns the assets commissioned by the given year and not yet
// expired.
func (p Portfolio) Active(year int) Portfolio {
	var out Portfolio
	for _, a := range p {
		if a.CommissionYear <= year && !a.ExpiredBy(year) {
			out = append(out, a)
		}
	}
	return out
}

// Decommission removes expired assets and returns the survivors along with
// the removed assets.
func (p Portfolio) Decommission(year int) (kept, removed Portfolio) {
	for _, a := range p {
		if a.ExpiredBy(year) {
			removed = append(removed, a)
		} else {
			kept = append(kept, a)
		}
	}
	return kept, removed
}

// Remove returns the portfolio without the listed assets.
func (p Portfolio) Remove(ids map[AssetID]bool) Portfolio {
	if len(ids) == 0 {
		return p
	}
	var out Portfolio
	for _, a := range p {
		if !ids[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// ForRegionAndCommodity returns assets in the region with a flow of the given
// commodity.
func (p Portfolio) ForRegionAndCommodity(region RegionID, commodity CommodityID) Portfolio {
	var out Portfolio
	for _, a := range p {
		if a.Region != region {
			continue
		}
		if _, ok := a.Process.FlowFor(commodity); ok {
			out = append(out, a)
		}
	}
	return out
}

// Sorted returns a copy ordered by process ID then asset ID, the stable order
// used everywhere results must be reproducible.
func (p Portfolio) Sorted() Portfolio {
	out := make(Portfolio, len(p))
	copy(out, p)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Process.ID != out[j].Process.ID {
			return out[i].Process.ID < out[j].Process.ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
