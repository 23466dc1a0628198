package sim

import (
	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/invest"
	"github.com/kilianp07/gridplan/core/model"
)

// demandFor extracts the per-slice demand an appraisal must cover. Service
// commodities use their exogenous demand; intermediate commodities use the
// consumption observed in the given dispatch, plus any unserved slack.
func (r *Runner) demandFor(res *dispatch.Result, commodity model.CommodityID,
	region model.RegionID, year int) invest.DemandProfile {

	out := make(invest.DemandProfile)
	com := r.model.Commodities[commodity]
	if com.Kind == model.KindSVD {
		for _, ts := range r.model.TimeSlices.Slices {
			if d := com.Demand.Get(region, year, ts); d > 0 {
				out[ts] = d
			}
		}
		return out
	}
	for key, flow := range res.Flows {
		if key.Commodity == commodity && key.Region == region && flow < 0 {
			out[key.Slice] -= flow
		}
	}
	for key, unmet := range res.Unmet {
		if key.Commodity == commodity && key.Region == region && unmet > 0 {
			out[key.Slice] += unmet
		}
	}
	return out
}

// seedCandidates creates candidate assets for every process able to produce
// the commodity in the region and year, one per responsible agent, at the
// configured epsilon capacity.
func (r *Runner) seedCandidates(commodity model.CommodityID, region model.RegionID, year int) model.Portfolio {
	var out model.Portfolio
	key := model.PortionKey{Commodity: commodity, Region: region}
	for _, pid := range r.model.ProcessIDs() {
		p := r.model.Processes[pid]
		if !p.OperatesIn(region, year) || !p.Produces(commodity) {
			continue
		}
		for _, aid := range r.agentIDs {
			agent := r.model.Agents[aid]
			if agent.Portions[key] <= 0 {
				continue
			}
			a := model.NewAsset(p, region, aid, r.cfg.CandidateCapacity, year)
			a.Candidate = true
			out = append(out, a)
		}
	}
	return out
}

// seedAllCandidates creates candidates for every balanced commodity and
// region, used to harvest reduced costs in calibration dispatches. Pairs that
// share a process yield one candidate only.
func (r *Runner) seedAllCandidates(year int) model.Portfolio {
	var out model.Portfolio
	seen := make(map[model.ProcessID]map[model.RegionID]bool)
	for _, region := range r.model.Regions {
		for _, cid := range r.model.CommodityIDs() {
			if !r.model.Commodities[cid].Balanced() {
				continue
			}
			for _, a := range r.seedCandidates(cid, region, year) {
				regions := seen[a.Process.ID]
				if regions == nil {
					regions = make(map[model.RegionID]bool)
					seen[a.Process.ID] = regions
				}
				if regions[region] {
					continue
				}
				regions[region] = true
				out = append(out, a)
			}
		}
	}
	return out
}
