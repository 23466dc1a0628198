package invest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/gridplan/core/logger"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/solver"
)

// Terminal reports how a selection round ended.
type Terminal int

const (
	// TerminalDone means the demand was fully allocated to options.
	TerminalDone Terminal = iota
	// TerminalUnserved means demand remained after all options were
	// exhausted or none could serve profitably.
	TerminalUnserved
)

func (t Terminal) String() string {
	switch t {
	case TerminalDone:
		return "done"
	case TerminalUnserved:
		return "unserved"
	}
	return fmt.Sprintf("Terminal(%d)", int(t))
}

// Selection is one committed option: the asset, the capacity it was sized
// to, and the production it was allocated per time slice.
type Selection struct {
	Asset    *model.Asset
	Capacity float64
	Served   DemandProfile
	Metric   float64
}

// Outcome is the result of appraising and selecting options for one
// commodity and region.
type Outcome struct {
	Chosen []Selection
	// Decommissioned lists existing assets that won no tranche and are
	// stranded for this commodity.
	Decommissioned []model.AssetID
	// Metrics holds the last appraisal metric per asset, for reporting.
	Metrics  map[model.AssetID]float64
	Terminal Terminal
}

// Appraiser runs the tranche-by-tranche selection loop.
type Appraiser struct {
	solver solver.Solver
	log    logger.Logger
	tol    float64
}

// NewAppraiser builds an appraiser on the given solver.
func NewAppraiser(s solver.Solver, log logger.Logger) *Appraiser {
	return &Appraiser{solver: s, log: log, tol: 1e-9}
}

// AppraiseAndSelect allocates the demand for one commodity and region across
// existing and candidate assets. Demand is split between agents by their
// responsibility portions; each agent ranks options with its own objective,
// so metrics are never compared across agents. Existing assets that win no
// tranche are reported as decommissioned.
func (ap *Appraiser) AppraiseAndSelect(m *model.Model, existing, candidates model.Portfolio,
	commodity model.CommodityID, region model.RegionID, year int,
	demand DemandProfile, stack ServingStack, prev model.PriceTable) (*Outcome, error) {

	out := &Outcome{
		Metrics:  make(map[model.AssetID]float64),
		Terminal: TerminalDone,
	}

	agentIDs := make([]model.AgentID, 0, len(m.Agents))
	for id := range m.Agents {
		agentIDs = append(agentIDs, id)
	}
	sort.Slice(agentIDs, func(i, j int) bool { return agentIDs[i] < agentIDs[j] })

	for _, id := range agentIDs {
		agent := m.Agents[id]
		portion := agent.Portions[model.PortionKey{Commodity: commodity, Region: region}]
		if portion <= 0 {
			continue
		}
		share := make(DemandProfile, len(demand))
		for ts, v := range demand {
			share[ts] = v * portion
		}
		pool := ap.agentOptions(existing, candidates, id)
		terminal, err := ap.selectFor(m, agent, pool, commodity, region, year, share, stack, prev, out)
		if err != nil {
			return nil, err
		}
		if terminal == TerminalUnserved {
			out.Terminal = TerminalUnserved
		}
	}
	return out, nil
}

// agentOptions gathers the agent's existing assets and candidates in the
// stable appraisal order: existing first, then by process ID and asset ID.
func (ap *Appraiser) agentOptions(existing, candidates model.Portfolio, id model.AgentID) model.Portfolio {
	var pool model.Portfolio
	for _, a := range existing.Sorted() {
		if a.Agent == id {
			pool = append(pool, a)
		}
	}
	for _, a := range candidates.Sorted() {
		if a.Agent == id {
			pool = append(pool, a)
		}
	}
	return pool
}

// selectFor runs the selection loop for one agent's demand share.
func (ap *Appraiser) selectFor(m *model.Model, agent *model.Agent, pool model.Portfolio,
	commodity model.CommodityID, region model.RegionID, year int,
	remaining DemandProfile, stack ServingStack, prev model.PriceTable, out *Outcome) (Terminal, error) {

	remaining = remaining.Clone()
	chosen := make(map[model.AssetID]bool)

	for remaining.Total() > ap.tol {
		best, bestRes, err := ap.bestOption(m, agent, pool, commodity, year, remaining, stack, prev, chosen, out)
		if err != nil {
			return TerminalUnserved, err
		}
		if best == nil {
			ap.log.Warnf("no option can serve remaining %s demand in %s (%.4g left)",
				commodity, region, remaining.Total())
			ap.strand(pool, chosen, out)
			return TerminalUnserved, nil
		}

		flow, _ := best.Process.FlowFor(commodity)
		served := make(DemandProfile)
		for ts, prod := range bestRes.production(flow.Coeff) {
			if prod > remaining[ts] {
				prod = remaining[ts]
			}
			if prod <= 0 {
				continue
			}
			served[ts] = prod
			remaining[ts] -= prod
		}
		if served.Total() <= ap.tol {
			// the best ranked option serves nothing, so nothing will
			ap.strand(pool, chosen, out)
			return TerminalUnserved, nil
		}

		chosen[best.ID] = true
		out.Chosen = append(out.Chosen, Selection{
			Asset:    best,
			Capacity: bestRes.capacity,
			Served:   served,
			Metric:   bestRes.metric,
		})
		ap.log.Debugw("option selected", map[string]any{
			"commodity": string(commodity),
			"region":    string(region),
			"process":   string(best.Process.ID),
			"candidate": best.Candidate,
			"capacity":  bestRes.capacity,
			"metric":    bestRes.metric,
		})
	}
	ap.strand(pool, chosen, out)
	return TerminalDone, nil
}

// bestOption appraises every remaining option against its marginal
// utilisation estimate and returns the best ranked one. Ties go to existing
// assets before candidates, then by process ID, then by asset ID.
func (ap *Appraiser) bestOption(m *model.Model, agent *model.Agent, pool model.Portfolio,
	commodity model.CommodityID, year int, remaining DemandProfile,
	stack ServingStack, prev model.PriceTable,
	chosen map[model.AssetID]bool, out *Outcome) (*model.Asset, *toolResult, error) {

	var best *model.Asset
	var bestRes *toolResult
	for _, opt := range pool {
		if chosen[opt.ID] {
			continue
		}
		tranche := marginalUtilisation(m, opt, commodity, year, remaining, stack, prev)
		if tranche.Total() <= ap.tol {
			continue
		}
		res, err := appraise(ap.solver, m, opt, commodity, year, tranche, prev, agent.Objective)
		if err != nil {
			if errors.Is(err, solver.ErrInfeasible) {
				ap.log.Warnf("appraisal of %s for %s infeasible, skipping", opt.Process.ID, commodity)
				continue
			}
			return nil, nil, err
		}
		out.Metrics[opt.ID] = res.metric
		if best == nil || res.metric < bestRes.metric ||
			(res.metric == bestRes.metric && preferOption(opt, best)) {
			best, bestRes = opt, res
		}
	}
	return best, bestRes, nil
}

// preferOption breaks metric ties: existing before candidate, then process
// ID, then asset ID.
func preferOption(a, b *model.Asset) bool {
	if a.Candidate != b.Candidate {
		return !a.Candidate
	}
	if a.Process.ID != b.Process.ID {
		return a.Process.ID < b.Process.ID
	}
	return a.ID < b.ID
}

// strand records existing assets that were never selected.
func (ap *Appraiser) strand(pool model.Portfolio, chosen map[model.AssetID]bool, out *Outcome) {
	for _, a := range pool {
		if !a.Candidate && !chosen[a.ID] {
			out.Decommissioned = append(out.Decommissioned, a.ID)
		}
	}
}
