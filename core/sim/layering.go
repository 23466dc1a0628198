package sim

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/invest"
	"github.com/kilianp07/gridplan/core/metrics"
	"github.com/kilianp07/gridplan/core/model"
)

// layerOutcome is the result of one layered investment pass.
type layerOutcome struct {
	portfolio      model.Portfolio
	unserved       []model.CommodityID
	decommissioned []model.AssetID
	state          LayerState
}

// appraisalJob is one (commodity, region) appraisal inside a layer.
type appraisalJob struct {
	commodity model.CommodityID
	region    model.RegionID
}

type appraisalResult struct {
	job     appraisalJob
	outcome *invest.Outcome
	skipped bool
	err     error
}

// layeredInvestment walks the commodity frontier from the seed commodities
// upstream: each layer runs a partial dispatch over the commodities reached
// so far, appraises the frontier commodities against the demand it reveals,
// commits the selections and advances the frontier to the inputs of the
// chosen assets. The pass is bounded by the layer cap so cyclic dependencies
// terminate.
func (r *Runner) layeredInvestment(year int, portfolio model.Portfolio,
	prev model.PriceTable, seed []model.CommodityID) (*layerOutcome, error) {

	out := &layerOutcome{portfolio: portfolio, state: LayersDone}
	maxLayers := r.cfg.MaxLayers
	if maxLayers <= 0 {
		maxLayers = len(r.graph.ids) + 1
	}

	processed := make(map[model.CommodityID]bool)
	frontier := make(map[model.CommodityID]bool, len(seed))
	for _, c := range seed {
		frontier[c] = true
	}

	// strandedFor[asset][commodity] records a zero-utilisation verdict;
	// an asset is retired only when every commodity it was appraised for
	// agrees.
	strandedFor := make(map[model.AssetID]map[model.CommodityID]bool)
	appraisedFor := make(map[model.AssetID]map[model.CommodityID]bool)
	assetByID := make(map[model.AssetID]*model.Asset)

	for layer := 0; len(frontier) > 0; layer++ {
		if layer >= maxLayers {
			out.state = FrontierExhausted
			r.warn(Warning{
				Year:        year,
				Kind:        WarnFrontier,
				Commodities: r.graph.SortFrontier(frontier),
				Message:     fmt.Sprintf("layer cap %d hit in %d with frontier still open", maxLayers, year),
				Time:        time.Now(),
			})
			break
		}

		subset := make(map[model.CommodityID]bool, len(processed)+len(frontier))
		for c := range processed {
			subset[c] = true
		}
		for c := range frontier {
			subset[c] = true
		}
		res, err := r.dispatch(year, out.portfolio.Active(year), dispatch.Options{
			Subset:     subset,
			PrevPrices: prev,
		})
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", layer, err)
		}

		var jobs []appraisalJob
		for _, c := range r.graph.SortFrontier(frontier) {
			for _, region := range r.model.Regions {
				jobs = append(jobs, appraisalJob{commodity: c, region: region})
			}
		}
		results := r.runAppraisals(year, out.portfolio, res, prev, jobs)

		next := make(map[model.CommodityID]bool)
		for _, ar := range results {
			if ar.err != nil {
				return nil, fmt.Errorf("appraise %s in %s: %w", ar.job.commodity, ar.job.region, ar.err)
			}
			if ar.skipped {
				continue
			}
			r.commitSelections(year, out, ar, next, strandedFor, appraisedFor, assetByID)
		}

		for c := range frontier {
			processed[c] = true
		}
		frontier = make(map[model.CommodityID]bool, len(next))
		for c := range next {
			if !processed[c] {
				frontier[c] = true
			}
		}
	}

	r.retireStranded(out, strandedFor, appraisedFor, assetByID)
	sort.Slice(out.unserved, func(i, j int) bool { return out.unserved[i] < out.unserved[j] })
	return out, nil
}

// runAppraisals fans the layer's appraisal jobs over workers and returns
// results in job order.
func (r *Runner) runAppraisals(year int, portfolio model.Portfolio, res *dispatch.Result,
	prev model.PriceTable, jobs []appraisalJob) []appraisalResult {

	results := make([]appraisalResult, len(jobs))
	workers := r.cfg.Workers
	if workers <= 0 || workers > len(jobs) {
		workers = len(jobs)
	}
	sem := make(chan struct{}, max(workers, 1))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, job appraisalJob) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.appraiseOne(year, portfolio, res, prev, job)
		}(i, job)
	}
	wg.Wait()
	return results
}

func (r *Runner) appraiseOne(year int, portfolio model.Portfolio, res *dispatch.Result,
	prev model.PriceTable, job appraisalJob) appraisalResult {

	demand := r.demandFor(res, job.commodity, job.region, year)
	if demand.Total() <= 1e-9 {
		// nothing to serve, nothing to build
		return appraisalResult{job: job, skipped: true}
	}
	active := portfolio.Active(year)
	existing := active.ForRegionAndCommodity(job.region, job.commodity)
	stack := invest.BuildServingStack(r.model, active, res, job.commodity, job.region, year, prev)
	candidates := r.seedCandidates(job.commodity, job.region, year)

	start := time.Now()
	outcome, err := r.appraiser.AppraiseAndSelect(r.model, existing, candidates,
		job.commodity, job.region, year, demand, stack, prev)
	_ = r.sink.RecordSolve(metrics.SolveEvent{
		Year:     year,
		Kind:     metrics.SolveAppraisal,
		Duration: time.Since(start),
		Time:     time.Now(),
	})
	return appraisalResult{job: job, outcome: outcome, err: err}
}

// commitSelections applies one appraisal outcome to the shared portfolio and
// collects the next frontier from the inputs of the chosen processes.
func (r *Runner) commitSelections(year int, out *layerOutcome, ar appraisalResult,
	next map[model.CommodityID]bool,
	strandedFor, appraisedFor map[model.AssetID]map[model.CommodityID]bool,
	assetByID map[model.AssetID]*model.Asset) {

	outcome := ar.outcome
	if outcome.Terminal == invest.TerminalUnserved {
		out.unserved = append(out.unserved, ar.job.commodity)
		r.warn(Warning{
			Year:        year,
			Kind:        WarnUnserved,
			Commodities: []model.CommodityID{ar.job.commodity},
			Message:     fmt.Sprintf("options exhausted for %s in %s, year %d", ar.job.commodity, ar.job.region, year),
			Time:        time.Now(),
		})
	}

	for _, sel := range outcome.Chosen {
		a := sel.Asset
		wasCandidate := a.Candidate
		if wasCandidate {
			if sel.Capacity <= r.cfg.CandidateCapacity {
				continue
			}
			a.Candidate = false
			a.Capacity = sel.Capacity
			a.CommissionYear = year
			out.portfolio = append(out.portfolio, a)
		}
		r.recordInvestment(metrics.InvestmentEvent{
			Year:      year,
			Commodity: string(ar.job.commodity),
			Region:    string(ar.job.region),
			Process:   string(a.Process.ID),
			Candidate: wasCandidate,
			Capacity:  sel.Capacity,
			Metric:    sel.Metric,
			Time:      time.Now(),
		})
		for _, in := range r.graph.Inputs(ar.job.commodity) {
			if _, consumes := a.Process.FlowFor(in); consumes {
				next[in] = true
			}
		}
	}

	for id := range outcome.Metrics {
		m := appraisedFor[id]
		if m == nil {
			m = make(map[model.CommodityID]bool)
			appraisedFor[id] = m
		}
		m[ar.job.commodity] = true
	}
	for _, a := range out.portfolio {
		assetByID[a.ID] = a
	}
	for _, id := range outcome.Decommissioned {
		m := strandedFor[id]
		if m == nil {
			m = make(map[model.CommodityID]bool)
			strandedFor[id] = m
		}
		m[ar.job.commodity] = true
	}
}

// retireStranded removes assets every appraised commodity agreed were idle.
func (r *Runner) retireStranded(out *layerOutcome,
	strandedFor, appraisedFor map[model.AssetID]map[model.CommodityID]bool,
	assetByID map[model.AssetID]*model.Asset) {

	drop := make(map[model.AssetID]bool)
	for id, stranded := range strandedFor {
		appraised := appraisedFor[id]
		if len(appraised) == 0 {
			continue
		}
		idle := true
		for c := range appraised {
			if !stranded[c] {
				idle = false
				break
			}
		}
		// a multi-output asset must also be idle for balanced
		// commodities that were never appraised this pass; keep it in
		// that case
		if idle && assetByID[id] != nil {
			for _, f := range assetByID[id].Process.Flows {
				if !f.Output() || appraised[f.Commodity] {
					continue
				}
				if com := r.model.Commodities[f.Commodity]; com != nil && com.Balanced() {
					idle = false
					break
				}
			}
		}
		if idle {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	out.portfolio = out.portfolio.Remove(drop)
	for id := range drop {
		out.decommissioned = append(out.decommissioned, id)
	}
	sort.Slice(out.decommissioned, func(i, j int) bool { return out.decommissioned[i] < out.decommissioned[j] })
}
