// Package sim orchestrates milestone years: base-year calibration, asset
// decommissioning, layered investment over the commodity dependency graph,
// carbon budget resolution and the bounded price convergence loop.
package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/prices"
)

// ErrCalibration marks unmet demand in the base-year dispatch. The run
// aborts; a base year that cannot serve its own demand means the input
// portfolio is inconsistent.
var ErrCalibration = errors.New("base year calibration failed")

// Convergence is the terminal state of the per-year price iteration.
type Convergence int

const (
	// Converged means the maximum relative price change of all SED
	// commodities fell below the tolerance.
	Converged Convergence = iota
	// MaxIterationsReached means the loop hit its iteration cap with
	// prices still moving; the year's last state is kept.
	MaxIterationsReached
)

func (c Convergence) String() string {
	switch c {
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max-iterations-reached"
	}
	return fmt.Sprintf("Convergence(%d)", int(c))
}

// LayerState is the terminal state of one layered investment pass.
type LayerState int

const (
	// LayersDone means the frontier reached a fixed point.
	LayersDone LayerState = iota
	// FrontierExhausted means the layer cap was hit with commodities
	// still entering the frontier (cyclic dependencies).
	FrontierExhausted
)

func (s LayerState) String() string {
	switch s {
	case LayersDone:
		return "done"
	case FrontierExhausted:
		return "frontier-exhausted"
	}
	return fmt.Sprintf("LayerState(%d)", int(s))
}

// Config tunes the orchestrator.
type Config struct {
	// MaxIterations bounds the per-year price convergence loop.
	MaxIterations int
	// Tolerance is the maximum relative change of a load-weighted SED
	// commodity price still counted as converged.
	Tolerance float64
	// MaxLayers bounds a layered investment pass. Zero defaults to the
	// number of balanced commodities plus one.
	MaxLayers int
	// CandidateCapacity is the near-zero capacity candidate assets carry
	// in calibration and convergence dispatches.
	CandidateCapacity float64
	// Workers caps concurrent per-commodity appraisals inside a layer.
	// Zero means one worker per appraisal.
	Workers int
	// PriceStrategy selects how prices are derived from duals.
	PriceStrategy prices.Strategy
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 5
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 0.01
	}
	if c.CandidateCapacity <= 0 {
		c.CandidateCapacity = 1e-6
	}
	return c
}

// Warning is a non-fatal diagnostic published on the runner's event bus in
// addition to being logged.
type Warning struct {
	Year        int
	Kind        string
	Commodities []model.CommodityID
	Message     string
	Time        time.Time
}

const (
	WarnNonConvergence = "non-convergence"
	WarnBudgetNotMet   = "carbon-budget-not-met"
	WarnUnserved       = "unserved-demand"
	WarnFrontier       = "frontier-exhausted"
)

// YearResult is the committed equilibrium of one milestone year.
type YearResult struct {
	Year int
	// Portfolio is the asset set after investment and decommissioning.
	Portfolio model.Portfolio
	// Prices is the final commodity price table.
	Prices model.PriceTable
	// Dispatch is the final full-system dispatch of the year.
	Dispatch *dispatch.Result
	// CO2Price is the carbon price in effect, from the budget dual or the
	// configured flat price.
	CO2Price float64
	// Iterations counts convergence loop passes.
	Iterations int
	State      Convergence
	Layering   LayerState
	// Unserved lists commodities whose appraisal ran out of options.
	Unserved []model.CommodityID
	// Decommissioned lists assets retired this year, by lifetime expiry
	// or stranding.
	Decommissioned []model.AssetID
}
