package config

import (
	"fmt"

	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/prices"
	"github.com/kilianp07/gridplan/core/sim"
)

// RunConfig tunes the milestone-year simulation.
type RunConfig struct {
	// Years are the milestone years, ascending. The first is the
	// calibration base year.
	Years []int `json:"years"`
	// MaxIterations bounds the per-year price convergence loop.
	MaxIterations int `json:"max_iterations"`
	// Tolerance is the relative price change under which a year counts as
	// converged.
	Tolerance float64 `json:"tolerance"`
	// MaxLayers bounds one layered investment pass. Zero derives the cap
	// from the number of balanced commodities.
	MaxLayers int `json:"max_layers"`
	// CandidateCapacity is the near-zero capacity candidate assets carry
	// in calibration dispatches.
	CandidateCapacity float64 `json:"candidate_capacity"`
	// Workers caps concurrent appraisals inside an investment layer.
	Workers int `json:"workers"`
	// PriceStrategy is "shadow_prices" or "scarcity_adjusted".
	PriceStrategy string `json:"price_strategy"`
}

// SetDefaults applies sane defaults.
func (c *RunConfig) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 5
	}
	if c.Tolerance == 0 {
		c.Tolerance = 0.01
	}
	if c.PriceStrategy == "" {
		c.PriceStrategy = "shadow_prices"
	}
}

// Validate checks mandatory fields.
func (c RunConfig) Validate() error {
	if len(c.Years) == 0 {
		return fmt.Errorf("at least one milestone year is required")
	}
	for i := 1; i < len(c.Years); i++ {
		if c.Years[i] <= c.Years[i-1] {
			return fmt.Errorf("milestone years must be strictly ascending, got %v", c.Years)
		}
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive")
	}
	if _, err := prices.ParseStrategy(c.PriceStrategy); err != nil {
		return err
	}
	return nil
}

// SimConfig maps the run settings onto the orchestrator configuration.
func (c RunConfig) SimConfig() sim.Config {
	strategy, _ := prices.ParseStrategy(c.PriceStrategy)
	return sim.Config{
		MaxIterations:     c.MaxIterations,
		Tolerance:         c.Tolerance,
		MaxLayers:         c.MaxLayers,
		CandidateCapacity: c.CandidateCapacity,
		Workers:           c.Workers,
		PriceStrategy:     strategy,
	}
}

// YearValue is one (year, value) entry of a carbon trajectory.
type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// CarbonConfig configures the emissions policy: an annual budget, a flat
// price, or neither. A year may carry a budget or a price, not both.
type CarbonConfig struct {
	Commodity string      `json:"commodity"`
	Budget    []YearValue `json:"budget"`
	Price     []YearValue `json:"price"`
}

// Validate checks mandatory fields.
func (c CarbonConfig) Validate() error {
	if len(c.Budget) == 0 && len(c.Price) == 0 {
		return nil
	}
	if c.Commodity == "" {
		return fmt.Errorf("carbon commodity is required when a budget or price is set")
	}
	budgeted := make(map[int]bool, len(c.Budget))
	for _, e := range c.Budget {
		if budgeted[e.Year] {
			return fmt.Errorf("duplicate carbon budget for year %d", e.Year)
		}
		budgeted[e.Year] = true
	}
	priced := make(map[int]bool, len(c.Price))
	for _, e := range c.Price {
		if priced[e.Year] {
			return fmt.Errorf("duplicate carbon price for year %d", e.Year)
		}
		priced[e.Year] = true
		if budgeted[e.Year] {
			return fmt.Errorf("year %d has both a carbon budget and a carbon price", e.Year)
		}
	}
	return nil
}

// Policy builds the model carbon policy, or nil when no policy is set.
func (c CarbonConfig) Policy() *model.CarbonPolicy {
	if len(c.Budget) == 0 && len(c.Price) == 0 {
		return nil
	}
	policy := &model.CarbonPolicy{
		Commodity: model.CommodityID(c.Commodity),
		Budget:    make(map[int]float64, len(c.Budget)),
		Price:     make(map[int]float64, len(c.Price)),
	}
	for _, e := range c.Budget {
		policy.Budget[e.Year] = e.Value
	}
	for _, e := range c.Price {
		policy.Price[e.Year] = e.Value
	}
	return policy
}
