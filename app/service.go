// Package app wires configuration, model loading, the simulation runner and
// result export into a runnable service.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilianp07/gridplan/config"
	coremetrics "github.com/kilianp07/gridplan/core/metrics"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/sim"
	"github.com/kilianp07/gridplan/core/solver"
	"github.com/kilianp07/gridplan/infra/logger"
	"github.com/kilianp07/gridplan/infra/metrics"
	"github.com/kilianp07/gridplan/input"
	"github.com/kilianp07/gridplan/pkg/export"
)

// Service holds everything one simulation run needs.
type Service struct {
	cfg       *config.Config
	model     *model.Model
	portfolio model.Portfolio
	runner    *sim.Runner
	log       logger.Logger
}

// New creates a Service from the configuration: it loads the model
// directory, attaches the carbon policy and builds the runner.
func New(cfg *config.Config) (*Service, error) {
	zerolog.SetGlobalLevel(cfg.Logging.ZerologLevel())
	logg := logger.New("service")

	m, portfolio, err := input.Load(cfg.Input.Dir, cfg.Run.Years)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if policy := cfg.Carbon.Policy(); policy != nil {
		if _, ok := m.Commodities[policy.Commodity]; !ok {
			return nil, fmt.Errorf("carbon commodity %s is not in the model", policy.Commodity)
		}
		m.Carbon = policy
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	runner := sim.New(m, solver.NewSimplex(), logger.New("sim"), sink, cfg.Run.SimConfig())
	logg.Infof("model loaded: %d commodities, %d processes, %d base assets",
		len(m.Commodities), len(m.Processes), len(portfolio))
	return &Service{cfg: cfg, model: m, portfolio: portfolio, runner: runner, log: logg}, nil
}

// Run executes the simulation and writes the result files. It blocks until
// every milestone year is done or the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if addr := s.cfg.Monitor.PromAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	warnings := s.runner.Warnings().Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for w := range warnings {
			s.log.Debugw("run warning", map[string]any{
				"year":        w.Year,
				"kind":        w.Kind,
				"commodities": w.Commodities,
			})
		}
	}()

	results, err := s.runner.Run(ctx, s.portfolio)
	s.runner.Warnings().Close()
	<-done
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if err := export.WriteDir(s.cfg.Output.Dir, results); err != nil {
		return err
	}
	last := results[len(results)-1]
	s.log.Infof("simulation done: %d years, final year %d %s with %d assets",
		len(results), last.Year, last.State, len(last.Portfolio))
	return nil
}
