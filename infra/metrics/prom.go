package metrics

import (
	"strconv"

	coremetrics "github.com/kilianp07/gridplan/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records simulation events in Prometheus metrics.
type PromSink struct {
	solves     *prometheus.CounterVec
	solveTime  *prometheus.HistogramVec
	priceDelta *prometheus.GaugeVec
	unmet      *prometheus.GaugeVec
	capacity   *prometheus.CounterVec
}

// NewPromSink registers simulation metrics on the default Prometheus
// registerer. The Prometheus server should be started separately.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_solves_total",
		Help: "Total number of LP solves",
	}, []string{"kind", "year"})
	solveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_solve_seconds",
		Help:    "Wall time of LP solves",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	priceDelta := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_price_delta",
		Help: "Relative price change of the last convergence iteration",
	}, []string{"year"})
	unmet := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_unmet_demand",
		Help: "Unserved demand at the close of a milestone year",
	}, []string{"year"})
	capacity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_capacity_committed_total",
		Help: "Capacity committed by investment selections",
	}, []string{"process", "region"})

	for _, c := range []prometheus.Collector{solves, solveTime, priceDelta, unmet, capacity} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{
		solves:     solves,
		solveTime:  solveTime,
		priceDelta: priceDelta,
		unmet:      unmet,
		capacity:   capacity,
	}, nil
}

// RecordSolve counts the solve and observes its duration.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(string(ev.Kind), strconv.Itoa(ev.Year)).Inc()
	s.solveTime.WithLabelValues(string(ev.Kind)).Observe(ev.Duration.Seconds())
	return nil
}

// RecordIteration sets the price-delta gauge for the year.
func (s *PromSink) RecordIteration(ev coremetrics.IterationEvent) error {
	s.priceDelta.WithLabelValues(strconv.Itoa(ev.Year)).Set(ev.PriceDelta)
	return nil
}

// RecordInvestment accumulates committed capacity per process and region.
func (s *PromSink) RecordInvestment(ev coremetrics.InvestmentEvent) error {
	s.capacity.WithLabelValues(ev.Process, ev.Region).Add(ev.Capacity)
	return nil
}

// RecordYearSummary sets the unmet-demand gauge.
func (s *PromSink) RecordYearSummary(ev coremetrics.YearSummaryEvent) error {
	s.unmet.WithLabelValues(strconv.Itoa(ev.Year)).Set(ev.UnmetDemand)
	return nil
}
