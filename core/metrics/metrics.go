package metrics

import "time"

// SolveKind labels what a solver run was for.
type SolveKind string

const (
	SolveFull      SolveKind = "full"
	SolvePartial   SolveKind = "partial"
	SolveAppraisal SolveKind = "appraisal"
)

// SolveEvent captures one LP solve.
type SolveEvent struct {
	Year     int
	Kind     SolveKind
	Vars     int
	Rows     int
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records simulation events for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// IterationEvent captures one pass of the per-year price convergence loop.
type IterationEvent struct {
	Year       int
	Iteration  int
	PriceDelta float64
	Converged  bool
	Time       time.Time
}

// IterationRecorder records convergence iterations.
type IterationRecorder interface {
	RecordIteration(ev IterationEvent) error
}

// InvestmentEvent captures one committed investment selection.
type InvestmentEvent struct {
	Year      int
	Commodity string
	Region    string
	Process   string
	Candidate bool
	Capacity  float64
	Metric    float64
	Time      time.Time
}

// InvestmentRecorder records committed selections.
type InvestmentRecorder interface {
	RecordInvestment(ev InvestmentEvent) error
}

// YearSummaryEvent is the closing snapshot of one milestone year.
type YearSummaryEvent struct {
	Year        int
	Iterations  int
	Converged   bool
	UnmetDemand float64
	CO2Price    float64
	Assets      int
	Time        time.Time
}

// YearSummaryRecorder records per-year summaries.
type YearSummaryRecorder interface {
	RecordYearSummary(ev YearSummaryEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error             { return nil }
func (NopSink) RecordIteration(IterationEvent) error     { return nil }
func (NopSink) RecordInvestment(InvestmentEvent) error   { return nil }
func (NopSink) RecordYearSummary(YearSummaryEvent) error { return nil }
