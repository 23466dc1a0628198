package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordIteration forwards convergence iterations.
func (m *MultiSink) RecordIteration(ev IterationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(IterationRecorder); ok {
			if err := rec.RecordIteration(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordInvestment forwards committed selections.
func (m *MultiSink) RecordInvestment(ev InvestmentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(InvestmentRecorder); ok {
			if err := rec.RecordInvestment(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordYearSummary forwards year summaries.
func (m *MultiSink) RecordYearSummary(ev YearSummaryEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(YearSummaryRecorder); ok {
			if err := rec.RecordYearSummary(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
