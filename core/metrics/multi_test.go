package metrics

import "testing"

type countingSink struct {
	solves, iterations, investments, summaries int
}

func (c *countingSink) RecordSolve(SolveEvent) error { c.solves++; return nil }
func (c *countingSink) RecordIteration(IterationEvent) error {
	c.iterations++
	return nil
}
func (c *countingSink) RecordInvestment(InvestmentEvent) error {
	c.investments++
	return nil
}
func (c *countingSink) RecordYearSummary(YearSummaryEvent) error {
	c.summaries++
	return nil
}

// solveOnlySink implements only the mandatory interface.
type solveOnlySink struct{ solves int }

func (s *solveOnlySink) RecordSolve(SolveEvent) error { s.solves++; return nil }

func TestMultiSinkFanout(t *testing.T) {
	a := &countingSink{}
	b := &solveOnlySink{}
	m := NewMultiSink(a, b)

	if err := m.RecordSolve(SolveEvent{Year: 2020}); err != nil {
		t.Fatalf("solve: %v", err)
	}
	if err := m.RecordIteration(IterationEvent{Year: 2020, Iteration: 1}); err != nil {
		t.Fatalf("iteration: %v", err)
	}
	if err := m.RecordInvestment(InvestmentEvent{Year: 2020}); err != nil {
		t.Fatalf("investment: %v", err)
	}
	if err := m.RecordYearSummary(YearSummaryEvent{Year: 2020}); err != nil {
		t.Fatalf("summary: %v", err)
	}

	if a.solves != 1 || a.iterations != 1 || a.investments != 1 || a.summaries != 1 {
		t.Fatalf("counting sink missed events: %+v", a)
	}
	if b.solves != 1 {
		t.Fatalf("solve-only sink got %d solves, want 1", b.solves)
	}
}

func TestNewMetricsSinkDefaultsToNop(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}
