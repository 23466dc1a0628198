package finance

import (
	"math"
	"testing"
)

func TestCapitalRecoveryFactor(t *testing.T) {
	cases := []struct {
		lifetime int
		rate     float64
		want     float64
	}{
		{0, 0.05, 0},
		{10, 0, 0.1},
		{10, 0.05, 0.1295045749654567},
		{5, 0.03, 0.2183545714005762},
	}
	for _, c := range cases {
		got := CapitalRecoveryFactor(c.lifetime, c.rate)
		if math.Abs(got-c.want) > 1e-10 {
			t.Fatalf("CRF(%d, %g) = %g, want %g", c.lifetime, c.rate, got, c.want)
		}
	}
}

func TestAnnualCapitalCost(t *testing.T) {
	cases := []struct {
		cost     float64
		lifetime int
		rate     float64
		want     float64
	}{
		{1000, 10, 0.05, 129.5045749654567},
		{500, 5, 0.03, 109.17728570028798},
		{1000, 0, 0.05, 0},
		{2000, 20, 0, 100},
	}
	for _, c := range cases {
		got := AnnualCapitalCost(c.cost, c.lifetime, c.rate)
		if math.Abs(got-c.want) > 1e-8 {
			t.Fatalf("AnnualCapitalCost(%g, %d, %g) = %g, want %g", c.cost, c.lifetime, c.rate, got, c.want)
		}
	}
}

func TestProfitabilityIndex(t *testing.T) {
	// (10*30 + 15*20) / (100*50) = 0.12
	got := ProfitabilityIndex(100, 50, []float64{10, 15}, []float64{30, 20})
	if math.Abs(got-0.12) > 1e-12 {
		t.Fatalf("PI = %g, want 0.12", got)
	}
	if got := ProfitabilityIndex(100, 50, nil, nil); got != 0 {
		t.Fatalf("PI with no activity = %g, want 0", got)
	}
	if got := ProfitabilityIndex(0, 100, []float64{10}, []float64{50}); !math.IsInf(got, 1) {
		t.Fatalf("PI with zero capacity = %g, want +Inf", got)
	}
}

func TestLCOX(t *testing.T) {
	// (100*50 + 10*5 + 20*3) / 30
	got := LCOX(100, 50, []float64{10, 20}, []float64{5, 3})
	want := 5110.0 / 30.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("LCOX = %g, want %g", got, want)
	}
}
