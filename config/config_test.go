package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridplan/core/prices"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `input:
  dir: "testdata/model"
output:
  dir: "out"
run:
  years: [2020, 2025, 2030]
  max_iterations: 8
  tolerance: 0.005
  workers: 4
  price_strategy: "scarcity_adjusted"
carbon:
  commodity: "co2"
  budget:
    - year: 2025
      value: 100
    - year: 2030
      value: 50
metrics:
  sinks:
    - type: "nop"
monitoring:
  prom_addr: ":9102"
logging:
  level: "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"input.dir", cfg.Input.Dir, "testdata/model"},
		{"output.dir", cfg.Output.Dir, "out"},
		{"years", len(cfg.Run.Years) == 3 && cfg.Run.Years[2] == 2030, true},
		{"max_iterations", cfg.Run.MaxIterations, 8},
		{"tolerance", cfg.Run.Tolerance, 0.005},
		{"workers", cfg.Run.Workers, 4},
		{"price_strategy", cfg.Run.PriceStrategy, "scarcity_adjusted"},
		{"carbon.commodity", cfg.Carbon.Commodity, "co2"},
		{"carbon.budget", len(cfg.Carbon.Budget) == 2 && cfg.Carbon.Budget[1].Value == 50, true},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prom_addr", cfg.Monitor.PromAddr, ":9102"},
		{"log_level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if got := cfg.Run.SimConfig(); got.PriceStrategy != prices.StrategyScarcityAdjusted {
		t.Errorf("sim strategy = %v", got.PriceStrategy)
	}
	policy := cfg.Carbon.Policy()
	if policy == nil || policy.Commodity != "co2" {
		t.Fatalf("policy = %+v", policy)
	}
	if budget, ok := policy.BudgetFor(2030); !ok || budget != 50 {
		t.Errorf("budget 2030 = %g (%v)", budget, ok)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `input:
  dir: "model"
run:
  years: [2020]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Run.MaxIterations)
	require.Equal(t, 0.01, cfg.Run.Tolerance)
	require.Equal(t, "shadow_prices", cfg.Run.PriceStrategy)
	require.Equal(t, "results", cfg.Output.Dir)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Nil(t, cfg.Carbon.Policy())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing input dir", "run:\n  years: [2020]\n"},
		{"no years", "input:\n  dir: \"m\"\n"},
		{"unordered years", "input:\n  dir: \"m\"\nrun:\n  years: [2025, 2020]\n"},
		{"bad strategy", "input:\n  dir: \"m\"\nrun:\n  years: [2020]\n  price_strategy: \"vickrey\"\n"},
		{"bad level", "input:\n  dir: \"m\"\nrun:\n  years: [2020]\nlogging:\n  level: \"loud\"\n"},
		{"carbon without commodity", "input:\n  dir: \"m\"\nrun:\n  years: [2020]\ncarbon:\n  budget:\n    - year: 2020\n      value: 10\n"},
		{"budget and price same year", "input:\n  dir: \"m\"\nrun:\n  years: [2020]\ncarbon:\n  commodity: \"co2\"\n  budget:\n    - year: 2020\n      value: 10\n  price:\n    - year: 2020\n      value: 3\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.data))
			require.Error(t, err)
		})
	}
}
