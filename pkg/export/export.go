// Package export writes simulation results as CSV and JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/sim"
)

// WriteJSON writes the year results to w in JSON format.
func WriteJSON(w io.Writer, results []*sim.YearResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(results))
}

// WritePricesCSV writes the per-year commodity price tables to w.
func WritePricesCSV(w io.Writer, results []*sim.YearResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "commodity", "region", "season", "time_of_day", "price"}); err != nil {
		return err
	}
	for _, res := range results {
		for _, key := range sortedPriceKeys(res.Prices) {
			rec := []string{
				strconv.Itoa(res.Year),
				string(key.Commodity),
				string(key.Region),
				key.Slice.Season,
				key.Slice.TimeOfDay,
				formatFloat(res.Prices[key]),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFlowsCSV writes the per-year dispatched flows to w. Negative
// quantities are consumption.
func WriteFlowsCSV(w io.Writer, results []*sim.YearResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "asset", "commodity", "region", "season", "time_of_day", "quantity"}); err != nil {
		return err
	}
	for _, res := range results {
		if res.Dispatch == nil {
			continue
		}
		for _, key := range sortedFlowKeys(res.Dispatch.Flows) {
			rec := []string{
				strconv.Itoa(res.Year),
				string(key.Asset),
				string(key.Commodity),
				string(key.Region),
				key.Slice.Season,
				key.Slice.TimeOfDay,
				formatFloat(res.Dispatch.Flows[key]),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePortfolioCSV writes the per-year asset portfolios to w.
func WritePortfolioCSV(w io.Writer, results []*sim.YearResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "asset", "process", "region", "agent", "capacity", "commission_year"}); err != nil {
		return err
	}
	for _, res := range results {
		for _, a := range res.Portfolio.Sorted() {
			rec := []string{
				strconv.Itoa(res.Year),
				string(a.ID),
				string(a.Process.ID),
				string(a.Region),
				string(a.Agent),
				formatFloat(a.Capacity),
				strconv.Itoa(a.CommissionYear),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDir writes prices.csv, flows.csv, portfolio.csv and results.json into
// the given directory, creating it if needed.
func WriteDir(dir string, results []*sim.YearResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer, []*sim.YearResult) error
	}{
		{"prices.csv", WritePricesCSV},
		{"flows.csv", WriteFlowsCSV},
		{"portfolio.csv", WritePortfolioCSV},
		{"results.json", WriteJSON},
	}
	for _, file := range files {
		if err := writeFile(filepath.Join(dir, file.name), results, file.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, results []*sim.YearResult, write func(io.Writer, []*sim.YearResult) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// yearSummary is the JSON shape of one milestone year.
type yearSummary struct {
	Year           int      `json:"year"`
	State          string   `json:"state"`
	Iterations     int      `json:"iterations"`
	CO2Price       float64  `json:"co2_price"`
	Assets         int      `json:"assets"`
	Unserved       []string `json:"unserved,omitempty"`
	Decommissioned []string `json:"decommissioned,omitempty"`
}

func summarize(results []*sim.YearResult) []yearSummary {
	out := make([]yearSummary, 0, len(results))
	for _, res := range results {
		s := yearSummary{
			Year:       res.Year,
			State:      res.State.String(),
			Iterations: res.Iterations,
			CO2Price:   res.CO2Price,
			Assets:     len(res.Portfolio),
		}
		for _, c := range res.Unserved {
			s.Unserved = append(s.Unserved, string(c))
		}
		for _, a := range res.Decommissioned {
			s.Decommissioned = append(s.Decommissioned, string(a))
		}
		out = append(out, s)
	}
	return out
}

func sortedPriceKeys(table model.PriceTable) []model.PriceKey {
	keys := make([]model.PriceKey, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Commodity != b.Commodity {
			return a.Commodity < b.Commodity
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return a.Slice.String() < b.Slice.String()
	})
	return keys
}

func sortedFlowKeys(flows map[dispatch.FlowKey]float64) []dispatch.FlowKey {
	keys := make([]dispatch.FlowKey, 0, len(flows))
	for key := range flows {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Asset != b.Asset {
			return a.Asset < b.Asset
		}
		if a.Commodity != b.Commodity {
			return a.Commodity < b.Commodity
		}
		return a.Slice.String() < b.Slice.String()
	})
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
