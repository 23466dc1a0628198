package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/sim"
)

func sampleResults() []*sim.YearResult {
	winter := model.TimeSliceID{Season: "winter", TimeOfDay: "day"}
	summer := model.TimeSliceID{Season: "summer", TimeOfDay: "day"}
	boiler := &model.Process{ID: "boiler"}

	prices := model.PriceTable{}
	prices.Set("heat", "north", winter, 12.5)
	prices.Set("gas", "north", winter, 3)

	return []*sim.YearResult{{
		Year: 2025,
		Portfolio: model.Portfolio{{
			ID: "b-1", Process: boiler, Region: "north", Agent: "a1",
			Capacity: 10, CommissionYear: 2020,
		}},
		Prices: prices,
		Dispatch: &dispatch.Result{
			Year: 2025,
			Flows: map[dispatch.FlowKey]float64{
				{Asset: "b-1", Region: "north", Commodity: "heat", Slice: winter}: 6,
				{Asset: "b-1", Region: "north", Commodity: "gas", Slice: summer}:  -4,
			},
		},
		CO2Price:   5,
		Iterations: 2,
		State:      sim.Converged,
	}}
}

func TestWritePricesCSVOrdering(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePricesCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		{"year", "commodity", "region", "season", "time_of_day", "price"},
		{"2025", "gas", "north", "winter", "day", "3"},
		{"2025", "heat", "north", "winter", "day", "12.5"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("records = %v, want %v", records, want)
	}
}

func TestWriteFlowsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFlowsCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header + 2 flows", len(records))
	}
	// deterministic: gas before heat for the same asset
	if records[1][2] != "gas" || records[1][6] != "-4" {
		t.Fatalf("first flow = %v", records[1])
	}
	if records[2][2] != "heat" || records[2][6] != "6" {
		t.Fatalf("second flow = %v", records[2])
	}
}

func TestWritePortfolioCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePortfolioCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := []string{"2025", "b-1", "boiler", "north", "a1", "10", "2020"}
	if len(records) != 2 || !reflect.DeepEqual(records[1], want) {
		t.Fatalf("records = %v", records)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResults()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("years = %d, want 1", len(got))
	}
	if got[0]["state"] != "converged" {
		t.Fatalf("state = %v", got[0]["state"])
	}
	if got[0]["co2_price"] != 5.0 {
		t.Fatalf("co2_price = %v", got[0]["co2_price"])
	}
}
