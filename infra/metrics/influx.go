package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gridplan/core/metrics"
	"github.com/kilianp07/gridplan/infra/logger"
)

// InfluxSink writes simulation events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSolve writes one LP solve as a point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_solve").
		AddTag("kind", string(ev.Kind)).
		AddTag("year", strconv.Itoa(ev.Year)).
		AddTag("component", "simulation").
		AddField("vars", ev.Vars).
		AddField("rows", ev.Rows).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordIteration writes one convergence iteration.
func (s *InfluxSink) RecordIteration(ev coremetrics.IterationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_iteration").
		AddTag("year", strconv.Itoa(ev.Year)).
		AddTag("converged", strconv.FormatBool(ev.Converged)).
		AddTag("component", "simulation").
		AddField("iteration", ev.Iteration).
		AddField("price_delta", round3(ev.PriceDelta)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordInvestment writes one committed selection.
func (s *InfluxSink) RecordInvestment(ev coremetrics.InvestmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_investment").
		AddTag("year", strconv.Itoa(ev.Year)).
		AddTag("commodity", ev.Commodity).
		AddTag("region", ev.Region).
		AddTag("process", ev.Process).
		AddTag("candidate", strconv.FormatBool(ev.Candidate)).
		AddTag("component", "investment").
		AddField("capacity", round3(ev.Capacity)).
		AddField("metric", round3(ev.Metric)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordYearSummary writes the closing snapshot of a milestone year.
func (s *InfluxSink) RecordYearSummary(ev coremetrics.YearSummaryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_year").
		AddTag("year", strconv.Itoa(ev.Year)).
		AddTag("converged", strconv.FormatBool(ev.Converged)).
		AddTag("component", "simulation").
		AddField("iterations", ev.Iterations).
		AddField("unmet_demand", round3(ev.UnmetDemand)).
		AddField("co2_price", round3(ev.CO2Price)).
		AddField("assets", ev.Assets).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
