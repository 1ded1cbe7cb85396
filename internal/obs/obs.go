// Package obs wires opencensus measures to a prometheus exporter.
package obs

import (
	"context"
	"fmt"
	"net/http"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	MCollectedSamples = stats.Int64("knc/collected_samples", "Number of collected training samples", stats.UnitDimensionless)
	MPredictions      = stats.Int64("knc/predictions", "Number of classified query points", stats.UnitDimensionless)
	MPredictLatency   = stats.Float64("knc/predict_latency", "Predict latency", stats.UnitMilliseconds)
)

var KeyDataset = tag.MustNewKey("dataset")

var views = []*view.View{
	{
		Name:        "knc/collected_samples",
		Description: "Number of collected training samples",
		Measure:     MCollectedSamples,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{KeyDataset},
	},
	{
		Name:        "knc/predictions",
		Description: "Number of classified query points",
		Measure:     MPredictions,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{KeyDataset},
	},
	{
		Name:        "knc/predict_latency",
		Description: "Predict latency distribution",
		Measure:     MPredictLatency,
		Aggregation: view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000),
		TagKeys:     []tag.Key{KeyDataset},
	},
}

// Exporter registers the service views and returns the /metrics handler.
func Exporter() (http.Handler, error) {
	if err := view.Register(views...); err != nil {
		return nil, fmt.Errorf("unable to register views: %w", err)
	}
	exporter, err := ocprom.NewExporter(ocprom.Options{Namespace: "knc"})
	if err != nil {
		return nil, fmt.Errorf("unable to create prometheus exporter: %w", err)
	}
	view.RegisterExporter(exporter)
	return exporter, nil
}

func RecordCollected(ctx context.Context, dataset string, num int64) {
	ctx, _ = tag.New(ctx, tag.Upsert(KeyDataset, dataset))
	stats.Record(ctx, MCollectedSamples.M(num))
}

func RecordPredictions(ctx context.Context, dataset string, num int64, latencyMs float64) {
	ctx, _ = tag.New(ctx, tag.Upsert(KeyDataset, dataset))
	stats.Record(ctx, MPredictions.M(num), MPredictLatency.M(latencyMs))
}
