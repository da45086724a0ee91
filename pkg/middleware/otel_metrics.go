package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/internal/telemetry/attrs"
	"github.com/hyp3rd/statkit/pkg/bootstrap"
	"github.com/hyp3rd/statkit/pkg/histogram"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for service methods.
type OTelMetricsMiddleware struct {
	next  statkit.Service
	meter metric.Meter

	// instruments
	calls      metric.Int64Counter
	durations  metric.Float64Histogram
	superseded metric.Int64Counter
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware(next statkit.Service, meter metric.Meter) (statkit.Service, error) {
	calls, err := meter.Int64Counter("statkit.calls")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}

	durations, err := meter.Float64Histogram("statkit.duration.ms")
	if err != nil {
		return nil, ewrap.Wrap(err, "create histogram")
	}

	superseded, err := meter.Int64Counter("statkit.bootstrap.superseded")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}

	return &OTelMetricsMiddleware{next: next, meter: meter, calls: calls, durations: durations, superseded: superseded}, nil
}

// Load implements Service.Load with metrics.
func (mw *OTelMetricsMiddleware) Load(ctx context.Context, values []float64) error {
	start := time.Now()
	err := mw.next.Load(ctx, values)
	mw.rec(ctx, "Load", start, attribute.Int(attrs.AttrDatasetLength, len(values)))

	return err
}

// UpdateParameters implements Service.UpdateParameters with metrics.
func (mw *OTelMetricsMiddleware) UpdateParameters(ctx context.Context, n, k int) (statkit.Distribution, bool, error) {
	start := time.Now()
	dist, published, err := mw.next.UpdateParameters(ctx, n, k)
	mw.rec(ctx, "UpdateParameters", start, attribute.Int(attrs.AttrResamples, n), attribute.Int(attrs.AttrSampleSize, k))
	mw.stale(ctx, "UpdateParameters", published, err)

	return dist, published, err
}

// Recompute implements Service.Recompute with metrics.
func (mw *OTelMetricsMiddleware) Recompute(ctx context.Context) (statkit.Distribution, bool, error) {
	start := time.Now()
	dist, published, err := mw.next.Recompute(ctx)
	mw.rec(ctx, "Recompute", start)
	mw.stale(ctx, "Recompute", published, err)

	return dist, published, err
}

// Histogram implements Service.Histogram with metrics.
func (mw *OTelMetricsMiddleware) Histogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	start := time.Now()
	bins, err := mw.next.Histogram(ctx, cfg)
	mw.rec(ctx, "Histogram", start, attribute.Int(attrs.AttrBinCount, len(bins)))

	return bins, err
}

// MeansHistogram implements Service.MeansHistogram with metrics.
func (mw *OTelMetricsMiddleware) MeansHistogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	start := time.Now()
	bins, err := mw.next.MeansHistogram(ctx, cfg)
	mw.rec(ctx, "MeansHistogram", start, attribute.Int(attrs.AttrBinCount, len(bins)))

	return bins, err
}

// Export implements Service.Export with metrics.
func (mw *OTelMetricsMiddleware) Export(kind statkit.SnapshotKind, format string) ([]byte, string, error) {
	start := time.Now()
	data, contentType, err := mw.next.Export(kind, format)
	mw.rec(context.Background(), "Export", start, attribute.String(attrs.AttrFormat, format))

	return data, contentType, err
}

// Stop stops the underlying service.
func (mw *OTelMetricsMiddleware) Stop(ctx context.Context) error { return mw.next.Stop(ctx) }

// Dataset returns the current dataset.
func (mw *OTelMetricsMiddleware) Dataset() statkit.Dataset { return mw.next.Dataset() }

// Statistics returns the current statistics.
func (mw *OTelMetricsMiddleware) Statistics() statkit.Statistics { return mw.next.Statistics() }

// Distribution returns the current distribution.
func (mw *OTelMetricsMiddleware) Distribution() statkit.Distribution { return mw.next.Distribution() }

// MeansStatistics returns the statistics of the sample means.
func (mw *OTelMetricsMiddleware) MeansStatistics() statkit.Statistics { return mw.next.MeansStatistics() }

// Parameters returns the bootstrap parameters.
func (mw *OTelMetricsMiddleware) Parameters() bootstrap.Params { return mw.next.Parameters() }

// HistogramDefaults returns the default bin configuration.
func (mw *OTelMetricsMiddleware) HistogramDefaults(kind statkit.SnapshotKind) histogram.Config {
	return mw.next.HistogramDefaults(kind)
}

// rec records call count and duration with attributes.
func (mw *OTelMetricsMiddleware) rec(ctx context.Context, method string, start time.Time, attrs ...attribute.KeyValue) {
	base := []attribute.KeyValue{attribute.String("method", method)}
	if len(attrs) > 0 {
		base = append(base, attrs...)
	}

	mw.calls.Add(ctx, 1, metric.WithAttributes(base...))
	mw.durations.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(base...))
}

// stale counts runs that finished without becoming the current distribution.
func (mw *OTelMetricsMiddleware) stale(ctx context.Context, method string, published bool, err error) {
	if published || err != nil {
		return
	}

	mw.superseded.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}
