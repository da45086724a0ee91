// Package middleware contains service middlewares for statkit.
package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/internal/telemetry/attrs"
	"github.com/hyp3rd/statkit/pkg/bootstrap"
	"github.com/hyp3rd/statkit/pkg/histogram"
)

// OTelTracingMiddleware wraps statkit.Service methods with OpenTelemetry spans.
type OTelTracingMiddleware struct {
	next   statkit.Service
	tracer trace.Tracer
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*OTelTracingMiddleware)

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(m *OTelTracingMiddleware) { m.commonAttrs = append(m.commonAttrs, attributes...) }
}

// NewOTelTracingMiddleware creates a tracing middleware.
func NewOTelTracingMiddleware(next statkit.Service, tracer trace.Tracer, opts ...OTelTracingOption) statkit.Service {
	mw := &OTelTracingMiddleware{next: next, tracer: tracer}
	for _, o := range opts {
		o(mw)
	}

	return mw
}

// Load implements Service.Load with tracing.
func (mw OTelTracingMiddleware) Load(ctx context.Context, values []float64) error {
	ctx, span := mw.startSpan(ctx, "statkit.Load", attribute.Int(attrs.AttrDatasetLength, len(values)))
	defer span.End()

	err := mw.next.Load(ctx, values)
	record(span, err)

	return err
}

// UpdateParameters implements Service.UpdateParameters with tracing.
func (mw OTelTracingMiddleware) UpdateParameters(ctx context.Context, n, k int) (statkit.Distribution, bool, error) {
	ctx, span := mw.startSpan(
		ctx, "statkit.UpdateParameters",
		attribute.Int(attrs.AttrResamples, n),
		attribute.Int(attrs.AttrSampleSize, k))
	defer span.End()

	dist, published, err := mw.next.UpdateParameters(ctx, n, k)
	span.SetAttributes(attribute.Bool(attrs.AttrPublished, published), attribute.Int64(attrs.AttrGeneration, int64(dist.Generation)))
	record(span, err)

	return dist, published, err
}

// Recompute implements Service.Recompute with tracing.
func (mw OTelTracingMiddleware) Recompute(ctx context.Context) (statkit.Distribution, bool, error) {
	params := mw.next.Parameters()

	ctx, span := mw.startSpan(
		ctx, "statkit.Recompute",
		attribute.Int(attrs.AttrResamples, params.N),
		attribute.Int(attrs.AttrSampleSize, params.K))
	defer span.End()

	dist, published, err := mw.next.Recompute(ctx)
	span.SetAttributes(attribute.Bool(attrs.AttrPublished, published), attribute.Int64(attrs.AttrGeneration, int64(dist.Generation)))
	record(span, err)

	return dist, published, err
}

// Histogram implements Service.Histogram with tracing.
func (mw OTelTracingMiddleware) Histogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	ctx, span := mw.startSpan(ctx, "statkit.Histogram")
	defer span.End()

	bins, err := mw.next.Histogram(ctx, cfg)
	span.SetAttributes(attribute.Int(attrs.AttrBinCount, len(bins)))
	record(span, err)

	return bins, err
}

// MeansHistogram implements Service.MeansHistogram with tracing.
func (mw OTelTracingMiddleware) MeansHistogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	ctx, span := mw.startSpan(ctx, "statkit.MeansHistogram")
	defer span.End()

	bins, err := mw.next.MeansHistogram(ctx, cfg)
	span.SetAttributes(attribute.Int(attrs.AttrBinCount, len(bins)))
	record(span, err)

	return bins, err
}

// Stop stops the service with a span.
func (mw OTelTracingMiddleware) Stop(ctx context.Context) error {
	ctx, span := mw.startSpan(ctx, "statkit.Stop")
	defer span.End()

	err := mw.next.Stop(ctx)
	record(span, err)

	return err
}

// Export implements Service.Export with tracing.
func (mw OTelTracingMiddleware) Export(kind statkit.SnapshotKind, format string) ([]byte, string, error) {
	_, span := mw.startSpan(context.Background(), "statkit.Export", attribute.String(attrs.AttrFormat, format))
	defer span.End()

	data, contentType, err := mw.next.Export(kind, format)
	record(span, err)

	return data, contentType, err
}

// Dataset returns the current dataset.
func (mw OTelTracingMiddleware) Dataset() statkit.Dataset { return mw.next.Dataset() }

// Statistics returns the current statistics.
func (mw OTelTracingMiddleware) Statistics() statkit.Statistics { return mw.next.Statistics() }

// Distribution returns the current distribution.
func (mw OTelTracingMiddleware) Distribution() statkit.Distribution { return mw.next.Distribution() }

// MeansStatistics returns the statistics of the sample means.
func (mw OTelTracingMiddleware) MeansStatistics() statkit.Statistics { return mw.next.MeansStatistics() }

// Parameters returns the bootstrap parameters.
func (mw OTelTracingMiddleware) Parameters() bootstrap.Params { return mw.next.Parameters() }

// HistogramDefaults returns the default bin configuration.
func (mw OTelTracingMiddleware) HistogramDefaults(kind statkit.SnapshotKind) histogram.Config {
	return mw.next.HistogramDefaults(kind)
}

// startSpan starts a span with common and provided attributes.
func (mw OTelTracingMiddleware) startSpan(ctx context.Context, name string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := mw.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	if len(mw.commonAttrs) > 0 {
		span.SetAttributes(mw.commonAttrs...)
	}

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	return ctx, span
}

func record(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
