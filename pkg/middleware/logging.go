// Package middleware provides various middleware implementations for the statkit service.
// This package includes logging middleware that wraps the statkit service to provide
// execution time logging and method call tracing for debugging and monitoring purposes.
package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/pkg/bootstrap"
	"github.com/hyp3rd/statkit/pkg/histogram"
)

// Logger describes a logging interface allowing to implement different external, or custom logger.
// Uber's Zap SugaredLogger satisfies it.
type Logger interface {
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// LoggingMiddleware is a middleware that logs the time it takes to execute the next middleware.
// Must implement the statkit.Service interface.
type LoggingMiddleware struct {
	next   statkit.Service
	logger Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware.
func NewLoggingMiddleware(next statkit.Service, logger Logger) statkit.Service {
	return &LoggingMiddleware{next: next, logger: logger}
}

// Load logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Load(ctx context.Context, values []float64) error {
	defer func(begin time.Time) {
		mw.logger.Infof("method Load took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Infof("Load method called with %d values", len(values))

	err := mw.next.Load(ctx, values)
	if err != nil {
		mw.logger.Errorf("Load failed: %v", err)
	}

	return err
}

// UpdateParameters logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) UpdateParameters(ctx context.Context, n, k int) (statkit.Distribution, bool, error) {
	defer func(begin time.Time) {
		mw.logger.Infof("method UpdateParameters took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Infof("UpdateParameters method called with n: %d k: %d", n, k)

	dist, published, err := mw.next.UpdateParameters(ctx, n, k)
	if err != nil {
		mw.logger.Errorf("UpdateParameters failed: %v", err)
	}

	return dist, published, err
}

// Recompute logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Recompute(ctx context.Context) (statkit.Distribution, bool, error) {
	defer func(begin time.Time) {
		mw.logger.Infof("method Recompute took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Infof("Recompute method invoked")

	dist, published, err := mw.next.Recompute(ctx)
	if err != nil {
		mw.logger.Errorf("Recompute failed: %v", err)
	}

	return dist, published, err
}

// Histogram logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Histogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	defer func(begin time.Time) {
		mw.logger.Infof("method Histogram took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Infof("Histogram method invoked with config: %+v", cfg)

	return mw.next.Histogram(ctx, cfg)
}

// MeansHistogram logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) MeansHistogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error) {
	defer func(begin time.Time) {
		mw.logger.Infof("method MeansHistogram took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Infof("MeansHistogram method invoked with config: %+v", cfg)

	return mw.next.MeansHistogram(ctx, cfg)
}

// Stop logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Stop(ctx context.Context) error {
	defer func(begin time.Time) {
		mw.logger.Infof("method Stop took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Infof("Stop method invoked")

	return mw.next.Stop(ctx)
}

// Export logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Export(kind statkit.SnapshotKind, format string) ([]byte, string, error) {
	defer func(begin time.Time) {
		mw.logger.Infof("method Export took: %s", time.Since(begin))
	}(time.Now())

	mw.logger.Infof("Export method invoked with kind: %s format: %s", kind, format)

	return mw.next.Export(kind, format)
}

// Dataset returns the current dataset.
func (mw LoggingMiddleware) Dataset() statkit.Dataset { return mw.next.Dataset() }

// Statistics returns the current statistics.
func (mw LoggingMiddleware) Statistics() statkit.Statistics { return mw.next.Statistics() }

// Distribution returns the current distribution.
func (mw LoggingMiddleware) Distribution() statkit.Distribution { return mw.next.Distribution() }

// MeansStatistics returns the statistics of the sample means.
func (mw LoggingMiddleware) MeansStatistics() statkit.Statistics { return mw.next.MeansStatistics() }

// Parameters returns the bootstrap parameters.
func (mw LoggingMiddleware) Parameters() bootstrap.Params { return mw.next.Parameters() }

// HistogramDefaults returns the default bin configuration.
func (mw LoggingMiddleware) HistogramDefaults(kind statkit.SnapshotKind) histogram.Config {
	return mw.next.HistogramDefaults(kind)
}
