package statkit

import (
	"context"

	"github.com/hyp3rd/statkit/pkg/bootstrap"
	"github.com/hyp3rd/statkit/pkg/histogram"
)

// Service is the service interface for the StatKit.
// It enables middleware to be added to the service.
type Service interface {
	reader
	// Load replaces the dataset and recomputes every component
	Load(ctx context.Context, values []float64) error
	// UpdateParameters sets the bootstrap parameters and recomputes the distribution
	UpdateParameters(ctx context.Context, n, k int) (Distribution, bool, error)
	// Recompute reruns the bootstrap simulation
	Recompute(ctx context.Context) (Distribution, bool, error)
	// Histogram buckets the current dataset
	Histogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error)
	// MeansHistogram buckets the current sample means
	MeansHistogram(ctx context.Context, cfg histogram.Config) ([]histogram.Bin, error)
	// Stop stops the service
	Stop(ctx context.Context) error
}

type reader interface {
	// Dataset returns the most recently loaded dataset
	Dataset() Dataset
	// Statistics returns the current descriptive statistics
	Statistics() Statistics
	// Distribution returns the current bootstrap distribution
	Distribution() Distribution
	// MeansStatistics returns the descriptive statistics of the sample means
	MeansStatistics() Statistics
	// Parameters returns the bootstrap parameters
	Parameters() bootstrap.Params
	// HistogramDefaults returns a bin configuration spanning the data of kind
	HistogramDefaults(kind SnapshotKind) histogram.Config
	// Export serializes the current snapshot of kind in format
	Export(kind SnapshotKind, format string) ([]byte, string, error)
}

// Middleware describes a service middleware.
type Middleware func(Service) Service

// ApplyMiddleware applies middlewares to a service.
func ApplyMiddleware(svc Service, mw ...Middleware) Service {
	for _, m := range mw {
		svc = m(svc)
	}

	return svc
}
