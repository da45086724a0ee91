// Package attrs provides reusable OpenTelemetry attribute key constants
// to avoid duplication across middlewares.
package attrs

const (
	// AttrDatasetLength is the number of values in the dataset an operation ran against.
	AttrDatasetLength = "dataset.len"
	// AttrResamples is the bootstrap resample count (n).
	AttrResamples = "bootstrap.n"
	// AttrSampleSize is the bootstrap sample size (k).
	AttrSampleSize = "bootstrap.k"
	// AttrGeneration is the publication generation an operation started.
	AttrGeneration = "generation"
	// AttrPublished reports whether an operation's result became the current snapshot.
	AttrPublished = "published"
	// AttrBinCount is the number of histogram bins returned.
	AttrBinCount = "bins.count"
	// AttrFormat is the serialization format of an export.
	AttrFormat = "format"
)
