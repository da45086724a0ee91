// Package sentinel provides standardized error definitions for the statkit system.
// This package centralizes the error values used across the statkit components,
// ensuring consistent error handling and messaging throughout the module.
//
// The computational core never reports degenerate input (an empty dataset,
// non-positive bootstrap parameters) as an error; the errors defined here cover
// configuration, the worker pool, the dataset sources and the outer surfaces.
//
// All errors are created using the ewrap package to provide enhanced error
// wrapping and context capabilities.
package sentinel

import (
	"github.com/hyp3rd/ewrap"
)

var (
	// ErrInvalidWorkers is returned when a worker pool is configured with fewer than one worker.
	ErrInvalidWorkers = ewrap.New("worker count must be positive")

	// ErrPoolClosed is returned when a job is submitted to a worker pool that has been shut down.
	ErrPoolClosed = ewrap.New("worker pool is closed")

	// ErrTimeoutOrCanceled is returned when a timeout or cancellation occurs.
	ErrTimeoutOrCanceled = ewrap.New("the operation timed out or was canceled")

	// ErrBootstrapLimit is returned when bootstrap parameters exceed the supported resample count or sample size.
	ErrBootstrapLimit = ewrap.New("bootstrap parameters exceed limits")

	// ErrInvalidBinStep is returned when a histogram is requested with a non-positive bin width.
	ErrInvalidBinStep = ewrap.New("histogram bin step must be positive")

	// ErrInvalidBinRange is returned when a histogram range ends before it starts.
	ErrInvalidBinRange = ewrap.New("histogram range end precedes its start")

	// ErrEmptyDataset is returned by dataset sources that produced no values.
	ErrEmptyDataset = ewrap.New("dataset is empty")

	// ErrMalformedValue is returned when a source value is not a finite real number.
	ErrMalformedValue = ewrap.New("malformed numeric value")

	// ErrColumnOutOfRange is returned when a tabular source lacks the requested column.
	ErrColumnOutOfRange = ewrap.New("column out of range")

	// ErrUnsupportedFormat is returned when a dataset file extension is not recognized.
	ErrUnsupportedFormat = ewrap.New("unsupported dataset format")

	// ErrParamCannotBeEmpty is returned when a parameter cannot be empty.
	ErrParamCannotBeEmpty = ewrap.New("param cannot be empty")

	// ErrSerializerNotFound is returned when a serializer is not found.
	ErrSerializerNotFound = ewrap.New("serializer not found")

	// ErrUnknownSnapshot is returned when an export names a snapshot kind that does not exist.
	ErrUnknownSnapshot = ewrap.New("unknown snapshot kind")

	// ErrMgmtHTTPShutdownTimeout is returned when the management HTTP server fails to shutdown before context deadline.
	ErrMgmtHTTPShutdownTimeout = ewrap.New("management http shutdown timeout")
)
