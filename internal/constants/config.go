// Package constants defines default configuration values for the statkit
// command and its management surface.
package constants

import "time"

const (
	// DefaultMgmtAddr is the address the management HTTP server listens on
	// when neither a flag nor the configuration file names one.
	DefaultMgmtAddr = "127.0.0.1:8080"
	// DefaultShutdownTimeout bounds the graceful shutdown of a served kit.
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "info"
	// InstrumentationName names the tracer and meter of the statkit middleware.
	InstrumentationName = "github.com/hyp3rd/statkit"
)
