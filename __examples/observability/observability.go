package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/pkg/middleware"
)

// This example shows how to wrap StatKit with OpenTelemetry middleware.
func main() {
	ctx := context.Background()

	kit, err := statkit.NewWithDefaults(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}

	// Use noop providers for a minimal example. Replace with real SDK providers in production.
	meter := noop.NewMeterProvider().Meter("statkit/examples")
	tracer := tracenoop.NewTracerProvider().Tracer("statkit/examples")

	svc := statkit.ApplyMiddleware(kit,
		func(next statkit.Service) statkit.Service {
			return middleware.NewOTelTracingMiddleware(next, tracer, middleware.WithCommonAttributes(
				attribute.String("component", "statkit"),
			))
		},
		func(next statkit.Service) statkit.Service {
			mw, _ := middleware.NewOTelMetricsMiddleware(next, meter)

			return mw
		},
	)
	defer svc.Stop(ctx)

	_ = svc.Load(ctx, []float64{1, 2, 3, 4, 5, 6})
	fmt.Println("standard error:", svc.Distribution().Result.StandardError)
}
