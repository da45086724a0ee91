package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/pkg/middleware"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}
	defer logger.Sync()

	cfg := statkit.NewConfig()
	cfg.Options = append(cfg.Options, statkit.WithLogger(logger), statkit.WithSeed(42))

	kit, err := statkit.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}

	// apply middleware in the same order as you want to execute them
	svc := statkit.ApplyMiddleware(kit,
		func(next statkit.Service) statkit.Service {
			return middleware.NewLoggingMiddleware(next, logger.Sugar())
		},
	)
	defer svc.Stop(ctx)

	err = svc.Load(ctx, []float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return
	}

	stats := svc.Statistics().Snapshot
	fmt.Fprintf(os.Stdout, "mean %.2f median %.2f mode %v sd %.2f\n", stats.Mean, stats.Median, stats.Mode, stats.StandardDeviation)

	for _, k := range []int{2, 10, 50} {
		dist, _, err := svc.UpdateParameters(ctx, statkit.DefaultResamples, k)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)

			return
		}

		fmt.Fprintf(os.Stdout, "k=%d mean of means %.3f standard error %.4f\n", k, dist.Result.MeanOfMeans, dist.Result.StandardError)
	}
}
