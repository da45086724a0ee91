package main

import (
	"context"
	"errors"
	"io"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/internal/config"
	"github.com/hyp3rd/statkit/internal/constants"
	"github.com/hyp3rd/statkit/pkg/histogram"
	"github.com/hyp3rd/statkit/pkg/middleware"
	"github.com/hyp3rd/statkit/pkg/source"
)

// cli carries the state shared by every command.
type cli struct {
	configPath string
	logLevel   string
	csv        source.CSVOptions

	cfg    *config.File
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	rootCmd := &cobra.Command{
		Use:           "statkit",
		Short:         "Describe a numeric dataset and simulate the Central Limit Theorem on it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "path to a YAML configuration file")
	flags.StringVar(&app.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.IntVar(&app.csv.Column, "column", 0, "zero-based CSV column holding the values")
	flags.BoolVar(&app.csv.Header, "header", false, "skip the first CSV record")

	rootCmd.AddCommand(
		app.describeCmd(),
		app.cltCmd(),
		app.histogramCmd(),
		app.serveCmd(),
	)

	return rootCmd
}

func (app *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(app.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = app.logLevel
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}

	app.cfg, app.logger = cfg, logger

	return nil
}

// kit builds a StatKit from the configuration file plus extra options.
func (app *cli) kit(ctx context.Context, extra ...statkit.Option) (*statkit.StatKit, error) {
	cfg := statkit.NewConfig()
	cfg.Options = append(cfg.Options, statkit.WithLogger(app.logger))
	cfg.Options = append(cfg.Options, app.cfg.Options()...)
	cfg.Options = append(cfg.Options, extra...)

	return statkit.New(ctx, cfg)
}

// loadFile builds a StatKit and loads the dataset at path into it.
func (app *cli) loadFile(ctx context.Context, path string, extra ...statkit.Option) (*statkit.StatKit, error) {
	values, err := source.ReadFile(path, app.csv)
	if err != nil {
		return nil, err
	}

	kit, err := app.kit(ctx, extra...)
	if err != nil {
		return nil, err
	}

	err = kit.Load(ctx, values)
	if err != nil {
		_ = kit.Stop(ctx)

		return nil, err
	}

	return kit, nil
}

func (app *cli) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe FILE",
		Short: "Print the mean, mode, median, variance and standard deviation of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kit, err := app.loadFile(ctx, args[0])
			if err != nil {
				return err
			}
			defer kit.Stop(ctx)

			return writeJSON(cmd.OutOrStdout(), kit.Statistics())
		},
	}
}

func (app *cli) cltCmd() *cobra.Command {
	var (
		resamples int
		size      int
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "clt FILE",
		Short: "Resample a dataset and print the distribution of its sample means",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			extra := []statkit.Option{}

			if cmd.Flags().Changed("resamples") || cmd.Flags().Changed("size") {
				params := app.cfg.Bootstrap
				if cmd.Flags().Changed("resamples") {
					params.N = resamples
				}

				if cmd.Flags().Changed("size") {
					params.K = size
				}

				extra = append(extra, statkit.WithBootstrapParameters(params.N, params.K))
			}

			if cmd.Flags().Changed("seed") {
				extra = append(extra, statkit.WithSeed(seed))
			}

			kit, err := app.loadFile(ctx, args[0], extra...)
			if err != nil {
				return err
			}
			defer kit.Stop(ctx)

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"distribution": kit.Distribution(),
				"statistics":   kit.MeansStatistics(),
			})
		},
	}

	cmd.Flags().IntVarP(&resamples, "resamples", "n", statkit.DefaultResamples, "number of resamples")
	cmd.Flags().IntVarP(&size, "size", "k", statkit.DefaultSampleSize, "draws per resample")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible simulation")

	return cmd
}

func (app *cli) histogramCmd() *cobra.Command {
	var (
		bins  histogram.Config
		means bool
	)

	cmd := &cobra.Command{
		Use:   "histogram FILE",
		Short: "Bucket a dataset, or the bootstrap sample means, into bins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kit, err := app.loadFile(ctx, args[0])
			if err != nil {
				return err
			}
			defer kit.Stop(ctx)

			kind, compute := statkit.SnapshotStatistics, kit.Histogram
			if means {
				kind, compute = statkit.SnapshotMeans, kit.MeansHistogram
			}

			cfg := kit.HistogramDefaults(kind)
			if cmd.Flags().Changed("start") {
				cfg.Start = bins.Start
			}

			if cmd.Flags().Changed("end") {
				cfg.End = bins.End
			}

			if cmd.Flags().Changed("step") {
				cfg.Step = bins.Step
			}

			result, err := compute(ctx, cfg)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{"config": cfg, "bins": result})
		},
	}

	cmd.Flags().Float64Var(&bins.Start, "start", 0, "first bin start (default: dataset minimum)")
	cmd.Flags().Float64Var(&bins.End, "end", 0, "last bin start (default: dataset maximum)")
	cmd.Flags().Float64Var(&bins.Step, "step", histogram.DefaultStep, "bin width")
	cmd.Flags().BoolVar(&means, "means", false, "bucket the bootstrap sample means instead of the dataset")

	return cmd
}

func (app *cli) serveCmd() *cobra.Command {
	var (
		addr      string
		dataPath  string
		redisAddr string
		redisKey  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve statistics over the management HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if !cmd.Flags().Changed("addr") && app.cfg.Management.Addr != "" {
				addr = app.cfg.Management.Addr
			}

			if redisAddr == "" {
				redisAddr = app.cfg.Redis.Addr
			}

			if redisKey == "" {
				redisKey = app.cfg.Redis.Key
			}

			kit, err := app.kit(ctx)
			if err != nil {
				return err
			}

			svc, err := app.decorate(kit)
			if err != nil {
				_ = kit.Stop(ctx)

				return err
			}

			values, err := app.initialDataset(ctx, dataPath, redisAddr, redisKey)
			if err == nil && values != nil {
				err = svc.Load(ctx, values)
			}

			if err != nil {
				_ = kit.Stop(ctx)

				return err
			}

			srv := statkit.NewManagementHTTPServer(addr)

			err = srv.Start(ctx, svc)
			if err != nil {
				_ = kit.Stop(ctx)

				return err
			}

			app.logger.Info("management http listening", zap.String("addr", srv.Address()))

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultShutdownTimeout)
			defer cancel()

			err = errors.Join(srv.Shutdown(shutdownCtx), svc.Stop(shutdownCtx))
			if err != nil {
				return ewrap.Wrap(err, "shutdown")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", constants.DefaultMgmtAddr, "management HTTP listen address")
	cmd.Flags().StringVar(&dataPath, "data", "", "dataset file loaded at startup")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis server holding the startup dataset")
	cmd.Flags().StringVar(&redisKey, "redis-key", "", "Redis list holding the startup dataset")

	return cmd
}

// decorate wraps the kit with logging, tracing and metrics middleware.
func (app *cli) decorate(kit *statkit.StatKit) (statkit.Service, error) {
	metrics, err := middleware.NewOTelMetricsMiddleware(kit, otel.GetMeterProvider().Meter(constants.InstrumentationName))
	if err != nil {
		return nil, err
	}

	return statkit.ApplyMiddleware(metrics,
		func(next statkit.Service) statkit.Service {
			return middleware.NewOTelTracingMiddleware(next, otel.GetTracerProvider().Tracer(constants.InstrumentationName))
		},
		func(next statkit.Service) statkit.Service {
			return middleware.NewLoggingMiddleware(next, app.logger.Sugar())
		},
	), nil
}

// initialDataset reads the startup dataset from a file or a Redis list; nil when neither is set.
func (app *cli) initialDataset(ctx context.Context, path, redisAddr, redisKey string) ([]float64, error) {
	if path != "" {
		return source.ReadFile(path, app.csv)
	}

	if redisAddr == "" {
		return nil, nil
	}

	if redisKey == "" {
		redisKey = constants.RedisDatasetKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:        redisAddr,
		DialTimeout: constants.RedisDialTimeout,
		ReadTimeout: constants.RedisClientReadTimeout,
		MaxRetries:  constants.RedisClientMaxRetries,
	})
	defer client.Close()

	return source.FromRedisList(ctx, client, redisKey)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return ewrap.Wrap(err, "encode output")
	}

	return nil
}
