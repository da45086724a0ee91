// Package config reads the statkit YAML configuration file and turns it into
// statkit options.
package config

import (
	"os"

	"github.com/hyp3rd/ewrap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hyp3rd/statkit"
	"github.com/hyp3rd/statkit/internal/constants"
	"github.com/hyp3rd/statkit/pkg/bootstrap"
)

// File is the on-disk configuration.
type File struct {
	Workers    int              `yaml:"workers"`
	Seed       *uint64          `yaml:"seed"`
	Bootstrap  bootstrap.Params `yaml:"bootstrap"`
	Management Management       `yaml:"management"`
	Log        Log              `yaml:"log"`
	Redis      Redis            `yaml:"redis"`
}

// Management configures the management HTTP server.
type Management struct {
	Addr string `yaml:"addr"`
}

// Log configures the logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Redis names a list holding a dataset.
type Redis struct {
	Addr string `yaml:"addr"`
	Key  string `yaml:"key"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		Bootstrap: bootstrap.Params{N: statkit.DefaultResamples, K: statkit.DefaultSampleSize},
		Log:       Log{Level: constants.DefaultLogLevel},
	}
}

// Load reads path over the defaults. An empty path yields Default.
func Load(path string) (*File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ewrap.Wrapf(err, "read config %s", path)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, ewrap.Wrapf(err, "parse config %s", path)
	}

	return cfg, nil
}

// Logger builds a zap logger at the configured level.
func (f *File) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(f.Log.Level)
	if err != nil {
		return nil, ewrap.Wrap(err, "log level")
	}

	zcfg := zap.NewProductionConfig()
	if f.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, ewrap.Wrap(err, "build logger")
	}

	return logger, nil
}

// Options converts f into statkit options layered over statkit.NewConfig.
// Zero values keep the defaults. Management.Addr is not among them: the serve
// command owns the listener.
func (f *File) Options() []statkit.Option {
	opts := []statkit.Option{}

	if f.Workers > 0 {
		opts = append(opts, statkit.WithWorkers(f.Workers))
	}

	if f.Bootstrap.N != 0 || f.Bootstrap.K != 0 {
		opts = append(opts, statkit.WithBootstrapParameters(f.Bootstrap.N, f.Bootstrap.K))
	}

	if f.Seed != nil {
		opts = append(opts, statkit.WithSeed(*f.Seed))
	}

	return opts
}
