package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/llxisdsh/lphash"
	"github.com/llxisdsh/lphash/internal/bench"
	"github.com/llxisdsh/lphash/internal/config"
	"github.com/llxisdsh/lphash/internal/workload"
)

// globalFlags returns the flags available on every command. Flags hold
// their parsed state, so every app gets its own set.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML or JSON config file.",
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "Workload seed; 0 picks a random one.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "One of: debug, info, warn, error.",
		},
		&cli.BoolFlag{
			Name:  "dev-log",
			Usage: "Human readable development logs.",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Size of the worker pool running batch chunks; 0 starts goroutines per batch.",
		},
		&cli.StringFlag{
			Name:  "hasher",
			Usage: "Key hash: murmur3, golden or xxhash.",
		},
		&cli.BoolFlag{
			Name:  "tombstones",
			Usage: "Delete with tombstones instead of emptying slots.",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address, e.g. :9090.",
		},
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "lphtbench",
		Usage:  "Benchmark the lphash linear probing table",
		Writer: out,
		Flags:  globalFlags(),
		Commands: []*cli.Command{
			runCommand(),
			csvCommand(),
		},
	}
}

// env is everything a command needs, built from config and flags.
type env struct {
	cfg    *config.Config
	seed   uint64
	out    io.Writer
	logger *zap.Logger
	runner *bench.Runner

	pool   *ants.Pool
	server *http.Server
}

// loadConfig reads the config file and environment, then applies the
// flags that were set on the command line.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("seed") {
		cfg.Seed = uint64(cmd.Int("seed"))
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("dev-log") {
		cfg.DevLog = cmd.Bool("dev-log")
	}
	if cmd.IsSet("workers") {
		cfg.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("hasher") {
		cfg.Hasher = cmd.String("hasher")
	}
	if cmd.IsSet("tombstones") {
		cfg.Tombstones = cmd.Bool("tombstones")
	}
	if cmd.IsSet("metrics-addr") {
		cfg.MetricsAddr = cmd.String("metrics-addr")
	}
	return cfg, nil
}

func newLogger(level string, dev bool) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zc := zap.NewProductionConfig()
	if dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

var hashers = map[string]lphash.HashFunc{
	"murmur3": lphash.Murmur3Hash,
	"golden":  lphash.GoldenHash,
	"xxhash":  lphash.XXHash,
}

// setup validates cfg and builds the logger, table options, worker pool
// and metrics endpoint. The caller must call close.
func setup(cmd *cli.Command, cfg *config.Config) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.DevLog)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, seed: cfg.Seed, out: cmd.Root().Writer, logger: logger}
	if e.seed == 0 {
		e.seed = workload.RandomSeed()
	}

	options := []func(*lphash.Config){lphash.WithHasher(hashers[cfg.Hasher])}
	if cfg.Workers > 0 {
		e.pool, err = ants.NewPool(cfg.Workers)
		if err != nil {
			e.close()
			return nil, errors.Wrap(err, "creating worker pool")
		}
		options = append(options, lphash.WithDispatcher(lphash.NewPoolDispatcher(e.pool)))
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics, err := lphash.NewMetrics(reg, "lphash")
		if err != nil {
			e.close()
			return nil, err
		}
		options = append(options, lphash.WithMetrics(metrics))
		e.server = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	e.runner = bench.NewRunner(clockwork.NewRealClock(), logger, cfg.Tombstones, options...)
	logger.Info("benchmark configured",
		zap.Uint64("seed", e.seed),
		zap.String("hasher", cfg.Hasher),
		zap.Int("workers", cfg.Workers),
		zap.Bool("tombstones", cfg.Tombstones))
	return e, nil
}

func (e *env) close() {
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = e.server.Shutdown(ctx)
		cancel()
	}
	if e.pool != nil {
		e.pool.Release()
	}
	_ = e.logger.Sync()
}
