// Package config loads lphtbench settings from a YAML or JSON file and
// LPHT_ environment variables. Command line flags are applied on top by
// the caller.
package config

import (
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
// LPHT_LOG_LEVEL sets log-level; a double underscore descends into a
// section, so LPHT_RUN__KV_SIZE sets run.kv-size.
const EnvPrefix = "LPHT_"

// Config is the complete lphtbench configuration.
type Config struct {
	// Seed of the workload generator; 0 picks a random seed.
	Seed        uint64 `koanf:"seed"`
	LogLevel    string `koanf:"log-level"`
	DevLog      bool   `koanf:"dev-log"`
	Workers     int    `koanf:"workers"`
	Hasher      string `koanf:"hasher"`
	Tombstones  bool   `koanf:"tombstones"`
	MetricsAddr string `koanf:"metrics-addr"`

	Run RunConfig `koanf:"run"`
	CSV CSVConfig `koanf:"csv"`
}

// RunConfig drives the insert/delete/verify loop.
type RunConfig struct {
	Capacity      int     `koanf:"capacity"`
	Threshold     float64 `koanf:"threshold"`
	KVSize        int     `koanf:"kv-size"`
	InsertBatches int     `koanf:"insert-batches"`
	DeleteBatches int     `koanf:"delete-batches"`
	// Rounds to run; 0 runs until interrupted.
	Rounds       int  `koanf:"rounds"`
	SkipBaseline bool `koanf:"skip-baseline"`
}

// CSVConfig drives the resize threshold sweep.
type CSVConfig struct {
	Capacity     int     `koanf:"capacity"`
	KVSize       int     `koanf:"kv-size"`
	Batches      int     `koanf:"batches"`
	Iterations   int     `koanf:"iterations"`
	MinThreshold float64 `koanf:"min-threshold"`
	MaxThreshold float64 `koanf:"max-threshold"`
	Step         float64 `koanf:"step"`
	Output       string  `koanf:"output"`
}

// Default returns the default workload: a 1M slot table
// fed with 32M pairs in batches, and a threshold sweep from 0.3 to 0.9.
func Default() Config {
	const capacity = 1024 * 1024
	return Config{
		LogLevel: "info",
		Hasher:   "murmur3",
		Run: RunConfig{
			Capacity:      capacity,
			Threshold:     0.5,
			KVSize:        capacity * 32,
			InsertBatches: 8 * 32,
			DeleteBatches: 8,
			Rounds:        1,
		},
		CSV: CSVConfig{
			Capacity:     capacity,
			KVSize:       capacity * 16,
			Batches:      8 * 16,
			Iterations:   10,
			MinThreshold: 0.3,
			MaxThreshold: 0.9,
			Step:         0.05,
			Output:       "timing.csv",
		},
	}
}

// Load returns Default overlaid with the file at path (if path is not
// empty) and then with environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) koanf.Parser {
	if filepath.Ext(path) == ".json" {
		return json.Parser()
	}
	return yaml.Parser()
}

// envKey maps LPHT_RUN__KV_SIZE to run.kv-size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "__", ".")
	return strings.ReplaceAll(s, "_", "-")
}

// Validate checks the settings that would otherwise fail deep inside a
// benchmark run.
func (c *Config) Validate() error {
	switch c.Hasher {
	case "murmur3", "golden", "xxhash":
	default:
		return errors.Errorf("unknown hasher %q", c.Hasher)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Run.InsertBatches <= 0 || c.Run.DeleteBatches <= 0 {
		return errors.New("run: batch counts must be positive")
	}
	if c.Run.KVSize < c.Run.InsertBatches || c.Run.KVSize/2 < c.Run.DeleteBatches {
		return errors.Errorf("run: kv-size %d too small for %d insert and %d delete batches",
			c.Run.KVSize, c.Run.InsertBatches, c.Run.DeleteBatches)
	}
	if c.CSV.Batches <= 0 || c.CSV.Iterations <= 0 {
		return errors.New("csv: batches and iterations must be positive")
	}
	if c.CSV.KVSize/2 < c.CSV.Batches {
		return errors.Errorf("csv: kv-size %d too small for %d batches", c.CSV.KVSize, c.CSV.Batches)
	}
	if !(c.CSV.Step > 0) || c.CSV.MinThreshold > c.CSV.MaxThreshold {
		return errors.Errorf("csv: bad threshold sweep %v..%v step %v",
			c.CSV.MinThreshold, c.CSV.MaxThreshold, c.CSV.Step)
	}
	return nil
}
