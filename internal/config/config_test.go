package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), *cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lpht.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 42
hasher: xxhash
workers: 4
run:
  capacity: 4096
  kv-size: 8192
  insert-batches: 4
  delete-batches: 2
csv:
  output: out.csv
`), 0o600))

	t.Setenv("LPHT_TOMBSTONES", "true")
	t.Setenv("LPHT_RUN__THRESHOLD", "0.8")
	t.Setenv("LPHT_CSV__MAX_THRESHOLD", "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(42), cfg.Seed)
	require.Equal(t, "xxhash", cfg.Hasher)
	require.Equal(t, 4, cfg.Workers)
	require.True(t, cfg.Tombstones)
	require.Equal(t, 4096, cfg.Run.Capacity)
	require.Equal(t, 8192, cfg.Run.KVSize)
	require.Equal(t, 0.8, cfg.Run.Threshold)
	require.Equal(t, 1, cfg.Run.Rounds, "unset keys keep defaults")
	require.Equal(t, "out.csv", cfg.CSV.Output)
	require.Equal(t, 0.5, cfg.CSV.MaxThreshold)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lpht.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log-level":"debug","run":{"rounds":3}}`), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 3, cfg.Run.Rounds)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv("LPHT_HASHER", "sha1")
	_, err = Load("")
	require.ErrorContains(t, err, "unknown hasher")
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"negative workers":  func(c *Config) { c.Workers = -1 },
		"no insert batches": func(c *Config) { c.Run.InsertBatches = 0 },
		"tiny run workload": func(c *Config) { c.Run.KVSize = 2 },
		"tiny csv workload": func(c *Config) { c.CSV.KVSize = 10 },
		"zero step":         func(c *Config) { c.CSV.Step = 0 },
		"inverted sweep":    func(c *Config) { c.CSV.MinThreshold = 0.95 },
		"no csv iterations": func(c *Config) { c.CSV.Iterations = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	require.Equal(t, "log-level", envKey("LPHT_LOG_LEVEL"))
	require.Equal(t, "run.kv-size", envKey("LPHT_RUN__KV_SIZE"))
	require.Equal(t, "seed", envKey("LPHT_SEED"))
}
