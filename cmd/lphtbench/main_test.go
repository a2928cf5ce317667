package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"lphtbench"}, args...))
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	out, err := runApp(t, "--seed", "5", "--log-level", "error", "--workers", "4",
		"run", "--capacity", "256", "--kv-size", "4096",
		"--insert-batches", "4", "--delete-batches", "2", "--rounds", "2")
	require.NoError(t, err)
	require.Contains(t, out, "seed 5\n")
	require.Contains(t, out, "round 0: 4096 inserted, 2048 deleted")
	require.Contains(t, out, "round 1:")
	require.Contains(t, out, "go map")
}

func TestRunCommand_Tombstones(t *testing.T) {
	out, err := runApp(t, "--seed", "6", "--log-level", "error", "--tombstones", "--hasher", "xxhash",
		"run", "--capacity", "512", "--kv-size", "2048",
		"--insert-batches", "2", "--delete-batches", "2", "--skip-baseline")
	require.NoError(t, err)
	require.NotContains(t, out, "go map")
}

func TestCSVCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.csv")
	out, err := runApp(t, "--seed", "3", "--log-level", "error",
		"csv", "--capacity", "128", "--kv-size", "1024", "--batches", "2", "--iterations", "1",
		"--min-threshold", "0.5", "--max-threshold", "0.7", "--step", "0.1", "-o", path)
	require.NoError(t, err)
	require.Contains(t, out, "2 thresholds written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "0.600000,THRES,"), lines[1])
}

func TestConfigErrors(t *testing.T) {
	_, err := runApp(t, "--hasher", "sha1", "run")
	require.ErrorContains(t, err, "unknown hasher")

	_, err = runApp(t, "--log-level", "loud", "run", "--kv-size", "64", "--insert-batches", "2", "--delete-batches", "2")
	require.ErrorContains(t, err, "log level")

	cfgPath := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("run:\n  capacity: 100\n  kv-size: 64\n  insert-batches: 2\n  delete-batches: 2\n"), 0o600))
	_, err = runApp(t, "--config", cfgPath, "--log-level", "error", "run")
	require.ErrorContains(t, err, "capacity")
}

func TestAppsDoNotShareFlags(t *testing.T) {
	args := []string{"run", "--capacity", "256", "--kv-size", "1024",
		"--insert-batches", "2", "--delete-batches", "2", "--skip-baseline"}

	_, err := runApp(t, append([]string{"--hasher", "sha1"}, args...)...)
	require.ErrorContains(t, err, "unknown hasher")

	// a fresh app must not see the hasher set by the previous one
	out, err := runApp(t, append([]string{"--seed", "4", "--log-level", "error"}, args...)...)
	require.NoError(t, err)
	require.Contains(t, out, "round 0: 1024 inserted")
}
