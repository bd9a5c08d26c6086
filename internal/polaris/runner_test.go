package polaris

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

// fakeTool writes an executable shell script standing in for polaris.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	p := filepath.Join(t.TempDir(), "polaris")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+script), 0o755))
	return p
}

func TestCorrelateWritesOutput(t *testing.T) {
	bin := fakeTool(t, `echo '{"graph":{"links":[]}}' > "$2"; echo "warning: few samples" >&2`)
	core, logs := observer.New(zap.InfoLevel)

	r := NewRunner(common.PolarisConfig{
		Bin:       bin,
		LearnArgs: []string{"learn", "{output}", "{input}", "{index}"},
	}, zap.New(core))

	out := filepath.Join(t.TempDir(), "sat_graph.json")
	err := r.Correlate(context.Background(), CorrelateRequest{Input: "in.csv", Output: out, IndexColumn: "Time"})
	require.NoError(t, err)

	_, err = os.Stat(out)
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("command error").Len(), "stderr is logged, not fatal")
}

func TestCorrelateMissingOutput(t *testing.T) {
	bin := fakeTool(t, "exit 0\n")
	r := NewRunner(common.PolarisConfig{Bin: bin, LearnArgs: []string{"learn", "{output}"}}, nil)

	out := filepath.Join(t.TempDir(), "sat_graph.json")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	err := r.Correlate(context.Background(), CorrelateRequest{Output: out})
	assert.True(t, errors.Is(err, common.ErrExternalTool))
}

func TestRunNonZeroExit(t *testing.T) {
	bin := fakeTool(t, "exit 3\n")
	r := NewRunner(common.PolarisConfig{Bin: bin}, nil)

	err := r.Learn(context.Background(), "LightSail-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExternalTool))
	assert.Contains(t, err.Error(), "status 3")
}

func TestRunMissingBinary(t *testing.T) {
	r := NewRunner(common.PolarisConfig{Bin: filepath.Join(t.TempDir(), "absent")}, nil)
	err := r.Behave(context.Background(), "LightSail-2")
	assert.True(t, errors.Is(err, common.ErrExternalTool))
}

func TestFetchArguments(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeTool(t, `echo "$@" > `+argsFile+"\n")
	cache := t.TempDir()
	r := NewRunner(common.PolarisConfig{Bin: bin, CacheDir: cache}, nil)

	require.NoError(t, r.Fetch(context.Background(), "LightSail-2", "2020-01-21", "2020-01-23"))

	got, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	satDir := filepath.Join(cache, "lightsail-2")
	want := "fetch --start_date 2020-01-21 --end_date 2020-01-23 --cache_dir " + satDir +
		" LightSail-2 " + filepath.Join(satDir, "lightsail-2_normalized_frames.json") + "\n"
	assert.Equal(t, want, string(got))
}

func TestPaths(t *testing.T) {
	r := NewRunner(common.PolarisConfig{CacheDir: "data"}, nil)
	assert.Equal(t, filepath.Join("data", "lightsail-2", "lightsail-2-graph.json"), r.LearnGraphPath("LightSail-2"))
	assert.Equal(t, filepath.Join("data", "lightsail-2", "lightsail-2-anomaly_analysis.json"), r.AnomalyPath("LightSail-2"))
}

func TestExpandArgs(t *testing.T) {
	got := expandArgs(
		[]string{"learn", "--output_graph_file", "{output}", "--config={config}", "{input}"},
		CorrelateRequest{Input: "a.csv", Output: "g.json", Config: "model.json"},
	)
	assert.Equal(t, []string{"learn", "--output_graph_file", "g.json", "--config=model.json", "a.csv"}, got)
}
