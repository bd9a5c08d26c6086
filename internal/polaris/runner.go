// Package polaris drives the external polaris CLI (fetch, learn, behave),
// which downloads satellite frames and computes the cross-correlation
// graph consumed by the dependency graph builder.
package polaris

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

// Runner executes polaris subcommands.
type Runner struct {
	bin       string
	cacheDir  string
	learnArgs []string
	log       *zap.Logger
}

// NewRunner creates a Runner from configuration.
func NewRunner(cfg common.PolarisConfig, log *zap.Logger) *Runner {
	return &Runner{
		bin:       cfg.Bin,
		cacheDir:  cfg.CacheDir,
		learnArgs: cfg.LearnArgs,
		log:       common.OrNop(log),
	}
}

// run executes the tool and logs its output. Anything on stderr is logged
// at error level but only a non-zero exit is returned as an error.
func (r *Runner) run(ctx context.Context, args ...string) error {
	path, err := exec.LookPath(r.bin)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %v", common.ErrExternalTool, r.bin, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Info("running command", zap.String("bin", path), zap.Strings("args", args))
	runErr := cmd.Run()

	if out := strings.TrimSpace(stdout.String()); out != "" {
		r.log.Info("command output", zap.String("stdout", out))
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		r.log.Error("command error", zap.String("stderr", msg))
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return fmt.Errorf("%w: %s %s exited with status %d", common.ErrExternalTool, r.bin, firstArg(args), exitErr.ExitCode())
		}
		return fmt.Errorf("%w: %s: %v", common.ErrExternalTool, r.bin, runErr)
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// FramesPath returns <cache>/<sat>/<sat>_normalized_frames.json (lower case).
func (r *Runner) FramesPath(satellite string) string {
	sat := strings.ToLower(satellite)
	return filepath.Join(r.cacheDir, sat, sat+"_normalized_frames.json")
}

// LearnGraphPath returns <cache>/<sat>/<sat>-graph.json.
func (r *Runner) LearnGraphPath(satellite string) string {
	sat := strings.ToLower(satellite)
	return filepath.Join(r.cacheDir, sat, sat+"-graph.json")
}

// AnomalyPath returns <cache>/<sat>/<sat>-anomaly_analysis.json.
func (r *Runner) AnomalyPath(satellite string) string {
	sat := strings.ToLower(satellite)
	return filepath.Join(r.cacheDir, sat, sat+"-anomaly_analysis.json")
}

// Fetch downloads normalized frames for satellite between start and end
// (YYYY-MM-DD) into the cache directory.
func (r *Runner) Fetch(ctx context.Context, satellite, start, end string) error {
	cache := filepath.Dir(r.FramesPath(satellite))
	if err := os.MkdirAll(cache, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return r.run(ctx, "fetch",
		"--start_date", start,
		"--end_date", end,
		"--cache_dir", cache,
		satellite,
		r.FramesPath(satellite),
	)
}

// Learn builds the dependency graph from previously fetched frames.
func (r *Runner) Learn(ctx context.Context, satellite string) error {
	return r.run(ctx, "learn",
		"--force_cpu",
		"--output_graph_file", r.LearnGraphPath(satellite),
		r.FramesPath(satellite),
	)
}

// Behave runs anomaly analysis on previously fetched frames.
func (r *Runner) Behave(ctx context.Context, satellite string) error {
	return r.run(ctx, "behave",
		r.FramesPath(satellite),
		"--output_file", r.AnomalyPath(satellite),
	)
}

// CorrelateRequest describes one correlation run over a fused table.
type CorrelateRequest struct {
	Input       string // fused CSV
	Output      string // coefficient JSON to produce
	Config      string // model configuration file
	IndexColumn string
}

// Correlate runs the configured learn command over a fused table and
// checks that it produced the coefficient artifact.
func (r *Runner) Correlate(ctx context.Context, req CorrelateRequest) error {
	args := expandArgs(r.learnArgs, req)

	// A stale artifact from an earlier run must not pass for fresh output.
	if err := os.Remove(req.Output); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale %s: %w", req.Output, err)
	}

	if err := r.run(ctx, args...); err != nil {
		return err
	}
	if _, err := os.Stat(req.Output); err != nil {
		return fmt.Errorf("%w: expected output %s: %v", common.ErrExternalTool, req.Output, err)
	}
	return nil
}

func expandArgs(tmpl []string, req CorrelateRequest) []string {
	rep := strings.NewReplacer(
		"{input}", req.Input,
		"{output}", req.Output,
		"{config}", req.Config,
		"{index}", req.IndexColumn,
	)
	out := make([]string, len(tmpl))
	for i, a := range tmpl {
		out[i] = rep.Replace(a)
	}
	return out
}
