// sat-fusion - Fuse satellite telemetry with solar indices and graph their correlations
//
// Pipeline:
//   - Normalize the satellite CSV directory (daily means)
//   - Left-join the SWPC and Penticton solar feeds on the date
//   - Write <artifacts>/<sat>/<sat>_full.csv (optionally Parquet and ClickHouse)
//   - Run the correlation tool, build the dependency graph, render graph.html
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/sat-fusion ./cmd/sat-fusion

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/fusion"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/solar"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/store"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string
	var fuseOnly bool

	cmd := &cobra.Command{
		Use:          "sat-fusion <satellite_name>",
		Short:        "Fuse satellite telemetry with solar indices and graph their correlations",
		Version:      Version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args[0], fuseOnly)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	flags.BoolVar(&fuseOnly, "fuse-only", false, "Stop after writing the fused table")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("satellites-dir", "", "Satellite CSV root directory")
	flags.String("solar-dir", "", "Solar feed directory")
	flags.String("artifacts-dir", "", "Artifact output directory")
	flags.Bool("parquet", false, "Also write <sat>_full.parquet")
	flags.Bool("publish", false, "Also write the fused table to ClickHouse")
	flags.Bool("solar-source", false, "Join ClickHouse solar indices as an extra source")
	flags.String("ch-host", "", "ClickHouse host:port")

	bind := map[string]string{
		"log_level":               "log-level",
		"satellites_dir":          "satellites-dir",
		"solar_dir":               "solar-dir",
		"artifacts_dir":           "artifacts-dir",
		"parquet":                 "parquet",
		"clickhouse.publish":      "publish",
		"clickhouse.solar_source": "solar-source",
		"clickhouse.host":         "ch-host",
	}
	// Unset flags fall through to env, config file and defaults.
	for key, name := range bind {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(name)))
	}

	return cmd
}

func run(ctx context.Context, cfg *common.Config, satellite string, fuseOnly bool) error {
	logger, err := common.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	common.Banner(logger, fmt.Sprintf("Sat Fusion v%s", Version))
	logger.Info("configuration",
		zap.String("satellite", satellite),
		zap.String("satellites_dir", cfg.SatellitesDir),
		zap.String("solar_dir", cfg.SolarDir),
		zap.String("artifacts_dir", cfg.ArtifactsDir),
		zap.Bool("parquet", cfg.Parquet),
		zap.Bool("publish", cfg.ClickHouse.Publish),
		zap.Bool("solar_source", cfg.ClickHouse.SolarSource),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := common.NewStats()
	opts := fusion.Options{Stats: stats}

	if cfg.ClickHouse.SolarSource {
		opts.Indices = solar.NewIndicesReader(cfg.ClickHouse, logger)
	}
	if cfg.ClickHouse.Publish {
		pub, err := store.Open(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Error("publisher unavailable", zap.Error(err))
			return err
		}
		defer pub.Close()
		opts.Publisher = pub
	}

	pipeline := fusion.NewPipeline(cfg, logger, opts)

	if fuseOnly {
		res, err := pipeline.Fuse(ctx, satellite)
		if err != nil {
			logger.Error("fusion failed", zap.String("satellite", satellite), zap.Error(err))
			return err
		}
		logger.Info("fused", zap.String("csv", res.CSVPath), zap.Int("rows", res.Table.Rows()))
	} else {
		res, err := pipeline.Run(ctx, satellite)
		if err != nil {
			logger.Error("run failed", zap.String("satellite", satellite), zap.Error(err))
			return err
		}
		logger.Info("done",
			zap.String("csv", res.Fused.CSVPath),
			zap.String("graph", res.GraphHTML),
			zap.Int("nodes", len(res.Graph.Nodes)),
			zap.Int("edges", len(res.Graph.Edges)),
		)
	}

	stats.Report(logger)
	return nil
}
