// polaris-sync - Fetch satellite frames and run polaris learn/behave on them
//
// Steps (each logs the tool's stdout, and its stderr at error level):
//   - fetch:  normalized frames for a date range into <cache>/<sat>/
//   - learn:  dependency graph <sat>-graph.json
//   - behave: anomaly analysis <sat>-anomaly_analysis.json
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/polaris-sync ./cmd/polaris-sync

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/polaris"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const dateLayout = "2006-01-02"

type syncOptions struct {
	configFile string
	start      string
	end        string
	skipLearn  bool
	skipBehave bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var o syncOptions

	cmd := &cobra.Command{
		Use:          "polaris-sync [satellite_name]",
		Short:        "Fetch satellite frames and run polaris learn/behave on them",
		Version:      Version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			satellite := "LightSail-2"
			if len(args) == 1 {
				satellite = args[0]
			}
			if err := validateRange(o.start, o.end); err != nil {
				return err
			}
			cfg, err := common.LoadConfig(v, o.configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, satellite, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.configFile, "config", "", "Config file (yaml, toml or json)")
	flags.StringVar(&o.start, "start", "2020-01-21", "Start date (YYYY-MM-DD)")
	flags.StringVar(&o.end, "end", "2020-01-28", "End date (YYYY-MM-DD)")
	flags.BoolVar(&o.skipLearn, "skip-learn", false, "Do not run polaris learn")
	flags.BoolVar(&o.skipBehave, "skip-behave", false, "Do not run polaris behave")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("cache-dir", "", "Polaris cache directory")
	flags.String("polaris-bin", "", "Polaris executable")

	cobra.CheckErr(v.BindPFlag("log_level", flags.Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("polaris.cache_dir", flags.Lookup("cache-dir")))
	cobra.CheckErr(v.BindPFlag("polaris.bin", flags.Lookup("polaris-bin")))

	return cmd
}

func validateRange(start, end string) error {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return nil
}

func run(ctx context.Context, cfg *common.Config, satellite string, o syncOptions) error {
	logger, err := common.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	common.Banner(logger, fmt.Sprintf("Polaris Sync v%s", Version))
	logger.Info("configuration",
		zap.String("satellite", satellite),
		zap.String("start", o.start),
		zap.String("end", o.end),
		zap.String("cache_dir", cfg.Polaris.CacheDir),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	r := polaris.NewRunner(cfg.Polaris, logger)

	if err := r.Fetch(ctx, satellite, o.start, o.end); err != nil {
		logger.Error("fetch failed", zap.Error(err))
		return err
	}
	if !o.skipLearn {
		if err := r.Learn(ctx, satellite); err != nil {
			logger.Error("learn failed", zap.Error(err))
			return err
		}
	}
	if !o.skipBehave {
		if err := r.Behave(ctx, satellite); err != nil {
			logger.Error("behave failed", zap.Error(err))
			return err
		}
	}

	common.Banner(logger, "Sync Summary")
	logger.Info("outputs",
		zap.String("frames", r.FramesPath(satellite)),
		zap.String("graph", r.LearnGraphPath(satellite)),
		zap.String("anomaly", r.AnomalyPath(satellite)),
		zap.Duration("elapsed", time.Since(startTime).Round(time.Millisecond)),
	)
	return nil
}
