// solar-download - Download the solar feeds fused with satellite telemetry
//
// Data sources:
//   - NOAA SWPC: observed sunspot number, solar cycle indices, daily geomagnetic indices
//   - Penticton: 10.7cm daily flux table
//
// Files land at fixed paths under the solar directory, where sat-fusion reads them.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/solar-download ./cmd/solar-download

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/solar"
)

// Version can be overridden at build time via -ldflags
var Version = "2.1.0"

type downloadOptions struct {
	configFile string
	timeout    time.Duration
	list       bool
	source     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var o downloadOptions

	cmd := &cobra.Command{
		Use:          "solar-download",
		Short:        "Download the solar feeds fused with satellite telemetry",
		Version:      Version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.list {
				listFeeds()
				return nil
			}
			if o.source != "all" {
				if _, ok := solar.Lookup(o.source); !ok {
					return fmt.Errorf("unknown source %q", o.source)
				}
			}
			cfg, err := common.LoadConfig(v, o.configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.configFile, "config", "", "Config file (yaml, toml or json)")
	flags.DurationVar(&o.timeout, "timeout", 60*time.Second, "HTTP timeout per download")
	flags.BoolVar(&o.list, "list", false, "List available data sources")
	flags.StringVar(&o.source, "source", "all", "Source to download (or 'all')")
	flags.String("dest", "", "Solar data directory")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	cobra.CheckErr(v.BindPFlag("solar_dir", flags.Lookup("dest")))
	cobra.CheckErr(v.BindPFlag("log_level", flags.Lookup("log-level")))

	return cmd
}

func listFeeds() {
	fmt.Printf("Available solar data sources:\n\n")
	for _, f := range solar.Feeds {
		fmt.Printf("  %-26s %s\n", f.Name, f.Desc)
		fmt.Printf("                             URL:  %s\n", f.URL)
		fmt.Printf("                             File: %s\n\n", f.RelPath)
	}
}

func run(ctx context.Context, cfg *common.Config, o downloadOptions) error {
	logger, err := common.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	common.Banner(logger, fmt.Sprintf("Solar Download v%s", Version))
	logger.Info("configuration",
		zap.String("destination", cfg.SolarDir),
		zap.Duration("timeout", o.timeout),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: o.timeout}
	startTime := time.Now()
	downloaded := 0
	failed := 0

	for _, f := range solar.Feeds {
		if o.source != "all" && o.source != f.Name {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		logger.Info("downloading", zap.String("source", f.Name), zap.String("url", f.URL))
		n, err := solar.Download(ctx, client, f, cfg.SolarDir)
		if err != nil {
			logger.Error("download failed", zap.String("source", f.Name), zap.Error(err))
			failed++
			continue
		}
		logger.Info("downloaded",
			zap.String("file", filepath.Join(cfg.SolarDir, f.RelPath)),
			zap.Int64("bytes", n),
		)
		downloaded++
	}

	common.Banner(logger, "Download Summary")
	logger.Info("totals",
		zap.Int("downloaded", downloaded),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(startTime).Round(time.Millisecond)),
	)

	if failed > 0 {
		return fmt.Errorf("%d downloads failed", failed)
	}
	return ctx.Err()
}
