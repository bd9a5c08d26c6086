// Package common provides shared utilities for the KI7MT satellite fusion tools.
package common

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix (KI7MT_SOLAR_DIR, ...).
const EnvPrefix = "KI7MT"

// Config holds common configuration for all applications.
type Config struct {
	SatellitesDir string `mapstructure:"satellites_dir"`
	SolarDir      string `mapstructure:"solar_dir"`
	ArtifactsDir  string `mapstructure:"artifacts_dir"`
	ModelConfig   string `mapstructure:"model_config"`
	TimeColumn    string `mapstructure:"time_column"`
	LogLevel      string `mapstructure:"log_level"`
	Parquet       bool   `mapstructure:"parquet"`

	Polaris    PolarisConfig    `mapstructure:"polaris"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

// PolarisConfig configures the external fetch/learn/behave tool.
// LearnArgs may reference {input}, {output}, {config} and {index}.
type PolarisConfig struct {
	Bin       string   `mapstructure:"bin"`
	CacheDir  string   `mapstructure:"cache_dir"`
	LearnArgs []string `mapstructure:"learn_args"`
}

// ClickHouseConfig holds the optional warehouse settings.
type ClickHouseConfig struct {
	Host        string `mapstructure:"host"`
	Database    string `mapstructure:"database"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Publish     bool   `mapstructure:"publish"`
	SolarSource bool   `mapstructure:"solar_source"`
	SolarTable  string `mapstructure:"solar_table"`
}

// DefaultConfig returns configuration with sensible defaults.
// Paths are relative to the working directory, matching the repo layout
// (satellites live two levels up, data and artifacts one level up).
func DefaultConfig() *Config {
	return &Config{
		SatellitesDir: "../../satellites",
		SolarDir:      "../data/solar",
		ArtifactsDir:  "../artifacts",
		ModelConfig:   "../cfg/model.json",
		TimeColumn:    "Time",
		LogLevel:      "info",
		Polaris: PolarisConfig{
			Bin:      "polaris",
			CacheDir: "../data",
			LearnArgs: []string{
				"learn", "--force_cpu",
				"--output_graph_file", "{output}",
				"{input}",
			},
		},
		ClickHouse: ClickHouseConfig{
			Host:       "127.0.0.1:9000",
			Database:   "solar",
			User:       "default",
			SolarTable: "indices_raw",
		},
	}
}

// LoadConfig layers an optional config file and KI7MT_* environment
// variables over DefaultConfig. v may carry flag bindings set by the caller.
func LoadConfig(v *viper.Viper, file string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.TimeColumn == "" {
		return nil, fmt.Errorf("time_column must not be empty")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("satellites_dir", cfg.SatellitesDir)
	v.SetDefault("solar_dir", cfg.SolarDir)
	v.SetDefault("artifacts_dir", cfg.ArtifactsDir)
	v.SetDefault("model_config", cfg.ModelConfig)
	v.SetDefault("time_column", cfg.TimeColumn)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("parquet", cfg.Parquet)
	v.SetDefault("polaris.bin", cfg.Polaris.Bin)
	v.SetDefault("polaris.cache_dir", cfg.Polaris.CacheDir)
	v.SetDefault("polaris.learn_args", cfg.Polaris.LearnArgs)
	v.SetDefault("clickhouse.host", cfg.ClickHouse.Host)
	v.SetDefault("clickhouse.database", cfg.ClickHouse.Database)
	v.SetDefault("clickhouse.user", cfg.ClickHouse.User)
	v.SetDefault("clickhouse.password", cfg.ClickHouse.Password)
	v.SetDefault("clickhouse.publish", cfg.ClickHouse.Publish)
	v.SetDefault("clickhouse.solar_source", cfg.ClickHouse.SolarSource)
	v.SetDefault("clickhouse.solar_table", cfg.ClickHouse.SolarTable)
}

// SatelliteDir returns the raw CSV directory of a satellite.
func (c *Config) SatelliteDir(satellite string) string {
	return filepath.Join(c.SatellitesDir, satellite)
}

// ArtifactDir returns the per-satellite output directory.
func (c *Config) ArtifactDir(satellite string) string {
	return filepath.Join(c.ArtifactsDir, satellite)
}

// FusedCSVPath returns <artifacts>/<satellite>/<satellite>_full.csv.
func (c *Config) FusedCSVPath(satellite string) string {
	return filepath.Join(c.ArtifactDir(satellite), satellite+"_full.csv")
}

// FusedParquetPath returns the columnar copy of the fused table.
func (c *Config) FusedParquetPath(satellite string) string {
	return filepath.Join(c.ArtifactDir(satellite), satellite+"_full.parquet")
}

// GraphJSONPath returns the coefficient artifact written by the correlation step.
func (c *Config) GraphJSONPath(satellite string) string {
	return filepath.Join(c.ArtifactDir(satellite), satellite+"_graph.json")
}

// GraphHTMLPath returns the rendered dependency graph path.
func (c *Config) GraphHTMLPath(satellite string) string {
	return filepath.Join(c.ArtifactDir(satellite), "graph.html")
}
