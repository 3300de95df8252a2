// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Layering and validation live in Load; callers get a ready Config.
// - External errors must be wrapped with this package's sentinels.
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatasetPath is the standardized season table loaded at start and on
	// POST /admin/reload.
	DatasetPath string `koanf:"dataset_path"`

	// DefaultK and MaxK bound the neighbor count.
	DefaultK int `koanf:"default_k"`
	MaxK     int `koanf:"max_k"`

	// DefaultMinutesFloor applies when a query omits min_minutes.
	DefaultMinutesFloor float64 `koanf:"default_minutes_floor"`

	// DefaultTopN is the separation ranking length.
	DefaultTopN int `koanf:"default_top_n"`

	// HistogramBins per distribution summary.
	HistogramBins int `koanf:"histogram_bins"`

	// Dataset column names.
	PlayerColumn       string   `koanf:"player_column"`
	SeasonColumn       string   `koanf:"season_column"`
	MinutesColumn      string   `koanf:"minutes_column"`
	DescriptiveColumns []string `koanf:"descriptive_columns"`

	// DefaultFeatures is the selection used when a query names none.
	DefaultFeatures []string `koanf:"default_features"`

	// FeatureSubsets adds or replaces named subsets; the built-in
	// advanced and traditional subsets stay available otherwise.
	FeatureSubsets map[string][]string `koanf:"feature_subsets"`

	// MetricsUpdateIntervalMS is the dataset gauge refresh period.
	MetricsUpdateIntervalMS int `koanf:"metrics_update_interval_ms"`

	// Prometheus naming. Empty values keep the built-in names
	// (hoopsim_engine_*) and nil buckets keep the built-in buckets.
	MetricsNamespace      string            `koanf:"metrics_namespace"`
	MetricsSubsystem      string            `koanf:"metrics_subsystem"`
	MetricsPrefix         string            `koanf:"metrics_prefix"`
	MetricsLabels         map[string]string `koanf:"metrics_labels"`
	MetricsLatencyBuckets []float64         `koanf:"metrics_latency_buckets"`
	MetricsPoolBuckets    []float64         `koanf:"metrics_pool_buckets"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DatasetPath:         "final_table.csv",
		DefaultK:            5,
		MaxK:                50,
		DefaultMinutesFloor: 25,
		DefaultTopN:         6,
		HistogramBins:       20,
		PlayerColumn:        "PLAYER_NAME",
		SeasonColumn:        "season",
		MinutesColumn:       "MIN",
		DescriptiveColumns:  []string{"TEAM_ABBREVIATION", "TEAM_ID", "GP", "W", "L", "W_PCT"},
		DefaultFeatures:     []string{"PTS", "AST", "BLK", "STL", "OREB", "DREB"},

		MetricsUpdateIntervalMS: 10_000,
		ShutdownTimeoutMS:       5_000,
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.DefaultK < 1:
		return fmt.Errorf("%w: default_k must be at least 1", ErrInvalidConfig)
	case c.MaxK < c.DefaultK:
		return fmt.Errorf("%w: max_k %d is below default_k %d", ErrInvalidConfig, c.MaxK, c.DefaultK)
	case c.DefaultMinutesFloor < 0:
		return fmt.Errorf("%w: default_minutes_floor must not be negative", ErrInvalidConfig)
	case c.DefaultTopN < 1:
		return fmt.Errorf("%w: default_top_n must be at least 1", ErrInvalidConfig)
	case c.HistogramBins < 1:
		return fmt.Errorf("%w: histogram_bins must be at least 1", ErrInvalidConfig)
	case c.PlayerColumn == "" || c.SeasonColumn == "" || c.MinutesColumn == "":
		return fmt.Errorf("%w: player, season and minutes columns must be named", ErrInvalidConfig)
	case c.MetricsUpdateIntervalMS <= 0:
		return fmt.Errorf("%w: metrics_update_interval_ms must be positive", ErrInvalidConfig)
	}
	return c.validateMetrics()
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func (c *Config) validateMetrics() error {
	for key, v := range map[string]string{
		"metrics_namespace": c.MetricsNamespace,
		"metrics_subsystem": c.MetricsSubsystem,
		"metrics_prefix":    c.MetricsPrefix,
	} {
		if v != "" && !metricName.MatchString(v) {
			return fmt.Errorf("%w: %s %q is not a valid metric name part", ErrInvalidConfig, key, v)
		}
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics_labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	if !increasing(c.MetricsLatencyBuckets) {
		return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
	}
	if !increasing(c.MetricsPoolBuckets) {
		return fmt.Errorf("%w: metrics_pool_buckets must be strictly increasing", ErrInvalidConfig)
	}
	return nil
}

func increasing(b []float64) bool {
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			return false
		}
	}
	return true
}
