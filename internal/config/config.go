package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Clean      CleanConfig      `yaml:"clean" mapstructure:"clean"`
	Analyze    AnalyzeConfig    `yaml:"analyze" mapstructure:"analyze"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the raw CSV extracts.
type DataConfig struct {
	Root       string `yaml:"root" mapstructure:"root"`
	DatasetDir string `yaml:"dataset_dir" mapstructure:"dataset_dir"`
	Partitions int    `yaml:"partitions" mapstructure:"partitions"`
}

// CleanConfig configures the cleaning pipeline.
type CleanConfig struct {
	DateLayout string `yaml:"date_layout" mapstructure:"date_layout"`
}

// AnalyzeConfig holds analyzer defaults used when a flag or plan entry
// leaves a parameter unset.
type AnalyzeConfig struct {
	Granularity          string  `yaml:"granularity" mapstructure:"granularity"`
	GeoLevel             string  `yaml:"geo_level" mapstructure:"geo_level"`
	TopN                 int     `yaml:"top_n" mapstructure:"top_n"`
	OutlierMethod        string  `yaml:"outlier_method" mapstructure:"outlier_method"`
	OutlierThreshold     float64 `yaml:"outlier_threshold" mapstructure:"outlier_threshold"`
	SeasonalityThreshold float64 `yaml:"seasonality_threshold" mapstructure:"seasonality_threshold"`
	PlanPath             string  `yaml:"plan_path" mapstructure:"plan_path"`
}

// ExportConfig configures where aggregate tables are written.
type ExportConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// MonitoringConfig configures run-health alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"` // 0.0-1.0
	RemovedPctThreshold  float64 `yaml:"removed_pct_threshold" mapstructure:"removed_pct_threshold"`   // percent of raw rows
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AADHAAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.root", ".")
	v.SetDefault("data.dataset_dir", "Dataset")
	v.SetDefault("data.partitions", 0)
	v.SetDefault("clean.date_layout", "02-01-2006")
	v.SetDefault("analyze.granularity", "month")
	v.SetDefault("analyze.geo_level", "state")
	v.SetDefault("analyze.top_n", 10)
	v.SetDefault("analyze.outlier_method", "iqr")
	v.SetDefault("analyze.outlier_threshold", 3.0)
	v.SetDefault("analyze.seasonality_threshold", 20.0)
	v.SetDefault("export.dir", "outputs")
	v.SetDefault("export.format", "csv")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "aadhaar.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.removed_pct_threshold", 50.0)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks option values that the loaders cannot catch on their own.
// All problems are reported together.
func (c *Config) Validate() error {
	var problems []string

	if c.Data.DatasetDir == "" {
		problems = append(problems, "data.dataset_dir is required")
	}
	if c.Data.Partitions < 0 {
		problems = append(problems, "data.partitions must be >= 0")
	}
	if c.Clean.DateLayout == "" {
		problems = append(problems, "clean.date_layout is required")
	}

	switch strings.ToLower(c.Analyze.Granularity) {
	case "d", "day", "w", "week", "m", "month", "q", "quarter":
	default:
		problems = append(problems, "analyze.granularity must be one of day, week, month, quarter")
	}
	switch strings.ToLower(c.Analyze.GeoLevel) {
	case "state", "district", "pincode":
	default:
		problems = append(problems, "analyze.geo_level must be one of state, district, pincode")
	}
	switch strings.ToLower(c.Analyze.OutlierMethod) {
	case "iqr", "zscore":
	default:
		problems = append(problems, "analyze.outlier_method must be iqr or zscore")
	}
	if c.Analyze.OutlierThreshold <= 0 {
		problems = append(problems, "analyze.outlier_threshold must be > 0")
	}
	if c.Analyze.TopN < 1 {
		problems = append(problems, "analyze.top_n must be >= 1")
	}

	switch strings.ToLower(c.Export.Format) {
	case "csv", "json", "xlsx":
	default:
		problems = append(problems, "export.format must be one of csv, json, xlsx")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "none":
	default:
		problems = append(problems, "store.driver must be sqlite, postgres or none")
	}

	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		problems = append(problems, "monitoring.failure_rate_threshold must be between 0 and 1")
	}
	if c.Monitoring.RemovedPctThreshold < 0 || c.Monitoring.RemovedPctThreshold > 100 {
		problems = append(problems, "monitoring.removed_pct_threshold must be between 0 and 100")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
