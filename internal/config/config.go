// Package config loads application configuration from file, environment
// and defaults, and initializes the global logger.
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
	Inputs  InputsConfig  `yaml:"inputs" mapstructure:"inputs"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Sirix   SirixConfig   `yaml:"sirix" mapstructure:"sirix"`
	Mapping MappingConfig `yaml:"mapping" mapstructure:"mapping"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// InputsConfig names the three source exports. Paths ending in .json are
// read as records JSON, anything else as Excel.
type InputsConfig struct {
	PlatformPath    string `yaml:"platform_path" mapstructure:"platform_path"`
	TransactionPath string `yaml:"transaction_path" mapstructure:"transaction_path"`
	AccountPath     string `yaml:"account_path" mapstructure:"account_path"`
}

// OutputConfig names the run artifacts.
type OutputConfig struct {
	RecordsPath  string `yaml:"records_path" mapstructure:"records_path"`
	WorkbookPath string `yaml:"workbook_path" mapstructure:"workbook_path"`
}

// FilterConfig configures the post-join business filters.
type FilterConfig struct {
	KeepCase            string `yaml:"keep_case" mapstructure:"keep_case"`
	ExcludeTempContains string `yaml:"exclude_temp_contains" mapstructure:"exclude_temp_contains"`
}

// SirixConfig configures the balance enrichment client.
type SirixConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	Token               string  `yaml:"token" mapstructure:"token"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffBase         float64 `yaml:"backoff_base" mapstructure:"backoff_base"`
	RequestsPerSec      float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	IncludeTransactions bool    `yaml:"include_transactions" mapstructure:"include_transactions"`
}

// MappingConfig optionally points at a YAML field-mapping file overriding
// the built-in dashboard projection.
type MappingConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the dashboard data server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("CRMRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("inputs.platform_path", "Lv_tpaccount.xlsx")
	v.SetDefault("inputs.transaction_path", "Lv_monetarytransaction.xlsx")
	v.SetDefault("inputs.account_path", "Account.xlsx")
	v.SetDefault("output.records_path", "merged_data_full_enriched.json")
	v.SetDefault("output.workbook_path", "merge_report.xlsx")
	v.SetDefault("filter.keep_case", "Deposit Approval")
	v.SetDefault("filter.exclude_temp_contains", "Purchases")
	v.SetDefault("sirix.enabled", true)
	v.SetDefault("sirix.base_url", "https://restapi-real3.sirixtrader.com")
	v.SetDefault("sirix.timeout_secs", 12)
	v.SetDefault("sirix.max_attempts", 3)
	v.SetDefault("sirix.backoff_base", 1.5)
	v.SetDefault("sirix.requests_per_sec", 5)
	v.SetDefault("sirix.include_transactions", false)
	v.SetDefault("store.path", "crmrecon.db")
	v.SetDefault("server.port", 8080)
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
