package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/caseworks/activity-cli/internal/policy"
)

// Config holds the full application configuration.
type Config struct {
	// Rates maps action codes to rate strings. Rates stay textual until
	// RateTable parses them, so a malformed value fails loudly instead of
	// being coerced.
	Rates   map[string]string `yaml:"rates" mapstructure:"rates"`
	Filters FiltersConfig     `yaml:"filters" mapstructure:"filters"`
	Output  OutputConfig      `yaml:"output" mapstructure:"output"`
	Report  ReportConfig      `yaml:"report" mapstructure:"report"`
	Log     LogConfig         `yaml:"log" mapstructure:"log"`
}

// FiltersConfig configures row filtering.
type FiltersConfig struct {
	ExcludeEvents []string `yaml:"exclude_events" mapstructure:"exclude_events"`
	ProposalLabel string   `yaml:"proposal_label" mapstructure:"proposal_label"`
}

// OutputConfig configures report file naming.
type OutputConfig struct {
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// ReportConfig configures report content.
type ReportConfig struct {
	TopPersons int `yaml:"top_persons" mapstructure:"top_persons"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfigFile is where Save writes when no explicit path is given.
const DefaultConfigFile = "config.yaml"

func newViper() *viper.Viper {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACTIVITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("rates", map[string]string{
		"A03": "37.14",
		"A06": "35.57",
		"B03": "37.14",
		"B04": "37.14",
		"C06": "499.88",
	})
	v.SetDefault("filters.exclude_events", []string{
		"Annullamento (prima dell'inizio)",
		"Proposta",
	})
	v.SetDefault("filters.proposal_label", policy.DefaultProposalLabel)
	v.SetDefault("output.prefix", "export_analisi")
	v.SetDefault("report.top_persons", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	return v
}

// Load reads configuration from file and environment and validates the
// rate table eagerly, so malformed configuration fails before any run.
func Load() (*Config, error) {
	v := newViper()

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

	if _, err := cfg.RateTable(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RateTable parses the configured rates into an immutable snapshot.
// A non-numeric or negative rate, or a duplicate code, is fatal here.
func (c *Config) RateTable() (*policy.RateTable, error) {
	rates := make(map[string]decimal.Decimal, len(c.Rates))
	for code, raw := range c.Rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "config: rate for %q is not numeric: %q", code, raw)
		}
		norm := policy.NormalizeCode(code)
		if _, ok := rates[norm]; ok {
			return nil, eris.Errorf("config: duplicate rate code %q", norm)
		}
		rates[norm] = rate
	}
	return policy.NewRateTable(rates)
}

// ExclusionPolicy builds the exclusion snapshot from the configured labels.
func (c *Config) ExclusionPolicy() policy.ExclusionPolicy {
	return policy.NewExclusionPolicy(c.Filters.ExcludeEvents, c.Filters.ProposalLabel)
}

// Save persists the configuration to path, or DefaultConfigFile when path
// is empty. Used by the rates and exclusions edit commands.
func Save(c *Config, path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("rates", c.Rates)
	v.Set("filters.exclude_events", c.Filters.ExcludeEvents)
	v.Set("filters.proposal_label", c.Filters.ProposalLabel)
	v.Set("output.prefix", c.Output.Prefix)
	v.Set("report.top_persons", c.Report.TopPersons)
	v.Set("log.level", c.Log.Level)
	v.Set("log.format", c.Log.Format)
	if err := v.WriteConfigAs(path); err != nil {
		return eris.Wrap(err, "config: write file")
	}
	return nil
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
