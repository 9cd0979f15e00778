package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DateLayout is the format of DAY_SUMMARY_DATE
const DateLayout = "2006-01-02"

// Config holds all configuration for one ingestion run.
type Config struct {
	// Base URL of the public API (configurable for testing)
	BaseURL string `mapstructure:"base_url"`

	// Coins to ingest, e.g. BTC, ETH
	Coins []string `mapstructure:"coins"`

	// OutputDir is the root of the {api}/{coin}/{timestamp}.json tree
	OutputDir string `mapstructure:"output_dir"`

	LogLevel string `mapstructure:"log_level"`

	// Raw request parameters, parsed into the fields below
	RawDaySummaryDate string `mapstructure:"day_summary_date"`
	RawTradesFrom     string `mapstructure:"trades_from"`
	RawTradesTo       string `mapstructure:"trades_to"`

	DaySummaryDate time.Time `mapstructure:"-"`
	TradesFrom     time.Time `mapstructure:"-"`
	TradesTo       time.Time `mapstructure:"-"`
}

// Load reads configuration from environment variables, an optional .env
// file and an optional config file. Environment variables take precedence
// over config file values.
//
// Expected environment variables:
//   - COINS (required, comma separated)
//   - MB_BASE_URL (optional, defaults to production)
//   - OUTPUT_DIR (optional, defaults to the working directory)
//   - DAY_SUMMARY_DATE (optional, YYYY-MM-DD, defaults to yesterday)
//   - TRADES_FROM, TRADES_TO (optional, RFC 3339)
//   - LOG_LEVEL (optional, defaults to info)
func Load() (*Config, error) {
	return load(time.Now())
}

func load(now time.Time) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("base_url", "https://www.mercadobitcoin.net/api")
	v.SetDefault("output_dir", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("day_summary_date", now.AddDate(0, 0, -1).Format(DateLayout))
	v.SetDefault("trades_from", "")
	v.SetDefault("trades_to", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.mbingest")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	v.BindEnv("base_url", "MB_BASE_URL")
	v.BindEnv("coins", "COINS")
	v.BindEnv("output_dir", "OUTPUT_DIR")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("day_summary_date", "DAY_SUMMARY_DATE")
	v.BindEnv("trades_from", "TRADES_FROM")
	v.BindEnv("trades_to", "TRADES_TO")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Coins = normalizeCoins(config.Coins)
	if len(config.Coins) == 0 {
		return nil, fmt.Errorf("missing required configuration: COINS")
	}

	var err error
	if config.DaySummaryDate, err = time.ParseInLocation(DateLayout, config.RawDaySummaryDate, now.Location()); err != nil {
		return nil, fmt.Errorf("invalid DAY_SUMMARY_DATE %q: %w", config.RawDaySummaryDate, err)
	}
	if config.TradesFrom, err = parseOptionalTime(config.RawTradesFrom); err != nil {
		return nil, fmt.Errorf("invalid TRADES_FROM %q: %w", config.RawTradesFrom, err)
	}
	if config.TradesTo, err = parseOptionalTime(config.RawTradesTo); err != nil {
		return nil, fmt.Errorf("invalid TRADES_TO %q: %w", config.RawTradesTo, err)
	}

	return config, nil
}

func normalizeCoins(coins []string) []string {
	var out []string
	for _, c := range coins {
		for _, part := range strings.Split(c, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
