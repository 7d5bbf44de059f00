// Package config exposes strongly typed application configuration loaded from YAML.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"btcbot-go/internal/indicator"
	"btcbot-go/internal/scoring"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name" default:"btcbot"`
	Env         string `yaml:"env" default:"dev"`
	MetricsAddr string `yaml:"metrics_addr" default:":9100"`
	LogLevel    string `yaml:"log_level" default:"info"`
}

// Exchange describes the candle data source.
type Exchange struct {
	Provider    string `yaml:"provider" default:"binance" validate:"oneof=stub binance binance_ws"`
	Symbol      string `yaml:"symbol" default:"BTCUSDT"`
	Interval    string `yaml:"interval" default:"15m"`
	BaseURL     string `yaml:"base_url" default:"https://api.binance.com"`
	StreamURL   string `yaml:"stream_url" default:"wss://stream.binance.com:9443/ws"`
	WindowLimit int    `yaml:"window_limit" default:"100" validate:"gt=0"`
}

// Venue configures prediction-market discovery.
type Venue struct {
	BaseURL  string   `yaml:"base_url" default:"https://gamma-api.polymarket.com"`
	Keywords []string `yaml:"keywords"`
}

// Trading groups the decision and execution knobs.
type Trading struct {
	Mode               string  `yaml:"mode" default:"paper" validate:"oneof=paper live"`
	TradeAmountUSD     float64 `yaml:"trade_amount_usd" default:"10" validate:"gt=0"`
	IntervalMinutes    int     `yaml:"interval_minutes" default:"15" validate:"gt=0"`
	MaxDailyTrades     int     `yaml:"max_daily_trades" default:"96" validate:"gte=0"`
	MinConfidence      float64 `yaml:"min_confidence" default:"0.6" validate:"gte=0,lte=1"`
	SettleGraceMinutes int     `yaml:"settle_grace_minutes" default:"60" validate:"gt=0"`
}

// Indicators carries the technical indicator periods.
type Indicators struct {
	RSIPeriod  int     `yaml:"rsi_period" default:"14" validate:"gt=1"`
	MACDFast   int     `yaml:"macd_fast" default:"12" validate:"gt=0"`
	MACDSlow   int     `yaml:"macd_slow" default:"26" validate:"gt=0,gtfield=MACDFast"`
	MACDSignal int     `yaml:"macd_signal" default:"9" validate:"gt=0"`
	EMAShort   int     `yaml:"ema_short" default:"9" validate:"gt=0"`
	EMALong    int     `yaml:"ema_long" default:"21" validate:"gt=0,gtfield=EMAShort"`
	BBPeriod   int     `yaml:"bb_period" default:"20" validate:"gt=1"`
	BBStdDev   float64 `yaml:"bb_std_dev" default:"2.0" validate:"gt=0"`
}

// Paper captures the simulated account settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash" default:"1000" validate:"gt=0"`
	DataDir      string  `yaml:"data_dir" default:"data"`
}

// Config collects every configuration leaf for marshaling from YAML.
type Config struct {
	App        App             `yaml:"app"`
	Exchange   Exchange        `yaml:"exchange"`
	Venue      Venue           `yaml:"venue"`
	Trading    Trading         `yaml:"trading"`
	Indicators Indicators      `yaml:"indicators"`
	Weights    scoring.Weights `yaml:"weights"`
	Paper      Paper           `yaml:"paper"`
}

// Load reads a YAML file, applies defaults for unset fields, and validates
// the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks struct tags plus the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("indicator weights sum to %.4f, want 1.0", sum)
	}
	return nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// IndicatorConfig converts the YAML leaf to the indicator engine's config.
func (c *Config) IndicatorConfig() indicator.Config {
	return indicator.Config{
		RSIPeriod:  c.Indicators.RSIPeriod,
		MACDFast:   c.Indicators.MACDFast,
		MACDSlow:   c.Indicators.MACDSlow,
		MACDSignal: c.Indicators.MACDSignal,
		EMAShort:   c.Indicators.EMAShort,
		EMALong:    c.Indicators.EMALong,
		BBPeriod:   c.Indicators.BBPeriod,
		BBStdDev:   c.Indicators.BBStdDev,
	}
}

// CycleInterval is the trading cadence as a duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Trading.IntervalMinutes) * time.Minute
}

// SettleGrace is how long past a market's end an open position may wait for
// resolution before being expired.
func (c *Config) SettleGrace() time.Duration {
	return time.Duration(c.Trading.SettleGraceMinutes) * time.Minute
}
