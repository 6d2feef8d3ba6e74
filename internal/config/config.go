package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rsibacktester/internal/engine"
	"rsibacktester/strategies/rsi"
	"rsibacktester/types"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Data sources a run can read bars from.
const (
	SourceCSV      = "csv"
	SourceParquet  = "parquet"
	SourceYahoo    = "yahoo"
	SourcePostgres = "postgres"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration of a backtest run.
type Config struct {
	Data      Data      `yaml:"data"`
	Portfolio Portfolio `yaml:"portfolio"`
	Strategy  Strategy  `yaml:"strategy"`
	Execution Execution `yaml:"execution"`
	Reporting Reporting `yaml:"reporting"`
	Logging   Logging   `yaml:"logging"`
}

// Data says where the bar series comes from.
type Data struct {
	Source      string `yaml:"source"`
	Path        string `yaml:"path"`
	Symbol      string `yaml:"symbol"`
	Interval    string `yaml:"interval"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	DatabaseURL string `yaml:"database_url"`
}

type Portfolio struct {
	StartingCash float64 `yaml:"starting_cash"`
	Commission   float64 `yaml:"commission"`
}

type Strategy struct {
	RSIPeriod        int     `yaml:"rsi_period"`
	Oversold         float64 `yaml:"oversold"`
	Overbought       float64 `yaml:"overbought"`
	TargetPercentage float64 `yaml:"target_percentage"`
}

type Execution struct {
	FillTiming string `yaml:"fill_timing"`
}

type Reporting struct {
	TradesFile   string  `yaml:"trades_file"`
	ResultsDB    string  `yaml:"results_db"`
	RiskFreeRate float64 `yaml:"risk_free_rate"`
	Progress     bool    `yaml:"progress"`
}

// Logging configures the command logger and the event journal sink.
type Logging struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	JournalFile string `yaml:"journal_file"`
}

// Default mirrors the classic setup: 1000 cash, RSI(14) with 30/70 bands and
// 10% of cash per entry, filled at the signal bar's close.
func Default() *Config {
	return &Config{
		Data: Data{
			Source:   SourceCSV,
			Symbol:   "BTC-USD",
			Interval: string(types.Day),
		},
		Portfolio: Portfolio{
			StartingCash: 1000,
		},
		Strategy: Strategy{
			RSIPeriod:        14,
			Oversold:         30,
			Overbought:       70,
			TargetPercentage: 0.1,
		},
		Execution: Execution{
			FillTiming: string(types.FillOnClose),
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads a YAML (.yaml, .yml) or INI (.ini) file over the defaults, then
// applies environment variable overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		file, err := ini.Load(path)
		if err != nil {
			return nil, err
		}
		loadINI(file, cfg)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadINI(file *ini.File, cfg *Config) {
	data := file.Section("data")
	cfg.Data.Source = data.Key("source").MustString(cfg.Data.Source)
	cfg.Data.Path = data.Key("path").MustString(cfg.Data.Path)
	cfg.Data.Symbol = data.Key("symbol").MustString(cfg.Data.Symbol)
	cfg.Data.Interval = data.Key("interval").MustString(cfg.Data.Interval)
	cfg.Data.Start = data.Key("start").MustString(cfg.Data.Start)
	cfg.Data.End = data.Key("end").MustString(cfg.Data.End)
	cfg.Data.DatabaseURL = data.Key("database_url").MustString(cfg.Data.DatabaseURL)

	portfolio := file.Section("portfolio")
	cfg.Portfolio.StartingCash = portfolio.Key("starting_cash").MustFloat64(cfg.Portfolio.StartingCash)
	cfg.Portfolio.Commission = portfolio.Key("commission").MustFloat64(cfg.Portfolio.Commission)

	strategy := file.Section("strategy")
	cfg.Strategy.RSIPeriod = strategy.Key("rsi_period").MustInt(cfg.Strategy.RSIPeriod)
	cfg.Strategy.Oversold = strategy.Key("oversold").MustFloat64(cfg.Strategy.Oversold)
	cfg.Strategy.Overbought = strategy.Key("overbought").MustFloat64(cfg.Strategy.Overbought)
	cfg.Strategy.TargetPercentage = strategy.Key("target_percentage").MustFloat64(cfg.Strategy.TargetPercentage)

	cfg.Execution.FillTiming = file.Section("execution").Key("fill_timing").MustString(cfg.Execution.FillTiming)

	reporting := file.Section("reporting")
	cfg.Reporting.TradesFile = reporting.Key("trades_file").MustString(cfg.Reporting.TradesFile)
	cfg.Reporting.ResultsDB = reporting.Key("results_db").MustString(cfg.Reporting.ResultsDB)
	cfg.Reporting.RiskFreeRate = reporting.Key("risk_free_rate").MustFloat64(cfg.Reporting.RiskFreeRate)
	cfg.Reporting.Progress = reporting.Key("progress").MustBool(cfg.Reporting.Progress)

	logging := file.Section("logging")
	cfg.Logging.Level = logging.Key("level").MustString(cfg.Logging.Level)
	cfg.Logging.Format = logging.Key("format").MustString(cfg.Logging.Format)
	cfg.Logging.JournalFile = logging.Key("journal_file").MustString(cfg.Logging.JournalFile)
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RSIBT_DATA_PATH"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("RSIBT_SYMBOL"); v != "" {
		cfg.Data.Symbol = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Data.DatabaseURL = v
	}
	if v := os.Getenv("RSIBT_FILL_TIMING"); v != "" {
		cfg.Execution.FillTiming = v
	}
	if v := os.Getenv("RSIBT_RESULTS_DB"); v != "" {
		cfg.Reporting.ResultsDB = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	floats := []struct {
		env    string
		target *float64
	}{
		{"RSIBT_STARTING_CASH", &cfg.Portfolio.StartingCash},
		{"RSIBT_COMMISSION", &cfg.Portfolio.Commission},
		{"RSIBT_TARGET_PERCENTAGE", &cfg.Strategy.TargetPercentage},
	}
	for _, f := range floats {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, f.env, v)
		}
		*f.target = parsed
	}

	if v := os.Getenv("RSIBT_RSI_PERIOD"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RSIBT_RSI_PERIOD=%q is not an integer", ErrInvalidConfig, v)
		}
		cfg.Strategy.RSIPeriod = parsed
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceCSV, SourceParquet:
		if c.Data.Path == "" {
			return fmt.Errorf("%w: data.path is required for %s", ErrInvalidConfig, c.Data.Source)
		}
	case SourceYahoo:
		if c.Data.Symbol == "" {
			return fmt.Errorf("%w: data.symbol is required for yahoo", ErrInvalidConfig)
		}
	case SourcePostgres:
		if c.Data.DatabaseURL == "" || c.Data.Symbol == "" {
			return fmt.Errorf("%w: data.database_url and data.symbol are required for postgres", ErrInvalidConfig)
		}
		if _, err := types.ParseInterval(c.Data.Interval); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown data.source %q", ErrInvalidConfig, c.Data.Source)
	}

	if _, _, err := c.Range(); err != nil {
		return err
	}
	if c.Portfolio.StartingCash < 0 {
		return fmt.Errorf("%w: starting_cash must not be negative", ErrInvalidConfig)
	}
	if c.Portfolio.Commission < 0 || c.Portfolio.Commission >= 1 {
		return fmt.Errorf("%w: commission must be in [0, 1)", ErrInvalidConfig)
	}
	if _, err := types.ParseFillTiming(c.Execution.FillTiming); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.StrategyParams().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

// Range parses the optional data window. Zero times mean unbounded.
func (c *Config) Range() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if c.Data.Start != "" {
		if start, err = dateparse.ParseIn(c.Data.Start, time.UTC); err != nil {
			return start, end, fmt.Errorf("%w: data.start: %v", ErrInvalidConfig, err)
		}
	}
	if c.Data.End != "" {
		if end, err = dateparse.ParseIn(c.Data.End, time.UTC); err != nil {
			return start, end, fmt.Errorf("%w: data.end: %v", ErrInvalidConfig, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return start, end, fmt.Errorf("%w: data.end must be after data.start", ErrInvalidConfig)
	}
	return start, end, nil
}

func (c *Config) StrategyParams() rsi.Params {
	return rsi.Params{
		RSIPeriod:        c.Strategy.RSIPeriod,
		Oversold:         c.Strategy.Oversold,
		Overbought:       c.Strategy.Overbought,
		TargetPercentage: decimal.NewFromFloat(c.Strategy.TargetPercentage),
	}
}

func (c *Config) PortfolioConfig() *engine.PortfolioConfig {
	return engine.NewPortfolioConfig(
		decimal.NewFromFloat(c.Portfolio.StartingCash),
		decimal.NewFromFloat(c.Portfolio.Commission),
	)
}

func (c *Config) ExecutionConfig() (*engine.ExecutionConfig, error) {
	timing, err := types.ParseFillTiming(c.Execution.FillTiming)
	if err != nil {
		return nil, err
	}
	return engine.NewExecutionConfig(timing), nil
}

// ReportingConfig wires the progress bar to progress only when enabled.
func (c *Config) ReportingConfig(progress io.Writer) *engine.ReportingConfig {
	if !c.Reporting.Progress {
		progress = nil
	}
	return engine.NewReportingConfig(decimal.NewFromFloat(c.Reporting.RiskFreeRate), c.Reporting.TradesFile, progress)
}
