package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"rsibacktester/internal/config"
	"rsibacktester/internal/engine"
	"rsibacktester/internal/feed"
	"rsibacktester/internal/journal"
	"rsibacktester/internal/repository"
	"rsibacktester/internal/results"
	"rsibacktester/strategies/rsi"
	"rsibacktester/types"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type runCmd struct {
	configPath string
	source     string
	dataPath   string
	symbol     string
	fillTiming string
	trades     string
	resultsDB  string
	journal    string
	label      string
	progress   bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "replay bars through the RSI strategy" }
func (*runCmd) Usage() string {
	return `run [-config file] [-data bars.csv] [flags]:
  Replay a bar series through the RSI strategy and print the report.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "YAML or INI config file")
	f.StringVar(&c.source, "source", "", "bar source: csv, parquet, yahoo or postgres")
	f.StringVar(&c.dataPath, "data", "", "bar file for csv and parquet sources")
	f.StringVar(&c.symbol, "symbol", "", "symbol for yahoo and postgres sources")
	f.StringVar(&c.fillTiming, "fill", "", "fill timing: on_close or on_next_open")
	f.StringVar(&c.trades, "trades", "", "write closed trades to this CSV file")
	f.StringVar(&c.resultsDB, "results-db", "", "store the run in this SQLite file")
	f.StringVar(&c.journal, "journal", "", "write the event journal to this file instead of stderr")
	f.StringVar(&c.label, "label", "rsi", "label for the stored run")
	f.BoolVar(&c.progress, "progress", false, "show a progress bar")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := defaultLogger()

	cfg, err := c.loadConfig()
	if err != nil {
		log.WithError(err).Error("load config")
		return subcommands.ExitUsageError
	}
	log = newLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if err := c.execute(ctx, cfg, log); err != nil {
		var dataErr *types.DataFormatError
		var invariant *types.InvariantViolation
		switch {
		case errors.As(err, &dataErr):
			log.WithError(err).Error("bad input data")
		case errors.As(err, &invariant):
			log.WithError(err).WithField("bar", invariant.Bar).Error("engine halted")
		default:
			log.WithError(err).Error("backtest failed")
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *runCmd) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.source != "" {
		cfg.Data.Source = c.source
	}
	if c.dataPath != "" {
		cfg.Data.Path = c.dataPath
	}
	if c.symbol != "" {
		cfg.Data.Symbol = c.symbol
	}
	if c.fillTiming != "" {
		cfg.Execution.FillTiming = c.fillTiming
	}
	if c.trades != "" {
		cfg.Reporting.TradesFile = c.trades
	}
	if c.resultsDB != "" {
		cfg.Reporting.ResultsDB = c.resultsDB
	}
	if c.journal != "" {
		cfg.Logging.JournalFile = c.journal
	}
	if c.progress {
		cfg.Reporting.Progress = true
	}
	return cfg, cfg.Validate()
}

func (c *runCmd) execute(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	source, closeSource, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	strat, err := rsi.NewStrategy(cfg.StrategyParams())
	if err != nil {
		return err
	}
	execution, err := cfg.ExecutionConfig()
	if err != nil {
		return err
	}

	var journalOut io.Writer = os.Stderr
	if cfg.Logging.JournalFile != "" {
		f, err := os.Create(cfg.Logging.JournalFile)
		if err != nil {
			return fmt.Errorf("create journal: %w", err)
		}
		defer f.Close()
		journalOut = f
	}

	eng := engine.NewEngine(
		source,
		strat,
		cfg.PortfolioConfig(),
		execution,
		cfg.ReportingConfig(os.Stderr),
		journal.New(journal.NewLogger(journalOut)),
	)

	log.WithFields(logrus.Fields{
		"source":      cfg.Data.Source,
		"fill_timing": cfg.Execution.FillTiming,
		"rsi_period":  cfg.Strategy.RSIPeriod,
	}).Info("starting backtest")

	result, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Starting Portfolio Value: %.2f\n", result.StartingValue.InexactFloat64())
	fmt.Printf("Final Portfolio Value: %.2f\n", result.EndingValue.InexactFloat64())
	result.Report.Print(os.Stdout)

	if cfg.Reporting.ResultsDB != "" {
		store, err := results.Open(cfg.Reporting.ResultsDB)
		if err != nil {
			return fmt.Errorf("open results db: %w", err)
		}
		defer store.Close()
		id, err := store.SaveRun(ctx, c.label, result)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		log.WithField("run_id", id).Info("run stored")
	}
	return nil
}

type barSource interface {
	Bars(ctx context.Context) ([]types.Bar, error)
}

// buildSource returns the configured bar source and a func releasing whatever
// it holds open.
func buildSource(ctx context.Context, cfg *config.Config) (barSource, func(), error) {
	start, end, err := cfg.Range()
	if err != nil {
		return nil, nil, err
	}
	noop := func() {}

	switch cfg.Data.Source {
	case config.SourceCSV:
		return feed.Window{Source: feed.CSVFile{Path: cfg.Data.Path}, Start: start, End: end}, noop, nil
	case config.SourceParquet:
		return feed.Window{Source: feed.ParquetFile{Path: cfg.Data.Path}, Start: start, End: end}, noop, nil
	case config.SourceYahoo:
		return feed.YahooSource{Symbol: cfg.Data.Symbol, Start: start, End: end}, noop, nil
	case config.SourcePostgres:
		db, err := repository.NewDatabase(ctx, cfg.Data.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		interval, err := types.ParseInterval(cfg.Data.Interval)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewSource(db, cfg.Data.Symbol, interval, start, end), db.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown data.source %q", config.ErrInvalidConfig, cfg.Data.Source)
}
