package engine

import (
	"context"
	"fmt"
	"time"

	"rsibacktester/internal/indicator"
	"rsibacktester/internal/journal"
	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

type Engine struct {
	source          dataSource
	strategy        strategy
	portfolioConfig *PortfolioConfig
	executionConfig *ExecutionConfig
	reportingConfig *ReportingConfig
	journal         *journal.Journal
	backtester      *backtester
}

// Result is everything a finished run produced.
type Result struct {
	StartingValue decimal.Decimal
	EndingValue   decimal.Decimal
	Cash          decimal.Decimal
	Position      types.Position
	LastPrice     decimal.Decimal
	Start         time.Time
	End           time.Time
	BarCount      int
	Orders        []types.Order
	Trades        []types.Trade
	Snapshots     []types.PortfolioView
	Events        []journal.Event
	Report        *Report
}

func NewEngine(
	source dataSource,
	strat strategy,
	portfolioConfig *PortfolioConfig,
	executionConfig *ExecutionConfig,
	reportingConfig *ReportingConfig,
	j *journal.Journal,
) *Engine {
	if j == nil {
		j = journal.New(nil)
	}
	if reportingConfig == nil {
		reportingConfig = NewReportingConfig(decimal.Zero, "", nil)
	}
	return &Engine{
		source:          source,
		strategy:        strat,
		portfolioConfig: portfolioConfig,
		executionConfig: executionConfig,
		reportingConfig: reportingConfig,
		journal:         j,
	}
}

// Run loads and validates the bars, replays them, and builds the result.
// Ingestion errors are *types.DataFormatError; internal consistency faults are
// *types.InvariantViolation.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	bars, err := e.loadData(ctx)
	if err != nil {
		return nil, err
	}

	rsi, err := indicator.NewRSI(e.strategy.RSIPeriod())
	if err != nil {
		return nil, err
	}

	e.backtester = newBacktester(bars, e.strategy, rsi, e.portfolioConfig, e.executionConfig, e.journal, e.reportingConfig.progress)
	if err := e.backtester.run(ctx); err != nil {
		return nil, err
	}

	result := e.buildResult(bars)
	if e.reportingConfig.tradesFile != "" {
		if err := writeTradesCSVFile(e.reportingConfig.tradesFile, result.Trades); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (e *Engine) loadData(ctx context.Context) ([]types.Bar, error) {
	bars, err := e.source.Bars(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	if err := validateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (e *Engine) buildResult(bars []types.Bar) *Result {
	bt := e.backtester
	result := &Result{
		StartingValue: bt.startingValue,
		EndingValue:   bt.finalValue(),
		Cash:          bt.portfolio.cash,
		Position:      bt.portfolio.position,
		LastPrice:     bt.portfolio.lastPrice,
		BarCount:      len(bars),
		Orders:        bt.orders.orders(),
		Trades:        bt.orders.closedTrades(),
		Snapshots:     append([]types.PortfolioView(nil), bt.portfolio.snapshots...),
		Events:        e.journal.Events(),
	}
	if len(bars) > 0 {
		result.Start = bars[0].Timestamp
		result.End = bars[len(bars)-1].Timestamp
	}
	result.Report = generateReport(result, bt.portfolio.commissions, e.reportingConfig.sharpeRiskFreeRate)
	return result
}
