package engine

import (
	"io"

	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

var DefaultStartingCash = decimal.NewFromInt(1000)

type PortfolioConfig struct {
	initialCash decimal.Decimal
	// commission is a rate applied to traded value, 0.001 = 0.1%.
	commission decimal.Decimal
}

func NewPortfolioConfig(initialCash, commission decimal.Decimal) *PortfolioConfig {
	return &PortfolioConfig{
		initialCash: initialCash,
		commission:  commission,
	}
}

type ExecutionConfig struct {
	fillTiming types.FillTiming
}

func NewExecutionConfig(fillTiming types.FillTiming) *ExecutionConfig {
	if fillTiming == "" {
		fillTiming = types.FillOnClose
	}
	return &ExecutionConfig{
		fillTiming: fillTiming,
	}
}

type ReportingConfig struct {
	sharpeRiskFreeRate decimal.Decimal
	tradesFile         string
	progress           io.Writer
}

// NewReportingConfig configures post-run output. An empty tradesFile skips the
// trades CSV; a nil progress writer disables the progress bar.
func NewReportingConfig(sharpeRiskFreeRate decimal.Decimal, tradesFile string, progress io.Writer) *ReportingConfig {
	return &ReportingConfig{
		sharpeRiskFreeRate: sharpeRiskFreeRate,
		tradesFile:         tradesFile,
		progress:           progress,
	}
}
