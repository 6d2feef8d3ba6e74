package engine

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"rsibacktester/types"

	"github.com/shopspring/decimal"
)

type Report struct {
	// Meta / period info
	StartDate   time.Time
	TotalPeriod time.Duration
	TotalTrades int

	// Absolute performance
	StartingValue        decimal.Decimal
	EndingValue          decimal.Decimal
	TotalReturn          decimal.Decimal
	NetProfit            decimal.Decimal
	NetAvgProfitPerTrade decimal.Decimal
	CAGR                 decimal.Decimal

	// Trade-level distribution metrics
	WinningTrades int
	LosingTrades  int
	AvgWin        decimal.Decimal
	AvgLoss       decimal.Decimal
	ProfitFactor  decimal.Decimal

	// Drawdown & loss streak metrics
	MaxDrawdown          decimal.Decimal
	MaxDrawdownPercent   decimal.Decimal
	MaxDrawdownDays      time.Duration
	MaxConsecutiveLosses int

	// Risk-adjusted metrics
	SharpeRatio decimal.Decimal

	// Costs
	TotalFees decimal.Decimal
}

func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "===== Trading Report =====")
	fmt.Fprintf(w, "Start Date:            %s\n", r.StartDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Period:          %d days\n", r.TotalPeriod/(24*time.Hour))
	fmt.Fprintf(w, "Total Trades:          %d\n", r.TotalTrades)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Starting Value:        %s\n", r.StartingValue.StringFixed(2))
	fmt.Fprintf(w, "Ending Value:          %s\n", r.EndingValue.StringFixed(2))
	fmt.Fprintf(w, "Total Return %%:        %s\n", r.TotalReturn.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Fprintf(w, "Net Profit:            %s\n", r.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "Avg Profit/Trade:      %s\n", r.NetAvgProfitPerTrade.StringFixed(2))
	fmt.Fprintf(w, "CAGR:                  %s\n", r.CAGR.StringFixed(4))

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Winning Trades:        %d\n", r.WinningTrades)
	fmt.Fprintf(w, "Losing Trades:         %d\n", r.LosingTrades)
	fmt.Fprintf(w, "Avg Win:               %s\n", r.AvgWin.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", r.AvgLoss.StringFixed(2))
	fmt.Fprintf(w, "Profit Factor:         %s\n", r.ProfitFactor.StringFixed(2))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %s\n", r.MaxDrawdown.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", r.MaxDrawdownPercent.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown Days:     %d\n", r.MaxDrawdownDays/(24*time.Hour))
	fmt.Fprintf(w, "Max Consecutive Losses:%d\n", r.MaxConsecutiveLosses)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", r.SharpeRatio.StringFixed(4))

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Fees:            %s\n", r.TotalFees.StringFixed(2))

	fmt.Fprintln(w, "==========================")
}

func generateReport(result *Result, totalFees, riskFreeRate decimal.Decimal) *Report {
	trades := result.Trades
	snapshots := result.Snapshots

	report := &Report{}
	report.StartDate = result.Start
	report.TotalPeriod = result.End.Sub(result.Start).Truncate(time.Hour * 24)
	report.TotalTrades = len(trades)
	report.StartingValue = result.StartingValue
	report.EndingValue = result.EndingValue
	report.TotalFees = totalFees
	if result.StartingValue.IsPositive() {
		report.TotalReturn = result.EndingValue.Div(result.StartingValue).Sub(decimal.NewFromInt(1))
	}

	// each calc writes only its own report fields
	var wg sync.WaitGroup
	wg.Add(8)
	go func() {
		report.NetProfit = calcNetProfit(trades, &wg)
	}()
	go func() {
		report.NetAvgProfitPerTrade = calcNetAvgProfitPerTrade(trades, &wg)
	}()
	go func() {
		report.AvgWin, report.AvgLoss, report.WinningTrades, report.LosingTrades = calcAvgWinLossPerTrade(trades, &wg)
	}()
	go func() {
		report.ProfitFactor = calcProfitFactor(trades, &wg)
	}()
	go func() {
		report.CAGR = calcCAGR(snapshots, &wg)
	}()
	go func() {
		report.MaxDrawdown, report.MaxDrawdownPercent, report.MaxDrawdownDays = calcDrawdownMetrics(snapshots, &wg)
	}()
	go func() {
		report.MaxConsecutiveLosses = calcMaxConsecutiveLosses(trades, &wg)
	}()
	go func() {
		report.SharpeRatio = calcSharpeRatio(snapshots, riskFreeRate, &wg)
	}()
	wg.Wait()

	return report
}

func calcNetProfit(trades []types.Trade, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()

	total := decimal.Zero
	for _, tr := range trades {
		total = total.Add(tr.NetPnL)
	}
	return total
}

func calcNetAvgProfitPerTrade(trades []types.Trade, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()

	if len(trades) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, tr := range trades {
		total = total.Add(tr.NetPnL)
	}
	return total.Div(decimal.NewFromInt(int64(len(trades))))
}

func calcAvgWinLossPerTrade(trades []types.Trade, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal, int, int) {
	defer wg.Done()

	sumWins := decimal.Zero
	sumLosses := decimal.Zero // absolute loss amounts
	winCount := 0
	lossCount := 0

	for _, tr := range trades {
		switch {
		case tr.NetPnL.GreaterThan(decimal.Zero):
			sumWins = sumWins.Add(tr.NetPnL)
			winCount++
		case tr.NetPnL.LessThan(decimal.Zero):
			sumLosses = sumLosses.Add(tr.NetPnL.Abs())
			lossCount++
		}
	}

	avgWin := decimal.Zero
	avgLoss := decimal.Zero
	if winCount > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(lossCount)))
	}
	return avgWin, avgLoss, winCount, lossCount
}

// calcProfitFactor is gross net-profit of winners over gross net-loss of
// losers. Zero when there are no losers.
func calcProfitFactor(trades []types.Trade, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()

	wins, losses := decimal.Zero, decimal.Zero
	for _, tr := range trades {
		if tr.NetPnL.IsPositive() {
			wins = wins.Add(tr.NetPnL)
		} else {
			losses = losses.Add(tr.NetPnL.Abs())
		}
	}
	if losses.IsZero() {
		return decimal.Zero
	}
	return wins.Div(losses)
}

func calcCAGR(snapshots []types.PortfolioView, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(snapshots) < 2 {
		return decimal.Zero
	}

	startSnap := snapshots[0]
	endSnap := snapshots[len(snapshots)-1]

	startVal := startSnap.Value()
	endVal := endSnap.Value()

	// If starting value is <= 0, CAGR is not well-defined
	if !startVal.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}

	// time difference in years (using 365.25 days to account for leap years)
	duration := endSnap.Time.Sub(startSnap.Time)
	if duration <= 0 {
		return decimal.Zero
	}
	years := duration.Hours() / (24.0 * 365.25)

	ratio := endVal.Div(startVal)
	if !ratio.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}

	cagrFloat := math.Pow(ratio.InexactFloat64(), 1.0/years) - 1.0
	return decimal.NewFromFloat(cagrFloat)
}

func calcDrawdownMetrics(
	snapshots []types.PortfolioView,
	wg *sync.WaitGroup,
) (decimal.Decimal, decimal.Decimal, time.Duration) {
	defer wg.Done()

	if len(snapshots) == 0 {
		return decimal.Zero, decimal.Zero, 0
	}

	peak := decimal.Zero
	var peakTime time.Time

	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for i, snap := range snapshots {
		equity := snap.Value()

		if i == 0 || equity.GreaterThan(peak) {
			peak = equity
			peakTime = snap.Time
		}

		if peak.GreaterThan(decimal.Zero) {
			dd := peak.Sub(equity)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
				maxDDPct = dd.Div(peak)
				maxDDDuration = snap.Time.Sub(peakTime)
			}
		}
	}

	return maxDD, maxDDPct, maxDDDuration
}

func calcMaxConsecutiveLosses(trades []types.Trade, wg *sync.WaitGroup) int {
	defer wg.Done()

	ordered := append([]types.Trade(nil), trades...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ClosedBar < ordered[j].ClosedBar
	})

	maxLossStreak := 0
	currentStreak := 0
	for _, tr := range ordered {
		if tr.NetPnL.LessThan(decimal.Zero) {
			currentStreak++
			if currentStreak > maxLossStreak {
				maxLossStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxLossStreak
}

func calcSharpeRatio(
	snapshots []types.PortfolioView,
	annualRiskFree decimal.Decimal,
	wg *sync.WaitGroup,
) decimal.Decimal {
	defer wg.Done()
	monthlyReturns := getMonthlyReturns(snapshots)
	if len(monthlyReturns) < 2 {
		// Need at least 2 months to compute stddev
		return decimal.Zero
	}

	// rf_monthly = (1 + rf_annual)^(1/12) - 1
	rfMonthly := math.Pow(1.0+annualRiskFree.InexactFloat64(), 1.0/12.0) - 1.0

	excess := make([]float64, 0, len(monthlyReturns))
	for _, r := range monthlyReturns {
		excess = append(excess, r.InexactFloat64()-rfMonthly)
	}

	var sum float64
	for _, x := range excess {
		sum += x
	}
	mean := sum / float64(len(excess))

	// sample standard deviation
	var varianceSum float64
	for _, x := range excess {
		diff := x - mean
		varianceSum += diff * diff
	}
	stdMonthly := math.Sqrt(varianceSum / float64(len(excess)-1))
	if stdMonthly == 0 {
		return decimal.Zero
	}

	// annualize by sqrt(12)
	return decimal.NewFromFloat(mean / stdMonthly * math.Sqrt(12.0))
}

func getMonthlyReturns(snapshots []types.PortfolioView) []decimal.Decimal {
	if len(snapshots) == 0 {
		return nil
	}

	ordered := append([]types.PortfolioView(nil), snapshots...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	type monthKey struct {
		year  int
		month time.Month
	}

	// snapshots are ordered, so the last one seen per month is its month end
	var keys []monthKey
	monthEnd := make(map[monthKey]types.PortfolioView)
	for _, snap := range ordered {
		y, m, _ := snap.Time.Date()
		key := monthKey{year: y, month: m}
		if _, ok := monthEnd[key]; !ok {
			keys = append(keys, key)
		}
		monthEnd[key] = snap
	}

	if len(keys) < 2 {
		return nil
	}

	returns := make([]decimal.Decimal, 0, len(keys)-1)
	prev := monthEnd[keys[0]].Value()
	for _, k := range keys[1:] {
		curr := monthEnd[k].Value()
		if !prev.GreaterThan(decimal.Zero) {
			prev = curr
			continue
		}
		returns = append(returns, curr.Div(prev).Sub(decimal.NewFromInt(1)))
		prev = curr
	}
	return returns
}
