package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"rsibacktester/internal/indicator"
	"rsibacktester/internal/journal"
	"rsibacktester/types"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

type backtester struct {
	bars      []types.Bar
	strategy  strategy
	rsi       *indicator.RSI
	portfolio *portfolio
	orders    *orderManager
	journal   *journal.Journal
	progress  io.Writer

	startingValue decimal.Decimal
	curIndex      int
}

func newBacktester(
	bars []types.Bar,
	strat strategy,
	rsi *indicator.RSI,
	portfolioConfig *PortfolioConfig,
	executionConfig *ExecutionConfig,
	j *journal.Journal,
	progress io.Writer,
) *backtester {
	p := newPortfolio(portfolioConfig.initialCash)
	return &backtester{
		bars:          bars,
		strategy:      strat,
		rsi:           rsi,
		portfolio:     p,
		orders:        newOrderManager(executionConfig, portfolioConfig.commission, p, j),
		journal:       j,
		progress:      progress,
		startingValue: portfolioConfig.initialCash,
	}
}

// run replays every bar once, in order. Within a bar the phases never
// overlap: indicator, pending order, strategy, new order, snapshot.
func (b *backtester) run(ctx context.Context) error {
	first := types.Bar{}
	if len(b.bars) > 0 {
		first = b.bars[0]
	}
	b.journal.Record(journal.Event{
		Time:    first.Timestamp,
		Kind:    journal.RunStarted,
		Value:   b.startingValue,
		Message: fmt.Sprintf("Starting Portfolio Value: %s", b.startingValue.StringFixed(2)),
	})

	bar := initProgressBar(len(b.bars), b.progress)
	for i, curBar := range b.bars {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.curIndex = i

		reading := b.rsi.Update(curBar.Close.InexactFloat64())

		if err := b.orders.resolve(curBar, i); err != nil {
			return err
		}

		b.portfolio.markPrice(curBar.Close)
		view := b.portfolio.view(i, curBar.Timestamp, b.orders.openOrders())
		if req := b.strategy.Decide(curBar, reading, view, b.orders.pending); req != nil {
			_, err := b.orders.submit(req, curBar, i)
			var cashErr *types.InsufficientCashError
			if err != nil && !errors.As(err, &cashErr) {
				return err
			}
		}

		b.portfolio.markPrice(curBar.Close)
		if err := b.checkInvariants(i); err != nil {
			return err
		}
		b.portfolio.snapshots = append(b.portfolio.snapshots,
			b.portfolio.view(i, curBar.Timestamp, b.orders.openOrders()))

		_ = bar.Add(1)
	}

	last := types.Bar{}
	lastIdx := 0
	if len(b.bars) > 0 {
		lastIdx = len(b.bars) - 1
		last = b.bars[lastIdx]
	}
	b.orders.cancelPending(last, lastIdx)

	b.journal.Record(journal.Event{
		Bar:     lastIdx,
		Time:    last.Timestamp,
		Kind:    journal.RunFinished,
		Value:   b.portfolio.value(),
		Message: fmt.Sprintf("Final Portfolio Value: %s", b.portfolio.value().StringFixed(2)),
	})
	return nil
}

func (b *backtester) checkInvariants(idx int) error {
	p := b.portfolio
	if p.cash.IsNegative() {
		return &types.InvariantViolation{Invariant: "cash must never be negative, got " + p.cash.String(), Bar: idx}
	}
	if !p.position.Size.Equal(p.filledSize) {
		return &types.InvariantViolation{
			Invariant: fmt.Sprintf("position size %s disagrees with signed fills %s", p.position.Size, p.filledSize),
			Bar:       idx,
		}
	}
	for _, o := range b.orders.archive {
		if !o.Status.Terminal() {
			return &types.InvariantViolation{
				Invariant: fmt.Sprintf("archived order %d is not terminal (%s)", o.ID, o.Status),
				Bar:       idx,
			}
		}
	}
	return nil
}

func (b *backtester) finalValue() decimal.Decimal {
	return b.portfolio.value()
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
