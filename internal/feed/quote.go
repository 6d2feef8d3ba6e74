package feed

import (
	"context"
	"fmt"
	"time"

	"rsibacktester/types"

	"github.com/markcheno/go-quote"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// YahooSource downloads daily bars for Symbol between Start and End.
type YahooSource struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

func (s YahooSource) Bars(ctx context.Context) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Download(s.Symbol, s.Start, s.End)
}

// Download fetches split and dividend adjusted daily bars from Yahoo Finance.
func Download(symbol string, start, end time.Time) ([]types.Bar, error) {
	q, err := quote.NewQuoteFromYahoo(symbol, start.Format(dateLayout), end.Format(dateLayout), quote.Daily, true)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", symbol, err)
	}
	return FromQuote(q)
}

// FromQuote converts go-quote's column layout into bars.
func FromQuote(q quote.Quote) ([]types.Bar, error) {
	n := len(q.Date)
	columns := []struct {
		field  string
		values []float64
	}{
		{"open", q.Open}, {"high", q.High}, {"low", q.Low}, {"close", q.Close}, {"volume", q.Volume},
	}
	for _, c := range columns {
		if len(c.values) != n {
			return nil, &types.DataFormatError{Field: c.field, Reason: fmt.Sprintf("%d values for %d dates", len(c.values), n)}
		}
	}

	bars := make([]types.Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, types.NewBar(
			q.Date[i].UTC(),
			decimal.NewFromFloat(q.Open[i]),
			decimal.NewFromFloat(q.High[i]),
			decimal.NewFromFloat(q.Low[i]),
			decimal.NewFromFloat(q.Close[i]),
			decimal.NewFromFloat(q.Volume[i]),
		))
	}
	return bars, nil
}
