// Package indicator holds the technical indicators the strategies read.
package indicator

import "errors"

const DefaultRSIPeriod = 14

var ErrInvalidPeriod = errors.New("indicator period must be at least 2")

// Reading is one indicator output. Value is meaningless unless Ready is set.
type Reading struct {
	Value float64
	Ready bool
}

// RSI is Wilder's relative strength index. The first period deltas seed the
// average gain and loss with a simple mean; after that both are smoothed with
// avg = (avg*(period-1) + sample) / period.
type RSI struct {
	period  int
	count   int // closes seen
	prev    float64
	avgGain float64
	avgLoss float64
	last    Reading
}

func NewRSI(period int) (*RSI, error) {
	if period < 2 {
		return nil, ErrInvalidPeriod
	}
	return &RSI{period: period}, nil
}

func (r *RSI) Period() int {
	return r.period
}

// Update feeds the next close and returns the reading for that bar.
// The reading stays not Ready until period deltas have been observed, which
// means the first period bars never produce a value.
func (r *RSI) Update(close float64) Reading {
	r.count++
	if r.count == 1 {
		r.prev = close
		return r.last
	}

	delta := close - r.prev
	r.prev = close
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	deltas := r.count - 1
	p := float64(r.period)
	switch {
	case deltas < r.period:
		r.avgGain += gain
		r.avgLoss += loss
		return r.last
	case deltas == r.period:
		r.avgGain = (r.avgGain + gain) / p
		r.avgLoss = (r.avgLoss + loss) / p
	default:
		r.avgGain = (r.avgGain*(p-1) + gain) / p
		r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	}

	r.last = Reading{Value: rsiValue(r.avgGain, r.avgLoss), Ready: true}
	return r.last
}

// Last returns the most recent reading without consuming input.
func (r *RSI) Last() Reading {
	return r.last
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// RSISeries runs a fresh RSI over closes. Entries that are not Ready are
// reported with Ready=false.
func RSISeries(closes []float64, period int) ([]Reading, error) {
	rsi, err := NewRSI(period)
	if err != nil {
		return nil, err
	}
	out := make([]Reading, len(closes))
	for i, c := range closes {
		out[i] = rsi.Update(c)
	}
	return out, nil
}
