// Package journal is the append-only event log of a backtest run. Every event
// is kept in memory and written as one logrus entry.
package journal

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	RunStarted     Kind = "run_started"
	OrderCreated   Kind = "order_created"
	OrderSubmitted Kind = "order_submitted"
	OrderAccepted  Kind = "order_accepted"
	OrderCompleted Kind = "order_completed"
	OrderCanceled  Kind = "order_canceled"
	OrderMargin    Kind = "order_margin"
	OrderRejected  Kind = "order_rejected"
	TradeClosed    Kind = "trade_closed"
	RunFinished    Kind = "run_finished"
)

// Event fields that do not apply to a kind are left zero and omitted from the
// log record.
type Event struct {
	Seq     int
	Bar     int
	Time    time.Time
	Kind    Kind
	OrderID int
	TradeID int
	Side    string
	Size    decimal.Decimal
	Price   decimal.Decimal
	Gross   decimal.Decimal
	Net     decimal.Decimal
	Value   decimal.Decimal
	Message string
}

type Journal struct {
	events []Event
	log    *logrus.Logger
}

// New returns a journal logging through l. A nil l discards the log output
// while still keeping the events.
func New(l *logrus.Logger) *Journal {
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	return &Journal{log: l}
}

// NewLogger builds the deterministic JSON logger the journal is meant to write
// through: no timestamps, so two replays produce identical bytes.
func NewLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{DisableTimestamp: true})
	return l
}

func (j *Journal) Record(e Event) Event {
	e.Seq = len(j.events) + 1
	j.events = append(j.events, e)
	j.log.WithFields(e.fields()).Info(e.Message)
	return e
}

// Events returns a copy of everything recorded so far.
func (j *Journal) Events() []Event {
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}

func (j *Journal) Len() int {
	return len(j.events)
}

// Count returns how many events of kind k were recorded.
func (j *Journal) Count(k Kind) int {
	n := 0
	for _, e := range j.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (e Event) fields() logrus.Fields {
	f := logrus.Fields{
		"seq":  e.Seq,
		"bar":  e.Bar,
		"kind": string(e.Kind),
	}
	if !e.Time.IsZero() {
		f["date"] = e.Time.UTC().Format(time.RFC3339)
	}
	if e.OrderID != 0 {
		f["order_id"] = e.OrderID
	}
	if e.TradeID != 0 {
		f["trade_id"] = e.TradeID
	}
	if e.Side != "" {
		f["side"] = e.Side
	}
	if !e.Size.IsZero() {
		f["size"] = e.Size.String()
	}
	if !e.Price.IsZero() {
		f["price"] = e.Price.String()
	}
	if e.Kind == TradeClosed {
		f["gross_pnl"] = e.Gross.String()
		f["net_pnl"] = e.Net.String()
	}
	if !e.Value.IsZero() {
		f["value"] = e.Value.String()
	}
	return f
}
