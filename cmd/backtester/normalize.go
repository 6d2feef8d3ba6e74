package main

import (
	"context"
	"flag"
	"os"

	"rsibacktester/internal/feed"

	"github.com/google/subcommands"
)

type normalizeCmd struct{}

func (*normalizeCmd) Name() string     { return "normalize" }
func (*normalizeCmd) Synopsis() string { return "rewrite a Yahoo Finance CSV export into canonical columns" }
func (*normalizeCmd) Usage() string {
	return `normalize <in.csv> <out.csv>:
  Drop the Ticker/Date metadata rows and reorder columns to
  Date,Open,High,Low,Close,Volume,Adj Close.
`
}

func (*normalizeCmd) SetFlags(*flag.FlagSet) {}

func (*normalizeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := defaultLogger()
	if f.NArg() != 2 {
		log.Error("normalize needs an input and an output path")
		return subcommands.ExitUsageError
	}

	in, err := os.Open(f.Arg(0))
	if err != nil {
		log.WithError(err).Error("open input")
		return subcommands.ExitFailure
	}
	defer in.Close()

	out, err := os.Create(f.Arg(1))
	if err != nil {
		log.WithError(err).Error("create output")
		return subcommands.ExitFailure
	}
	defer out.Close()

	n, err := feed.NormalizeYahooCSV(in, out)
	if err != nil {
		log.WithError(err).Error("normalize")
		return subcommands.ExitFailure
	}
	log.WithField("rows", n).WithField("path", f.Arg(1)).Info("normalized")
	return subcommands.ExitSuccess
}
