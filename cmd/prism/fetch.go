package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/storage/csvfile"
)

// fetchCmd implements the "fetch" command.
type fetchCmd struct {
	holdingsFile string
	from, to     string
	out          string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "downloads adjusted closes from EODHD into a price CSV" }
func (*fetchCmd) Usage() string {
	return `fetch [-holdings <file.csv>] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-o prices.csv] [TICKER...]:

Fetches daily adjusted closes for the holdings (honouring each holding's
exchange) or for the tickers given as arguments, aligned on a common date
index, and writes them in the format "analyze -prices" reads.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holdingsFile, "holdings", "", "holdings CSV naming the tickers to fetch")
	f.StringVar(&c.from, "from", "", "first date, defaults to one year before -to")
	f.StringVar(&c.to, "to", "", "last date, defaults to today")
	f.StringVar(&c.out, "o", "", "output file, defaults to stdout")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.holdingsFile == "" && f.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: pass -holdings or at least one ticker\n")
		return subcommands.ExitUsageError
	}
	from, to, err := parseRange(c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := loadApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if a.MarketService == nil {
		fmt.Fprintf(os.Stderr, "Error: EODHD API key not configured\n")
		return subcommands.ExitFailure
	}

	var prices *models.PriceTable
	if c.holdingsFile != "" {
		holdings, readErr := readHoldingsFile(c.holdingsFile)
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "Error: could not read holdings: %v\n", readErr)
			return subcommands.ExitUsageError
		}
		prices, err = a.MarketService.FetchHoldingPrices(ctx, holdings, from, to)
	} else {
		prices, err = a.MarketService.FetchPriceTable(ctx, f.Args(), from, to)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var buf bytes.Buffer
	if err := csvfile.WritePriceTable(&buf, prices); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.out == "" {
		os.Stdout.Write(buf.Bytes())
	} else if err := os.WriteFile(c.out, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Fetched %d tickers over %d dates.\n", len(prices.Tickers), len(prices.Dates))
	return subcommands.ExitSuccess
}
