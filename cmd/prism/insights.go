package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// newsCmd implements the "news" command.
type newsCmd struct {
	ticker          string
	tickerReturn    float64
	benchmarkReturn float64
}

func (*newsCmd) Name() string     { return "news" }
func (*newsCmd) Synopsis() string { return "explains a ticker's performance against a benchmark" }
func (*newsCmd) Usage() string {
	return `news -ticker <TICKER> -return <r> -benchmark <r>:

Asks Gemini, grounded by Google Search, why the ticker returned what it did
compared to the benchmark. Returns are decimal fractions (0.17 for 17%).
`
}

func (c *newsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "ticker", "", "ticker to explain")
	f.Float64Var(&c.tickerReturn, "return", 0, "the ticker's total return over the window")
	f.Float64Var(&c.benchmarkReturn, "benchmark", 0, "the benchmark's total return over the window")
}

func (c *newsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.ticker) == "" {
		fmt.Fprintf(os.Stderr, "Error: -ticker is required\n")
		return subcommands.ExitUsageError
	}
	return runInsight(func(a interfaces.InsightService) (*models.Insight, error) {
		return a.SummarizeNews(ctx, c.ticker, c.tickerReturn, c.benchmarkReturn)
	})
}

// profileCmd implements the "profile" command.
type profileCmd struct {
	ticker string
	name   string
}

func (*profileCmd) Name() string     { return "profile" }
func (*profileCmd) Synopsis() string { return "describes a fund's mandate and characteristics" }
func (*profileCmd) Usage() string {
	return `profile -ticker <TICKER> [-name <fund name>]:

Asks Gemini, grounded by Google Search, for a structured fund profile.
`
}

func (c *profileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "ticker", "", "fund ticker")
	f.StringVar(&c.name, "name", "", "fund name, defaults to the ticker")
}

func (c *profileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.ticker) == "" {
		fmt.Fprintf(os.Stderr, "Error: -ticker is required\n")
		return subcommands.ExitUsageError
	}
	return runInsight(func(a interfaces.InsightService) (*models.Insight, error) {
		return a.ProfileFund(ctx, c.ticker, c.name)
	})
}

func runInsight(generate func(interfaces.InsightService) (*models.Insight, error)) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	insight, err := generate(a.InsightService)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Println(insight.Text)
	fmt.Fprintf(os.Stderr, "Generated by %s at %s\n", insight.Model, insight.GeneratedAt.Format("2006-01-02 15:04"))
	return subcommands.ExitSuccess
}
