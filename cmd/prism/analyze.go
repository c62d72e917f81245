package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/services/analysis"
	"github.com/bobmcallan/prism/internal/storage/csvfile"
)

// analyzeCmd implements the "analyze" command.
type analyzeCmd struct {
	holdingsFile string
	pricesFile   string
	from, to     string
	enrich       bool
	out          string
	clusters     int
	mode         string
	components   int
	sectors      string
	tickers      string
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "runs every engine and writes CSV tables and charts" }
func (*analyzeCmd) Usage() string {
	return `analyze -holdings <file.csv> [-prices <file.csv> | -from YYYY-MM-DD -to YYYY-MM-DD]:

Builds the valuation panel from holdings and prices, runs the correlation,
clustering, factor and attribution engines, and writes panel, attribution,
loadings, correlation, clusters and factor series CSVs plus cumulative-return,
explained-variance and cumulative-component charts under the export directory.
Tickers left out of attribution or clustering are listed on stderr.

Prices are read from -prices when given, otherwise fetched from EODHD.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holdingsFile, "holdings", "", "holdings CSV (Ticker, Shares, optional Sector, Name, Exchange, Expense Ratio, AUM)")
	f.StringVar(&c.pricesFile, "prices", "", "wide price CSV (Date then one column per ticker)")
	f.StringVar(&c.from, "from", "", "first date to fetch when -prices is not given")
	f.StringVar(&c.to, "to", "", "last date to fetch, defaults to today")
	f.BoolVar(&c.enrich, "enrich", false, "fill missing names, sectors and expense ratios from EODHD")
	f.StringVar(&c.out, "out", "", "export directory, overrides the configured path")
	f.IntVar(&c.clusters, "clusters", 0, "flat cluster count, defaults to one per two assets with returns")
	f.StringVar(&c.mode, "mode", "correlation", "clustering mode: correlation, return_volatility, return or volatility")
	f.IntVar(&c.components, "components", 0, "principal components to keep, defaults to 80% explained variance")
	f.StringVar(&c.sectors, "sectors", "", "comma-separated sector filter")
	f.StringVar(&c.tickers, "tickers", "", "comma-separated ticker filter")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *analyzeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mode, err := models.ParseFeatureMode(c.mode)
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

	holdings, err := readHoldingsFile(c.holdingsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read holdings: %v\n", err)
		return subcommands.ExitUsageError
	}

	if (c.enrich || c.pricesFile == "") && a.MarketService == nil {
		fmt.Fprintf(os.Stderr, "Error: EODHD API key not configured; pass -prices and drop -enrich\n")
		return subcommands.ExitFailure
	}

	if c.enrich {
		var diags []models.Diagnostic
		holdings, diags = a.MarketService.EnrichHoldings(ctx, holdings)
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "Warning: %s: %s\n", d.Ticker, d.Message)
		}
	}

	var prices *models.PriceTable
	if c.pricesFile != "" {
		prices, err = readPricesFile(c.pricesFile)
	} else {
		from, to, rangeErr := parseRange(c.from, c.to)
		if rangeErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", rangeErr)
			return subcommands.ExitUsageError
		}
		prices, err = a.MarketService.FetchHoldingPrices(ctx, holdings, from, to)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load prices: %v\n", err)
		return subcommands.ExitFailure
	}

	session, err := a.AnalysisService.NewSession(ctx, holdings, prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	files := a.Exports
	if c.out != "" {
		if files, err = csvfile.NewStore(a.Logger, c.out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	opts := analysis.ExportOptions{
		Filter:     interfaces.Filter{Sectors: splitList(c.sectors), Tickers: splitList(c.tickers)},
		Clusters:   c.clusters,
		Mode:       mode,
		Components: c.components,
	}
	paths, err := a.AnalysisService.SaveAll(ctx, files, session, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not write exports: %v\n", err)
		return subcommands.ExitFailure
	}

	printSummary(session.Summary())
	if scores, err := a.AnalysisService.Scores(ctx, session); err == nil {
		printScores(scores)
	}
	report, _ := a.AnalysisService.Attribution(ctx, session, opts.Filter)
	clusters, _ := a.AnalysisService.Cluster(ctx, session, opts.Filter, opts.Clusters, opts.Mode)
	printSkipped(os.Stderr, report, clusters)
	for _, p := range paths {
		fmt.Println(p)
	}
	return subcommands.ExitSuccess
}

func printSummary(sum models.SessionSummary) {
	fmt.Fprintf(os.Stderr, "Session %s: %d tickers, %d dates (%s to %s)\n",
		sum.ID, len(sum.Tickers), sum.Dates, sum.From, sum.To)
	if sum.TotalReturn.Valid {
		fmt.Fprintf(os.Stderr, "Portfolio return: %.2f%%\n", sum.TotalReturn.Float64*100)
	}
	for _, d := range sum.Diagnostics {
		fmt.Fprintf(os.Stderr, "Warning: %s [%s]: %s\n", d.Ticker, d.Code, d.Message)
	}
}

// printSkipped lists tickers left out of attribution or clustering. Either
// result may be nil when its engine failed.
func printSkipped(w io.Writer, report *models.AttributionReport, clusters *models.ClusterResult) {
	if report != nil {
		for _, d := range report.Skipped {
			fmt.Fprintf(w, "Skipped in attribution: %s [%s]: %s\n", d.Ticker, d.Code, d.Message)
		}
	}
	if clusters == nil {
		return
	}
	clustered := make(map[string]bool, len(clusters.Tickers))
	for _, t := range clusters.Tickers {
		clustered[t] = true
	}
	for _, d := range clusters.Diagnostics {
		if d.Ticker != "" && !clustered[d.Ticker] {
			fmt.Fprintf(w, "Skipped in clustering: %s [%s]: %s\n", d.Ticker, d.Code, d.Message)
		}
	}
}

func formatScore(v models.NullFloat64, format string, scale float64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf(format, v.Float64*scale)
}

func printScores(scores []models.RiskScore) {
	tw := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Ticker\tRisk adjusted\tLinear\tP(return > 0)\t")
	for _, s := range scores {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", s.Ticker,
			formatScore(s.RiskAdjusted, "%.3f", 1),
			formatScore(s.RiskAdjustedLinear, "%.3f", 1),
			formatScore(s.Probability, "%.1f%%", 100))
	}
	tw.Flush()
}
