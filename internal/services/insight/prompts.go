package insight

import "fmt"

const newsSystem = `You are an analyst specialised in financial news. Identify the events that explain a stock's performance over a stated period, prioritising information that directly explains the direction and size of the move.

Focus on earnings reports and guidance, product launches, mergers and divestitures, management changes, industry and competitive trends, macroeconomic factors, and analyst rating changes.

Write a concise summary that:
- begins with the overall performance;
- highlights the key positive drivers with specific examples;
- acknowledges counteracting factors or headwinds;
- cites the source for each point, preferring company releases and filings over secondary coverage.

Stay within the stated period and remain neutral.`

const fundSystem = `You are an analyst specialised in investment funds. Given a fund name and ticker, describe its characteristics factually, drawing on official documentation where possible, and state clearly when a data point is not available.`

func newsPrompt(ticker string, tickerReturn, benchmarkReturn float64) string {
	return fmt.Sprintf(`Analyse the news for %s in order to understand its recent price performance.
The stock has returned approximately %.1f%% over the analysis period, compared to %.1f%% for the portfolio benchmark.
Identify the key news events and factors that contributed to this performance, including both positive and negative drivers, and reference the original news sources.`,
		ticker, tickerReturn*100, benchmarkReturn*100)
}

func fundPrompt(ticker, name string) string {
	if name == "" {
		name = ticker
	}
	return fmt.Sprintf(`Provide a profile of the following investment fund.

Fund name: %s
Ticker: %s

Structure the response in these sections:
1. Fund overview: manager, domicile, launch date and size
2. Investment objective and strategy: approach, geographic focus, benchmark
3. Asset class and style: asset class, style, capitalisation focus, active or passive
4. Portfolio characteristics: number of holdings, top exposures, currency exposure
5. Risk profile: risk rating, volatility, key risks, suitable investors
6. Fees: total expense ratio, performance fee, minimum investment
7. Notable features: themes, ESG considerations, distribution policy`, name, ticker)
}
