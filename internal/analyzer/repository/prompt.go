package repository

import (
	"fmt"
	"strings"

	"smartstock-analyst/internal/analyzer/dto"
)

const marketAnalysisSchema = `{
  "company_full_name": "<string - required, full company name>",
  "trend": "rising | falling | flat",
  "sentiment": "bullish | bearish | neutral",
  "sentiment_narrative": "<string - required, one paragraph explaining the sentiment label>",
  "headline_references": ["<headline that influenced the label>"],
  "news_connection": "<string - how the price movement connects to the news>",
  "investor_insight": "<string - required, 1-2 sentences of investor insight>"
}`

// BuildMarketAnalysisPrompt builds the combined sentiment and trend prompt.
// The simplified variant is used for the single retry after a malformed
// response: same data, stricter and shorter instructions.
func BuildMarketAnalysisPrompt(req *dto.MarketAnalysisRequest, simplified bool) string {
	var priceBuilder strings.Builder
	priceBuilder.WriteString(fmt.Sprintf("Current price: %.2f %s\n", req.Price.CurrentPrice, req.Ticker.Currency))
	priceBuilder.WriteString(fmt.Sprintf("Daily change: %+.2f (%+.2f%%)\n", req.Price.DailyChange, req.Price.DailyChangePct))
	if req.Price.WeeklyAvailable {
		priceBuilder.WriteString(fmt.Sprintf("Weekly change: %+.2f (%+.2f%%)\n", req.Price.WeeklyChange, req.Price.WeeklyChangePct))
	} else {
		priceBuilder.WriteString("Weekly change: insufficient history (newly listed instrument)\n")
	}
	if n := len(req.Price.ClosingPrices); n > 0 {
		closes := req.Price.ClosingPrices
		if n > 10 {
			closes = closes[n-10:]
		}
		priceBuilder.WriteString(fmt.Sprintf("Recent daily closes (oldest first): %s\n", formatCloses(closes)))
	}

	newsSection := `### RECENT HEADLINES
No recent news was found for this company. Base the sentiment label and narrative ONLY on the price action above, and state explicitly in the narrative that no news was found. Do NOT invent headlines or news-derived reasoning. Leave headline_references empty and news_connection empty.`
	if len(req.News) > 0 {
		var newsBuilder strings.Builder
		for i, item := range req.News {
			publishedAt := "N/A"
			if !item.PublishedAt.IsZero() {
				publishedAt = item.PublishedAt.Format("2006-01-02 15:04")
			}
			newsBuilder.WriteString(fmt.Sprintf("%d. \"%s\" (%s, %s)\n", i+1, item.Headline, item.Source, publishedAt))
		}
		newsSection = fmt.Sprintf(`### RECENT HEADLINES
%s
Only use the headlines above. Do NOT make up news or events.`, newsBuilder.String())
	}

	if simplified {
		return fmt.Sprintf(`Analyze the stock %s (%s).

### PRICE DATA
%s
%s

Respond with ONLY a single JSON object, no markdown fences, no commentary, exactly this structure:
%s`, req.Ticker.Symbol, req.Ticker.CompanyName, priceBuilder.String(), newsSection, marketAnalysisSchema)
	}

	return fmt.Sprintf(`You are a financial analyst AI.
Analyze the recent performance of %s (%s, listed on %s) based on the data below.

### PRICE DATA
%s
%s

Provide:
1. Full name of the company
2. Overall trend (rising, falling, flat)
3. Sentiment (bullish, bearish, neutral) with a one-paragraph narrative naming which headlines influenced it
4. Connection between the price movement and the news
5. Investor insight (1-2 sentences)

Avoid repetition and filler words. Answer ONLY in JSON with this structure:
%s`, req.Ticker.Symbol, req.Ticker.CompanyName, req.Ticker.Exchange, priceBuilder.String(), newsSection, marketAnalysisSchema)
}

const chartAnalysisSchema = `{
  "trend_bias": "bullish | bearish | neutral",
  "moving_averages": "<string - moving average relationship if visible, e.g. 50-day vs 200-day>",
  "rsi": "<string - RSI reading if determinable, otherwise omit>",
  "patterns": ["<notable chart pattern>"],
  "analysis": "<string - required, concise free-text analysis>"
}`

// BuildChartAnalysisPrompt builds the vision prompt for an uploaded chart.
// The strict variant is used for the single retry after a malformed
// response.
func BuildChartAnalysisPrompt(symbol string, strict bool) string {
	base := fmt.Sprintf(`Analyze this financial chart or screenshot for %s. Identify key patterns such as moving averages, trends, or indicators (e.g. 50-day vs. 200-day moving average, RSI, MACD). Provide a concise insight on whether the chart indicates a bullish or bearish trend.

Answer ONLY in JSON with this structure:
%s`, symbol, chartAnalysisSchema)

	if strict {
		return base + "\n\nIMPORTANT: Respond with a single raw JSON object and nothing else. No markdown fences, no explanation outside the JSON. Every field listed as required must be present."
	}
	return base
}

// BuildTickerExtractionPrompt builds the fallback prompt used when no
// ticker candidate was found by pattern matching.
func BuildTickerExtractionPrompt(text string) string {
	return fmt.Sprintf(`Identify the stock ticker symbol mentioned or implied in the following user question. The symbol is 1-5 uppercase alphanumeric characters of a publicly traded instrument.

Question: %q

Answer ONLY in JSON: {"symbol": "<TICKER or NONE if no ticker can be identified>"}`, text)
}

func formatCloses(closes []float64) string {
	parts := make([]string, 0, len(closes))
	for _, c := range closes {
		parts = append(parts, fmt.Sprintf("%.2f", c))
	}
	return strings.Join(parts, ", ")
}
