package pdf

import (
	"testing"
	"time"

	"smartstock-analyst/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *entity.AnalysisRecord {
	return &entity.AnalysisRecord{
		Ticker: entity.ValidatedTicker{
			Symbol:      "PLTR",
			CompanyName: "Palantir Technologies Inc.",
			Exchange:    "NasdaqGS",
			Currency:    "USD",
		},
		Price: entity.PriceSummary{
			CurrentPrice:    24.50,
			DailyChangePct:  2.08,
			WeeklyChangePct: 16.67,
			WeeklyAvailable: true,
		},
		Trend: entity.TrendResult{
			CompanyFullName: "Palantir Technologies Inc.",
			Trend:           entity.TrendRising,
			NewsConnection:  "Rally followed the contract win.",
			InvestorInsight: "Momentum constructive.",
		},
		Sentiment: entity.SentimentResult{
			Label:              entity.SentimentBullish,
			Narrative:          "Positive coverage all week.",
			HeadlineReferences: []string{"Palantir wins new government contract"},
		},
		GeneratedAt: time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := NewReportRenderer().Render(sampleRecord())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderWithChartSection(t *testing.T) {
	record := sampleRecord()
	record.Chart = entity.ChartSection{
		Present: true,
		Result: &entity.ChartResult{
			TrendBias:      entity.SentimentBullish,
			MovingAverages: "Price above the 50-day and 200-day averages.",
			RSI:            "62, approaching overbought",
			Patterns:       []string{"ascending triangle"},
			Analysis:       "The chart supports a continued upward bias.",
		},
	}

	out, err := NewReportRenderer().Render(record)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderWithAbsentChartSection(t *testing.T) {
	record := sampleRecord()
	record.Chart = entity.ChartSection{AbsenceReason: "chart analysis unavailable: the model did not return an actionable result"}

	out, err := NewReportRenderer().Render(record)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderShortHistoryWeeklyLine(t *testing.T) {
	record := sampleRecord()
	record.Price.WeeklyAvailable = false
	record.Price.WeeklyChangePct = 0

	out, err := NewReportRenderer().Render(record)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestWeeklyLine(t *testing.T) {
	assert.Equal(t, "Weekly Change: gained 16.67%", weeklyLine(entity.PriceSummary{WeeklyAvailable: true, WeeklyChangePct: 16.67}))
	assert.Equal(t, "Weekly Change: lost 4.20%", weeklyLine(entity.PriceSummary{WeeklyAvailable: true, WeeklyChangePct: -4.20}))
	assert.Equal(t, "Weekly Change: insufficient history", weeklyLine(entity.PriceSummary{}))
}
