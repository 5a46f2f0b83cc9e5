package dto

import (
	"smartstock-analyst/internal/entity"
)

// MarketAnalysisRequest carries everything embedded into the combined
// sentiment and trend prompt.
type MarketAnalysisRequest struct {
	Ticker entity.ValidatedTicker
	Price  entity.PriceSummary
	News   []entity.NewsItem
	// NewsDegraded distinguishes "fetch failed" from "no coverage"; both
	// force the price-action-only prompt wording.
	NewsDegraded bool
}

// MarketAnalysisResult is the expected JSON structure for the combined
// sentiment and trend analysis. Every field without omitempty is required;
// a missing one is a parse failure, not a defaulted value.
type MarketAnalysisResult struct {
	CompanyFullName    string   `json:"company_full_name"`
	Trend              string   `json:"trend"`
	Sentiment          string   `json:"sentiment"`
	SentimentNarrative string   `json:"sentiment_narrative"`
	HeadlineReferences []string `json:"headline_references,omitempty"`
	NewsConnection     string   `json:"news_connection,omitempty"`
	InvestorInsight    string   `json:"investor_insight"`
}

// ChartAnalysisResult is the expected JSON structure for the vision-based
// chart analysis.
type ChartAnalysisResult struct {
	TrendBias      string   `json:"trend_bias"`
	MovingAverages string   `json:"moving_averages,omitempty"`
	RSI            string   `json:"rsi,omitempty"`
	Patterns       []string `json:"patterns,omitempty"`
	Analysis       string   `json:"analysis"`
}

// TickerExtractionResult is the expected JSON structure for the
// model-based ticker extraction fallback.
type TickerExtractionResult struct {
	Symbol string `json:"symbol"`
}

// AnalyzeRequest is the inbound HTTP payload for an analysis run.
type AnalyzeRequest struct {
	Question string `form:"question" validate:"required,min=1,max=500"`
}

// AnalysisResponse is the successful HTTP response body.
type AnalysisResponse struct {
	Record  *entity.AnalysisRecord `json:"record"`
	Partial bool                   `json:"partial"`
}

// ErrorResponse is the failure HTTP response body.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
