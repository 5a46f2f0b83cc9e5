package entity

import "time"

// UserRequest is one incoming analysis request. It is immutable once
// created and discarded when the run completes.
type UserRequest struct {
	Question       string
	Image          []byte
	ImageMediaType string
}

// HasImage reports whether the request carries a chart image.
func (r UserRequest) HasImage() bool {
	return len(r.Image) > 0
}

// TickerCandidate is a symbol extracted from free-form text, before it has
// been confirmed against the market-data provider.
type TickerCandidate struct {
	Symbol string `json:"symbol"`
	// FromModel is true when the symbol came from the model-extraction
	// fallback rather than direct pattern matching.
	FromModel bool `json:"from_model"`
}

// ValidatedTicker is a symbol confirmed to resolve to a tradable
// instrument. Constructed only by the market-data repository after a
// successful existence check.
type ValidatedTicker struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Exchange    string `json:"exchange"`
	Currency    string `json:"currency"`
}

// PriceSummary holds the current price and recent movement for a ticker.
// When fewer than six trading days of history exist the weekly fields are
// not meaningful and WeeklyAvailable is false; they must never be read as
// zero change.
type PriceSummary struct {
	CurrentPrice     float64   `json:"current_price"`
	DailyChange      float64   `json:"daily_change"`
	DailyChangePct   float64   `json:"daily_change_pct"`
	WeeklyChange     float64   `json:"weekly_change,omitempty"`
	WeeklyChangePct  float64   `json:"weekly_change_pct,omitempty"`
	WeeklyAvailable  bool      `json:"weekly_available"`
	ClosingPrices    []float64 `json:"closing_prices"`
	AsOf             time.Time `json:"as_of"`
}

// NewsItem is one headline for the analyzed company, most recent first in
// any collected sequence.
type NewsItem struct {
	Headline    string    `json:"headline"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

// Sentiment labels allowed in a SentimentResult.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Trend labels allowed in a TrendResult.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendFlat    = "flat"
)

// SentimentResult is the model's classification of market mood for the
// request, produced once per run.
type SentimentResult struct {
	Label     string   `json:"label"`
	Narrative string   `json:"narrative"`
	// HeadlineReferences names the headlines that influenced the label.
	// Empty when sentiment was derived from price action alone.
	HeadlineReferences []string `json:"headline_references"`
}

// TrendResult is the model's characterization of recent price movement.
type TrendResult struct {
	CompanyFullName string `json:"company_full_name"`
	Trend           string `json:"trend"`
	NewsConnection  string `json:"news_connection"`
	InvestorInsight string `json:"investor_insight"`
}

// ChartResult holds technical observations from an uploaded chart image.
type ChartResult struct {
	TrendBias      string   `json:"trend_bias"`
	MovingAverages string   `json:"moving_averages"`
	RSI            string   `json:"rsi"`
	Patterns       []string `json:"patterns"`
	Analysis       string   `json:"analysis"`
}

// ChartSection records the outcome of the optional chart branch. Absence
// is explicit: a missing chart analysis is flagged, never replaced with
// placeholder text.
type ChartSection struct {
	Present bool         `json:"present"`
	Result  *ChartResult `json:"result,omitempty"`
	// AbsenceReason explains a skipped or failed chart analysis.
	AbsenceReason string `json:"absence_reason,omitempty"`
}

// AnalysisRecord is the canonical output of one pipeline run, the unit
// handed to report rendering. Owned by a single run; never shared.
type AnalysisRecord struct {
	Ticker       ValidatedTicker `json:"ticker"`
	Price        PriceSummary    `json:"price"`
	News         []NewsItem      `json:"news"`
	// NewsDegraded is true when the news fetch failed and sentiment was
	// computed from price action only.
	NewsDegraded bool            `json:"news_degraded"`
	Trend        TrendResult     `json:"trend"`
	Sentiment    SentimentResult `json:"sentiment"`
	Chart        ChartSection    `json:"chart"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Partial reports whether any optional section is missing from an
// otherwise completed record.
func (r *AnalysisRecord) Partial() bool {
	return r.NewsDegraded || (!r.Chart.Present && r.Chart.AbsenceReason != "")
}

// RunState identifies a stage of the orchestration state machine.
type RunState string

// Orchestrator states. Done and Failed are terminal.
const (
	StateStart          RunState = "start"
	StateExtracting     RunState = "extracting"
	StateValidating     RunState = "validating"
	StateFetchingData   RunState = "fetching_data"
	StateAnalyzing      RunState = "analyzing"
	StateAnalyzingChart RunState = "analyzing_chart"
	StateAssembling     RunState = "assembling"
	StateDone           RunState = "done"
	StateFailed         RunState = "failed"
)
