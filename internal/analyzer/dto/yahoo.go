package dto

// YahooChartResponse is the top-level container of the Yahoo Finance v8
// chart endpoint.
type YahooChartResponse struct {
	Chart YahooChartData `json:"chart"`
}

// YahooChartData holds chart results or a provider error.
type YahooChartData struct {
	Result []YahooChartResult `json:"result"`
	Error  *YahooChartError   `json:"error"`
}

// YahooChartError is the provider's typed error payload.
type YahooChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// YahooChartResult is one instrument's chart series.
type YahooChartResult struct {
	Meta       YahooChartMeta  `json:"meta"`
	Timestamp  []int64         `json:"timestamp"`
	Indicators YahooIndicators `json:"indicators"`
}

// YahooChartMeta describes the resolved instrument.
type YahooChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeName       string  `json:"exchangeName"`
	FullExchangeName   string  `json:"fullExchangeName"`
	LongName           string  `json:"longName"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

// YahooIndicators holds the quote series.
type YahooIndicators struct {
	Quote []YahooQuote `json:"quote"`
}

// YahooQuote holds per-day OHLCV arrays aligned with Timestamp.
type YahooQuote struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}
