package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"smartstock-analyst/internal/analyzer/config"
	"smartstock-analyst/internal/analyzer/dto"
	"smartstock-analyst/internal/entity"
	"smartstock-analyst/pkg/logger"

	"golang.org/x/time/rate"
)

// yahooFinanceRepository is an implementation of MarketDataRepository that
// uses the Yahoo Finance chart API.
type yahooFinanceRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a new instance of yahooFinanceRepository.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) (MarketDataRepository, error) {
	if cfg.YahooFinance.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("yahoo_finance.max_request_per_minute must be positive")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.YahooFinance.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &yahooFinanceRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: cfg.YahooFinance.RequestTimeout,
		},
		requestLimiter: requestLimiter,
	}, nil
}

// Lookup confirms the symbol resolves to a tradable instrument.
func (r *yahooFinanceRepository) Lookup(ctx context.Context, symbol string) (*entity.ValidatedTicker, error) {
	result, err := r.fetchChart(ctx, symbol, "1d")
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	companyName := meta.LongName
	if companyName == "" {
		companyName = meta.ShortName
	}
	if companyName == "" {
		companyName = meta.Symbol
	}
	exchange := meta.FullExchangeName
	if exchange == "" {
		exchange = meta.ExchangeName
	}

	return &entity.ValidatedTicker{
		Symbol:      meta.Symbol,
		CompanyName: companyName,
		Exchange:    exchange,
		Currency:    meta.Currency,
	}, nil
}

// GetPriceSummary computes daily and weekly movement from recent daily
// closes. Weekly change compares against the close one trading week (five
// trading days) before the latest close.
func (r *yahooFinanceRepository) GetPriceSummary(ctx context.Context, symbol string) (*entity.PriceSummary, error) {
	result, err := r.fetchChart(ctx, symbol, "1mo")
	if err != nil {
		return nil, err
	}

	closes := closingPrices(result)
	if len(closes) < 2 {
		return nil, fmt.Errorf("%w: got %d closing prices for %s", entity.ErrDataUnavailable, len(closes), symbol)
	}

	current := result.Meta.RegularMarketPrice
	if current <= 0 {
		current = closes[len(closes)-1]
	}

	prevClose := closes[len(closes)-2]
	summary := &entity.PriceSummary{
		CurrentPrice:   current,
		DailyChange:    current - prevClose,
		DailyChangePct: (current - prevClose) / prevClose * 100,
		ClosingPrices:  closes,
		AsOf:           time.Now().UTC(),
	}
	if result.Meta.RegularMarketTime > 0 {
		summary.AsOf = time.Unix(result.Meta.RegularMarketTime, 0).UTC()
	}

	// A trading week back is five closes before the latest; newly listed
	// instruments with a shorter history report weekly change as
	// unavailable rather than zero.
	if len(closes) >= 6 {
		weekAgo := closes[len(closes)-6]
		summary.WeeklyChange = current - weekAgo
		summary.WeeklyChangePct = (current - weekAgo) / weekAgo * 100
		summary.WeeklyAvailable = true
	}

	for _, v := range []float64{summary.CurrentPrice, summary.DailyChange, summary.DailyChangePct, summary.WeeklyChange, summary.WeeklyChangePct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value in price series for %s", entity.ErrDataUnavailable, symbol)
		}
	}

	return summary, nil
}

func (r *yahooFinanceRepository) fetchChart(ctx context.Context, symbol, dataRange string) (*dto.YahooChartResult, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d", r.cfg.YahooFinance.BaseURL, symbol, dataRange)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Error("Failed to send request to Yahoo Finance API", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("%w: %v", entity.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", entity.ErrTickerNotFound, symbol)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		r.log.Error("Received non-OK response from Yahoo Finance API", logger.IntField("status_code", resp.StatusCode), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("%w: status %d - %s", entity.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var chartResp dto.YahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %v", entity.ErrProviderUnavailable, err)
	}

	if chartResp.Chart.Error != nil {
		if chartResp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", entity.ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("%w: %s - %s", entity.ErrProviderUnavailable, chartResp.Chart.Error.Code, chartResp.Chart.Error.Description)
	}

	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart result for %s", entity.ErrTickerNotFound, symbol)
	}

	return &chartResp.Chart.Result[0], nil
}

// closingPrices flattens the quote series into valid daily closes,
// dropping days the provider reports as zero or NaN.
func closingPrices(result *dto.YahooChartResult) []float64 {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	var closes []float64
	for _, c := range result.Indicators.Quote[0].Close {
		if c > 0 && !math.IsNaN(c) {
			closes = append(closes, c)
		}
	}
	return closes
}
