package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"smartstock-analyst/internal/analyzer/config"
	"smartstock-analyst/internal/analyzer/dto"
	"smartstock-analyst/internal/entity"
	"smartstock-analyst/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMarketData struct {
	lookupFn    func(ctx context.Context, symbol string) (*entity.ValidatedTicker, error)
	priceFn     func(ctx context.Context, symbol string) (*entity.PriceSummary, error)
	lookupCalls int
	priceCalls  int
}

func (s *stubMarketData) Lookup(ctx context.Context, symbol string) (*entity.ValidatedTicker, error) {
	s.lookupCalls++
	return s.lookupFn(ctx, symbol)
}

func (s *stubMarketData) GetPriceSummary(ctx context.Context, symbol string) (*entity.PriceSummary, error) {
	s.priceCalls++
	return s.priceFn(ctx, symbol)
}

type stubNews struct {
	fn    func(ctx context.Context, query string, limit int) ([]entity.NewsItem, error)
	calls int
}

func (s *stubNews) GetHeadlines(ctx context.Context, query string, limit int) ([]entity.NewsItem, error) {
	s.calls++
	return s.fn(ctx, query, limit)
}

type stubAI struct {
	extractFn   func(ctx context.Context, text string) (string, error)
	marketFn    func(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error)
	chartFn     func(ctx context.Context, image []byte, mediaType, symbol string, strict bool) (*dto.ChartAnalysisResult, error)
	marketCalls int
	chartCalls  int
}

func (s *stubAI) ExtractTicker(ctx context.Context, text string) (string, error) {
	return s.extractFn(ctx, text)
}

func (s *stubAI) AnalyzeMarket(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error) {
	s.marketCalls++
	return s.marketFn(ctx, req, simplified)
}

func (s *stubAI) AnalyzeChart(ctx context.Context, image []byte, mediaType, symbol string, strict bool) (*dto.ChartAnalysisResult, error) {
	s.chartCalls++
	return s.chartFn(ctx, image, mediaType, symbol, strict)
}

func testConfig() *config.Config {
	return &config.Config{
		News: config.News{MaxHeadlines: 5},
		Chart: config.Chart{
			MaxImageSizeBytes: 1024,
			AllowedMediaTypes: []string{"image/png", "image/jpeg"},
		},
		Pipeline: config.Pipeline{RetryInterval: time.Millisecond},
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func pltrTicker() *entity.ValidatedTicker {
	return &entity.ValidatedTicker{
		Symbol:      "PLTR",
		CompanyName: "Palantir Technologies Inc.",
		Exchange:    "NasdaqGS",
		Currency:    "USD",
	}
}

func pltrPrice() *entity.PriceSummary {
	return &entity.PriceSummary{
		CurrentPrice:    24.50,
		DailyChange:     0.50,
		DailyChangePct:  2.08,
		WeeklyChange:    1.20,
		WeeklyChangePct: 5.15,
		WeeklyAvailable: true,
		ClosingPrices:   []float64{22.10, 22.80, 23.30, 23.10, 24.00, 24.50},
		AsOf:            time.Date(2024, 6, 14, 20, 0, 0, 0, time.UTC),
	}
}

func pltrHeadlines() []entity.NewsItem {
	return []entity.NewsItem{
		{Headline: "Palantir wins new government contract", PublishedAt: time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC), Source: "Reuters"},
		{Headline: "Analysts raise Palantir price targets", PublishedAt: time.Date(2024, 6, 13, 9, 0, 0, 0, time.UTC), Source: "Bloomberg"},
	}
}

func marketResult() *dto.MarketAnalysisResult {
	return &dto.MarketAnalysisResult{
		CompanyFullName:    "Palantir Technologies Inc.",
		Trend:              entity.TrendRising,
		Sentiment:          entity.SentimentBullish,
		SentimentNarrative: "Contract wins and upgrades drove a positive tone this week.",
		HeadlineReferences: []string{"Palantir wins new government contract"},
		NewsConnection:     "The rally followed the contract announcement.",
		InvestorInsight:    "Momentum looks constructive but valuation is stretched.",
	}
}

func happyPathDeps() (*stubMarketData, *stubNews, *stubAI) {
	market := &stubMarketData{
		lookupFn: func(ctx context.Context, symbol string) (*entity.ValidatedTicker, error) {
			return pltrTicker(), nil
		},
		priceFn: func(ctx context.Context, symbol string) (*entity.PriceSummary, error) {
			return pltrPrice(), nil
		},
	}
	news := &stubNews{
		fn: func(ctx context.Context, query string, limit int) ([]entity.NewsItem, error) {
			return pltrHeadlines(), nil
		},
	}
	ai := &stubAI{
		extractFn: func(ctx context.Context, text string) (string, error) {
			return "", fmt.Errorf("fallback should not be needed")
		},
		marketFn: func(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error) {
			return marketResult(), nil
		},
		chartFn: func(ctx context.Context, image []byte, mediaType, symbol string, strict bool) (*dto.ChartAnalysisResult, error) {
			return &dto.ChartAnalysisResult{TrendBias: entity.SentimentBullish, Analysis: "Price holding above the 50-day moving average."}, nil
		},
	}
	return market, news, ai
}

func newTestOrchestrator(t *testing.T, market *stubMarketData, news *stubNews, ai *stubAI) Orchestrator {
	t.Helper()
	cfg := testConfig()
	log := testLogger(t)
	return NewOrchestrator(cfg, log, NewTickerExtractor(log, ai), market, news, ai, NewReportAssembler())
}

func TestRunHappyPathWithoutImage(t *testing.T) {
	market, news, ai := happyPathDeps()
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "What's happening with PLTR?"})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "PLTR", record.Ticker.Symbol)
	assert.Equal(t, entity.SentimentBullish, record.Sentiment.Label)
	assert.Equal(t, entity.TrendRising, record.Trend.Trend)
	assert.NotEmpty(t, record.Trend.InvestorInsight)
	assert.False(t, record.Chart.Present)
	assert.Empty(t, record.Chart.AbsenceReason)
	assert.False(t, record.Partial())
	assert.False(t, record.GeneratedAt.IsZero())
	assert.Equal(t, 0, ai.chartCalls)
}

func TestRunInvalidTickerIsTerminal(t *testing.T) {
	market, news, ai := happyPathDeps()
	market.lookupFn = func(ctx context.Context, symbol string) (*entity.ValidatedTicker, error) {
		return nil, fmt.Errorf("%w: %s", entity.ErrTickerNotFound, symbol)
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "tell me about XYZAB"})
	require.Nil(t, record)

	var pipelineErr *entity.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, entity.FailureInvalidTicker, pipelineErr.Kind)
	// Not-found answers are definitive; no retry.
	assert.Equal(t, 1, market.lookupCalls)
}

func TestRunExtractionFailure(t *testing.T) {
	market, news, ai := happyPathDeps()
	ai.extractFn = func(ctx context.Context, text string) (string, error) {
		return "", fmt.Errorf("no ticker symbol identified in text")
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	_, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "should i buy anything today"})

	var pipelineErr *entity.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, entity.FailureExtraction, pipelineErr.Kind)
	assert.Equal(t, 0, market.lookupCalls)
}

func TestRunLookupRetriesOnceOnProviderUnavailable(t *testing.T) {
	market, news, ai := happyPathDeps()
	failures := 1
	market.lookupFn = func(ctx context.Context, symbol string) (*entity.ValidatedTicker, error) {
		if failures > 0 {
			failures--
			return nil, entity.ErrProviderUnavailable
		}
		return pltrTicker(), nil
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})
	require.NoError(t, err)
	assert.Equal(t, "PLTR", record.Ticker.Symbol)
	assert.Equal(t, 2, market.lookupCalls)
}

func TestRunLookupFailsAfterSingleRetry(t *testing.T) {
	market, news, ai := happyPathDeps()
	market.lookupFn = func(ctx context.Context, symbol string) (*entity.ValidatedTicker, error) {
		return nil, entity.ErrProviderUnavailable
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	_, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})

	var pipelineErr *entity.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, entity.FailureProviderUnavailable, pipelineErr.Kind)
	assert.Equal(t, 2, market.lookupCalls)
}

func TestRunMarketDataFailureIsFatalAfterSingleRetry(t *testing.T) {
	market, news, ai := happyPathDeps()
	market.priceFn = func(ctx context.Context, symbol string) (*entity.PriceSummary, error) {
		return nil, entity.ErrProviderUnavailable
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	_, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})

	var pipelineErr *entity.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, entity.FailureDataUnavailable, pipelineErr.Kind)
	assert.Equal(t, 2, market.priceCalls)
}

func TestRunNewsFailureDegradesInsteadOfFailing(t *testing.T) {
	market, news, ai := happyPathDeps()
	news.fn = func(ctx context.Context, query string, limit int) ([]entity.NewsItem, error) {
		return nil, entity.ErrNewsUnavailable
	}
	var capturedReq *dto.MarketAnalysisRequest
	ai.marketFn = func(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error) {
		capturedReq = req
		return marketResult(), nil
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})
	require.NoError(t, err)

	assert.True(t, record.NewsDegraded)
	assert.Empty(t, record.News)
	assert.True(t, record.Partial())
	require.NotNil(t, capturedReq)
	assert.True(t, capturedReq.NewsDegraded)
	assert.Empty(t, capturedReq.News)
}

func TestRunMalformedModelResponseRetriedExactlyOnceWithSimplifiedPrompt(t *testing.T) {
	market, news, ai := happyPathDeps()
	var simplifiedFlags []bool
	ai.marketFn = func(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error) {
		simplifiedFlags = append(simplifiedFlags, simplified)
		return nil, entity.ErrModelResponseMalformed
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	_, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})

	var pipelineErr *entity.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, entity.FailureModelMalformed, pipelineErr.Kind)
	require.Equal(t, []bool{false, true}, simplifiedFlags)
}

func TestRunMalformedModelResponseRecoversOnRetry(t *testing.T) {
	market, news, ai := happyPathDeps()
	ai.marketFn = func(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error) {
		if !simplified {
			return nil, entity.ErrModelResponseMalformed
		}
		return marketResult(), nil
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})
	require.NoError(t, err)
	assert.Equal(t, entity.SentimentBullish, record.Sentiment.Label)
	assert.Equal(t, 2, ai.marketCalls)
}

func TestRunUnsupportedImageNeverFailsTheRun(t *testing.T) {
	market, news, ai := happyPathDeps()
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{
		Question:       "AAPL",
		Image:          []byte("not really a gif"),
		ImageMediaType: "image/gif",
	})
	require.NoError(t, err)

	assert.False(t, record.Chart.Present)
	assert.Contains(t, record.Chart.AbsenceReason, "not a supported raster image format")
	assert.True(t, record.Partial())
	assert.Equal(t, 0, ai.chartCalls)
}

func TestRunOversizedImageSkipsChartAnalysis(t *testing.T) {
	market, news, ai := happyPathDeps()
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{
		Question:       "AAPL",
		Image:          make([]byte, 2048),
		ImageMediaType: "image/png",
	})
	require.NoError(t, err)

	assert.False(t, record.Chart.Present)
	assert.Contains(t, record.Chart.AbsenceReason, "byte limit")
	assert.Equal(t, 0, ai.chartCalls)
}

func TestRunChartAnalysisFailureProducesPartialRecord(t *testing.T) {
	market, news, ai := happyPathDeps()
	var strictFlags []bool
	ai.chartFn = func(ctx context.Context, image []byte, mediaType, symbol string, strict bool) (*dto.ChartAnalysisResult, error) {
		strictFlags = append(strictFlags, strict)
		return nil, entity.ErrModelResponseMalformed
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{
		Question:       "PLTR",
		Image:          []byte("png bytes"),
		ImageMediaType: "image/png",
	})
	require.NoError(t, err)

	assert.False(t, record.Chart.Present)
	assert.NotEmpty(t, record.Chart.AbsenceReason)
	assert.True(t, record.Partial())
	require.Equal(t, []bool{false, true}, strictFlags)
}

func TestRunChartAnalysisSuccess(t *testing.T) {
	market, news, ai := happyPathDeps()
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{
		Question:       "PLTR",
		Image:          []byte("png bytes"),
		ImageMediaType: "image/png",
	})
	require.NoError(t, err)

	require.True(t, record.Chart.Present)
	require.NotNil(t, record.Chart.Result)
	assert.Equal(t, entity.SentimentBullish, record.Chart.Result.TrendBias)
	assert.False(t, record.Partial())
	assert.Equal(t, 1, ai.chartCalls)
}

func TestRunIsDeterministicWithDeterministicModel(t *testing.T) {
	market, news, ai := happyPathDeps()
	orchestrator := newTestOrchestrator(t, market, news, ai)

	first, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})
	require.NoError(t, err)
	second, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})
	require.NoError(t, err)

	assert.Equal(t, first.Sentiment, second.Sentiment)
	assert.Equal(t, first.Trend, second.Trend)
}

func TestRunPassesBoundedHeadlineCountToNewsFetch(t *testing.T) {
	market, news, ai := happyPathDeps()
	var capturedLimit int
	news.fn = func(ctx context.Context, query string, limit int) ([]entity.NewsItem, error) {
		capturedLimit = limit
		return nil, nil
	}
	orchestrator := newTestOrchestrator(t, market, news, ai)

	record, err := orchestrator.Run(context.Background(), entity.UserRequest{Question: "PLTR"})
	require.NoError(t, err)

	assert.Equal(t, 5, capturedLimit)
	// An empty news sequence is valid coverage, not a degraded fetch.
	assert.False(t, record.NewsDegraded)
	assert.False(t, record.Partial())
}
