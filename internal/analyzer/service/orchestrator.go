package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smartstock-analyst/internal/analyzer/config"
	"smartstock-analyst/internal/analyzer/dto"
	"smartstock-analyst/internal/analyzer/repository"
	"smartstock-analyst/internal/entity"
	"smartstock-analyst/pkg/logger"
	"smartstock-analyst/pkg/utils"
)

// Orchestrator runs the analysis pipeline for one user request: extract,
// validate, fetch, analyze, assemble. Each run is independent and owns its
// own record; the orchestrator keeps no state across runs.
type Orchestrator interface {
	// Run returns a completed AnalysisRecord or a *entity.PipelineError
	// carrying the terminal failure kind.
	Run(ctx context.Context, req entity.UserRequest) (*entity.AnalysisRecord, error)
}

type orchestrator struct {
	cfg        *config.Config
	log        *logger.Logger
	extractor  TickerExtractor
	marketData repository.MarketDataRepository
	news       repository.NewsRepository
	aiRepo     repository.AIRepository
	assembler  ReportAssembler
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	cfg *config.Config,
	log *logger.Logger,
	extractor TickerExtractor,
	marketData repository.MarketDataRepository,
	news repository.NewsRepository,
	aiRepo repository.AIRepository,
	assembler ReportAssembler,
) Orchestrator {
	return &orchestrator{
		cfg:        cfg,
		log:        log,
		extractor:  extractor,
		marketData: marketData,
		news:       news,
		aiRepo:     aiRepo,
		assembler:  assembler,
	}
}

func (o *orchestrator) Run(ctx context.Context, req entity.UserRequest) (*entity.AnalysisRecord, error) {
	state := entity.StateStart

	// Extracting
	o.transition(ctx, &state, entity.StateExtracting)
	candidate, err := o.extractor.Extract(ctx, req.Question)
	if err != nil {
		o.fail(ctx, &state, entity.FailureExtraction, err)
		return nil, entity.NewPipelineError(entity.FailureExtraction, err)
	}

	// Validating: a transient lookup failure is retried once before the
	// run fails; a not-found answer is terminal immediately.
	o.transition(ctx, &state, entity.StateValidating)
	ticker, err := o.lookupWithRetry(ctx, candidate.Symbol)
	if err != nil {
		kind := entity.FailureProviderUnavailable
		if errors.Is(err, entity.ErrTickerNotFound) {
			kind = entity.FailureInvalidTicker
		}
		o.fail(ctx, &state, kind, err)
		return nil, entity.NewPipelineError(kind, err)
	}

	// FetchingData: market data and news fetch run concurrently. A news
	// failure degrades to an empty sequence; a market-data failure is
	// fatal because no analysis is possible without price data.
	o.transition(ctx, &state, entity.StateFetchingData)
	var (
		wg           sync.WaitGroup
		price        *entity.PriceSummary
		priceErr     error
		newsItems    []entity.NewsItem
		newsDegraded bool
	)
	wg.Add(2)
	utils.GoSafe(func() {
		defer wg.Done()
		price, priceErr = o.priceWithRetry(ctx, ticker.Symbol)
	})
	utils.GoSafe(func() {
		defer wg.Done()
		items, err := o.news.GetHeadlines(ctx, ticker.CompanyName, o.cfg.News.MaxHeadlines)
		if err != nil {
			o.log.Warn("News fetch failed, continuing with price-only sentiment", logger.ErrorField(err), logger.StringField("symbol", ticker.Symbol))
			newsDegraded = true
			return
		}
		newsItems = items
	})
	wg.Wait()

	if priceErr != nil {
		o.fail(ctx, &state, entity.FailureDataUnavailable, priceErr)
		return nil, entity.NewPipelineError(entity.FailureDataUnavailable, priceErr)
	}

	// Analyzing (+ AnalyzingChart): the two model calls are independent of
	// each other once price and news are in, so they run concurrently.
	// Chart failures never fail the run.
	o.transition(ctx, &state, entity.StateAnalyzing)
	var (
		analysisWg  sync.WaitGroup
		market      *dto.MarketAnalysisResult
		marketErr   error
		chart       entity.ChartSection
	)
	analysisWg.Add(1)
	utils.GoSafe(func() {
		defer analysisWg.Done()
		market, marketErr = o.analyzeMarketWithRetry(ctx, &dto.MarketAnalysisRequest{
			Ticker:       *ticker,
			Price:        *price,
			News:         newsItems,
			NewsDegraded: newsDegraded,
		})
	})
	if req.HasImage() {
		o.transition(ctx, &state, entity.StateAnalyzingChart)
		analysisWg.Add(1)
		utils.GoSafe(func() {
			defer analysisWg.Done()
			chart = o.analyzeChart(ctx, req, ticker.Symbol)
		})
	}
	analysisWg.Wait()

	if marketErr != nil {
		kind := entity.FailureProviderUnavailable
		if errors.Is(marketErr, entity.ErrModelResponseMalformed) {
			kind = entity.FailureModelMalformed
		}
		o.fail(ctx, &state, kind, marketErr)
		return nil, entity.NewPipelineError(kind, marketErr)
	}

	// Assembling: pure merge of already-validated components.
	o.transition(ctx, &state, entity.StateAssembling)
	record := o.assembler.Assemble(AssembleInput{
		Ticker:       *ticker,
		Price:        *price,
		News:         newsItems,
		NewsDegraded: newsDegraded,
		Trend: entity.TrendResult{
			CompanyFullName: market.CompanyFullName,
			Trend:           market.Trend,
			NewsConnection:  market.NewsConnection,
			InvestorInsight: market.InvestorInsight,
		},
		Sentiment: entity.SentimentResult{
			Label:              market.Sentiment,
			Narrative:          market.SentimentNarrative,
			HeadlineReferences: market.HeadlineReferences,
		},
		Chart: chart,
	})

	o.transition(ctx, &state, entity.StateDone)
	return record, nil
}

func (o *orchestrator) lookupWithRetry(ctx context.Context, symbol string) (*entity.ValidatedTicker, error) {
	ticker, err := o.marketData.Lookup(ctx, symbol)
	if err == nil || !errors.Is(err, entity.ErrProviderUnavailable) {
		return ticker, err
	}

	o.log.Warn("Ticker lookup failed, retrying once", logger.ErrorField(err), logger.StringField("symbol", symbol))
	if err := o.waitRetry(ctx); err != nil {
		return nil, err
	}
	return o.marketData.Lookup(ctx, symbol)
}

func (o *orchestrator) priceWithRetry(ctx context.Context, symbol string) (*entity.PriceSummary, error) {
	price, err := o.marketData.GetPriceSummary(ctx, symbol)
	if err == nil {
		return price, nil
	}

	o.log.Warn("Price fetch failed, retrying once", logger.ErrorField(err), logger.StringField("symbol", symbol))
	if err := o.waitRetry(ctx); err != nil {
		return nil, err
	}
	return o.marketData.GetPriceSummary(ctx, symbol)
}

// analyzeMarketWithRetry retries a malformed or failed model response
// exactly once with the simplified prompt before giving up.
func (o *orchestrator) analyzeMarketWithRetry(ctx context.Context, req *dto.MarketAnalysisRequest) (*dto.MarketAnalysisResult, error) {
	result, err := o.aiRepo.AnalyzeMarket(ctx, req, false)
	if err == nil {
		return result, nil
	}

	o.log.Warn("Market analysis failed, retrying once with simplified prompt", logger.ErrorField(err), logger.StringField("symbol", req.Ticker.Symbol))
	return o.aiRepo.AnalyzeMarket(ctx, req, true)
}

// analyzeChart runs the optional chart branch. Every failure path returns
// an absent section with a reason instead of an error: the rest of the
// pipeline still completes.
func (o *orchestrator) analyzeChart(ctx context.Context, req entity.UserRequest, symbol string) entity.ChartSection {
	if reason := o.validateImage(req); reason != "" {
		o.log.Warn("Chart image rejected", logger.StringField("reason", reason), logger.StringField("symbol", symbol))
		return entity.ChartSection{AbsenceReason: reason}
	}

	result, err := o.aiRepo.AnalyzeChart(ctx, req.Image, req.ImageMediaType, symbol, false)
	if err != nil {
		o.log.Warn("Chart analysis failed, retrying once with stricter prompt", logger.ErrorField(err), logger.StringField("symbol", symbol))
		result, err = o.aiRepo.AnalyzeChart(ctx, req.Image, req.ImageMediaType, symbol, true)
	}
	if err != nil {
		o.log.Warn("Chart analysis unavailable after retry", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return entity.ChartSection{AbsenceReason: "chart analysis unavailable: the model did not return an actionable result"}
	}

	return entity.ChartSection{
		Present: true,
		Result: &entity.ChartResult{
			TrendBias:      result.TrendBias,
			MovingAverages: result.MovingAverages,
			RSI:            result.RSI,
			Patterns:       result.Patterns,
			Analysis:       result.Analysis,
		},
	}
}

func (o *orchestrator) validateImage(req entity.UserRequest) string {
	if int64(len(req.Image)) > o.cfg.Chart.MaxImageSizeBytes {
		return fmt.Sprintf("%v: image of %d bytes exceeds the %d byte limit", entity.ErrUnsupportedImage, len(req.Image), o.cfg.Chart.MaxImageSizeBytes)
	}
	for _, allowed := range o.cfg.Chart.AllowedMediaTypes {
		if req.ImageMediaType == allowed {
			return ""
		}
	}
	return fmt.Sprintf("%v: media type %q is not a supported raster image format", entity.ErrUnsupportedImage, req.ImageMediaType)
}

func (o *orchestrator) waitRetry(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.cfg.Pipeline.RetryInterval):
		return nil
	}
}

func (o *orchestrator) transition(ctx context.Context, state *entity.RunState, next entity.RunState) {
	o.log.DebugContext(ctx, "Pipeline state transition",
		logger.StringField("from", string(*state)),
		logger.StringField("to", string(next)),
	)
	*state = next
}

func (o *orchestrator) fail(ctx context.Context, state *entity.RunState, kind entity.FailureKind, err error) {
	o.log.Error("Pipeline run failed",
		logger.StringField("state", string(*state)),
		logger.StringField("kind", string(kind)),
		logger.ErrorField(err),
	)
	*state = entity.StateFailed
}
