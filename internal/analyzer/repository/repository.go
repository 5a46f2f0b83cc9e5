package repository

import (
	"context"

	"smartstock-analyst/internal/analyzer/dto"
	"smartstock-analyst/internal/entity"
)

// MarketDataRepository resolves ticker symbols and retrieves price history
// from the market-data provider.
type MarketDataRepository interface {
	// Lookup confirms the symbol resolves to a tradable instrument.
	// Returns entity.ErrTickerNotFound when the symbol does not exist and
	// entity.ErrProviderUnavailable on transient provider failure.
	Lookup(ctx context.Context, symbol string) (*entity.ValidatedTicker, error)
	// GetPriceSummary computes current price and daily/weekly movement
	// from recent closing prices. Returns entity.ErrDataUnavailable on an
	// empty series and entity.ErrProviderUnavailable on provider failure.
	GetPriceSummary(ctx context.Context, symbol string) (*entity.PriceSummary, error)
}

// NewsRepository retrieves recent headlines for a company. An empty result
// is valid and means "no recent coverage".
type NewsRepository interface {
	GetHeadlines(ctx context.Context, query string, limit int) ([]entity.NewsItem, error)
}

// AIRepository wraps the language-model provider behind fixed response
// schemas. Parse failures surface entity.ErrModelResponseMalformed.
type AIRepository interface {
	// ExtractTicker is the model fallback for pulling a ticker symbol out
	// of free-form text when pattern matching finds none.
	ExtractTicker(ctx context.Context, text string) (string, error)
	// AnalyzeMarket runs the combined sentiment and trend analysis in one
	// model call. The simplified flag selects the stripped-down retry
	// prompt.
	AnalyzeMarket(ctx context.Context, req *dto.MarketAnalysisRequest, simplified bool) (*dto.MarketAnalysisResult, error)
	// AnalyzeChart runs the vision analysis of an uploaded chart image.
	// The strict flag selects the stricter retry prompt.
	AnalyzeChart(ctx context.Context, image []byte, mediaType, symbol string, strict bool) (*dto.ChartAnalysisResult, error)
}
