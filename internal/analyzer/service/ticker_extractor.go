package service

import (
	"context"
	"fmt"
	"regexp"

	"smartstock-analyst/internal/analyzer/repository"
	"smartstock-analyst/internal/entity"
	"smartstock-analyst/pkg/logger"
)

// candidatePattern matches uppercase tokens of 1-5 alphanumeric characters,
// the shape of a ticker symbol.
var candidatePattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]{0,4}\b`)

// commonWords are uppercase tokens that look like tickers but almost never
// are one in a user question. A real ticker colliding with this list still
// reaches the validator through the model fallback.
var commonWords = map[string]struct{}{
	"A": {}, "AN": {}, "AND": {}, "ARE": {}, "AT": {}, "BUY": {}, "CAN": {},
	"DO": {}, "FOR": {}, "GET": {}, "HOW": {}, "I": {}, "IN": {}, "IS": {},
	"IT": {}, "ME": {}, "MY": {}, "NOW": {}, "OF": {}, "ON": {}, "OR": {},
	"SELL": {}, "SO": {}, "THE": {}, "TO": {}, "UP": {}, "US": {},
	"WHAT": {}, "WHY": {}, "WITH": {}, "YOU": {},
}

// TickerExtractor parses free-form input text into a candidate ticker
// symbol, falling back to the language model when pattern matching finds
// nothing.
type TickerExtractor interface {
	Extract(ctx context.Context, text string) (*entity.TickerCandidate, error)
}

type tickerExtractor struct {
	log    *logger.Logger
	aiRepo repository.AIRepository
}

// NewTickerExtractor creates a new TickerExtractor.
func NewTickerExtractor(log *logger.Logger, aiRepo repository.AIRepository) TickerExtractor {
	return &tickerExtractor{
		log:    log,
		aiRepo: aiRepo,
	}
}

// Extract returns the first plausible ticker candidate found in the text.
// Existence is not checked here; that is the validator's job.
func (e *tickerExtractor) Extract(ctx context.Context, text string) (*entity.TickerCandidate, error) {
	for _, token := range candidatePattern.FindAllString(text, -1) {
		if _, ok := commonWords[token]; ok {
			continue
		}
		return &entity.TickerCandidate{Symbol: token}, nil
	}

	e.log.DebugContext(ctx, "No ticker candidate from pattern matching, trying model fallback", logger.StringField("text", text))

	symbol, err := e.aiRepo.ExtractTicker(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("no ticker candidate could be extracted: %w", err)
	}

	return &entity.TickerCandidate{Symbol: symbol, FromModel: true}, nil
}
