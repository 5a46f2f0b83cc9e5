package service

import (
	"time"

	"smartstock-analyst/internal/entity"
)

// AssembleInput carries every result produced by a pipeline run.
type AssembleInput struct {
	Ticker       entity.ValidatedTicker
	Price        entity.PriceSummary
	News         []entity.NewsItem
	NewsDegraded bool
	Trend        entity.TrendResult
	Sentiment    entity.SentimentResult
	Chart        entity.ChartSection
}

// ReportAssembler merges the results of one run into the canonical
// AnalysisRecord. A pure merge: nothing already computed is dropped, and a
// missing optional section stays explicitly absent.
type ReportAssembler interface {
	Assemble(in AssembleInput) *entity.AnalysisRecord
}

type reportAssembler struct {
	now func() time.Time
}

// NewReportAssembler creates a new ReportAssembler.
func NewReportAssembler() ReportAssembler {
	return &reportAssembler{now: time.Now}
}

func (a *reportAssembler) Assemble(in AssembleInput) *entity.AnalysisRecord {
	return &entity.AnalysisRecord{
		Ticker:       in.Ticker,
		Price:        in.Price,
		News:         in.News,
		NewsDegraded: in.NewsDegraded,
		Trend:        in.Trend,
		Sentiment:    in.Sentiment,
		Chart:        in.Chart,
		GeneratedAt:  a.now().UTC(),
	}
}
