package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"smartstock-analyst/internal/entity"

	"github.com/go-pdf/fpdf"
)

// ReportRenderer turns a completed AnalysisRecord into a downloadable PDF
// document.
type ReportRenderer interface {
	Render(record *entity.AnalysisRecord) ([]byte, error)
}

type reportRenderer struct{}

// NewReportRenderer creates a new ReportRenderer.
func NewReportRenderer() ReportRenderer {
	return &reportRenderer{}
}

// Render lays out the report: title, price metadata, trend, sentiment and
// the chart section when present. Absent sections are stated as absent,
// never padded with placeholder analysis.
func (r *reportRenderer) Render(record *entity.AnalysisRecord) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	doc.SetFont("Arial", "B", 16)
	doc.MultiCell(0, 8, fmt.Sprintf("Stock Analysis Report: %s", record.Ticker.Symbol), "", "L", false)
	doc.Ln(4)

	doc.SetFont("Arial", "", 10)
	doc.MultiCell(0, 5, fmt.Sprintf("Generated on: %s", record.GeneratedAt.Format("2006-01-02 15:04 MST")), "", "L", false)
	doc.MultiCell(0, 5, fmt.Sprintf("%s (%s)", record.Ticker.CompanyName, record.Ticker.Exchange), "", "L", false)
	doc.MultiCell(0, 5, fmt.Sprintf("Current Price: %.2f %s (%+.2f%% today)", record.Price.CurrentPrice, record.Ticker.Currency, record.Price.DailyChangePct), "", "L", false)
	doc.MultiCell(0, 5, weeklyLine(record.Price), "", "L", false)
	if record.Partial() {
		doc.SetFont("Arial", "I", 9)
		doc.MultiCell(0, 5, "Note: this is a partial report; one or more optional sections were unavailable.", "", "L", false)
		doc.SetFont("Arial", "", 10)
	}
	doc.Ln(4)

	r.section(doc, "Trend Analysis", strings.Join([]string{
		fmt.Sprintf("%s - overall trend: %s.", record.Trend.CompanyFullName, record.Trend.Trend),
		record.Trend.NewsConnection,
		record.Trend.InvestorInsight,
	}, "\n"))

	sentimentBody := fmt.Sprintf("Sentiment: %s.\n%s", record.Sentiment.Label, record.Sentiment.Narrative)
	if len(record.Sentiment.HeadlineReferences) > 0 {
		sentimentBody += "\nInfluencing headlines:\n- " + strings.Join(record.Sentiment.HeadlineReferences, "\n- ")
	}
	r.section(doc, "Sentiment Analysis", sentimentBody)

	if record.Chart.Present && record.Chart.Result != nil {
		chart := record.Chart.Result
		var chartBody strings.Builder
		chartBody.WriteString(fmt.Sprintf("Trend bias: %s.\n", chart.TrendBias))
		if chart.MovingAverages != "" {
			chartBody.WriteString(fmt.Sprintf("Moving averages: %s\n", chart.MovingAverages))
		}
		if chart.RSI != "" {
			chartBody.WriteString(fmt.Sprintf("RSI: %s\n", chart.RSI))
		}
		if len(chart.Patterns) > 0 {
			chartBody.WriteString("Patterns: " + strings.Join(chart.Patterns, ", ") + "\n")
		}
		chartBody.WriteString(chart.Analysis)
		r.section(doc, "Chart Analysis", chartBody.String())
	} else if record.Chart.AbsenceReason != "" {
		r.section(doc, "Chart Analysis", "Chart analysis is not included in this report: "+record.Chart.AbsenceReason)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *reportRenderer) section(doc *fpdf.Fpdf, title, body string) {
	doc.SetFont("Arial", "B", 12)
	doc.MultiCell(0, 7, title, "", "L", false)
	doc.SetFont("Arial", "", 10)
	doc.MultiCell(0, 5, body, "", "L", false)
	doc.Ln(4)
}

func weeklyLine(price entity.PriceSummary) string {
	if !price.WeeklyAvailable {
		return "Weekly Change: insufficient history"
	}
	direction := "gained"
	if price.WeeklyChangePct < 0 {
		direction = "lost"
	}
	pct := price.WeeklyChangePct
	if pct < 0 {
		pct = -pct
	}
	return fmt.Sprintf("Weekly Change: %s %.2f%%", direction, pct)
}
