package telegram

import (
	"fmt"
	"strings"
	"time"

	"smartstock-analyst/internal/entity"
)

// FormatAnalysisMessage formats a completed analysis record into a Markdown
// summary for Telegram.
func FormatAnalysisMessage(record *entity.AnalysisRecord) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 *Stock Analysis: %s*\n", record.Ticker.Symbol))
	b.WriteString(fmt.Sprintf("%s (%s)\n\n", record.Ticker.CompanyName, record.Ticker.Exchange))

	b.WriteString(fmt.Sprintf("💵 *Price:* %.2f %s (%+.2f%% today)\n", record.Price.CurrentPrice, record.Ticker.Currency, record.Price.DailyChangePct))
	if record.Price.WeeklyAvailable {
		b.WriteString(fmt.Sprintf("📅 *Weekly:* %+.2f%%\n", record.Price.WeeklyChangePct))
	} else {
		b.WriteString("📅 *Weekly:* insufficient history\n")
	}

	var sentimentIcon string
	switch record.Sentiment.Label {
	case entity.SentimentBullish:
		sentimentIcon = "😊"
	case entity.SentimentBearish:
		sentimentIcon = "😟"
	default:
		sentimentIcon = "😐"
	}
	b.WriteString(fmt.Sprintf("%s *Sentiment:* %s\n", sentimentIcon, record.Sentiment.Label))
	b.WriteString(fmt.Sprintf("📊 *Trend:* %s\n\n", record.Trend.Trend))
	b.WriteString(fmt.Sprintf("💡 %s\n", record.Trend.InvestorInsight))

	if record.Partial() {
		b.WriteString("\n⚠️ _Partial result: one or more optional sections were unavailable._\n")
	}

	return b.String()
}

// FormatErrorAlertMessage formats an error alert for Telegram.
func FormatErrorAlertMessage(t time.Time, message string) string {
	return fmt.Sprintf("🚨 *Analysis Alert* 🚨\n\n*Time:* %s\n*Message:* %s", t.Format("2006-01-02 15:04:05"), message)
}
