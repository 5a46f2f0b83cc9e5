package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"smartstock-analyst/internal/analyzer/config"
	"smartstock-analyst/internal/entity"
	"smartstock-analyst/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// googleNewsRepository is an implementation of NewsRepository that reads
// the Google News RSS search feed.
type googleNewsRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client
}

// NewGoogleNewsRepository creates a new instance of googleNewsRepository.
func NewGoogleNewsRepository(cfg *config.Config, log *logger.Logger) NewsRepository {
	return &googleNewsRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: cfg.News.RequestTimeout,
		},
	}
}

// GetHeadlines fetches recent headlines for the given company query,
// most recent first, bounded to limit.
func (r *googleNewsRepository) GetHeadlines(ctx context.Context, query string, limit int) ([]entity.NewsItem, error) {
	feedURL := fmt.Sprintf("%s/search?q=%s&hl=en-US&gl=US&ceid=US:en",
		r.cfg.News.BaseURL, url.QueryEscape(query+" stock"))

	fp := gofeed.NewParser()
	fp.Client = r.httpClient

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		r.log.Error("Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("query", query))
		return nil, fmt.Errorf("%w: %v", entity.ErrNewsUnavailable, err)
	}

	items := make([]entity.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		headline, source := splitHeadline(stripHTML(item.Title))
		if headline == "" {
			continue
		}
		publishedAt := time.Time{}
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC()
		}
		if source == "" {
			source = stripHTML(feed.Title)
		}
		items = append(items, entity.NewsItem{
			Headline:    headline,
			PublishedAt: publishedAt,
			Source:      source,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// splitHeadline separates the publisher suffix Google News appends to
// titles ("Headline - Publisher").
func splitHeadline(title string) (headline, source string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}

// stripHTML flattens any markup the feed carries into plain text.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
