package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartstock-analyst/internal/analyzer/config"
	"smartstock-analyst/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsFeedBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>"Palantir stock" - Google News</title>
<item>
<title>Palantir wins new government contract - Reuters</title>
<pubDate>Mon, 10 Jun 2024 14:00:00 GMT</pubDate>
</item>
<item>
<title>&lt;b&gt;Palantir&lt;/b&gt; shares climb after earnings beat - Bloomberg</title>
<pubDate>Wed, 12 Jun 2024 09:30:00 GMT</pubDate>
</item>
<item>
<title>Analysts split on Palantir valuation - CNBC</title>
<pubDate>Tue, 11 Jun 2024 16:45:00 GMT</pubDate>
</item>
<item>
<title>Palantir headline without publisher suffix</title>
<pubDate>Sun, 09 Jun 2024 08:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func newsTestConfig(baseURL string) *config.Config {
	return &config.Config{
		News: config.News{
			BaseURL:        baseURL,
			MaxHeadlines:   10,
			RequestTimeout: 5 * time.Second,
		},
	}
}

func TestGetHeadlinesOrdersMostRecentFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Palantir Technologies Inc. stock", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, newsFeedBody)
	}))
	defer server.Close()

	repo := NewGoogleNewsRepository(newsTestConfig(server.URL), testLogger(t))
	items, err := repo.GetHeadlines(context.Background(), "Palantir Technologies Inc.", 10)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Palantir shares climb after earnings beat", items[0].Headline)
	assert.Equal(t, "Bloomberg", items[0].Source)
	assert.Equal(t, "Analysts split on Palantir valuation", items[1].Headline)
	assert.Equal(t, "Palantir wins new government contract", items[2].Headline)
	assert.Equal(t, "Reuters", items[2].Source)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].PublishedAt.After(items[i-1].PublishedAt))
	}
}

func TestGetHeadlinesBoundedByLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newsFeedBody)
	}))
	defer server.Close()

	repo := NewGoogleNewsRepository(newsTestConfig(server.URL), testLogger(t))
	items, err := repo.GetHeadlines(context.Background(), "Palantir", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// The bound keeps the most recent headlines.
	assert.Equal(t, "Palantir shares climb after earnings beat", items[0].Headline)
	assert.Equal(t, "Analysts split on Palantir valuation", items[1].Headline)
}

func TestGetHeadlinesFallsBackToFeedTitleAsSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newsFeedBody)
	}))
	defer server.Close()

	repo := NewGoogleNewsRepository(newsTestConfig(server.URL), testLogger(t))
	items, err := repo.GetHeadlines(context.Background(), "Palantir", 10)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Palantir headline without publisher suffix", items[3].Headline)
	assert.Equal(t, `"Palantir stock" - Google News`, items[3].Source)
}

func TestGetHeadlinesFeedErrorIsNewsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	repo := NewGoogleNewsRepository(newsTestConfig(server.URL), testLogger(t))
	_, err := repo.GetHeadlines(context.Background(), "Palantir", 10)
	require.ErrorIs(t, err, entity.ErrNewsUnavailable)
}
