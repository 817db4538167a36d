// Package feed fetches news headlines from RSS and Atom feeds.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
	"github.com/mmcdole/gofeed"
)

// maxFeedBytes caps how much of a feed body is read.
const maxFeedBytes = 4 << 20

// Client implements domain.HeadlineFetcher over HTTP. It never returns an
// error: unreachable feeds, bad status codes and malformed documents all
// produce an empty slice.
type Client struct {
	httpClient *http.Client
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client whose requests are bounded by timeout.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "unrest-risk-service/1.0",
		metrics:   metrics,
		logger:    logger,
	}
}

// FetchHeadlines returns at most limit headlines from feedURL in feed order.
func (c *Client) FetchHeadlines(ctx context.Context, feedURL string, limit int) []domain.Headline {
	if feedURL == "" || limit <= 0 {
		return []domain.Headline{}
	}

	start := time.Now()
	headlines, err := c.fetch(ctx, feedURL, limit)
	c.metrics.FeedAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		c.logger.Warn("headline fetch failed", "feed_url", feedURL, "error", err)
		return []domain.Headline{}
	case len(headlines) == 0:
		c.metrics.FeedRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.FeedRequests.WithLabelValues("success").Inc()
	}
	return headlines
}

func (c *Client) fetch(ctx context.Context, feedURL string, limit int) ([]domain.Headline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed error: status %d: %s", resp.StatusCode, body)
	}

	return parse(io.LimitReader(resp.Body, maxFeedBytes), limit)
}

// parse decodes RSS 0.9x/1.0/2.0, Atom and JSON Feed documents. Items
// without a title are skipped.
func parse(r io.Reader, limit int) ([]domain.Headline, error) {
	f, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	headlines := make([]domain.Headline, 0, min(limit, len(f.Items)))
	for _, it := range f.Items {
		if len(headlines) >= limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		headlines = append(headlines, domain.Headline{
			Title:     title,
			Link:      strings.TrimSpace(it.Link),
			Published: published(it),
		})
	}
	return headlines, nil
}

// published falls back to the updated time and returns the zero time when
// the feed carries neither.
func published(it *gofeed.Item) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC()
	default:
		return time.Time{}
	}
}
