package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"signalhub/internal/config"
	"signalhub/internal/domain"
	"signalhub/internal/ports"
	"signalhub/internal/retry"
)

// Client fetches articles from the upstream crypto news API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
	retry   retry.Config
}

var _ ports.NewsSource = (*Client)(nil)

// NewClient builds a news client from configuration; logger may be nil.
func NewClient(cfg config.NewsConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.FetchTimeout.Std()},
		logger:  logger,
		retry:   retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
}

// TrendingNews fetches the current trending articles.
func (c *Client) TrendingNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	return c.fetch(ctx, "/category", limit)
}

// LatestNews fetches the most recent articles.
func (c *Client) LatestNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	return c.fetch(ctx, "/latest", limit)
}

type wireArticle struct {
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	NewsURL    string   `json:"news_url"`
	Date       string   `json:"date"`
	SourceName string   `json:"source_name"`
	ImageURL   string   `json:"image_url"`
	Sentiment  string   `json:"sentiment"`
	Topics     []string `json:"topics"`
}

type wireResponse struct {
	Data []wireArticle `json:"data"`
}

func (c *Client) fetch(ctx context.Context, path string, limit int) ([]domain.NewsItem, error) {
	params := url.Values{}
	params.Set("token", c.apiKey)
	params.Set("items", strconv.Itoa(limit))
	params.Set("page", "1")
	endpoint := c.baseURL + path + "?" + params.Encode()

	var parsed wireResponse
	err := retry.Do(ctx, c.retry, func() error {
		return c.getJSON(ctx, endpoint, &parsed)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", path, err)
	}

	items := make([]domain.NewsItem, 0, len(parsed.Data))
	for _, a := range parsed.Data {
		items = append(items, domain.NewsItem{
			Title:       a.Title,
			Content:     stripHTML(a.Text),
			URL:         a.NewsURL,
			PublishedAt: a.Date,
			SourceName:  a.SourceName,
			ImageURL:    a.ImageURL,
			Sentiment:   sentimentOrNeutral(a.Sentiment),
			Topics:      a.Topics,
		})
	}

	c.logger.Debug("fetched news items", "path", path, "count", len(items))
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("news api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stripHTML flattens article bodies the upstream occasionally delivers as
// HTML fragments.
func stripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func sentimentOrNeutral(s string) string {
	if strings.TrimSpace(s) == "" {
		return "neutral"
	}
	return s
}
