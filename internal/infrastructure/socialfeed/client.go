package socialfeed

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

	"signalhub/internal/config"
	"signalhub/internal/domain"
	"signalhub/internal/ports"
	"signalhub/internal/retry"
)

const perAccountRecent = 5

// Client fetches posts from the upstream social API for a fixed set of
// monitored accounts.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	accounts    []string
	http        *http.Client
	logger      *slog.Logger
	retry       retry.Config
}

var _ ports.SocialSource = (*Client)(nil)

// NewClient builds a social client from configuration; logger may be nil.
func NewClient(cfg config.SocialConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		accounts:    cfg.Accounts,
		http:        &http.Client{Timeout: cfg.FetchTimeout.Std()},
		logger:      logger,
		retry:       retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
}

// LatestPosts fetches the newest posts across all monitored accounts, the
// limit split evenly between them.
func (c *Client) LatestPosts(ctx context.Context, limit int) ([]domain.SocialItem, error) {
	if len(c.accounts) == 0 {
		return nil, nil
	}

	perAccount := limit / len(c.accounts)
	if perAccount < 1 {
		perAccount = 1
	}

	var all []domain.SocialItem
	var lastErr error
	for _, account := range c.accounts {
		posts, err := c.userPosts(ctx, account, perAccount)
		if err != nil {
			// One dead account must not sink the whole fetch.
			c.logger.Warn("account fetch failed", "account", account, "error", err)
			lastErr = err
			continue
		}
		all = append(all, posts...)
	}

	if len(all) == 0 && lastErr != nil {
		return nil, fmt.Errorf("fetch latest posts: %w", lastErr)
	}
	return all, nil
}

// SearchPosts returns posts matching any of the keywords: a direct search
// plus a keyword-filtered pass over recent account feeds, deduplicated by
// post id.
func (c *Client) SearchPosts(ctx context.Context, keywords []string, limit int) ([]domain.SocialItem, error) {
	query := strings.Join(keywords, " OR ")

	found, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}

	seen := make(map[string]struct{}, len(found))
	for _, p := range found {
		seen[p.ID] = struct{}{}
	}

	recent, err := c.LatestPosts(ctx, perAccountRecent*len(c.accounts))
	if err != nil {
		// The direct search already succeeded; serve what we have.
		c.logger.Warn("recent feed pass failed", "error", err)
		return found, nil
	}

	for _, p := range recent {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		if matchesAny(p.Text, keywords) {
			seen[p.ID] = struct{}{}
			found = append(found, p)
		}
	}

	return found, nil
}

type wireMetrics struct {
	RetweetCount int `json:"retweet_count"`
	LikeCount    int `json:"like_count"`
	ReplyCount   int `json:"reply_count"`
	QuoteCount   int `json:"quote_count"`
}

type wirePost struct {
	ID            string      `json:"id"`
	Text          string      `json:"text"`
	AuthorID      string      `json:"author_id"`
	Username      string      `json:"username"`
	CreatedAt     string      `json:"created_at"`
	PublicMetrics wireMetrics `json:"public_metrics"`
}

type wireResponse struct {
	Data []wirePost `json:"data"`
}

func (c *Client) userPosts(ctx context.Context, account string, limit int) ([]domain.SocialItem, error) {
	endpoint := fmt.Sprintf("%s/user/%s/tweets?max_results=%d", c.baseURL, url.PathEscape(account), limit)
	return c.fetchPosts(ctx, endpoint, account)
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]domain.SocialItem, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(limit))
	endpoint := c.baseURL + "/search?" + params.Encode()
	return c.fetchPosts(ctx, endpoint, "")
}

func (c *Client) fetchPosts(ctx context.Context, endpoint, fallbackUsername string) ([]domain.SocialItem, error) {
	var parsed wireResponse
	err := retry.Do(ctx, c.retry, func() error {
		return c.getJSON(ctx, endpoint, &parsed)
	})
	if err != nil {
		return nil, err
	}

	posts := make([]domain.SocialItem, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		username := p.Username
		if username == "" {
			username = fallbackUsername
		}
		posts = append(posts, domain.SocialItem{
			ID:        p.ID,
			Text:      p.Text,
			AuthorID:  p.AuthorID,
			Username:  username,
			CreatedAt: p.CreatedAt,
			URL:       postURL(username, p.ID),
			Likes:     p.PublicMetrics.LikeCount,
			Retweets:  p.PublicMetrics.RetweetCount,
			Replies:   p.PublicMetrics.ReplyCount,
			Quotes:    p.PublicMetrics.QuoteCount,
		})
	}
	return posts, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("social api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func postURL(username, id string) string {
	if username == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%s", username, id)
}

func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
