package merge

import (
	"log/slog"
	"time"

	"signalhub/internal/categorize"
	"signalhub/internal/domain"
	"signalhub/internal/normalize"
)

const (
	recentLimit   = 20
	bucketLimit   = 10
	categoryLimit = 50
	contentLimit  = 500
)

// Engagement is the social interaction counters of one post.
type Engagement struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
}

// ItemView is the compact per-item projection returned by the API. News and
// social items fill disjoint field sets; source, published_at, and url are
// always present.
type ItemView struct {
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`

	Title      string `json:"title,omitempty"`
	Content    string `json:"content,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	Sentiment  string `json:"sentiment,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`

	Text       string      `json:"text,omitempty"`
	Username   string      `json:"username,omitempty"`
	Author     string      `json:"author,omitempty"`
	Engagement *Engagement `json:"engagement,omitempty"`
}

// Bucket groups the formatted items of one category.
type Bucket struct {
	Count int        `json:"count"`
	Items []ItemView `json:"items"`
}

// Merged is the full cross-category merge result.
type Merged struct {
	TotalItems  int               `json:"total_items"`
	NewsCount   int               `json:"news_count"`
	SocialCount int               `json:"social_count"`
	Categories  map[string]Bucket `json:"categories"`
	RecentItems []ItemView        `json:"recent_items"`
	Timestamp   string            `json:"timestamp"`
}

// CategoryFeed is the merge result narrowed to one category.
type CategoryFeed struct {
	Category    string     `json:"category"`
	TotalItems  int        `json:"total_items"`
	NewsCount   int        `json:"news_count"`
	SocialCount int        `json:"social_count"`
	Items       []ItemView `json:"items"`
	Timestamp   string     `json:"timestamp"`

	// Raw carries the normalized items behind Items for persistence; it is
	// not serialized into responses.
	Raw []domain.Item `json:"-"`
}

// Merger combines, deduplicates by ordering, sorts, and buckets normalized
// items from both feeds.
type Merger struct {
	norm   *normalize.Normalizer
	logger *slog.Logger
}

// New wires the date normalizer into the merger; logger may be nil.
func New(norm *normalize.Normalizer, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{norm: norm, logger: logger}
}

// MergeFeeds merges both feeds across all categories: normalize each list,
// concatenate news before social, stable-sort descending by instant (ties
// keep news-before-social), categorize, and bucket.
func (m *Merger) MergeFeeds(news []domain.NewsItem, social []domain.SocialItem) Merged {
	normalizedNews := m.norm.Items(wrapNews(news))
	normalizedSocial := m.norm.Items(wrapSocial(social))

	all := make([]domain.Item, 0, len(normalizedNews)+len(normalizedSocial))
	all = append(all, normalizedNews...)
	all = append(all, normalizedSocial...)

	normalize.SortByDate(all, true)

	all, buckets := categorize.All(all)

	merged := Merged{
		TotalItems:  len(all),
		NewsCount:   len(normalizedNews),
		SocialCount: len(normalizedSocial),
		Categories:  make(map[string]Bucket, len(buckets)),
		RecentItems: formatItems(head(all, recentLimit)),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	for category, items := range buckets {
		merged.Categories[string(category)] = Bucket{
			Count: len(items),
			Items: formatItems(head(items, bucketLimit)),
		}
	}

	m.logger.Info("merged feeds",
		"total", merged.TotalItems,
		"news", merged.NewsCount,
		"social", merged.SocialCount)
	return merged
}

// MergeByCategory merges both feeds filtered to one category. Filtering
// happens before any truncation, so no off-category item can survive into the
// result.
func (m *Merger) MergeByCategory(category domain.Category, news []domain.NewsItem, social []domain.SocialItem) CategoryFeed {
	normalizedNews := m.norm.Items(wrapNews(news))
	normalizedSocial := m.norm.Items(wrapSocial(social))

	newsFiltered := filterByCategory(normalizedNews, category)
	socialFiltered := filterByCategory(normalizedSocial, category)

	all := make([]domain.Item, 0, len(newsFiltered)+len(socialFiltered))
	all = append(all, newsFiltered...)
	all = append(all, socialFiltered...)

	normalize.SortByDate(all, true)

	top := head(all, categoryLimit)

	feed := CategoryFeed{
		Category:    string(category),
		TotalItems:  len(all),
		NewsCount:   len(newsFiltered),
		SocialCount: len(socialFiltered),
		Items:       formatItems(top),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Raw:         top,
	}

	m.logger.Info("merged category feed",
		"category", category,
		"total", feed.TotalItems,
		"news", feed.NewsCount,
		"social", feed.SocialCount)
	return feed
}

func filterByCategory(items []domain.Item, category domain.Category) []domain.Item {
	var out []domain.Item
	for _, it := range items {
		if c := categorize.Item(it); c == category {
			it.Category = c
			out = append(out, it)
		}
	}
	return out
}

func wrapNews(news []domain.NewsItem) []domain.Item {
	items := make([]domain.Item, len(news))
	for i, n := range news {
		items[i] = domain.FromNews(n)
	}
	return items
}

func wrapSocial(social []domain.SocialItem) []domain.Item {
	items := make([]domain.Item, len(social))
	for i, s := range social {
		items[i] = domain.FromSocial(s)
	}
	return items
}

func head(items []domain.Item, limit int) []domain.Item {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func formatItems(items []domain.Item) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		view := ItemView{
			Source:      string(it.Source),
			PublishedAt: it.Instant.UTC().Format(time.RFC3339),
			URL:         it.URL,
		}

		switch {
		case it.News != nil:
			view.Title = it.News.Title
			view.Content = truncate(it.News.Content, contentLimit)
			view.SourceName = it.News.SourceName
			view.Sentiment = it.News.Sentiment
			view.ImageURL = it.News.ImageURL
		case it.Social != nil:
			view.Text = it.Social.Text
			view.Username = it.Social.Username
			view.Author = it.Social.AuthorID
			view.Engagement = &Engagement{
				Likes:    it.Social.Likes,
				Retweets: it.Social.Retweets,
				Replies:  it.Social.Replies,
			}
		}

		views = append(views, view)
	}
	return views
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
