package domain

import (
	"strings"
	"time"
)

// Source tags which upstream feed produced an item.
type Source string

const (
	SourceNews   Source = "news"
	SourceSocial Source = "social"
)

// Category is one of the fixed market categories. The set and its order are
// part of the API contract; see categorize.Taxonomy.
type Category string

const (
	CategoryTrends      Category = "trends"
	CategoryLiquidity   Category = "liquidity"
	CategoryAgents      Category = "agents"
	CategoryMacroEvents Category = "macro_events"
	CategoryProofOfWork Category = "proof_of_work"
)

// Categories lists every category in taxonomy order.
var Categories = []Category{
	CategoryTrends,
	CategoryLiquidity,
	CategoryAgents,
	CategoryMacroEvents,
	CategoryProofOfWork,
}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NewsItem is one raw article as received from the news feed.
// Timestamps are kept in their wire form until normalization.
type NewsItem struct {
	Title       string
	Content     string
	URL         string
	PublishedAt string
	SourceName  string
	ImageURL    string
	Sentiment   string
	Topics      []string
}

// SocialItem is one raw post as received from the social feed.
type SocialItem struct {
	ID        string
	Text      string
	AuthorID  string
	Username  string
	CreatedAt string
	URL       string
	Likes     int
	Retweets  int
	Replies   int
	Quotes    int
}

// Item is the normalized projection both sources converge to. Exactly one of
// News/Social is set, matching Source. Instant is the canonical timestamp and
// Category is assigned during categorization; neither changes afterwards.
type Item struct {
	Source   Source
	Instant  time.Time
	Category Category
	URL      string

	News   *NewsItem
	Social *SocialItem
}

// FromNews wraps a raw news article; the canonical instant is assigned later
// by the date normalizer.
func FromNews(n NewsItem) Item {
	copied := n
	return Item{Source: SourceNews, URL: n.URL, News: &copied}
}

// FromSocial wraps a raw social post.
func FromSocial(s SocialItem) Item {
	copied := s
	return Item{Source: SourceSocial, URL: s.URL, Social: &copied}
}

// SearchText concatenates the item's textual fields, lower-cased, for keyword
// scoring.
func (it Item) SearchText() string {
	var b strings.Builder
	if it.News != nil {
		b.WriteString(strings.ToLower(it.News.Title))
		b.WriteString(" ")
		b.WriteString(strings.ToLower(it.News.Content))
		b.WriteString(" ")
	}
	if it.Social != nil {
		b.WriteString(strings.ToLower(it.Social.Text))
		b.WriteString(" ")
	}
	return b.String()
}

// RawTimestamp returns the wire-format timestamp the item arrived with, or ""
// when the upstream sent none.
func (it Item) RawTimestamp() string {
	if it.News != nil {
		return it.News.PublishedAt
	}
	if it.Social != nil {
		return it.Social.CreatedAt
	}
	return ""
}
