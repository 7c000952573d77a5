package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"signalhub/internal/categorize"
	"signalhub/internal/domain"
	"signalhub/internal/merge"
	"signalhub/internal/metrics"
	"signalhub/internal/ports"
)

const cacheKeyPrefix = "markets:"

// CacheKey returns the cache namespace key for a category.
func CacheKey(category domain.Category) string {
	return cacheKeyPrefix + string(category)
}

// Persister receives fire-and-forget persistence work from the request path.
type Persister interface {
	EnqueueSignals(records []domain.SignalRecord)
	EnqueueSnapshot(category domain.Category, items []byte, count int)
}

// Metadata is the envelope block describing how a response was produced.
type Metadata struct {
	TotalItems int     `json:"total_items"`
	Timestamp  float64 `json:"timestamp"`
	CacheTTL   float64 `json:"cache_ttl"`
}

// CategoryResponse is the full paid-endpoint envelope.
type CategoryResponse struct {
	merge.CategoryFeed
	Metadata Metadata `json:"_metadata"`
}

// MarketsDeps wires all collaborators into the markets pipeline.
type MarketsDeps struct {
	News      ports.NewsSource
	Social    ports.SocialSource
	Cache     ports.Cache
	Merger    *merge.Merger
	Persister Persister
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	CacheTTL     time.Duration
	NewsLimit    int
	SocialLimit  int
	FetchTimeout time.Duration
}

// Markets orchestrates the fetch, normalize, categorize, merge pipeline
// behind the cache gate. Concurrent misses for the same category share one
// upstream fetch.
type Markets struct {
	news      ports.NewsSource
	social    ports.SocialSource
	cache     ports.Cache
	merger    *merge.Merger
	persister Persister
	metrics   *metrics.Metrics
	logger    *slog.Logger

	cacheTTL     time.Duration
	newsLimit    int
	socialLimit  int
	fetchTimeout time.Duration

	flight singleflight.Group
}

// NewMarkets constructs the pipeline.
func NewMarkets(deps MarketsDeps) *Markets {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Markets{
		news:         deps.News,
		social:       deps.Social,
		cache:        deps.Cache,
		merger:       deps.Merger,
		persister:    deps.Persister,
		metrics:      m,
		logger:       logger,
		cacheTTL:     deps.CacheTTL,
		newsLimit:    deps.NewsLimit,
		socialLimit:  deps.SocialLimit,
		fetchTimeout: deps.FetchTimeout,
	}
}

// CategoryFeed serves the merged feed for one category as a serialized
// response envelope, from cache when possible.
func (m *Markets) CategoryFeed(ctx context.Context, category domain.Category) ([]byte, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	key := CacheKey(category)
	if cached, ok := m.cache.Get(key); ok {
		m.metrics.IncCacheHit()
		m.logger.Debug("serving cached category feed", "category", category)
		return cached, nil
	}
	m.metrics.IncCacheMiss()

	payload, err, _ := m.flight.Do(key, func() (any, error) {
		// A concurrent miss may have filled the cache while we queued.
		if cached, ok := m.cache.Get(key); ok {
			return cached, nil
		}
		return m.compute(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]byte), nil
}

func (m *Markets) compute(ctx context.Context, category domain.Category) ([]byte, error) {
	news, social := m.fetchBoth(ctx, category)

	feed := m.merger.MergeByCategory(category, news, social)
	m.metrics.AddItemsMerged(len(feed.Items))

	envelope := CategoryResponse{
		CategoryFeed: feed,
		Metadata: Metadata{
			TotalItems: len(feed.Items),
			Timestamp:  float64(time.Now().UnixNano()) / 1e9,
			CacheTTL:   m.cacheTTL.Seconds(),
		},
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal category response: %w", err)
	}

	m.cache.Set(CacheKey(category), payload, m.cacheTTL)
	m.enqueuePersistence(category, feed)

	return payload, nil
}

// fetchBoth issues the two upstream fetches concurrently. A failed source
// contributes an empty list; a single-source outage never fails the request.
func (m *Markets) fetchBoth(ctx context.Context, category domain.Category) ([]domain.NewsItem, []domain.SocialItem) {
	fetchCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	var news []domain.NewsItem
	var social []domain.SocialItem

	g, gctx := errgroup.WithContext(fetchCtx)

	g.Go(func() error {
		var err error
		if category == domain.CategoryTrends {
			news, err = m.news.TrendingNews(gctx, m.newsLimit)
		} else {
			news, err = m.news.LatestNews(gctx, m.newsLimit)
		}
		if err != nil {
			m.metrics.IncUpstreamFailure()
			m.logger.Error("news fetch failed", "category", category, "error", err)
			news = nil
		}
		return nil
	})

	g.Go(func() error {
		var err error
		if keywords := categorize.SearchKeywords(category); len(keywords) > 0 {
			social, err = m.social.SearchPosts(gctx, keywords, m.socialLimit)
		} else {
			social, err = m.social.LatestPosts(gctx, m.socialLimit)
		}
		if err != nil {
			m.metrics.IncUpstreamFailure()
			m.logger.Error("social fetch failed", "category", category, "error", err)
			social = nil
		}
		return nil
	})

	_ = g.Wait()
	return news, social
}

func (m *Markets) enqueuePersistence(category domain.Category, feed merge.CategoryFeed) {
	if m.persister == nil || len(feed.Raw) == 0 {
		return
	}

	m.persister.EnqueueSignals(merge.ToSignals(feed.Raw))

	items, err := json.Marshal(feed.Items)
	if err != nil {
		m.logger.Error("marshal snapshot items", "category", category, "error", err)
		return
	}
	m.persister.EnqueueSnapshot(category, items, len(feed.Items))
}
