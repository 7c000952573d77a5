package ports

import (
	"context"
	"errors"
	"time"

	"signalhub/internal/domain"
)

// ErrNoSnapshot is returned by SignalStore.LatestSnapshot when a category has
// no persisted snapshot yet.
var ErrNoSnapshot = errors.New("no snapshot")

// NewsSource pulls articles from the upstream news API. Implementations never
// panic into the pipeline: they return an error and the caller degrades to an
// empty list.
type NewsSource interface {
	TrendingNews(ctx context.Context, limit int) ([]domain.NewsItem, error)
	LatestNews(ctx context.Context, limit int) ([]domain.NewsItem, error)
}

// SocialSource pulls posts from the upstream social API.
type SocialSource interface {
	LatestPosts(ctx context.Context, limit int) ([]domain.SocialItem, error)
	SearchPosts(ctx context.Context, keywords []string, limit int) ([]domain.SocialItem, error)
}

// Cache is the TTL gate in front of category computations. Values are
// serialized response envelopes.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	ClearPattern(pattern string)
	Ping() error
}

// SignalStore persists signal records and category snapshots.
type SignalStore interface {
	// UpsertSignal writes a record keyed by its natural key; it reports
	// whether a new row was created (false means the key already existed).
	UpsertSignal(ctx context.Context, rec domain.SignalRecord) (bool, error)
	// LatestSnapshot returns the most recent snapshot for the category or
	// ErrNoSnapshot.
	LatestSnapshot(ctx context.Context, category domain.Category) (domain.CategorySnapshot, error)
	UpdateSnapshot(ctx context.Context, id int64, items []byte, count int, updated time.Time) error
	InsertSnapshot(ctx context.Context, snap domain.CategorySnapshot) error
}

// PaymentStore persists verify/settle transitions.
type PaymentStore interface {
	RecordVerified(ctx context.Context, tx domain.PaymentTransaction) error
	MarkSettled(ctx context.Context, paymentHash string, at time.Time) error
}

// Retention deletes durable rows older than a cutoff, each table compared
// against its own time field.
type Retention interface {
	DeleteSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeletePaymentsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Facilitator is the external payment service used for the two-phase
// verify/settle handshake.
type Facilitator interface {
	Verify(ctx context.Context, paymentHash string) (domain.PaymentVerification, error)
	Settle(ctx context.Context, paymentHash string, amount float64) error
}

// Pinger exposes a connectivity probe for health reporting.
type Pinger interface {
	Ping(ctx context.Context) error
}
