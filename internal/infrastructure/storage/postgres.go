package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"signalhub/internal/domain"
	"signalhub/internal/ports"
)

// ErrNoSnapshot is returned when a category has no persisted snapshot yet.
var ErrNoSnapshot = ports.ErrNoSnapshot

// Postgres persists signal records, category snapshots, and payment
// transactions. Concurrency between the cleanup job and the writers relies on
// row-level write ordering in Postgres, not on locking here.
type Postgres struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.SignalStore  = (*Postgres)(nil)
	_ ports.PaymentStore = (*Postgres)(nil)
	_ ports.Retention    = (*Postgres)(nil)
	_ ports.Pinger       = (*Postgres)(nil)
)

// Open dials Postgres with sane pool settings and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgres wires a sql.DB implementation.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Ensure creates the schema when it does not exist yet.
func (p *Postgres) Ensure(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS signal_items (
    id              TEXT PRIMARY KEY,
    signal          TEXT NOT NULL,
    sentiment       VARCHAR(20),
    sentiment_value DOUBLE PRECISION,
    timestamp       DOUBLE PRECISION NOT NULL,
    categories      TEXT[],
    short_context   TEXT,
    long_context    TEXT,
    sources         TEXT[],
    author          VARCHAR(200),
    tokens          TEXT[],
    source_url      VARCHAR(500),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_signal_items_timestamp ON signal_items (timestamp);
CREATE INDEX IF NOT EXISTS idx_signal_items_created_at ON signal_items (created_at);

CREATE TABLE IF NOT EXISTS category_feeds (
    id           BIGSERIAL PRIMARY KEY,
    category     VARCHAR(50) NOT NULL,
    items        JSONB NOT NULL,
    item_count   INTEGER NOT NULL DEFAULT 0,
    last_updated TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_category_feeds_category_updated ON category_feeds (category, last_updated);

CREATE TABLE IF NOT EXISTS payment_transactions (
    id                BIGSERIAL PRIMARY KEY,
    payment_hash      VARCHAR(200) UNIQUE NOT NULL,
    endpoint          VARCHAR(100) NOT NULL,
    amount            DOUBLE PRECISION NOT NULL,
    verified          BOOLEAN NOT NULL DEFAULT FALSE,
    settled           BOOLEAN NOT NULL DEFAULT FALSE,
    client_identifier VARCHAR(200),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    verified_at       TIMESTAMPTZ,
    settled_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_payment_transactions_created_at ON payment_transactions (created_at);
`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertSignal inserts a record keyed by its natural key; an existing key is
// left untouched, which makes redelivery safe.
func (p *Postgres) UpsertSignal(ctx context.Context, rec domain.SignalRecord) (bool, error) {
	query := p.sb.Insert("signal_items").
		Columns("id", "signal", "sentiment", "sentiment_value", "timestamp",
			"categories", "short_context", "long_context", "sources",
			"author", "tokens", "source_url").
		Values(rec.NaturalKey(), rec.Signal, rec.Sentiment, rec.SentimentValue, rec.Timestamp,
			pq.Array(rec.Categories), rec.ShortContext, rec.LongContext, pq.Array(rec.Sources),
			rec.Author, pq.Array(rec.Tokens), rec.SourceURL).
		Suffix("ON CONFLICT (id) DO NOTHING")

	res, err := query.RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("upsert signal: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// LatestSnapshot returns the most recent snapshot for a category.
func (p *Postgres) LatestSnapshot(ctx context.Context, category domain.Category) (domain.CategorySnapshot, error) {
	query := p.sb.Select("id", "category", "items", "item_count", "last_updated", "created_at").
		From("category_feeds").
		Where(sq.Eq{"category": string(category)}).
		OrderBy("last_updated DESC").
		Limit(1)

	var snap domain.CategorySnapshot
	err := query.RunWith(p.db).QueryRowContext(ctx).Scan(
		&snap.ID, &snap.Category, &snap.Items, &snap.ItemCount, &snap.LastUpdated, &snap.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CategorySnapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return domain.CategorySnapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

// UpdateSnapshot overwrites an existing snapshot's item list in place.
func (p *Postgres) UpdateSnapshot(ctx context.Context, id int64, items []byte, count int, updated time.Time) error {
	query := p.sb.Update("category_feeds").
		Set("items", items).
		Set("item_count", count).
		Set("last_updated", updated).
		Where(sq.Eq{"id": id})

	if _, err := query.RunWith(p.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("update snapshot: %w", err)
	}
	return nil
}

// InsertSnapshot appends a new snapshot row for the category.
func (p *Postgres) InsertSnapshot(ctx context.Context, snap domain.CategorySnapshot) error {
	query := p.sb.Insert("category_feeds").
		Columns("category", "items", "item_count", "last_updated").
		Values(string(snap.Category), []byte(snap.Items), snap.ItemCount, snap.LastUpdated)

	if _, err := query.RunWith(p.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// RecordVerified persists the verified transaction created by the payment
// gate. Re-verifying a known hash refreshes its verification timestamp.
func (p *Postgres) RecordVerified(ctx context.Context, tx domain.PaymentTransaction) error {
	query := p.sb.Insert("payment_transactions").
		Columns("payment_hash", "endpoint", "amount", "verified", "client_identifier", "verified_at").
		Values(tx.PaymentHash, tx.Endpoint, tx.Amount, tx.Verified, tx.ClientIdentifier, tx.VerifiedAt).
		Suffix("ON CONFLICT (payment_hash) DO UPDATE SET verified = EXCLUDED.verified, verified_at = EXCLUDED.verified_at")

	if _, err := query.RunWith(p.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("record verified: %w", err)
	}
	return nil
}

// MarkSettled flips a verified transaction to settled.
func (p *Postgres) MarkSettled(ctx context.Context, paymentHash string, at time.Time) error {
	query := p.sb.Update("payment_transactions").
		Set("settled", true).
		Set("settled_at", at).
		Where(sq.Eq{"payment_hash": paymentHash})

	if _, err := query.RunWith(p.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("mark settled: %w", err)
	}
	return nil
}

// DeleteSignalsBefore purges signal rows whose item timestamp predates the
// cutoff.
func (p *Postgres) DeleteSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := p.sb.Delete("signal_items").
		Where(sq.Lt{"timestamp": float64(cutoff.Unix())})
	return p.deleteRows(ctx, query, "signals")
}

// DeleteSnapshotsBefore purges snapshots not updated since the cutoff.
func (p *Postgres) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := p.sb.Delete("category_feeds").
		Where(sq.Lt{"last_updated": cutoff})
	return p.deleteRows(ctx, query, "snapshots")
}

// DeletePaymentsBefore purges payment transactions created before the cutoff.
func (p *Postgres) DeletePaymentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := p.sb.Delete("payment_transactions").
		Where(sq.Lt{"created_at": cutoff})
	return p.deleteRows(ctx, query, "payments")
}

// Ping verifies database connectivity for health reporting.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) deleteRows(ctx context.Context, query sq.DeleteBuilder, what string) (int64, error) {
	res, err := query.RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", what, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
