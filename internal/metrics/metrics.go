package metrics

import (
	"sync"
	"time"
)

// Metrics collects in-process counters for the hot path and the background
// workers. Settlement failures and persistence drops are visible only here,
// never to the client.
type Metrics struct {
	mu sync.RWMutex

	CacheHits          int64
	CacheMisses        int64
	UpstreamFailures   int64
	ItemsMerged        int64
	SignalsPersisted   int64
	PersistenceDrops   int64
	PaymentsVerified   int64
	PaymentsRejected   int64
	PaymentsSettled    int64
	SettlementFailures int64

	LastCleanupTime time.Time
	LastCleanupRows int64
}

// New returns an empty metrics collector.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncCacheHit()          { m.add(&m.CacheHits) }
func (m *Metrics) IncCacheMiss()         { m.add(&m.CacheMisses) }
func (m *Metrics) IncUpstreamFailure()   { m.add(&m.UpstreamFailures) }
func (m *Metrics) IncSignalsPersisted()  { m.add(&m.SignalsPersisted) }
func (m *Metrics) IncPersistenceDrop()   { m.add(&m.PersistenceDrops) }
func (m *Metrics) IncPaymentVerified()   { m.add(&m.PaymentsVerified) }
func (m *Metrics) IncPaymentRejected()   { m.add(&m.PaymentsRejected) }
func (m *Metrics) IncPaymentSettled()    { m.add(&m.PaymentsSettled) }
func (m *Metrics) IncSettlementFailure() { m.add(&m.SettlementFailures) }

// AddItemsMerged records how many items one merge produced.
func (m *Metrics) AddItemsMerged(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsMerged += int64(n)
}

// RecordCleanup notes the latest retention pass.
func (m *Metrics) RecordCleanup(rows int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastCleanupTime = time.Now()
	m.LastCleanupRows = rows
}

// Snapshot returns a copy safe to serialize into the health payload.
func (m *Metrics) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := map[string]any{
		"cache_hits":          m.CacheHits,
		"cache_misses":        m.CacheMisses,
		"upstream_failures":   m.UpstreamFailures,
		"items_merged":        m.ItemsMerged,
		"signals_persisted":   m.SignalsPersisted,
		"persistence_drops":   m.PersistenceDrops,
		"payments_verified":   m.PaymentsVerified,
		"payments_rejected":   m.PaymentsRejected,
		"payments_settled":    m.PaymentsSettled,
		"settlement_failures": m.SettlementFailures,
	}
	if !m.LastCleanupTime.IsZero() {
		snap["last_cleanup_time"] = m.LastCleanupTime.UTC().Format(time.RFC3339)
		snap["last_cleanup_rows"] = m.LastCleanupRows
	}
	return snap
}

func (m *Metrics) add(field *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}
