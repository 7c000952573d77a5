package metrics

import (
	"sync"
	"testing"
)

func TestSnapshot(t *testing.T) {
	t.Parallel()

	m := New()
	m.IncCacheHit()
	m.IncCacheHit()
	m.IncCacheMiss()
	m.AddItemsMerged(7)
	m.IncPaymentVerified()
	m.IncSettlementFailure()

	snap := m.Snapshot()
	if snap["cache_hits"] != int64(2) {
		t.Fatalf("cache_hits = %v, want 2", snap["cache_hits"])
	}
	if snap["cache_misses"] != int64(1) {
		t.Fatalf("cache_misses = %v, want 1", snap["cache_misses"])
	}
	if snap["items_merged"] != int64(7) {
		t.Fatalf("items_merged = %v, want 7", snap["items_merged"])
	}
	if snap["settlement_failures"] != int64(1) {
		t.Fatalf("settlement_failures = %v, want 1", snap["settlement_failures"])
	}

	if _, present := snap["last_cleanup_time"]; present {
		t.Fatal("cleanup fields must be absent before the first pass")
	}

	m.RecordCleanup(12)
	snap = m.Snapshot()
	if snap["last_cleanup_rows"] != int64(12) {
		t.Fatalf("last_cleanup_rows = %v, want 12", snap["last_cleanup_rows"])
	}
	if snap["last_cleanup_time"] == "" {
		t.Fatal("cleanup time missing after a pass")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	t.Parallel()

	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncCacheHit()
			m.IncSignalsPersisted()
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap["cache_hits"] != int64(50) || snap["signals_persisted"] != int64(50) {
		t.Fatalf("unexpected counters: %v", snap)
	}
}
