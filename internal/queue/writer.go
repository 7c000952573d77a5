package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"signalhub/internal/config"
	"signalhub/internal/domain"
	"signalhub/internal/metrics"
	"signalhub/internal/ports"
	"signalhub/internal/retry"
)

type snapshotJob struct {
	category domain.Category
	items    []byte
	count    int
}

type job struct {
	signals  []domain.SignalRecord
	snapshot *snapshotJob
}

// Writer drains persistence jobs off the request path. Enqueueing never
// blocks: when the queue is full the batch is dropped and counted. Writes are
// retried on transient failure and dropped after the attempts are exhausted;
// there is no dead-letter queue.
type Writer struct {
	store   ports.SignalStore
	metrics *metrics.Metrics
	logger  *slog.Logger

	jobs    chan job
	wg      sync.WaitGroup
	workers int
	retry   retry.Config
	window  time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWriter builds the writer from queue configuration.
func NewWriter(cfg config.QueueConfig, store ports.SignalStore, m *metrics.Metrics, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Writer{
		store:   store,
		metrics: m,
		logger:  logger,
		jobs:    make(chan job, cfg.Depth),
		workers: cfg.Workers,
		retry:   retry.Config{MaxAttempts: cfg.MaxRetries, Delay: cfg.RetryDelay.Std(), Backoff: true},
		window:  cfg.SnapshotWindow.Std(),
	}
}

// Start launches the worker goroutines.
func (w *Writer) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		for i := 0; i < w.workers; i++ {
			w.wg.Add(1)
			go w.run(ctx)
		}
	})
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() { close(w.jobs) })
	w.wg.Wait()
}

// EnqueueSignals queues a batch of signal records, fire-and-forget.
func (w *Writer) EnqueueSignals(records []domain.SignalRecord) {
	if len(records) == 0 {
		return
	}
	w.enqueue(job{signals: records})
}

// EnqueueSnapshot queues one category snapshot write.
func (w *Writer) EnqueueSnapshot(category domain.Category, items []byte, count int) {
	w.enqueue(job{snapshot: &snapshotJob{category: category, items: items, count: count}})
}

func (w *Writer) enqueue(j job) {
	select {
	case w.jobs <- j:
	default:
		w.metrics.IncPersistenceDrop()
		w.logger.Warn("persistence queue full, dropping job",
			"signals", len(j.signals), "snapshot", j.snapshot != nil)
	}
}

func (w *Writer) run(ctx context.Context) {
	defer w.wg.Done()

	for j := range w.jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if len(j.signals) > 0 {
			w.writeSignals(ctx, j.signals)
		}
		if j.snapshot != nil {
			w.writeSnapshot(ctx, *j.snapshot)
		}
	}
}

func (w *Writer) writeSignals(ctx context.Context, records []domain.SignalRecord) {
	saved := 0
	for _, rec := range records {
		rec := rec
		var inserted bool
		err := retry.Do(ctx, w.retry, func() error {
			var upsertErr error
			inserted, upsertErr = w.store.UpsertSignal(ctx, rec)
			return upsertErr
		})
		if err != nil {
			w.metrics.IncPersistenceDrop()
			w.logger.Error("dropping signal record after retries",
				"key", rec.NaturalKey(), "error", err)
			continue
		}
		if inserted {
			saved++
			w.metrics.IncSignalsPersisted()
		}
	}
	w.logger.Info("saved signal items", "new", saved, "batch", len(records))
}

// writeSnapshot overwrites the category's latest snapshot when it is younger
// than the merge window, otherwise appends a new row. This caps snapshot
// growth at one row per window under frequent cache misses.
func (w *Writer) writeSnapshot(ctx context.Context, snap snapshotJob) {
	err := retry.Do(ctx, w.retry, func() error {
		return w.saveSnapshot(ctx, snap)
	})
	if err != nil {
		w.metrics.IncPersistenceDrop()
		w.logger.Error("dropping category snapshot after retries",
			"category", snap.category, "error", err)
	}
}

func (w *Writer) saveSnapshot(ctx context.Context, snap snapshotJob) error {
	now := time.Now().UTC()

	latest, err := w.store.LatestSnapshot(ctx, snap.category)
	switch {
	case err == nil && now.Sub(latest.LastUpdated) < w.window:
		w.logger.Debug("updating category snapshot", "category", snap.category, "id", latest.ID)
		return w.store.UpdateSnapshot(ctx, latest.ID, snap.items, snap.count, now)
	case err == nil || isNoSnapshot(err):
		w.logger.Debug("inserting category snapshot", "category", snap.category)
		return w.store.InsertSnapshot(ctx, domain.CategorySnapshot{
			Category:    snap.category,
			Items:       snap.items,
			ItemCount:   snap.count,
			LastUpdated: now,
		})
	default:
		return err
	}
}

func isNoSnapshot(err error) bool {
	return errors.Is(err, ports.ErrNoSnapshot)
}
