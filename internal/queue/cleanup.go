package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"signalhub/internal/config"
	"signalhub/internal/metrics"
	"signalhub/internal/ports"
)

// Cleanup purges durable rows older than the retention window on a fixed
// interval. Signals, snapshots, and payment transactions are each compared
// against their own time field.
type Cleanup struct {
	retention ports.Retention
	metrics   *metrics.Metrics
	logger    *slog.Logger

	interval time.Duration
	keep     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCleanup builds the job from queue configuration.
func NewCleanup(cfg config.QueueConfig, retention ports.Retention, m *metrics.Metrics, logger *slog.Logger) *Cleanup {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Cleanup{
		retention: retention,
		metrics:   m,
		logger:    logger,
		interval:  cfg.CleanupInterval.Std(),
		keep:      cfg.Retention.Std(),
		stop:      make(chan struct{}),
	}
}

// Start launches the ticker goroutine.
func (c *Cleanup) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.RunOnce(ctx)
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the ticker goroutine and waits for a running pass to finish.
func (c *Cleanup) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// RunOnce performs a single retention pass.
func (c *Cleanup) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-c.keep)

	var total int64

	signals, err := c.retention.DeleteSignalsBefore(ctx, cutoff)
	if err != nil {
		c.logger.Error("cleanup signals", "error", err)
	}
	total += signals

	snapshots, err := c.retention.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		c.logger.Error("cleanup snapshots", "error", err)
	}
	total += snapshots

	payments, err := c.retention.DeletePaymentsBefore(ctx, cutoff)
	if err != nil {
		c.logger.Error("cleanup payments", "error", err)
	}
	total += payments

	c.metrics.RecordCleanup(total)
	if total > 0 {
		c.logger.Info("cleaned up old records",
			"signals", signals, "snapshots", snapshots, "payments", payments, "cutoff", cutoff)
	}
}
