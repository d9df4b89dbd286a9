package session

import (
	"context"
	"log/slog"
	"time"
)

// Default cleanup cadence.
const DefaultCleanupInterval = 5 * time.Minute

// CleanupConfig configures the background sweep of expired sessions.
type CleanupConfig struct {
	Interval time.Duration
}

// CleanupJob periodically removes expired sessions from a Store.
type CleanupJob struct {
	store  *Store
	config CleanupConfig
}

// NewCleanupJob creates a cleanup job. Non-positive interval falls back
// to DefaultCleanupInterval.
func NewCleanupJob(store *Store, config CleanupConfig) *CleanupJob {
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupInterval
	}
	return &CleanupJob{store: store, config: config}
}

// Start runs the sweep loop until ctx is cancelled.
func (j *CleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	slog.Info("session cleanup started", "interval", j.config.Interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("session cleanup stopped")
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs a single sweep and returns the number of removed
// sessions.
func (j *CleanupJob) RunOnce() int {
	removed := j.store.sweep()
	if removed > 0 {
		slog.Info("expired sessions removed", "count", removed, "remaining", j.store.Len())
	}
	return removed
}
