package stores

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRetention is how long an idle conversation survives before the
// janitor removes it.
const DefaultRetention = 30 * 24 * time.Hour

// RetentionJanitor periodically deletes conversations whose LastActive is
// older than the retention window. The per-save cap eviction stays the primary
// bound; the janitor only clears out stale history that never gets saved over.
type RetentionJanitor struct {
	store     ConversationStore
	retention time.Duration
	scheduler *cron.Cron
	logger    *log.Logger
}

// NewRetentionJanitor creates a janitor for the given store. A zero retention
// falls back to DefaultRetention.
func NewRetentionJanitor(store ConversationStore, retention time.Duration, logger *log.Logger) *RetentionJanitor {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RetentionJanitor{
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

// Start schedules an hourly sweep. Calling Start twice is an error.
func (j *RetentionJanitor) Start() error {
	if j.scheduler != nil {
		return fmt.Errorf("janitor already started")
	}

	j.scheduler = cron.New()
	if _, err := j.scheduler.AddFunc("@hourly", func() {
		if err := j.Sweep(); err != nil {
			j.logger.Printf("Warning: retention sweep failed: %v", err)
		}
	}); err != nil {
		j.scheduler = nil
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	j.scheduler.Start()
	return nil
}

// Stop halts the schedule; a running sweep finishes.
func (j *RetentionJanitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
		j.scheduler = nil
	}
}

// Sweep deletes every conversation idle beyond the retention window.
func (j *RetentionJanitor) Sweep() error {
	infos, err := j.store.List()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	cutoff := time.Now().Add(-j.retention)
	for _, info := range infos {
		if info.LastActive.Before(cutoff) {
			if err := j.store.Delete(info.ConversationID); err != nil {
				return fmt.Errorf("failed to delete stale conversation %s: %w", info.ConversationID, err)
			}
			j.logger.Printf("Removed stale conversation %s (idle since %s)", info.ConversationID, info.LastActive.Format(time.RFC3339))
		}
	}

	return nil
}
