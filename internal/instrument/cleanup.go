package instrument

import (
	"context"
	"log"
	"time"

	"webhook-bot/internal/store"
)

// CleanupOldEvents deletes events older than retentionDays.
func CleanupOldEvents(ctx context.Context, s *store.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	n, err := s.DeleteTriggerEventsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("ERROR: event cleanup: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Event cleanup: deleted %d old events", n)
	}
}
