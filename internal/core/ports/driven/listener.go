package driven

import "github.com/safeworkpro/fieldsync/internal/core/domain"

// SyncListener receives progress notifications from the sync engine.
// Implementations must not block; they run on the sync goroutine.
type SyncListener interface {
	// PassStarted is called when a pass begins, with the number of items
	// eligible for sync.
	PassStarted(eligible int)

	// ItemProcessed is called after each remote attempt.
	ItemProcessed(outcome domain.ItemOutcome)

	// PassCompleted is called when a pass ends.
	PassCompleted(result domain.PassResult)
}
