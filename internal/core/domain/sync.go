package domain

import "time"

// SyncMetadata holds process-wide sync flags.
// It is read and written only by the sync engine.
type SyncMetadata struct {
	// LastSyncTime is when the last sync pass completed.
	// Zero if no pass has completed.
	LastSyncTime time.Time

	// SyncInProgress mirrors the engine's single-flight guard.
	// It is advisory: a value left over from a crashed process is stale.
	SyncInProgress bool
}

// QueueStats is the pending and failed count for one queue.
type QueueStats struct {
	Queue   QueueName `json:"queue"`
	Pending int       `json:"pending"`
	Failed  int       `json:"failed"`
}

// Total returns the number of items in the queue.
func (s QueueStats) Total() int {
	return s.Pending + s.Failed
}

// SyncStats is a read-only snapshot for the UI.
type SyncStats struct {
	Queues         []QueueStats `json:"queues"`
	LastSyncTime   time.Time    `json:"lastSyncTime"`
	SyncInProgress bool         `json:"syncInProgress"`
	Online         bool         `json:"online"`
}

// Queue returns the stats for one queue.
func (s *SyncStats) Queue(q QueueName) QueueStats {
	for _, qs := range s.Queues {
		if qs.Queue == q {
			return qs
		}
	}
	return QueueStats{Queue: q}
}

// TotalPending returns the pending count across all queues.
func (s *SyncStats) TotalPending() int {
	n := 0
	for _, qs := range s.Queues {
		n += qs.Pending
	}
	return n
}

// TotalFailed returns the failed count across all queues.
func (s *SyncStats) TotalFailed() int {
	n := 0
	for _, qs := range s.Queues {
		n += qs.Failed
	}
	return n
}

// ItemOutcome reports the result of syncing a single item.
type ItemOutcome struct {
	Queue      QueueName `json:"queue"`
	Key        string    `json:"key"`
	Operation  Operation `json:"operation"`
	Success    bool      `json:"success"`
	RetryCount int       `json:"retryCount"`
	Failed     bool      `json:"failed"`
	Error      string    `json:"error,omitempty"`

	// Rejected is set when the remote refused the item with a status that
	// will not change on its own, such as a 4xx validation error.
	Rejected bool `json:"rejected,omitempty"`

	// Deferred is set when the item was not sent because the remote asked
	// the client to back off. Its retry state is untouched.
	Deferred bool `json:"deferred,omitempty"`

	// Stale is set when the item changed in the store while it was being
	// sent. The newer version stays queued for the next pass.
	Stale bool `json:"stale,omitempty"`
}

// PassResult summarises one sync pass across all queues.
type PassResult struct {
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`

	// Attempted counts remote calls made.
	Attempted int `json:"attempted"`

	// Succeeded counts items removed from their queue.
	Succeeded int `json:"succeeded"`

	// Failed counts attempts that left the item queued.
	Failed int `json:"failed"`

	// Skipped counts items left alone because they are exhausted or were
	// deferred by a remote backoff window.
	Skipped int `json:"skipped"`

	// Exhausted counts items that reached the retry ceiling in this pass.
	Exhausted int `json:"exhausted"`

	// Error is set when the pass aborted on a storage failure or was
	// cancelled.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the pass ran.
func (r *PassResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Success returns true if the pass ran to completion.
// Per-item failures do not fail the pass.
func (r *PassResult) Success() bool {
	return r.Error == ""
}
