package domain

import (
	"fmt"
	"strings"
	"time"
)

// QueueName identifies one of the durable mutation queues.
type QueueName string

const (
	// QueueSessions holds LMRA session mutations.
	QueueSessions QueueName = "sessions"

	// QueueEntities holds project mutations, including membership changes.
	QueueEntities QueueName = "entities"

	// QueueAttachments holds binary photo uploads.
	QueueAttachments QueueName = "attachments"
)

// SyncOrder returns the queues in the order a sync pass drains them.
// Small JSON records land before the binary uploads that reference them.
func SyncOrder() []QueueName {
	return []QueueName{QueueSessions, QueueEntities, QueueAttachments}
}

// IsValid returns true if the queue name is known.
func (q QueueName) IsValid() bool {
	switch q {
	case QueueSessions, QueueEntities, QueueAttachments:
		return true
	}
	return false
}

// String returns the queue name.
func (q QueueName) String() string {
	return string(q)
}

// Description returns a human-readable label for the queue.
func (q QueueName) Description() string {
	switch q {
	case QueueSessions:
		return "LMRA sessions"
	case QueueEntities:
		return "Projects"
	case QueueAttachments:
		return "Photo attachments"
	default:
		return string(q)
	}
}

// ParseQueueName resolves a queue name, accepting the product aliases
// used by the web client (sessionQueue, projects, photos, ...).
func ParseQueueName(s string) (QueueName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sessions", "session", "sessionqueue", "lmra", "lmra-sessions":
		return QueueSessions, nil
	case "entities", "entity", "entityqueue", "projects", "project":
		return QueueEntities, nil
	case "attachments", "attachment", "attachmentqueue", "photos", "photo":
		return QueueAttachments, nil
	}
	return "", fmt.Errorf("%w: unknown queue %q", ErrInvalidInput, s)
}

// Operation is the mutation an item asks the remote API to perform.
type Operation string

const (
	OpCreate           Operation = "create"
	OpUpdate           Operation = "update"
	OpDelete           Operation = "delete"
	OpComplete         Operation = "complete"
	OpAddMember        Operation = "add_member"
	OpRemoveMember     Operation = "remove_member"
	OpUpdateMemberRole Operation = "update_member_role"
	OpUpload           Operation = "upload"
)

// Operations returns the closed set of operations a queue accepts.
func Operations(q QueueName) []Operation {
	switch q {
	case QueueSessions:
		return []Operation{OpCreate, OpUpdate, OpComplete}
	case QueueEntities:
		return []Operation{OpCreate, OpUpdate, OpDelete, OpAddMember, OpRemoveMember, OpUpdateMemberRole}
	case QueueAttachments:
		return []Operation{OpUpload}
	default:
		return nil
	}
}

// Supports returns true if the queue accepts the operation.
func (q QueueName) Supports(op Operation) bool {
	for _, o := range Operations(q) {
		if o == op {
			return true
		}
	}
	return false
}

// IsMembership returns true for project membership operations.
func (op Operation) IsMembership() bool {
	return op == OpAddMember || op == OpRemoveMember || op == OpUpdateMemberRole
}

// QueueItem is the unit of durable work.
//
// An item exists in exactly one queue at a time. Once the remote API
// acknowledges it the item is deleted; there is no completed state.
type QueueItem struct {
	// Key is the persistence key, stable for the item's lifetime.
	// Re-enqueueing with the same key replaces the item.
	Key string

	// Queue is the queue holding the item.
	Queue QueueName

	// Operation selects the remote verb and path.
	Operation Operation

	// Payload is the typed mutation to synchronise.
	Payload Payload

	// EnqueuedAt orders items and allows staleness inspection.
	EnqueuedAt time.Time

	// RetryCount is incremented on each failed sync attempt.
	RetryCount int

	// LastError is the most recent failure reason.
	LastError string

	// Failed marks an item that reached the retry ceiling.
	// Failed items are skipped until retried manually.
	Failed bool

	// Revision is assigned by the store on every write. A pass only writes
	// its outcome back if the stored revision still matches the one it read.
	Revision int64
}

// Validate checks the item is well-formed for its queue.
func (i *QueueItem) Validate() error {
	if i.Key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	if !i.Queue.IsValid() {
		return fmt.Errorf("%w: unknown queue %q", ErrInvalidInput, i.Queue)
	}
	if !i.Queue.Supports(i.Operation) {
		return fmt.Errorf("%w: operation %q not supported by queue %s", ErrInvalidInput, i.Operation, i.Queue)
	}
	if i.Payload == nil {
		return fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}
	if i.Payload.Queue() != i.Queue {
		return fmt.Errorf("%w: %s payload cannot be queued on %s", ErrInvalidInput, i.Payload.Queue(), i.Queue)
	}
	if i.Operation != OpCreate && i.Operation != OpUpload && i.Payload.TargetID() == "" {
		return fmt.Errorf("%w: %s requires a target id", ErrInvalidInput, i.Operation)
	}
	return i.Payload.validate(i.Operation)
}

// IsExhausted returns true if the item reached the retry ceiling.
func (i *QueueItem) IsExhausted(maxRetries int) bool {
	return i.Failed || (maxRetries > 0 && i.RetryCount >= maxRetries)
}

// RecordFailure increments the retry state after a failed attempt.
// The terminal flag is set once the ceiling is reached.
func (i *QueueItem) RecordFailure(err error, maxRetries int) {
	i.RetryCount++
	if err != nil {
		i.LastError = err.Error()
	}
	if maxRetries > 0 && i.RetryCount >= maxRetries {
		i.Failed = true
	}
}

// ResetRetry clears retry state ahead of a manual retry.
func (i *QueueItem) ResetRetry() {
	i.RetryCount = 0
	i.LastError = ""
	i.Failed = false
}
