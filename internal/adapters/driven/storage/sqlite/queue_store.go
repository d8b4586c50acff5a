package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Metadata keys.
const (
	metaLastSyncTime   = "lastSyncTime"
	metaSyncInProgress = "syncInProgress"
)

// ==================== Queue Store ====================

// Put inserts or replaces an item by key.
func (s *Store) Put(ctx context.Context, item *domain.QueueItem) error {
	if item == nil || item.Key == "" {
		return domain.ErrInvalidInput
	}
	if !item.Queue.IsValid() {
		return fmt.Errorf("%w: unknown queue %q", domain.ErrInvalidInput, item.Queue)
	}

	db, err := s.conn()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving queue item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	revision, err := nextRevision(ctx, tx)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue_items (queue, item_key, operation, payload, enqueued_at, retry_count, last_error, failed, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(queue, item_key) DO UPDATE SET
			operation = excluded.operation,
			payload = excluded.payload,
			enqueued_at = excluded.enqueued_at,
			retry_count = excluded.retry_count,
			last_error = excluded.last_error,
			failed = excluded.failed,
			revision = excluded.revision
	`, string(item.Queue), item.Key, string(item.Operation), string(payload),
		formatTime(item.EnqueuedAt), item.RetryCount, nullString(item.LastError),
		boolToInt(item.Failed), revision)
	if err != nil {
		return fmt.Errorf("saving queue item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving queue item: %w", err)
	}
	item.Revision = revision
	return nil
}

// Update replaces an item only if its stored revision still matches.
func (s *Store) Update(ctx context.Context, item *domain.QueueItem) (bool, error) {
	if item == nil || item.Key == "" {
		return false, domain.ErrInvalidInput
	}

	db, err := s.conn()
	if err != nil {
		return false, err
	}

	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return false, fmt.Errorf("encoding payload: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("updating queue item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	revision, err := nextRevision(ctx, tx)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE queue_items SET
			operation = ?, payload = ?, enqueued_at = ?, retry_count = ?,
			last_error = ?, failed = ?, revision = ?
		WHERE queue = ? AND item_key = ? AND revision = ?
	`, string(item.Operation), string(payload), formatTime(item.EnqueuedAt),
		item.RetryCount, nullString(item.LastError), boolToInt(item.Failed), revision,
		string(item.Queue), item.Key, item.Revision)
	if err != nil {
		return false, fmt.Errorf("updating queue item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating queue item: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("updating queue item: %w", err)
	}
	item.Revision = revision
	return true, nil
}

// Get retrieves an item by key.
func (s *Store) Get(ctx context.Context, queue domain.QueueName, key string) (*domain.QueueItem, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT queue, item_key, operation, payload, enqueued_at, retry_count, last_error, failed, revision
		FROM queue_items WHERE queue = ? AND item_key = ?
	`, string(queue), key)

	item, err := scanQueueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, queue domain.QueueName, key string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, "DELETE FROM queue_items WHERE queue = ? AND item_key = ?", string(queue), key)
	if err != nil {
		return fmt.Errorf("deleting queue item: %w", err)
	}
	return nil
}

// DeleteRevision removes an item only if its stored revision still matches.
func (s *Store) DeleteRevision(ctx context.Context, queue domain.QueueName, key string, revision int64) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx,
		"DELETE FROM queue_items WHERE queue = ? AND item_key = ? AND revision = ?",
		string(queue), key, revision)
	if err != nil {
		return false, fmt.Errorf("deleting queue item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting queue item: %w", err)
	}
	return n > 0, nil
}

// List returns all items in a queue in enqueue order.
func (s *Store) List(ctx context.Context, queue domain.QueueName) ([]domain.QueueItem, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT queue, item_key, operation, payload, enqueued_at, retry_count, last_error, failed, revision
		FROM queue_items WHERE queue = ?
		ORDER BY enqueued_at, rowid
	`, string(queue))
	if err != nil {
		return nil, fmt.Errorf("querying queue items: %w", err)
	}
	defer rows.Close()

	var items []domain.QueueItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating queue items: %w", err)
	}

	return items, nil
}

// Count returns the number of items in a queue.
func (s *Store) Count(ctx context.Context, queue domain.QueueName) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_items WHERE queue = ?", string(queue)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting queue items: %w", err)
	}
	return n, nil
}

// Clear removes every item from a queue.
func (s *Store) Clear(ctx context.Context, queue domain.QueueName) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM queue_items WHERE queue = ?", string(queue)); err != nil {
		return fmt.Errorf("clearing queue: %w", err)
	}
	return nil
}

// ==================== Metadata Store ====================

// GetMetadata returns the current sync flags.
// Missing rows read as zero values.
func (s *Store) GetMetadata(ctx context.Context) (*domain.SyncMetadata, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM sync_metadata")
	if err != nil {
		return nil, fmt.Errorf("querying sync metadata: %w", err)
	}
	defer rows.Close()

	meta := &domain.SyncMetadata{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning sync metadata: %w", err)
		}
		switch key {
		case metaLastSyncTime:
			meta.LastSyncTime = parseNullableTime(sql.NullString{String: value, Valid: true})
		case metaSyncInProgress:
			meta.SyncInProgress, _ = strconv.ParseBool(value)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync metadata: %w", err)
	}

	return meta, nil
}

// SetLastSyncTime records when the last pass completed.
func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.setMetadata(ctx, metaLastSyncTime, formatTime(t))
}

// SetSyncInProgress records the single-flight flag.
func (s *Store) SetSyncInProgress(ctx context.Context, inProgress bool) error {
	return s.setMetadata(ctx, metaSyncInProgress, strconv.FormatBool(inProgress))
}

func (s *Store) setMetadata(ctx context.Context, key, value string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sync_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("saving sync metadata %s: %w", key, err)
	}
	return nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanQueueItem scans a queue item and decodes its payload.
// sql.ErrNoRows is returned unwrapped so callers can map it.
func scanQueueItem(row rowScanner) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var queue, operation, payload, enqueuedAt string
	var lastError sql.NullString
	var failed int

	if err := row.Scan(&queue, &item.Key, &operation, &payload, &enqueuedAt,
		&item.RetryCount, &lastError, &failed, &item.Revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning queue item: %w", err)
	}

	item.Queue = domain.QueueName(queue)
	item.Operation = domain.Operation(operation)
	item.EnqueuedAt = parseNullableTime(sql.NullString{String: enqueuedAt, Valid: true})
	if lastError.Valid {
		item.LastError = lastError.String
	}
	item.Failed = failed == 1

	p, err := domain.DecodePayload(item.Queue, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decoding payload for %s/%s: %w", queue, item.Key, err)
	}
	item.Payload = p

	return &item, nil
}

// nextRevision advances the store-wide revision counter inside tx.
func nextRevision(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, "UPDATE queue_revision SET value = value + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("advancing revision: %w", err)
	}
	var revision int64
	if err := tx.QueryRowContext(ctx, "SELECT value FROM queue_revision WHERE id = 1").Scan(&revision); err != nil {
		return 0, fmt.Errorf("reading revision: %w", err)
	}
	return revision, nil
}

// formatTime formats a time in UTC with the fixed-width layout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseNullableTime parses a stored timestamp.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
