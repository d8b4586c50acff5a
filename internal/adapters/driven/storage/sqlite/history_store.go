package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// ==================== History Store ====================

// RecordPass logs a completed sync pass.
func (s *Store) RecordPass(ctx context.Context, result *domain.PassResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sync_history (started_at, ended_at, attempted, succeeded, failed, skipped, exhausted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, formatTime(result.StartedAt), formatTime(result.EndedAt),
		result.Attempted, result.Succeeded, result.Failed, result.Skipped, result.Exhausted,
		nullString(result.Error))
	if err != nil {
		return fmt.Errorf("recording sync pass: %w", err)
	}
	return nil
}

// ListPasses returns recent passes, most recent first.
// A limit of zero or less returns every recorded pass.
func (s *Store) ListPasses(ctx context.Context, limit int) ([]domain.PassResult, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT started_at, ended_at, attempted, succeeded, failed, skipped, exhausted, error
		FROM sync_history
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	var results []domain.PassResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanPassResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync history: %w", err)
	}

	return results, nil
}

// PruneHistory removes passes beyond the retention limit,
// keeping the most recent 'keep'.
func (s *Store) PruneHistory(ctx context.Context, keep int) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		DELETE FROM sync_history
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (ORDER BY started_at DESC, id DESC) as rn
				FROM sync_history
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning sync history: %w", err)
	}
	return nil
}

// scanPassResult scans a pass result from *sql.Rows.
func scanPassResult(rows *sql.Rows) (*domain.PassResult, error) {
	var result domain.PassResult
	var startedAt, endedAt string
	var errMsg sql.NullString

	if err := rows.Scan(&startedAt, &endedAt, &result.Attempted, &result.Succeeded,
		&result.Failed, &result.Skipped, &result.Exhausted, &errMsg); err != nil {
		return nil, fmt.Errorf("scanning sync pass: %w", err)
	}

	result.StartedAt = parseNullableTime(sql.NullString{String: startedAt, Valid: true})
	result.EndedAt = parseNullableTime(sql.NullString{String: endedAt, Valid: true})
	if errMsg.Valid {
		result.Error = errMsg.String
	}

	return &result, nil
}
