package database

import (
	"context"
	"fmt"
	"time"
)

// SeenMessageRepo persists fingerprints of messages the monitor has already
// processed. Records are written once and never mutated or deleted, so a
// restart cannot re-trigger on a message handled before a crash.
type SeenMessageRepo struct {
	db *DB
}

func NewSeenMessageRepo(db *DB) *SeenMessageRepo {
	return &SeenMessageRepo{db: db}
}

func (r *SeenMessageRepo) HasSeen(ctx context.Context, fingerprint string) (bool, error) {
	query := `SELECT COUNT(1) FROM seen_messages WHERE fingerprint = ?`

	var count int
	if err := r.db.conn.QueryRowContext(ctx, query, fingerprint).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query seen message: %w", err)
	}

	return count > 0, nil
}

// MarkSeen records a fingerprint. Marking an already-present fingerprint is
// a no-op that preserves the original first_seen.
func (r *SeenMessageRepo) MarkSeen(ctx context.Context, fingerprint string, now time.Time) error {
	query := `INSERT OR IGNORE INTO seen_messages (fingerprint, first_seen) VALUES (?, ?)`

	if _, err := r.db.conn.ExecContext(ctx, query, fingerprint, now.UTC()); err != nil {
		return fmt.Errorf("failed to mark message seen: %w", err)
	}

	return nil
}

func (r *SeenMessageRepo) CountSeen(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(1) FROM seen_messages`

	var count int64
	if err := r.db.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count seen messages: %w", err)
	}

	return count, nil
}

func (r *SeenMessageRepo) FirstSeen(ctx context.Context, fingerprint string) (time.Time, error) {
	query := `SELECT first_seen FROM seen_messages WHERE fingerprint = ?`

	var firstSeen time.Time
	if err := r.db.conn.QueryRowContext(ctx, query, fingerprint).Scan(&firstSeen); err != nil {
		return time.Time{}, fmt.Errorf("failed to query first seen: %w", err)
	}

	return firstSeen, nil
}
