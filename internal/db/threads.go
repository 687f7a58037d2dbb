package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gitter-badger/astroid/internal/models"
	"github.com/gitter-badger/astroid/internal/store"
)

// ErrThreadNotFound is returned when a requested thread cannot be found.
var ErrThreadNotFound = fmt.Errorf("db: %w", store.ErrThreadNotFound)

// SaveThread saves or updates a thread in the database.
func SaveThread(ctx context.Context, q Querier, thread *models.Thread) error {
	_, err := q.Exec(ctx, `
		INSERT INTO threads (thread_id, subject)
		VALUES ($1, $2)
		ON CONFLICT (thread_id) DO UPDATE SET
			subject = EXCLUDED.subject
	`, thread.ThreadID, thread.Subject)

	if err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}

	return nil
}

// GetThread returns a thread by its id.
func GetThread(ctx context.Context, q Querier, threadID string) (*models.Thread, error) {
	var thread models.Thread

	err := q.QueryRow(ctx, `
		SELECT thread_id, subject
		FROM threads
		WHERE thread_id = $1
	`, threadID).Scan(
		&thread.ThreadID,
		&thread.Subject,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	return &thread, nil
}

// GetTopLevelMessages returns the messages of a thread whose parent is not in
// the same thread, oldest first.
func GetTopLevelMessages(ctx context.Context, q Querier, threadID string) ([]*models.Message, error) {
	rows, err := q.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.thread_id = $1
		  AND (m.parent_message_id IS NULL OR NOT EXISTS (
			SELECT 1 FROM messages p
			WHERE p.message_id = m.parent_message_id AND p.thread_id = m.thread_id
		  ))
		ORDER BY m.sent_at NULLS LAST, m.message_id
	`, threadID)

	if err != nil {
		return nil, fmt.Errorf("failed to get top-level messages: %w", err)
	}

	return scanMessages(rows)
}
