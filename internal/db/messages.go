package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gitter-badger/astroid/internal/models"
	"github.com/gitter-badger/astroid/internal/store"
)

// ErrMessageNotFound is returned when a requested message cannot be found.
var ErrMessageNotFound = fmt.Errorf("db: %w", store.ErrMessageNotFound)

const messageColumns = `
	m.message_id,
	m.thread_id,
	m.parent_message_id,
	m.filename,
	m.sent_at`

// SaveMessage saves or updates a message in the database. Tags are left
// alone, see AddTags.
func SaveMessage(ctx context.Context, q Querier, message *models.Message) error {
	_, err := q.Exec(ctx, `
		INSERT INTO messages (
			message_id,
			thread_id,
			parent_message_id,
			filename,
			sent_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			parent_message_id = EXCLUDED.parent_message_id,
			filename = EXCLUDED.filename,
			sent_at = EXCLUDED.sent_at
	`,
		message.MessageID,
		message.ThreadID,
		message.ParentMessageID,
		message.Filename,
		message.SentAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// GetMessage returns a message by its message id, without tags.
func GetMessage(ctx context.Context, q Querier, messageID string) (*models.Message, error) {
	var msg models.Message

	err := q.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.message_id = $1
	`, messageID).Scan(
		&msg.MessageID,
		&msg.ThreadID,
		&msg.ParentMessageID,
		&msg.Filename,
		&msg.SentAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

// GetReplies returns the direct replies to a message within a thread, oldest
// first. Replies filed in other threads are not returned.
func GetReplies(ctx context.Context, q Querier, threadID, messageID string) ([]*models.Message, error) {
	rows, err := q.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.thread_id = $1
		  AND m.parent_message_id = $2
		ORDER BY m.sent_at NULLS LAST, m.message_id
	`, threadID, messageID)

	if err != nil {
		return nil, fmt.Errorf("failed to get replies: %w", err)
	}

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]*models.Message, error) {
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.MessageID,
			&msg.ThreadID,
			&msg.ParentMessageID,
			&msg.Filename,
			&msg.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// AddTags adds tags to a message. Existing tags are kept.
func AddTags(ctx context.Context, q Querier, messageID string, tags ...string) error {
	for _, tag := range tags {
		_, err := q.Exec(ctx, `
			INSERT INTO message_tags (message_id, tag)
			VALUES ($1, $2)
			ON CONFLICT (message_id, tag) DO NOTHING
		`, messageID, tag)

		if err != nil {
			return fmt.Errorf("failed to add tag %q: %w", tag, err)
		}
	}

	return nil
}

// GetTags returns the tags of a message in alphabetical order.
func GetTags(ctx context.Context, q Querier, messageID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT tag
		FROM message_tags
		WHERE message_id = $1
		ORDER BY tag
	`, messageID)

	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}
