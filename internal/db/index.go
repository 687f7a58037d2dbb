package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gitter-badger/astroid/internal/models"
)

// IndexEntry describes a message file to add to the index.
type IndexEntry struct {
	Message models.Message
	// Subject names the thread when the thread is new.
	Subject string
}

// IndexMessage adds a message, creating its thread if needed, in one
// transaction. When ThreadID is empty the message joins its parent's thread,
// or starts a thread named after its own id when the parent is not indexed.
// It returns the thread id used.
func IndexMessage(ctx context.Context, pool *pgxpool.Pool, entry IndexEntry) (string, error) {
	msg := entry.Message
	if msg.MessageID == "" {
		return "", fmt.Errorf("message id is required")
	}

	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if msg.ThreadID == "" && msg.ParentMessageID != nil {
			parent, err := GetMessage(ctx, tx, *msg.ParentMessageID)
			switch {
			case err == nil:
				msg.ThreadID = parent.ThreadID
			case !errors.Is(err, ErrMessageNotFound):
				return err
			}
		}
		if msg.ThreadID == "" {
			msg.ThreadID = msg.MessageID
		}

		if _, err := GetThread(ctx, tx, msg.ThreadID); errors.Is(err, ErrThreadNotFound) {
			if err := SaveThread(ctx, tx, &models.Thread{ThreadID: msg.ThreadID, Subject: entry.Subject}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := SaveMessage(ctx, tx, &msg); err != nil {
			return err
		}
		return AddTags(ctx, tx, msg.MessageID, msg.Tags...)
	})
	if err != nil {
		return "", fmt.Errorf("failed to index message %s: %w", msg.MessageID, err)
	}

	return msg.ThreadID, nil
}
