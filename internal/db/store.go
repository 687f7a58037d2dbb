package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gitter-badger/astroid/internal/models"
	"github.com/gitter-badger/astroid/internal/store"
)

// Store serves the message index from Postgres. Each callback runs with the
// store locked and inside its own read-only transaction.
type Store struct {
	pool *pgxpool.Pool
	mu   sync.Mutex
}

// NewStore creates a Store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) OnThread(ctx context.Context, id string, fn func(store.Thread) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readOnly(ctx, func(tx pgx.Tx) error {
		thread, err := GetThread(ctx, tx, id)
		if err != nil {
			return err
		}
		return fn(&threadHandle{tx: tx, row: thread})
	})
}

func (s *Store) OnMessage(ctx context.Context, id string, fn func(store.Message) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readOnly(ctx, func(tx pgx.Tx) error {
		msg, err := GetMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		return fn(&messageHandle{tx: tx, row: msg})
	})
}

func (s *Store) readOnly(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type threadHandle struct {
	tx  pgx.Tx
	row *models.Thread
}

func (t *threadHandle) ID() string      { return t.row.ThreadID }
func (t *threadHandle) Subject() string { return t.row.Subject }

func (t *threadHandle) TopLevel(ctx context.Context) ([]store.Message, error) {
	rows, err := GetTopLevelMessages(ctx, t.tx, t.row.ThreadID)
	if err != nil {
		return nil, err
	}
	return handles(t.tx, rows), nil
}

type messageHandle struct {
	tx  pgx.Tx
	row *models.Message
}

func (m *messageHandle) ID() string { return m.row.MessageID }

func (m *messageHandle) Filename(ctx context.Context) (string, error) {
	return m.row.Filename, nil
}

func (m *messageHandle) Tags(ctx context.Context) ([]string, error) {
	return GetTags(ctx, m.tx, m.row.MessageID)
}

func (m *messageHandle) Replies(ctx context.Context) ([]store.Message, error) {
	rows, err := GetReplies(ctx, m.tx, m.row.ThreadID, m.row.MessageID)
	if err != nil {
		return nil, err
	}
	return handles(m.tx, rows), nil
}

func handles(tx pgx.Tx, rows []*models.Message) []store.Message {
	out := make([]store.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, &messageHandle{tx: tx, row: row})
	}
	return out
}
