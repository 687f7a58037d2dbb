// Package store describes the mail index that messages and threads are read
// from. Adapters live in internal/db (Postgres) and internal/imap.
package store

import (
	"context"
	"errors"
)

var (
	// ErrMessageNotFound is returned when a message id is unknown to the store.
	ErrMessageNotFound = errors.New("message not found")
	// ErrThreadNotFound is returned when a thread id is unknown to the store.
	ErrThreadNotFound = errors.New("thread not found")
)

// Store gives scoped access to the index. The callback runs with the store
// locked and inside one read transaction; handles passed to it must not be
// used after it returns.
type Store interface {
	OnMessage(ctx context.Context, id string, fn func(Message) error) error
	OnThread(ctx context.Context, id string, fn func(Thread) error) error
}

// Thread is a reply graph handle.
type Thread interface {
	ID() string
	Subject() string
	// TopLevel returns the messages that start the thread, in order.
	TopLevel(ctx context.Context) ([]Message, error)
}

// Message is an indexed message handle.
type Message interface {
	ID() string
	// Filename returns the path of the backing file.
	Filename(ctx context.Context) (string, error)
	Tags(ctx context.Context) ([]string, error)
	// Replies returns the direct replies, in order.
	Replies(ctx context.Context) ([]Message, error)
}
