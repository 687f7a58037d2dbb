// Package thread assembles conversations: an ordered, depth annotated list of
// messages walked from a store reply graph, or built by hand.
package thread

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/chunk"
	"github.com/gitter-badger/astroid/internal/mailerr"
	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/store"
)

// ErrNotMessagePart is returned by AddMessagePart for parts that are not
// embedded messages.
var ErrNotMessagePart = fmt.Errorf("%w: only message/rfc822 parts can be added to a thread", mailerr.ErrPrecondition)

// Thread is an ordered sequence of messages. Order is pre-order over the
// reply graph: each message is followed by its whole reply subtree.
type Thread struct {
	ThreadID string
	Subject  string
	Messages []*message.Message

	inStore bool
	opts    message.Options
	log     *zap.Logger
}

// New returns an empty thread for messages added by hand.
func New(opts message.Options) *Thread {
	return &Thread{opts: opts, log: logger(opts)}
}

// NewFromStore returns an unloaded thread for a store thread id. Call
// LoadMessages to fill it.
func NewFromStore(threadID string, opts message.Options) *Thread {
	return &Thread{ThreadID: threadID, inStore: true, opts: opts, log: logger(opts)}
}

func logger(opts message.Options) *zap.Logger {
	if opts.Logger == nil {
		return zap.NewNop()
	}
	return opts.Logger
}

// InStore reports whether the thread is backed by the store.
func (t *Thread) InStore() bool {
	return t.inStore
}

// LoadMessages replaces the messages with a walk of the thread's reply graph.
// Top-level messages get level 0 and every reply one more than its parent. On
// any failure the thread is left empty.
func (t *Thread) LoadMessages(ctx context.Context, s store.Store) error {
	t.Messages = nil

	var loaded []*message.Message
	err := s.OnThread(ctx, t.ThreadID, func(h store.Thread) error {
		t.Subject = h.Subject()

		top, err := h.TopLevel(ctx)
		if err != nil {
			return fmt.Errorf("failed to get top-level messages: %w", err)
		}

		seen := make(map[string]bool)
		for _, mh := range top {
			if loaded, err = t.visit(ctx, mh, 0, seen, loaded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.log.Error("failed to load thread", zap.String("thread_id", t.ThreadID), zap.Error(err))
		return fmt.Errorf("failed to load thread %s: %w", t.ThreadID, err)
	}

	t.Messages = loaded
	return nil
}

// visit appends mh and then its replies, depth first. A message already in
// seen is skipped, so a reply graph with cycles is walked once.
func (t *Thread) visit(ctx context.Context, mh store.Message, level int, seen map[string]bool, acc []*message.Message) ([]*message.Message, error) {
	if seen[mh.ID()] {
		t.log.Warn("skipping message seen earlier in thread",
			zap.String("thread_id", t.ThreadID),
			zap.String("message_id", mh.ID()),
		)
		return acc, nil
	}
	seen[mh.ID()] = true

	m, err := message.FromStore(ctx, mh, level, t.opts)
	if err != nil {
		return nil, err
	}
	acc = append(acc, m)

	replies, err := mh.Replies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get replies of %s: %w", mh.ID(), err)
	}

	for _, r := range replies {
		if acc, err = t.visit(ctx, r, level+1, seen, acc); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// AddMessageFile appends a message read from path. Its level is left at 0.
func (t *Thread) AddMessageFile(path string) (*message.Message, error) {
	m, err := message.FromFile(path, t.opts)
	if err != nil {
		return nil, err
	}
	t.AddMessage(m)
	return m, nil
}

// AddMessagePart appends the message embedded in a message/rfc822 part. A
// thread without a subject adopts the subject of the added message.
func (t *Thread) AddMessagePart(n *chunk.Node) (*message.Message, error) {
	if n == nil || !n.MimeMessage {
		t.log.Error("can only add message parts to a thread")
		return nil, ErrNotMessagePart
	}

	m, err := message.FromNode(n, t.opts)
	if err != nil {
		return nil, err
	}

	t.AddMessage(m)
	if t.Subject == "" {
		t.Subject = m.Subject
	}
	return m, nil
}

// AddMessage appends an already constructed message.
func (t *Thread) AddMessage(m *message.Message) {
	t.Messages = append(t.Messages, m)
}
