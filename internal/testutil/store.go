package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gitter-badger/astroid/internal/store"
)

// FakeMessage is an in-memory store.Message.
type FakeMessage struct {
	MessageID string
	Path      string
	TagList   []string
	ReplyList []*FakeMessage

	// FilenameErr is returned by Filename when set.
	FilenameErr error
}

func (m *FakeMessage) ID() string { return m.MessageID }

func (m *FakeMessage) Filename(ctx context.Context) (string, error) {
	if m.FilenameErr != nil {
		return "", m.FilenameErr
	}
	return m.Path, nil
}

func (m *FakeMessage) Tags(ctx context.Context) ([]string, error) {
	return append([]string(nil), m.TagList...), nil
}

func (m *FakeMessage) Replies(ctx context.Context) ([]store.Message, error) {
	replies := make([]store.Message, 0, len(m.ReplyList))
	for _, r := range m.ReplyList {
		replies = append(replies, r)
	}
	return replies, nil
}

// FakeThread is an in-memory store.Thread.
type FakeThread struct {
	ThreadID      string
	ThreadSubject string
	Top           []*FakeMessage
}

func (t *FakeThread) ID() string      { return t.ThreadID }
func (t *FakeThread) Subject() string { return t.ThreadSubject }

func (t *FakeThread) TopLevel(ctx context.Context) ([]store.Message, error) {
	top := make([]store.Message, 0, len(t.Top))
	for _, m := range t.Top {
		top = append(top, m)
	}
	return top, nil
}

// FakeStore is a store.Store over fixed threads. Every message reachable
// from a thread is also addressable by id.
type FakeStore struct {
	mu       sync.Mutex
	threads  map[string]*FakeThread
	messages map[string]*FakeMessage

	// Scopes counts OnMessage and OnThread calls.
	Scopes int
}

// NewFakeStore indexes the given threads.
func NewFakeStore(threads ...*FakeThread) *FakeStore {
	s := &FakeStore{
		threads:  make(map[string]*FakeThread),
		messages: make(map[string]*FakeMessage),
	}
	for _, t := range threads {
		s.threads[t.ThreadID] = t
		for _, m := range t.Top {
			s.index(m)
		}
	}
	return s
}

func (s *FakeStore) index(m *FakeMessage) {
	if _, ok := s.messages[m.MessageID]; ok {
		return
	}
	s.messages[m.MessageID] = m
	for _, r := range m.ReplyList {
		s.index(r)
	}
}

func (s *FakeStore) OnMessage(ctx context.Context, id string, fn func(store.Message) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scopes++

	m, ok := s.messages[id]
	if !ok {
		return store.ErrMessageNotFound
	}
	return fn(m)
}

func (s *FakeStore) OnThread(ctx context.Context, id string, fn func(store.Thread) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scopes++

	t, ok := s.threads[id]
	if !ok {
		return store.ErrThreadNotFound
	}
	return fn(t)
}

// WriteMessage writes a raw RFC 822 message into dir and returns its path.
func WriteMessage(t *testing.T, dir, name, raw string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("Failed to write message %s: %v", path, err)
	}
	return path
}

// SimpleMessage returns a plain text message with the given headers.
func SimpleMessage(messageID, subject, body string) string {
	return "From: Alice <alice@example.com>\n" +
		"To: Bob <bob@example.com>\n" +
		"Subject: " + subject + "\n" +
		"Message-Id: <" + messageID + ">\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\n" +
		"Content-Type: text/plain; charset=utf-8\n" +
		"\n" +
		body + "\n"
}
