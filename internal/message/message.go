// Package message wraps one decoded email: its header fields, receipt time,
// part tree and, for indexed messages, its tags.
package message

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/chunk"
	"github.com/gitter-badger/astroid/internal/fsutil"
	"github.com/gitter-badger/astroid/internal/mailerr"
	"github.com/gitter-badger/astroid/internal/store"
)

var (
	// ErrNotInStore is returned by LoadTags on a message not read from a store.
	ErrNotInStore = fmt.Errorf("%w: message is not in the store", mailerr.ErrPrecondition)
	// ErrNoMessageID is returned by LoadTags when the message has no id.
	ErrNoMessageID = fmt.Errorf("%w: message has no message id", mailerr.ErrPrecondition)
	// ErrNotMimeMessage is returned by FromNode for parts that are not
	// embedded messages.
	ErrNotMimeMessage = fmt.Errorf("%w: part is not an embedded message", mailerr.ErrPrecondition)
)

// Source says where a message was loaded from.
type Source interface {
	isSource()
}

// InStore is a message known to the store, always backed by a file.
type InStore struct {
	ID   string
	Path string
}

// FileOnly is a message read from a file outside the store.
type FileOnly struct {
	Path string
}

// InMemory is a message that only exists as a decoded object.
type InMemory struct{}

func (InStore) isSource()  {}
func (FileOnly) isSource() {}
func (InMemory) isSource() {}

// Options control message construction.
type Options struct {
	Tree   chunk.Options
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Message is a decoded email. It is immutable after construction except for
// Tags, which LoadTags refreshes.
type Message struct {
	MessageID  string
	Subject    string
	Sender     string
	InReplyTo  string
	References string
	ReplyTo    string
	Received   time.Time

	// Level is the depth within a thread, 0 for top-level messages.
	Level int
	Tags  []string

	Source Source

	env    *enmime.Envelope
	tree   *chunk.Tree
	logger *zap.Logger
}

// FromFile loads a message from a file outside the store.
func FromFile(path string, opts Options) (*Message, error) {
	return FromFileWithID("", path, opts)
}

// FromFileWithID loads a message from a file using a known message id
// instead of the one in its header.
func FromFileWithID(mid, path string, opts Options) (*Message, error) {
	log := opts.logger()
	log.Info("loading message from file", zap.String("path", path), zap.String("message_id", mid))

	env, err := readFile(path)
	if err != nil {
		log.Error("failed to load message", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	return newMessage(env, mid, FileOnly{Path: path}, opts)
}

// FromStore loads the message behind an index handle, with its file and
// tags. It must be called inside the store callback that produced h.
func FromStore(ctx context.Context, h store.Message, level int, opts Options) (*Message, error) {
	log := opts.logger()
	log.Info("loading message from store", zap.String("message_id", h.ID()))

	path, err := h.Filename(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get filename of %s: %w", h.ID(), err)
	}

	env, err := readFile(path)
	if err != nil {
		log.Error("failed to load message", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	m, err := newMessage(env, h.ID(), InStore{ID: h.ID(), Path: path}, opts)
	if err != nil {
		return nil, err
	}
	m.Level = level

	if m.Tags, err = h.Tags(ctx); err != nil {
		return nil, fmt.Errorf("failed to get tags of %s: %w", h.ID(), err)
	}

	return m, nil
}

// FromEnvelope wraps an already decoded message.
func FromEnvelope(env *enmime.Envelope, opts Options) (*Message, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: no message", mailerr.ErrContentAccess)
	}
	return newMessage(env, "", InMemory{}, opts)
}

// FromReader decodes a message from r and keeps it in memory only.
func FromReader(r io.Reader, opts Options) (*Message, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode message: %v", mailerr.ErrContentAccess, err)
	}
	return FromEnvelope(env, opts)
}

// FromNode builds a message from an embedded message/rfc822 part.
func FromNode(n *chunk.Node, opts Options) (*Message, error) {
	if n == nil || !n.MimeMessage || n.Envelope() == nil {
		return nil, ErrNotMimeMessage
	}
	return FromEnvelope(n.Envelope(), opts)
}

func readFile(path string) (*enmime.Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", mailerr.ErrContentAccess, path, err)
	}
	defer f.Close()

	env, err := enmime.ReadEnvelope(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", mailerr.ErrContentAccess, path, err)
	}
	return env, nil
}

func newMessage(env *enmime.Envelope, mid string, src Source, opts Options) (*Message, error) {
	tree, err := chunk.Build(env.Root, opts.Tree)
	if err != nil {
		return nil, err
	}

	m := &Message{
		MessageID:  mid,
		Subject:    env.GetHeader("Subject"),
		Sender:     env.GetHeader("From"),
		InReplyTo:  env.GetHeader("In-Reply-To"),
		References: env.GetHeader("References"),
		ReplyTo:    env.GetHeader("Reply-To"),
		Received:   parseDate(env.GetHeader("Date")),
		Source:     src,
		env:        env,
		tree:       tree,
		logger:     opts.logger(),
	}

	if m.MessageID == "" {
		m.MessageID = strings.Trim(env.GetHeader("Message-Id"), "<> \t")
	}
	if m.MessageID == "" {
		m.MessageID = generatedID()
	}

	return m, nil
}

// generatedID stands in for a missing Message-Id header.
func generatedID() string {
	return "astroid-" + strings.ToLower(fsutil.RandomAlphanumeric(16)) + "@localhost"
}

// parseDate parses a Date header, falling back to a lenient parser for the
// malformed dates common in old mail. Unparseable dates yield the zero time.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t
	}
	if t, err := dateparse.ParseAny(value); err == nil {
		return t
	}
	return time.Time{}
}

// HasFile reports whether the message is backed by a file.
func (m *Message) HasFile() bool {
	_, ok := m.path()
	return ok
}

// InStore reports whether the message was read from the store.
func (m *Message) InStore() bool {
	_, ok := m.Source.(InStore)
	return ok
}

func (m *Message) path() (string, bool) {
	switch s := m.Source.(type) {
	case InStore:
		return s.Path, true
	case FileOnly:
		return s.Path, true
	}
	return "", false
}

// Path returns the backing file, or "" for in-memory messages.
func (m *Message) Path() string {
	p, _ := m.path()
	return p
}

// Envelope returns the decoded message.
func (m *Message) Envelope() *enmime.Envelope {
	return m.env
}

// Tree returns the part tree.
func (m *Message) Tree() *chunk.Tree {
	return m.tree
}

// Root returns the top-level part.
func (m *Message) Root() *chunk.Node {
	return m.tree.Root()
}

// LoadTags refreshes Tags from the store. The message must have been read
// from the store and have a message id.
func (m *Message) LoadTags(ctx context.Context, s store.Store) error {
	if !m.InStore() {
		m.logger.Error("load tags on message not in store", zap.String("message_id", m.MessageID))
		return ErrNotInStore
	}
	if m.MessageID == "" {
		m.logger.Error("load tags on message without id")
		return ErrNoMessageID
	}

	return s.OnMessage(ctx, m.MessageID, func(h store.Message) error {
		tags, err := h.Tags(ctx)
		if err != nil {
			return fmt.Errorf("failed to get tags of %s: %w", m.MessageID, err)
		}
		m.Tags = tags
		return nil
	})
}

// ViewableText renders the body, see chunk.Tree.ViewableText.
func (m *Message) ViewableText(html, fallbackHTML bool) (string, error) {
	return m.tree.ViewableText(html, fallbackHTML)
}

// Attachments returns every attachment part in document order.
func (m *Message) Attachments() []*chunk.Node {
	return m.tree.Attachments()
}

// MimeMessages returns every embedded message part in document order.
func (m *Message) MimeMessages() []*chunk.Node {
	return m.tree.MimeMessages()
}

// ChunkByID looks up a part by its id.
func (m *Message) ChunkByID(id int) (*chunk.Node, bool) {
	return m.tree.ByID(id)
}

// Contents returns the payload of the root part.
func (m *Message) Contents() []byte {
	return m.Root().Contents()
}

// Raw returns the message as stored: the backing file bytes, or the encoded
// in-memory message.
func (m *Message) Raw() ([]byte, error) {
	if p, ok := m.path(); ok {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", mailerr.ErrIO, p, err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	if err := m.env.Root.Encode(&buf); err != nil {
		return nil, fmt.Errorf("%w: failed to encode message: %v", mailerr.ErrIO, err)
	}
	return buf.Bytes(), nil
}
