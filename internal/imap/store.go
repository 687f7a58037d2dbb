package imap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/fsutil"
	"github.com/gitter-badger/astroid/internal/store"
)

// Store serves threads and messages of one IMAP mailbox. Thread ids are the
// UID of the first top-level message and message ids are UIDs, both in
// decimal. Message bodies are cached as files under cacheDir so messages
// built from this store are file-backed.
type Store struct {
	mailbox  Mailbox
	name     string
	cacheDir string
	log      *zap.Logger
	mu       sync.Mutex
}

// NewStore creates a Store over mailbox. name is the mailbox name and picks
// the cache subdirectory. A nil logger disables logging.
func NewStore(mailbox Mailbox, name, cacheDir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		mailbox:  mailbox,
		name:     name,
		cacheDir: cacheDir,
		log:      log,
	}
}

func (s *Store) OnThread(ctx context.Context, id string, fn func(store.Thread) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	threads, err := s.mailbox.Threads(ctx)
	if err != nil {
		return err
	}

	var conv *conversation
	for _, c := range conversations(threads) {
		if c.id == id {
			conv = c
			break
		}
	}
	if conv == nil {
		return fmt.Errorf("imap: %w: %s", store.ErrThreadNotFound, id)
	}

	sc, err := s.newScope(ctx, conv.uids())
	if err != nil {
		return err
	}
	sc.conv = conv

	return fn(&threadHandle{scope: sc, conv: conv})
}

func (s *Store) OnMessage(ctx context.Context, id string, fn func(store.Message) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, err := parseUID(id)
	if err != nil {
		return fmt.Errorf("imap: %w: %s", store.ErrMessageNotFound, id)
	}

	sc, err := s.newScope(ctx, []uint32{uid})
	if err != nil {
		return err
	}
	if _, ok := sc.fetched[uid]; !ok {
		return fmt.Errorf("imap: %w: %s", store.ErrMessageNotFound, id)
	}

	return fn(&messageHandle{scope: sc, uid: uid})
}

func parseUID(id string) (uint32, error) {
	v, err := strconv.ParseUint(id, 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid UID %q", id)
	}
	return uint32(v), nil
}

// scope holds what one callback may read. Everything is fetched up front.
type scope struct {
	s       *Store
	fetched map[uint32]*FetchedMessage
	conv    *conversation
}

func (s *Store) newScope(ctx context.Context, uids []uint32) (*scope, error) {
	msgs, err := s.mailbox.Fetch(ctx, uids)
	if err != nil {
		return nil, err
	}

	fetched := make(map[uint32]*FetchedMessage, len(msgs))
	for i := range msgs {
		fetched[msgs[i].UID] = &msgs[i]
	}
	return &scope{s: s, fetched: fetched}, nil
}

// conversationOf finds the conversation containing uid, asking the server
// for the forest if the scope was opened for a single message.
func (sc *scope) conversationOf(ctx context.Context, uid uint32) (*replyNode, error) {
	if sc.conv != nil {
		if n, ok := sc.conv.find(uid); ok {
			return n, nil
		}
	}

	threads, err := sc.s.mailbox.Threads(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range conversations(threads) {
		if n, ok := c.find(uid); ok {
			sc.conv = c
			return n, nil
		}
	}
	return &replyNode{uid: uid}, nil
}

func (sc *scope) handles(nodes []*replyNode) []store.Message {
	out := make([]store.Message, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := sc.fetched[n.uid]; !ok {
			// expunged between THREAD and FETCH
			continue
		}
		out = append(out, &messageHandle{scope: sc, uid: n.uid, node: n})
	}
	return out
}

type threadHandle struct {
	scope *scope
	conv  *conversation
}

func (t *threadHandle) ID() string { return t.conv.id }

func (t *threadHandle) Subject() string {
	for _, n := range t.conv.topLevel {
		if fm, ok := t.scope.fetched[n.uid]; ok {
			return fm.Subject
		}
	}
	return ""
}

func (t *threadHandle) TopLevel(ctx context.Context) ([]store.Message, error) {
	return t.scope.handles(t.conv.topLevel), nil
}

type messageHandle struct {
	scope *scope
	uid   uint32
	node  *replyNode
}

func (m *messageHandle) ID() string {
	return strconv.FormatUint(uint64(m.uid), 10)
}

// Filename returns the cached body file, writing it on first use.
func (m *messageHandle) Filename(ctx context.Context) (string, error) {
	return m.scope.s.cache(m.scope.fetched[m.uid])
}

func (m *messageHandle) Tags(ctx context.Context) ([]string, error) {
	return flagsToTags(m.scope.fetched[m.uid].Flags), nil
}

func (m *messageHandle) Replies(ctx context.Context) ([]store.Message, error) {
	if m.node == nil {
		n, err := m.scope.conversationOf(ctx, m.uid)
		if err != nil {
			return nil, err
		}
		m.node = n
		if err := m.scope.fetchMissing(ctx, n.replies); err != nil {
			return nil, err
		}
	}
	return m.scope.handles(m.node.replies), nil
}

func (sc *scope) fetchMissing(ctx context.Context, nodes []*replyNode) error {
	var missing []uint32
	for _, n := range nodes {
		if _, ok := sc.fetched[n.uid]; !ok {
			missing = append(missing, n.uid)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	msgs, err := sc.s.mailbox.Fetch(ctx, missing)
	if err != nil {
		return err
	}
	for i := range msgs {
		sc.fetched[msgs[i].UID] = &msgs[i]
	}
	return nil
}

// cachePath is <cacheDir>/<mailbox>/<uidvalidity>/<uid>.eml, so a mailbox
// whose UIDs were reassigned never hits bodies cached under the old ones.
func (s *Store) cachePath(fm *FetchedMessage) string {
	return filepath.Join(
		s.cacheDir,
		fsutil.SafeFilename(s.name),
		strconv.FormatUint(uint64(fm.UIDValidity), 10),
		strconv.FormatUint(uint64(fm.UID), 10)+".eml",
	)
}

func (s *Store) cache(fm *FetchedMessage) (string, error) {
	path := s.cachePath(fm)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if fm.Body == nil {
		return "", fmt.Errorf("imap: no body for UID %d", fm.UID)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fetch-*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(fm.Body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store cache file: %w", err)
	}

	s.log.Debug("cached message body", zap.Uint32("uid", fm.UID), zap.String("path", path))
	return path, nil
}

// flagsToTags maps IMAP flags to tags. System flags without a tag
// equivalent are dropped, keywords are kept as they are.
func flagsToTags(flags []string) []string {
	seen := false
	tags := []string{}
	for _, f := range flags {
		switch f {
		case imap.SeenFlag:
			seen = true
		case imap.FlaggedFlag:
			tags = append(tags, "flagged")
		case imap.AnsweredFlag:
			tags = append(tags, "replied")
		case imap.DeletedFlag:
			tags = append(tags, "deleted")
		case imap.DraftFlag:
			tags = append(tags, "draft")
		default:
			if !strings.HasPrefix(f, "\\") {
				tags = append(tags, f)
			}
		}
	}
	if !seen {
		tags = append(tags, "unread")
	}
	sort.Strings(tags)
	return tags
}
