package thread

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitter-badger/astroid/internal/mailerr"
	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/store"
	"github.com/gitter-badger/astroid/internal/testutil"
)

func fakeMessage(t *testing.T, dir, id string, replies ...*testutil.FakeMessage) *testutil.FakeMessage {
	t.Helper()
	return &testutil.FakeMessage{
		MessageID: id,
		Path:      testutil.WriteMessage(t, dir, id+".eml", testutil.SimpleMessage(id+"@example.com", "msg "+id, "body "+id)),
		TagList:   []string{"inbox"},
		ReplyList: replies,
	}
}

func TestLoadMessages(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// A has replies B and C, B has reply D. E is a second top-level message.
	d := fakeMessage(t, dir, "D")
	b := fakeMessage(t, dir, "B", d)
	c := fakeMessage(t, dir, "C")
	a := fakeMessage(t, dir, "A", b, c)
	e := fakeMessage(t, dir, "E")

	tests := []struct {
		name       string
		top        []*testutil.FakeMessage
		wantIDs    []string
		wantLevels []int
	}{
		{
			name:       "replies follow their parent depth first",
			top:        []*testutil.FakeMessage{a},
			wantIDs:    []string{"A", "B", "D", "C"},
			wantLevels: []int{0, 1, 2, 1},
		},
		{
			name:       "second top-level message after the first subtree",
			top:        []*testutil.FakeMessage{a, e},
			wantIDs:    []string{"A", "B", "D", "C", "E"},
			wantLevels: []int{0, 1, 2, 1, 0},
		},
		{
			name: "empty thread",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewFakeStore(&testutil.FakeThread{ThreadID: "t1", ThreadSubject: "subject", Top: tt.top})
			th := NewFromStore("t1", message.Options{})

			require.NoError(t, th.LoadMessages(ctx, s))
			assert.True(t, th.InStore())
			assert.Equal(t, "subject", th.Subject)

			var ids []string
			var levels []int
			for _, m := range th.Messages {
				ids = append(ids, m.MessageID)
				levels = append(levels, m.Level)
				assert.Equal(t, []string{"inbox"}, m.Tags)
				assert.True(t, m.InStore())
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantLevels, levels)
		})
	}
}

func TestLoadMessagesReplyCycle(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name       string
		build      func() []*testutil.FakeMessage
		wantIDs    []string
		wantLevels []int
	}{
		{
			name: "two messages replying to each other",
			build: func() []*testutil.FakeMessage {
				a := fakeMessage(t, dir, "A")
				p := fakeMessage(t, dir, "P", a)
				a.ReplyList = []*testutil.FakeMessage{p}
				return []*testutil.FakeMessage{a}
			},
			wantIDs:    []string{"A", "P"},
			wantLevels: []int{0, 1},
		},
		{
			name: "message replying to itself",
			build: func() []*testutil.FakeMessage {
				s := fakeMessage(t, dir, "S")
				s.ReplyList = []*testutil.FakeMessage{s}
				return []*testutil.FakeMessage{s}
			},
			wantIDs:    []string{"S"},
			wantLevels: []int{0},
		},
		{
			name: "reply also listed as top-level",
			build: func() []*testutil.FakeMessage {
				r := fakeMessage(t, dir, "R")
				q := fakeMessage(t, dir, "Q", r)
				return []*testutil.FakeMessage{q, r}
			},
			wantIDs:    []string{"Q", "R"},
			wantLevels: []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewFakeStore(&testutil.FakeThread{ThreadID: "t1", Top: tt.build()})
			th := NewFromStore("t1", message.Options{})

			require.NoError(t, th.LoadMessages(ctx, s))

			var ids []string
			var levels []int
			for _, m := range th.Messages {
				ids = append(ids, m.MessageID)
				levels = append(levels, m.Level)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantLevels, levels)
		})
	}
}

func TestLoadMessagesIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a := fakeMessage(t, dir, "A", fakeMessage(t, dir, "B"))
	s := testutil.NewFakeStore(&testutil.FakeThread{ThreadID: "t1", Top: []*testutil.FakeMessage{a}})
	th := NewFromStore("t1", message.Options{})

	require.NoError(t, th.LoadMessages(ctx, s))
	require.NoError(t, th.LoadMessages(ctx, s))
	assert.Len(t, th.Messages, 2)
	assert.Equal(t, 2, s.Scopes)
}

func TestLoadMessagesFailure(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	broken := fakeMessage(t, dir, "B")
	broken.Path = filepath.Join(dir, "missing.eml")
	a := fakeMessage(t, dir, "A", broken)
	s := testutil.NewFakeStore(&testutil.FakeThread{ThreadID: "t1", Top: []*testutil.FakeMessage{a}})

	th := NewFromStore("t1", message.Options{})
	err := th.LoadMessages(ctx, s)
	assert.ErrorIs(t, err, mailerr.ErrContentAccess)
	assert.Empty(t, th.Messages)

	missing := NewFromStore("nope", message.Options{})
	err = missing.LoadMessages(ctx, s)
	assert.ErrorIs(t, err, store.ErrThreadNotFound)
	assert.Empty(t, missing.Messages)
}

const digest = `From: list@example.com
Subject: digest
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="mix"

--mix
Content-Type: text/plain

Two messages follow
--mix
Content-Type: message/rfc822

From: carol@example.com
Subject: first inner
Message-Id: <inner1@example.com>
Content-Type: text/plain

one
--mix
Content-Type: message/rfc822

From: dave@example.com
Subject: second inner
Message-Id: <inner2@example.com>
Content-Type: text/plain

two
--mix--
`

func TestAddMessagePart(t *testing.T) {
	outer, err := message.FromReader(strings.NewReader(digest), message.Options{})
	require.NoError(t, err)
	parts := outer.MimeMessages()
	require.Len(t, parts, 2)

	th := New(message.Options{})
	assert.False(t, th.InStore())

	for _, p := range parts {
		_, err := th.AddMessagePart(p)
		require.NoError(t, err)
	}

	require.Len(t, th.Messages, 2)
	assert.Equal(t, "inner1@example.com", th.Messages[0].MessageID)
	assert.Equal(t, "inner2@example.com", th.Messages[1].MessageID)
	assert.Equal(t, "first inner", th.Subject, "subject is adopted only once")

	_, err = th.AddMessagePart(outer.Root())
	assert.ErrorIs(t, err, ErrNotMessagePart)
	assert.ErrorIs(t, err, mailerr.ErrPrecondition)
	assert.Len(t, th.Messages, 2)
}

func TestAddMessageFile(t *testing.T) {
	dir := t.TempDir()
	th := New(message.Options{})

	for i := range 3 {
		id := fmt.Sprintf("m%d", i)
		path := testutil.WriteMessage(t, dir, id+".eml", testutil.SimpleMessage(id+"@example.com", "s", "b"))
		m, err := th.AddMessageFile(path)
		require.NoError(t, err)
		assert.Equal(t, 0, m.Level)
	}

	require.Len(t, th.Messages, 3)
	assert.Equal(t, "m2@example.com", th.Messages[2].MessageID)
	assert.Empty(t, th.Subject)

	_, err := th.AddMessageFile(filepath.Join(dir, "missing.eml"))
	assert.ErrorIs(t, err, mailerr.ErrContentAccess)
	assert.Len(t, th.Messages, 3)
}
