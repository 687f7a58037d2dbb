package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitter-badger/astroid/internal/models"
	"github.com/gitter-badger/astroid/internal/testutil"
)

func TestIndexMessage(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	tests := []struct {
		name       string
		entry      IndexEntry
		wantThread string
	}{
		{
			name: "first message starts a thread",
			entry: IndexEntry{
				Message: models.Message{MessageID: "root@x", Filename: "/m/root.eml", Tags: []string{"inbox"}},
				Subject: "Hello",
			},
			wantThread: "root@x",
		},
		{
			name: "reply joins the parent's thread",
			entry: IndexEntry{
				Message: models.Message{MessageID: "reply@x", Filename: "/m/reply.eml", ParentMessageID: ptr("root@x")},
				Subject: "Re: Hello",
			},
			wantThread: "root@x",
		},
		{
			name: "reply to an unknown parent starts its own thread",
			entry: IndexEntry{
				Message: models.Message{MessageID: "orphan@x", Filename: "/m/orphan.eml", ParentMessageID: ptr("gone@x")},
				Subject: "Re: lost",
			},
			wantThread: "orphan@x",
		},
		{
			name: "explicit thread wins",
			entry: IndexEntry{
				Message: models.Message{MessageID: "moved@x", ThreadID: "root@x", Filename: "/m/moved.eml"},
			},
			wantThread: "root@x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threadID, err := IndexMessage(ctx, pool, tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.wantThread, threadID)

			m, err := GetMessage(ctx, pool, tt.entry.Message.MessageID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantThread, m.ThreadID)
		})
	}

	row, err := GetThread(ctx, pool, "root@x")
	require.NoError(t, err)
	assert.Equal(t, "Hello", row.Subject, "replies keep the thread subject")

	tags, err := GetTags(ctx, pool, "root@x")
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox"}, tags)

	top, err := GetTopLevelMessages(ctx, pool, "orphan@x")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "orphan@x", top[0].MessageID)

	_, err = IndexMessage(ctx, pool, IndexEntry{})
	assert.Error(t, err)
}
