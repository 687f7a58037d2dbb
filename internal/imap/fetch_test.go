package imap

import (
	"context"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitter-badger/astroid/internal/config"
	"github.com/gitter-badger/astroid/internal/testutil"
)

func TestClientMailboxFetch(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	server.EnsureMailbox(t, "Archive")

	raw := testutil.SimpleMessage("fetch@example.com", "Fetched subject", "fetched body")
	uid := server.AppendMessage(t, "Archive", raw, imap.FlaggedFlag)

	mb := NewMailbox(server.Connect(t), "Archive")
	ctx := context.Background()

	t.Run("returns empty slice for no UIDs", func(t *testing.T) {
		got, err := mb.Fetch(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("fetches body flags and subject", func(t *testing.T) {
		got, err := mb.Fetch(ctx, []uint32{uid})
		require.NoError(t, err)
		require.Len(t, got, 1)

		assert.Equal(t, uid, got[0].UID)
		assert.NotZero(t, got[0].UIDValidity)
		assert.Equal(t, "Fetched subject", got[0].Subject)
		assert.Contains(t, got[0].Flags, imap.FlaggedFlag)
		assert.Contains(t, string(got[0].Body), "fetched body")
		assert.Contains(t, string(got[0].Body), "Message-Id: <fetch@example.com>")
	})

	t.Run("fails on a missing mailbox", func(t *testing.T) {
		missing := NewMailbox(server.Connect(t), "Nope")
		_, err := missing.Fetch(ctx, []uint32{1})
		assert.Error(t, err)
	})

	t.Run("honours a cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := mb.Fetch(cancelled, []uint32{uid})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestOpen(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)

	tests := []struct {
		name        string
		cfg         *config.Config
		expectError bool
	}{
		{
			name: "valid credentials",
			cfg: &config.Config{
				IMAPServer:   server.Address,
				IMAPUsername: server.Username(),
				IMAPPassword: server.Password(),
			},
		},
		{
			name: "wrong password",
			cfg: &config.Config{
				IMAPServer:   server.Address,
				IMAPUsername: server.Username(),
				IMAPPassword: "wrong",
			},
			expectError: true,
		},
		{
			name: "unreachable server",
			cfg: &config.Config{
				IMAPServer: "127.0.0.1:1",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Open(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_ = c.Logout()
		})
	}
}
