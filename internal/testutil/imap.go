package testutil

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an IMAP server on a random local port backed by the
// go-imap memory backend. The backend has one user, "username" with
// password "password".
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	username string
	password string
}

// NewTestIMAPServer starts a server and registers its shutdown with t.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()
	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		_ = s.Serve(listener)
	}()

	// Give server time to start
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return &TestIMAPServer{
		Server:   s,
		Address:  listener.Addr().String(),
		Backend:  be,
		username: "username",
		password: "password",
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Connect opens a logged-in client. The connection is logged out on cleanup.
func (s *TestIMAPServer) Connect(t *testing.T) *imapclient.Client {
	t.Helper()

	c, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := c.Login(s.username, s.password); err != nil {
		_ = c.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	t.Cleanup(func() {
		_ = c.Logout()
	})

	return c
}

// EnsureMailbox creates the mailbox unless it already exists.
func (s *TestIMAPServer) EnsureMailbox(t *testing.T, name string) {
	t.Helper()

	c := s.Connect(t)
	if _, err := c.Select(name, true); err == nil {
		return
	}
	if err := c.Create(name); err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
}

// AppendMessage stores raw in the mailbox with the given flags and returns
// the UID the server assigned to it, the highest in the mailbox.
func (s *TestIMAPServer) AppendMessage(t *testing.T, mailbox, raw string, flags ...string) uint32 {
	t.Helper()

	c := s.Connect(t)
	if _, err := c.Select(mailbox, false); err != nil {
		t.Fatalf("Failed to select %s: %v", mailbox, err)
	}

	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\n", "\r\n")
	if err := c.Append(mailbox, flags, time.Now(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	uids, err := c.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	last := uids[0]
	for _, uid := range uids {
		if uid > last {
			last = uid
		}
	}
	return last
}
