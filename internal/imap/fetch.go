package imap

import (
	"context"
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// FetchedMessage is one message as returned by UID FETCH. UIDValidity is the
// mailbox UIDVALIDITY at fetch time; UID is only meaningful together with it.
type FetchedMessage struct {
	UID         uint32
	UIDValidity uint32
	Flags       []string
	Subject     string
	Body        []byte
}

// Mailbox is the part of a selected IMAP mailbox the store reads from.
type Mailbox interface {
	// Threads returns the THREAD REFERENCES forest of the mailbox.
	Threads(ctx context.Context) ([]*sortthread.Thread, error)
	// Fetch returns the messages with the given UIDs. Unknown UIDs are
	// skipped. The \Seen flag is not changed.
	Fetch(ctx context.Context, uids []uint32) ([]FetchedMessage, error)
}

type clientMailbox struct {
	c    *client.Client
	name string
}

// NewMailbox returns a Mailbox reading the named mailbox through c. The
// mailbox is selected read-only before every command.
func NewMailbox(c *client.Client, name string) Mailbox {
	return &clientMailbox{c: c, name: name}
}

func (m *clientMailbox) selectMailbox() (*imap.MailboxStatus, error) {
	if m.c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	status, err := m.c.Select(m.name, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", m.name, err)
	}
	return status, nil
}

func (m *clientMailbox) Threads(ctx context.Context) ([]*sortthread.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := m.selectMailbox(); err != nil {
		return nil, err
	}
	return RunThreadCommand(m.c)
}

func (m *clientMailbox) Fetch(ctx context.Context, uids []uint32) ([]FetchedMessage, error) {
	if len(uids) == 0 {
		return []FetchedMessage{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status, err := m.selectMailbox()
	if err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- m.c.UidFetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	fetched := make([]FetchedMessage, 0, len(result))
	for _, msg := range result {
		fm := FetchedMessage{
			UID:         msg.Uid,
			UIDValidity: status.UidValidity,
			Flags:       msg.Flags,
		}
		if msg.Envelope != nil {
			fm.Subject = msg.Envelope.Subject
		}
		if body := msg.GetBody(section); body != nil {
			raw, err := io.ReadAll(body)
			if err != nil {
				return nil, fmt.Errorf("failed to read body of UID %d: %w", msg.Uid, err)
			}
			fm.Body = raw
		}
		fetched = append(fetched, fm)
	}

	return fetched, nil
}
