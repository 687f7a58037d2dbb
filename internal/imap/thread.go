package imap

import (
	"fmt"
	"strconv"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// RunThreadCommand runs UID THREAD REFERENCES over the selected mailbox.
func RunThreadCommand(c *client.Client) ([]*sortthread.Thread, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	threadClient := sortthread.NewThreadClient(c)

	threads, err := threadClient.UidThread(sortthread.References, imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("THREAD command returned error: %w", err)
	}

	return threads, nil
}

// replyNode is one message in a conversation. Dummy nodes of the THREAD
// response have already been removed.
type replyNode struct {
	uid     uint32
	replies []*replyNode
}

// conversation is one top-level entry of the THREAD response.
type conversation struct {
	id       string
	topLevel []*replyNode
}

// conversations converts a THREAD response into conversations. A dummy node
// (UID 0) is replaced by its children, so a conversation whose root message
// is missing has several top-level messages. Conversations without any
// message are dropped.
func conversations(threads []*sortthread.Thread) []*conversation {
	var out []*conversation
	for _, t := range threads {
		top := flatten([]*sortthread.Thread{t})
		if len(top) == 0 {
			continue
		}
		out = append(out, &conversation{
			id:       strconv.FormatUint(uint64(top[0].uid), 10),
			topLevel: top,
		})
	}
	return out
}

func flatten(threads []*sortthread.Thread) []*replyNode {
	var out []*replyNode
	for _, t := range threads {
		if t == nil {
			continue
		}
		if t.Id == 0 {
			out = append(out, flatten(t.Children)...)
			continue
		}
		out = append(out, &replyNode{uid: t.Id, replies: flatten(t.Children)})
	}
	return out
}

// uids returns every UID of the conversation in pre-order.
func (c *conversation) uids() []uint32 {
	var out []uint32
	var walk func([]*replyNode)
	walk = func(nodes []*replyNode) {
		for _, n := range nodes {
			out = append(out, n.uid)
			walk(n.replies)
		}
	}
	walk(c.topLevel)
	return out
}

// find returns the node with the given UID.
func (c *conversation) find(uid uint32) (*replyNode, bool) {
	var walk func([]*replyNode) *replyNode
	walk = func(nodes []*replyNode) *replyNode {
		for _, n := range nodes {
			if n.uid == uid {
				return n
			}
			if found := walk(n.replies); found != nil {
				return found
			}
		}
		return nil
	}
	n := walk(c.topLevel)
	return n, n != nil
}
