package imap

import (
	"testing"

	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(uid uint32) *sortthread.Thread {
	return &sortthread.Thread{Id: uid}
}

func TestRunThreadCommandNilClient(t *testing.T) {
	_, err := RunThreadCommand(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client is nil")
}

func TestConversations(t *testing.T) {
	tests := []struct {
		name     string
		threads  []*sortthread.Thread
		wantIDs  []string
		wantUIDs [][]uint32
		wantTop  [][]uint32
	}{
		{
			name:    "empty mailbox",
			threads: nil,
		},
		{
			name: "single message threads",
			threads: []*sortthread.Thread{
				leaf(3),
				leaf(1),
			},
			wantIDs:  []string{"3", "1"},
			wantUIDs: [][]uint32{{3}, {1}},
			wantTop:  [][]uint32{{3}, {1}},
		},
		{
			name: "nested replies in pre-order",
			threads: []*sortthread.Thread{
				{Id: 1, Children: []*sortthread.Thread{
					{Id: 2, Children: []*sortthread.Thread{leaf(4)}},
					leaf(3),
				}},
			},
			wantIDs:  []string{"1"},
			wantUIDs: [][]uint32{{1, 2, 4, 3}},
			wantTop:  [][]uint32{{1}},
		},
		{
			name: "dummy root becomes several top-level messages",
			threads: []*sortthread.Thread{
				{Id: 0, Children: []*sortthread.Thread{
					leaf(5),
					{Id: 6, Children: []*sortthread.Thread{leaf(7)}},
				}},
			},
			wantIDs:  []string{"5"},
			wantUIDs: [][]uint32{{5, 6, 7}},
			wantTop:  [][]uint32{{5, 6}},
		},
		{
			name: "dummy in the middle lifts its children",
			threads: []*sortthread.Thread{
				{Id: 1, Children: []*sortthread.Thread{
					{Id: 0, Children: []*sortthread.Thread{leaf(2), leaf(3)}},
				}},
			},
			wantIDs:  []string{"1"},
			wantUIDs: [][]uint32{{1, 2, 3}},
			wantTop:  [][]uint32{{1}},
		},
		{
			name: "thread of dummies only is dropped",
			threads: []*sortthread.Thread{
				{Id: 0},
				leaf(9),
			},
			wantIDs:  []string{"9"},
			wantUIDs: [][]uint32{{9}},
			wantTop:  [][]uint32{{9}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			convs := conversations(tt.threads)
			require.Len(t, convs, len(tt.wantIDs))

			for i, c := range convs {
				assert.Equal(t, tt.wantIDs[i], c.id)
				assert.Equal(t, tt.wantUIDs[i], c.uids())

				var top []uint32
				for _, n := range c.topLevel {
					top = append(top, n.uid)
				}
				assert.Equal(t, tt.wantTop[i], top)
			}
		})
	}
}

func TestConversationFind(t *testing.T) {
	convs := conversations([]*sortthread.Thread{
		{Id: 1, Children: []*sortthread.Thread{
			{Id: 2, Children: []*sortthread.Thread{leaf(4)}},
			leaf(3),
		}},
	})
	require.Len(t, convs, 1)

	n, ok := convs[0].find(2)
	require.True(t, ok)
	require.Len(t, n.replies, 1)
	assert.Equal(t, uint32(4), n.replies[0].uid)

	_, ok = convs[0].find(42)
	assert.False(t, ok)
}
