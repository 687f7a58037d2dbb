package chunk

import (
	"fmt"
	"html"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"

	"github.com/gitter-badger/astroid/internal/fsutil"
	"github.com/gitter-badger/astroid/internal/mailerr"
)

// Node is a single MIME part of a Tree. Nodes are created by Build and are
// read-only afterwards.
type Node struct {
	// ID is unique within the tree, assigned in pre-order starting at 0.
	ID int

	ContentType string
	Disposition string
	Filename    string
	ContentID   string
	Charset     string

	// Viewable parts render as text: text/plain or text/html.
	Viewable bool
	// Attachment parts are downloadable files, see the flag policy.
	Attachment bool
	// Preferred marks the representative of an alternative group, or a
	// viewable part outside any group whose type is in the preference order.
	Preferred bool
	// MimeMessage parts are embedded message/rfc822 messages. Their only
	// kid is the root of the embedded message.
	MimeMessage bool

	tree     *Tree
	kids     []int
	group    int
	part     *enmime.Part
	embedded *enmime.Envelope
}

// Kids returns the child parts in document order.
func (n *Node) Kids() []*Node {
	kids := make([]*Node, 0, len(n.kids))
	for _, id := range n.kids {
		kids = append(kids, n.tree.nodes[id])
	}
	return kids
}

// Siblings returns the other members of the node's multipart/alternative
// group, or nil when the node is not an alternative.
func (n *Node) Siblings() []*Node {
	if n.group < 0 {
		return nil
	}

	var siblings []*Node
	for _, id := range n.tree.groups[n.group] {
		if id != n.ID {
			siblings = append(siblings, n.tree.nodes[id])
		}
	}
	return siblings
}

// Contents returns the decoded payload. Text parts are UTF-8. The returned
// slice is shared with the tree and must not be modified.
func (n *Node) Contents() []byte {
	if n.part == nil {
		return nil
	}
	return n.part.Content
}

// Envelope returns the decoded embedded message of a MimeMessage node.
func (n *Node) Envelope() *enmime.Envelope {
	return n.embedded
}

// Part returns the decoder's part this node was built from.
func (n *Node) Part() *enmime.Part {
	return n.part
}

// Text renders a viewable node. With asHTML set, plain text is escaped into
// HTML; otherwise HTML is flattened to text. Non-viewable nodes render empty.
func (n *Node) Text(asHTML bool) string {
	if !n.Viewable {
		return ""
	}

	content := string(n.Contents())
	switch {
	case n.ContentType == TextHTML && asHTML:
		return content
	case n.ContentType == TextHTML:
		text, err := html2text.FromString(content, html2text.Options{})
		if err != nil {
			return content
		}
		return text
	case asHTML:
		return strings.ReplaceAll(html.EscapeString(content), "\n", "<br>")
	default:
		return content
	}
}

// SuggestedFilename returns the name to save this part under, with suffix
// inserted before the extension when not empty.
func (n *Node) SuggestedFilename(suffix string) string {
	name := n.Filename
	if name == "" {
		name = fmt.Sprintf("part-%d", n.ID)
		if n.MimeMessage {
			name += ".eml"
		} else if exts, err := mime.ExtensionsByType(n.ContentType); err == nil && len(exts) > 0 {
			name += exts[0]
		}
	}

	if suffix != "" {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "-" + suffix + ext
	}
	return fsutil.SafeFilename(name)
}

// WriteTo writes the decoded payload.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	written, err := w.Write(n.Contents())
	return int64(written), err
}

// SaveTo writes the payload to path. When path is a directory a file named by
// SuggestedFilename is created, never overwriting an existing one.
func (n *Node) SaveTo(path string) (string, error) {
	f, err := fsutil.OpenDestination(path, n.SuggestedFilename)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open %s: %v", mailerr.ErrIO, path, err)
	}

	if _, err := n.WriteTo(f); err != nil {
		_ = f.Close()
		return f.Name(), fmt.Errorf("%w: failed writing %s: %v", mailerr.ErrIO, f.Name(), err)
	}

	if err := f.Close(); err != nil {
		return f.Name(), fmt.Errorf("%w: failed closing %s: %v", mailerr.ErrIO, f.Name(), err)
	}
	return f.Name(), nil
}
