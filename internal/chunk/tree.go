// Package chunk builds a navigable tree of MIME parts from a decoded message
// and answers the body rendering and flattening queries of a message view.
package chunk

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/gitter-badger/astroid/internal/mailerr"
)

var (
	// ErrHTMLWithFallback is returned by ViewableText when both html and
	// fallbackHTML are requested.
	ErrHTMLWithFallback = fmt.Errorf("%w: html and fallback_html are mutually exclusive", mailerr.ErrPrecondition)

	// ErrTooDeep is returned by Build when MIME nesting exceeds MaxDepth.
	ErrTooDeep = fmt.Errorf("%w: mime nesting too deep", mailerr.ErrContentAccess)
)

// Tree owns every Node of one message. Nodes are stored by ID and alternative
// groups refer to them by ID, so no node is owned twice.
type Tree struct {
	nodes  []*Node
	groups [][]int
}

type builder struct {
	tree *Tree
	opts Options
}

// Build walks the decoded part tree rooted at root and returns the part tree.
// Embedded message/rfc822 parts are decoded and attached as a single kid.
// Any failure aborts the build; no partial tree is returned.
func Build(root *enmime.Part, opts Options) (*Tree, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: message has no mime root", mailerr.ErrContentAccess)
	}

	b := &builder{tree: &Tree{}, opts: opts.normalized()}
	if _, err := b.add(root, 0); err != nil {
		return nil, err
	}
	b.markLonePreferred()

	return b.tree, nil
}

func (b *builder) add(p *enmime.Part, depth int) (int, error) {
	if depth > b.opts.MaxDepth {
		return -1, fmt.Errorf("%w: limit is %d", ErrTooDeep, b.opts.MaxDepth)
	}

	contentType := strings.ToLower(p.ContentType)
	if contentType == "" {
		contentType = TextPlain
	}

	n := &Node{
		ID:          len(b.tree.nodes),
		ContentType: contentType,
		Disposition: strings.ToLower(p.Disposition),
		Filename:    p.FileName,
		ContentID:   p.ContentID,
		Charset:     p.Charset,
		MimeMessage: contentType == MessageRFC822,
		tree:        b.tree,
		group:       -1,
		part:        p,
	}
	n.Viewable, n.Attachment = Classify(n.ContentType, n.Disposition)
	b.tree.nodes = append(b.tree.nodes, n)

	switch {
	case n.MimeMessage:
		env, err := enmime.ReadEnvelope(bytes.NewReader(p.Content))
		if err != nil {
			return -1, fmt.Errorf("%w: failed to decode embedded message in part %d: %v", mailerr.ErrContentAccess, n.ID, err)
		}
		if env.Root == nil {
			return -1, fmt.Errorf("%w: embedded message in part %d is empty", mailerr.ErrContentAccess, n.ID)
		}
		n.embedded = env

		kid, err := b.add(env.Root, depth+1)
		if err != nil {
			return -1, err
		}
		n.kids = append(n.kids, kid)

	case isContainer(contentType):
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			kid, err := b.add(c, depth+1)
			if err != nil {
				return -1, err
			}
			n.kids = append(n.kids, kid)
		}

		if contentType == MultipartAlternative && len(n.kids) > 1 {
			b.groupAlternatives(n)
		}
	}

	return n.ID, nil
}

// groupAlternatives records the kids of n as one alternative group and marks
// the best ranked kid preferred. Ties go to the first occurrence.
func (b *builder) groupAlternatives(n *Node) {
	group := len(b.tree.groups)
	b.tree.groups = append(b.tree.groups, n.kids)

	best, bestRank := -1, -1
	for _, id := range n.kids {
		b.tree.nodes[id].group = group

		r := b.rank(id)
		if r >= 0 && (bestRank < 0 || r < bestRank) {
			best, bestRank = id, r
		}
	}

	if best >= 0 {
		b.tree.nodes[best].Preferred = true
	}
}

// rank is the preference rank of a node: its own type for viewable parts or
// the best rank of a viewable descendant for containers. Attachments and
// embedded messages never rank.
func (b *builder) rank(id int) int {
	n := b.tree.nodes[id]
	switch {
	case n.Viewable:
		return b.opts.rank(n.ContentType)
	case n.Attachment, n.MimeMessage:
		return -1
	}

	best := -1
	for _, kid := range n.kids {
		if r := b.rank(kid); r >= 0 && (best < 0 || r < best) {
			best = r
		}
	}
	return best
}

func (b *builder) markLonePreferred() {
	for _, n := range b.tree.nodes {
		if n.Viewable && n.group < 0 && b.opts.rank(n.ContentType) >= 0 {
			n.Preferred = true
		}
	}
}

// Root returns the top-level part.
func (t *Tree) Root() *Node {
	return t.nodes[0]
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// ByID returns the node with the given id. Ids are only meaningful for the
// tree that assigned them.
func (t *Tree) ByID(id int) (*Node, bool) {
	if id < 0 || id >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

// Nodes returns every node in pre-order.
func (t *Tree) Nodes() []*Node {
	nodes := make([]*Node, len(t.nodes))
	copy(nodes, t.nodes)
	return nodes
}

// Attachments returns every attachment in pre-order, regardless of nesting
// or alternative status.
func (t *Tree) Attachments() []*Node {
	return t.collect(func(n *Node) bool { return n.Attachment })
}

// MimeMessages returns every embedded message part in pre-order.
func (t *Tree) MimeMessages() []*Node {
	return t.collect(func(n *Node) bool { return n.MimeMessage })
}

// ids are assigned in pre-order, so storage order is traversal order.
func (t *Tree) collect(match func(*Node) bool) []*Node {
	var found []*Node
	for _, n := range t.nodes {
		if match(n) {
			found = append(found, n)
		}
	}
	return found
}

// ViewableText concatenates the renderable text of the tree in document
// order. Within an alternative group only the preferred node is followed,
// unless the group has no preferred node, in which case all are. A followed
// viewable node contributes text when it is preferred or html or fallbackHTML
// is set. With fallbackHTML, HTML nodes render as HTML and plain nodes as
// text. Setting both html and fallbackHTML returns ErrHTMLWithFallback.
func (t *Tree) ViewableText(html, fallbackHTML bool) (string, error) {
	if html && fallbackHTML {
		return "", ErrHTMLWithFallback
	}

	var body strings.Builder
	t.appendBody(&body, t.Root(), html, fallbackHTML)
	return body.String(), nil
}

func (t *Tree) appendBody(body *strings.Builder, n *Node, html, fallbackHTML bool) {
	if !t.followed(n) {
		return
	}

	if n.Viewable && (n.Preferred || html || fallbackHTML) {
		body.WriteString(n.Text(html || (fallbackHTML && n.ContentType == TextHTML)))
	}

	for _, kid := range n.kids {
		t.appendBody(body, t.nodes[kid], html, fallbackHTML)
	}
}

// followed reports whether rendering descends into n.
func (t *Tree) followed(n *Node) bool {
	if n.group < 0 || n.Preferred {
		return true
	}

	for _, id := range t.groups[n.group] {
		if t.nodes[id].Preferred {
			return false
		}
	}
	return true
}
