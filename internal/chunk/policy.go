package chunk

import "strings"

// Media types the tree treats specially.
const (
	TextPlain            = "text/plain"
	TextHTML             = "text/html"
	MessageRFC822        = "message/rfc822"
	MultipartAlternative = "multipart/alternative"
	multipartPrefix      = "multipart/"
)

// Disposition values as reported by the decoder.
const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

// Defaults for Options.
const (
	DefaultMaxDepth = 100
)

// DefaultPreferredOrder prefers HTML over plain text in alternative groups.
var DefaultPreferredOrder = []string{TextHTML, TextPlain}

// Options control how a Tree is built.
type Options struct {
	// PreferredOrder ranks media types inside multipart/alternative
	// containers, best first. A nil slice means DefaultPreferredOrder; an
	// empty slice prefers nothing.
	PreferredOrder []string

	// MaxDepth caps MIME nesting, counting embedded messages. Zero or less
	// means DefaultMaxDepth.
	MaxDepth int
}

// DefaultOptions returns HTML-preferred options with the default depth cap.
func DefaultOptions() Options {
	return Options{
		PreferredOrder: DefaultPreferredOrder,
		MaxDepth:       DefaultMaxDepth,
	}
}

func (o Options) normalized() Options {
	if o.PreferredOrder == nil {
		o.PreferredOrder = DefaultPreferredOrder
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// rank returns the position of contentType in the preference order or -1.
func (o Options) rank(contentType string) int {
	for i, t := range o.PreferredOrder {
		if strings.EqualFold(t, contentType) {
			return i
		}
	}
	return -1
}

// flagRule is one row of the flag policy. Type patterns are an exact media
// type, a "type/*" wildcard or "*". An empty disposition matches any.
type flagRule struct {
	typePattern string
	disposition string
	viewable    bool
	attachment  bool
}

// flagPolicy is evaluated top to bottom, first match wins.
var flagPolicy = []flagRule{
	{typePattern: "multipart/*"},
	{typePattern: MessageRFC822, disposition: DispositionAttachment, attachment: true},
	{typePattern: MessageRFC822},
	{typePattern: "*", disposition: DispositionAttachment, attachment: true},
	{typePattern: TextPlain, viewable: true},
	{typePattern: TextHTML, viewable: true},
	{typePattern: "*", attachment: true},
}

// Classify applies the flag policy to a content type and disposition.
func Classify(contentType, disposition string) (viewable, attachment bool) {
	contentType = strings.ToLower(contentType)
	disposition = strings.ToLower(disposition)

	for _, r := range flagPolicy {
		if r.disposition != "" && r.disposition != disposition {
			continue
		}
		if !matchType(r.typePattern, contentType) {
			continue
		}
		return r.viewable, r.attachment
	}
	return false, false
}

func matchType(pattern, contentType string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, "/*"):
		return strings.HasPrefix(contentType, strings.TrimSuffix(pattern, "*"))
	default:
		return pattern == contentType
	}
}

func isContainer(contentType string) bool {
	return strings.HasPrefix(contentType, multipartPrefix)
}
