package message

import (
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zostay/go-addr/pkg/addr"
	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/fsutil"
	"github.com/gitter-badger/astroid/internal/mailerr"
)

var patchTag = regexp.MustCompile(`\[PATCH.*\]`)

// timeNow is replaced in tests.
var timeNow = time.Now

// Date returns the receipt time as an RFC 1123 date, or "" when unknown.
func (m *Message) Date() string {
	if m.Received.IsZero() {
		return ""
	}
	return m.Received.Format(time.RFC1123Z)
}

// PrettyDate is the short form used in lists: the time for today, the day
// for this year and the full date otherwise.
func (m *Message) PrettyDate() string {
	if m.Received.IsZero() {
		return ""
	}

	now := timeNow().In(m.Received.Location())
	y, mo, d := m.Received.Date()
	ny, nmo, nd := now.Date()

	switch {
	case y == ny && mo == nmo && d == nd:
		return m.Received.Format("15:04")
	case y == ny:
		return m.Received.Format("Jan 2")
	default:
		return m.Received.Format("2006-01-02")
	}
}

// PrettyVerboseDate is the full date with zone and the age of the message.
func (m *Message) PrettyVerboseDate() string {
	if m.Received.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s (%s)", m.Received.Format("Mon, 2 Jan 2006 15:04:05 -0700 MST"), age(timeNow().Sub(m.Received)))
}

func age(d time.Duration) string {
	switch {
	case d < 0:
		return "in the future"
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 365*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	default:
		return plural(int(d/(365*24*time.Hour)), "year") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// To returns the To recipients.
func (m *Message) To() addr.AddressList {
	return m.addressList("To")
}

// Cc returns the Cc recipients.
func (m *Message) Cc() addr.AddressList {
	return m.addressList("Cc")
}

// Bcc returns the Bcc recipients.
func (m *Message) Bcc() addr.AddressList {
	return m.addressList("Bcc")
}

// AllToFrom returns To, Cc and Bcc followed by the sender. Duplicates are
// kept.
func (m *Message) AllToFrom() addr.AddressList {
	var all addr.AddressList
	all = append(all, m.To()...)
	all = append(all, m.Cc()...)
	all = append(all, m.Bcc()...)

	if m.Sender != "" {
		if sender, err := addr.ParseEmailAddress(m.Sender); err == nil {
			all = append(all, sender)
		} else {
			all = append(all, m.fromNetMail("From")...)
		}
	}
	return all
}

// addressList parses a header strictly and falls back on the decoder's
// more lenient address parser.
func (m *Message) addressList(key string) addr.AddressList {
	value := m.env.GetHeader(key)
	if value == "" {
		return nil
	}

	if al, err := addr.ParseEmailAddressList(value); err == nil {
		return al
	}
	return m.fromNetMail(key)
}

func (m *Message) fromNetMail(key string) addr.AddressList {
	list, err := m.env.AddressList(key)
	if err != nil {
		m.logger.Warn("failed to parse address header", zap.String("header", key), zap.Error(err))
		return nil
	}

	var al addr.AddressList
	for _, a := range list {
		al = append(al, toMailbox(a))
	}
	return al
}

func toMailbox(a *mail.Address) addr.Address {
	local, domain := a.Address, ""
	if i := strings.LastIndex(a.Address, "@"); i > -1 {
		local, domain = a.Address[:i], a.Address[i+1:]
	}

	spec := addr.NewAddrSpecParsed(local, domain, a.Address)
	mb, err := addr.NewMailboxParsed(a.Name, spec, "", a.String())
	if err != nil {
		mb, _ = addr.NewMailboxParsed("", spec, "", a.Address)
	}
	return mb
}

// IsPatch reports whether the subject carries a [PATCH ...] tag and is not a
// reply.
func (m *Message) IsPatch() bool {
	if len(m.Subject) >= 3 && strings.EqualFold(m.Subject[:3], "RE:") {
		return false
	}
	return patchTag.MatchString(m.Subject)
}

// Filename suggests a file name for saving the message. A filename on the
// root part wins; otherwise the name is derived from the subject with a
// .patch or .eml extension. A non-empty suffix goes before the extension.
func (m *Message) Filename(suffix string) string {
	name := m.Root().Filename
	ext := filepath.Ext(name)
	name = strings.TrimSuffix(name, ext)

	if m.Root().Filename == "" {
		name = fsutil.SafeFilename(m.Subject)

		ext = ".eml"
		if m.IsPatch() {
			if len(name) >= 5 && strings.EqualFold(name[:5], "PATCH") {
				name = name[5:]
			}
			ext = ".patch"
		}
	}

	if suffix != "" {
		name += "-" + suffix
	}
	return fsutil.SafeFilename(name + ext)
}

// SaveTo writes the message to path. When path is a directory a fresh file
// named by Filename is created; collisions retry with a random suffix and
// never overwrite. File-backed messages are copied byte for byte, in-memory
// ones are encoded. It returns the path written.
func (m *Message) SaveTo(path string) (string, error) {
	dst, err := fsutil.OpenDestination(path, m.Filename)
	if err != nil {
		m.logger.Error("failed writing", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("%w: failed to open %s: %v", mailerr.ErrIO, path, err)
	}

	target := dst.Name()
	m.logger.Info("saving message", zap.String("message_id", m.MessageID), zap.String("path", target))

	if err := m.writeTo(dst); err != nil {
		_ = dst.Close()
		m.logger.Error("failed writing", zap.String("path", target), zap.Error(err))
		return target, err
	}

	if err := dst.Close(); err != nil {
		return target, fmt.Errorf("%w: failed closing %s: %v", mailerr.ErrIO, target, err)
	}
	return target, nil
}

func (m *Message) writeTo(w io.Writer) error {
	if p, ok := m.path(); ok {
		src, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("%w: failed to open %s: %v", mailerr.ErrIO, p, err)
		}
		defer src.Close()

		if _, err := io.Copy(w, src); err != nil {
			return fmt.Errorf("%w: failed to copy %s: %v", mailerr.ErrIO, p, err)
		}
		return nil
	}

	if err := m.env.Root.Encode(w); err != nil {
		return fmt.Errorf("%w: failed to encode message: %v", mailerr.ErrIO, err)
	}
	return nil
}
