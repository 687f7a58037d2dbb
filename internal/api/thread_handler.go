package api

import (
	"net/http"

	"github.com/zostay/go-addr/pkg/addr"
	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/chunk"
	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/models"
	"github.com/gitter-badger/astroid/internal/store"
	"github.com/gitter-badger/astroid/internal/thread"
)

type ThreadHandler struct {
	store store.Store
	opts  message.Options
	log   *zap.Logger
}

func NewThreadHandler(s store.Store, opts message.Options, log *zap.Logger) *ThreadHandler {
	return &ThreadHandler{
		store: s,
		opts:  opts,
		log:   log,
	}
}

// GetThread serves GET /api/v1/thread/{id}. The query parameters html and
// fallback select how bodies are rendered.
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")
	if threadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}

	html := ParseBoolParam(r, "html")
	fallback := ParseBoolParam(r, "fallback")
	if html && fallback {
		writeError(w, h.log, "invalid thread request", chunk.ErrHTMLWithFallback)
		return
	}

	th := thread.NewFromStore(threadID, h.opts)
	if err := th.LoadMessages(r.Context(), h.store); err != nil {
		writeError(w, h.log, "failed to load thread", err)
		return
	}

	view := models.ThreadView{
		ThreadID: th.ThreadID,
		Subject:  th.Subject,
		Messages: make([]models.MessageView, 0, len(th.Messages)),
	}
	for _, m := range th.Messages {
		mv, err := messageView(m, html, fallback)
		if err != nil {
			writeError(w, h.log, "failed to render message", err)
			return
		}
		view.Messages = append(view.Messages, mv)
	}

	writeJSON(w, h.log, view)
}

func messageView(m *message.Message, html, fallback bool) (models.MessageView, error) {
	body, err := m.ViewableText(html, fallback)
	if err != nil {
		return models.MessageView{}, err
	}

	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.MessageView{
		MessageID:   m.MessageID,
		Level:       m.Level,
		Subject:     m.Subject,
		From:        m.Sender,
		To:          addresses(m.To()),
		Cc:          addresses(m.Cc()),
		Date:        m.Date(),
		PrettyDate:  m.PrettyDate(),
		Tags:        tags,
		IsPatch:     m.IsPatch(),
		Body:        body,
		Attachments: attachments(m.Attachments()),
	}, nil
}

func addresses(list addr.AddressList) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.CleanString())
	}
	return out
}

func attachments(nodes []*chunk.Node) []models.Attachment {
	out := make([]models.Attachment, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, models.Attachment{
			PartID:      n.ID,
			Filename:    n.Filename,
			ContentType: n.ContentType,
			SizeBytes:   len(n.Contents()),
			IsInline:    n.Disposition != "attachment",
			ContentID:   n.ContentID,
		})
	}
	return out
}
