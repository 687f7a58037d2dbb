package api

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/store"
)

type PartHandler struct {
	store store.Store
	opts  message.Options
	log   *zap.Logger
}

func NewPartHandler(s store.Store, opts message.Options, log *zap.Logger) *PartHandler {
	return &PartHandler{
		store: s,
		opts:  opts,
		log:   log,
	}
}

// GetPart serves GET /api/v1/message/{mid}/part/{id}: the decoded payload
// of one part with its content type.
func (h *PartHandler) GetPart(w http.ResponseWriter, r *http.Request) {
	mid := r.PathValue("mid")
	partID, err := strconv.Atoi(r.PathValue("id"))
	if mid == "" || err != nil || partID < 0 {
		http.Error(w, "message id and numeric part id are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var m *message.Message
	err = h.store.OnMessage(ctx, mid, func(mh store.Message) error {
		var loadErr error
		m, loadErr = message.FromStore(ctx, mh, 0, h.opts)
		return loadErr
	})
	if err != nil {
		writeError(w, h.log, "failed to load message", err)
		return
	}

	n, ok := m.ChunkByID(partID)
	if !ok {
		http.Error(w, fmt.Sprintf("part %d not found", partID), http.StatusNotFound)
		return
	}

	// Viewable payloads were decoded to UTF-8 whatever their declared charset.
	contentType := n.ContentType
	if n.Viewable {
		contentType = mime.FormatMediaType(contentType, map[string]string{"charset": "utf-8"})
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if n.Filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": n.Filename}))
	}

	if _, err := n.WriteTo(w); err != nil {
		h.log.Error("failed to write part", zap.String("message_id", mid), zap.Int("part_id", partID), zap.Error(err))
	}
}
