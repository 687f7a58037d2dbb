package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/store"
)

// NewRouter returns the read-only HTTP API over s.
func NewRouter(s store.Store, opts message.Options, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	threadHandler := NewThreadHandler(s, opts, log)
	partHandler := NewPartHandler(s, opts, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /api/v1/thread/{id}", threadHandler.GetThread)
	mux.HandleFunc("GET /api/v1/message/{mid}/part/{id}", partHandler.GetPart)

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "astroid API is running")
}
