package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/gitter-badger/astroid/internal/mailerr"
	"github.com/gitter-badger/astroid/internal/store"
)

// statusFor maps an error from the message and thread packages to an HTTP
// status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrThreadNotFound), errors.Is(err, store.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, mailerr.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, mailerr.ErrContentAccess):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes a plain text error response.
func writeError(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		http.Error(w, "Internal server error", code)
		return
	}
	log.Info(msg, zap.Int("status", code), zap.Error(err))
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", zap.Error(err))
	}
}

// ParseBoolParam reads a boolean query parameter. Missing or invalid values
// are false.
func ParseBoolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
