package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitter-badger/astroid/internal/chunk"
	"github.com/gitter-badger/astroid/internal/mailerr"
	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/store"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"thread not found", fmt.Errorf("failed to load thread: %w", store.ErrThreadNotFound), http.StatusNotFound},
		{"message not found", store.ErrMessageNotFound, http.StatusNotFound},
		{"html with fallback", chunk.ErrHTMLWithFallback, http.StatusBadRequest},
		{"not in store", message.ErrNotInStore, http.StatusBadRequest},
		{"content access", chunk.ErrTooDeep, http.StatusUnprocessableEntity},
		{"wrapped content access", fmt.Errorf("x: %w", mailerr.ErrContentAccess), http.StatusUnprocessableEntity},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestParseBoolParam(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"?html=1", true},
		{"?html=true", true},
		{"?html=0", false},
		{"?html=yes", false},
		{"?fallback=1", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			assert.Equal(t, tt.want, ParseBoolParam(r, "html"))
		})
	}
}
