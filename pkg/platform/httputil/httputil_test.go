package httputil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "satnam/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "internal errors must not leak a description")
	})

	t.Run("invalid state includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidState, "only an active session can be paused"))

		require.Equal(t, http.StatusConflict, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "invalid_state", body["error"])
		assert.Equal(t, "only an active session can be paused", body["error_description"])
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:           http.StatusBadRequest,
		dErrors.CodeConfirmationRequired: http.StatusBadRequest,
		dErrors.CodeUnauthorized:         http.StatusUnauthorized,
		dErrors.CodeForbidden:            http.StatusForbidden,
		dErrors.CodeNotFound:             http.StatusNotFound,
		dErrors.CodeManualIntervention:   http.StatusConflict,
		dErrors.CodeTimeout:              http.StatusGatewayTimeout,
		dErrors.CodeNetwork:              http.StatusBadGateway,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), string(code))
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Confirm bool `json:"confirm"`
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("decodes body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"confirm":true}`))
		w := httptest.NewRecorder()
		got, ok := DecodeJSON[body](w, r, logger, r.Context(), "req-1")
		require.True(t, ok)
		assert.True(t, got.Confirm)
	})

	t.Run("empty body is zero value", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		w := httptest.NewRecorder()
		got, ok := DecodeJSON[body](w, r, logger, r.Context(), "req-1")
		require.True(t, ok)
		assert.False(t, got.Confirm)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"confirm":true,"force":true}`))
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[body](w, r, logger, r.Context(), "req-1")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
