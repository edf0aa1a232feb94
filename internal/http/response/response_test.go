package response

import (
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/inkwellapp/inkwell-server/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"title": "Walden"}, discardLogger())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
}

func TestCreatedAndNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "walden"}, discardLogger())
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode(t, rec).Success)

	rec = httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestHandleErrorDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.NotFoundf("document %q", "ghost"), http.StatusNotFound, "NOT_FOUND"},
		{"malformed source", apperrors.MalformedSource("missing container"), http.StatusBadRequest, "MALFORMED_SOURCE"},
		{"empty spine", apperrors.EmptySpine("package has no readable content files"), http.StatusBadRequest, "EMPTY_SPINE"},
		{"validation", apperrors.Validationf("offset %v out of range", 2.0), http.StatusBadRequest, "VALIDATION"},
		{"corrupt document", apperrors.CorruptDocument("bad json"), http.StatusInternalServerError, "CORRUPT_DOCUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err, discardLogger())

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestHandleErrorWrapped(t *testing.T) {
	wrapped := fmt.Errorf("loading document: %w", apperrors.NotFoundf("document %q", "ghost"))

	rec := httptest.NewRecorder()
	HandleError(rec, wrapped, discardLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec).Code)
}

func TestHandleErrorUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, fmt.Errorf("disk on fire"), discardLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "internal server error", env.Error)
	assert.Empty(t, env.Code)
}
