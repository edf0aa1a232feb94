package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeMalformedSource, http.StatusBadRequest},
		{CodeEmptySpine, http.StatusBadRequest},
		{CodeValidation, http.StatusBadRequest},
		{CodeCorruptDocument, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
		{Code("UNKNOWN"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err := NotFound("document abc not found")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrEmptySpine))
}

func TestError_Is_ThroughWrapping(t *testing.T) {
	inner := MalformedSource("no OPF in archive")
	wrapped := fmt.Errorf("processing book.epub: %w", inner)

	assert.True(t, Is(wrapped, ErrMalformedSource))

	var domainErr *Error
	require.True(t, As(wrapped, &domainErr))
	assert.Equal(t, CodeMalformedSource, domainErr.Code)
}

func TestError_WithCause(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := ErrCorruptDocument.WithCause(cause)

	assert.Contains(t, err.Error(), "unexpected EOF")
	assert.Equal(t, cause, Unwrap(err))
	assert.True(t, Is(err, ErrCorruptDocument))
}

func TestWrapf(t *testing.T) {
	cause := fmt.Errorf("open failed")
	err := Wrapf(cause, CodeNotFound, "document %q", "moby-dick")

	assert.Equal(t, `document "moby-dick": open failed`, err.Error())
	assert.True(t, Is(err, ErrNotFound))
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
}
