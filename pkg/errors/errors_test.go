package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Clone(ErrNotFound, "student not found"))

	got := FromError(wrapped)

	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "student not found", got.Message)
}

func TestFromErrorNormalisesPlainErrors(t *testing.T) {
	got := FromError(errors.New("connection refused"))

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.EqualError(t, got, "internal server error: connection refused")
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "DNI debe tener 8 dígitos")

	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, "DNI debe tener 8 dígitos", clone.Message)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", Clone(ErrNotFound, "No se encontraron certificados"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestWrapAs(t *testing.T) {
	cause := errors.New("bucket unreachable")

	got := WrapAs(cause, ErrCertificateUpload, "")
	assert.Equal(t, ErrCertificateUpload.Code, got.Code)
	assert.Equal(t, http.StatusBadGateway, got.Status)
	assert.Equal(t, ErrCertificateUpload.Message, got.Message)
	assert.ErrorIs(t, got, cause)

	got = WrapAs(cause, ErrValidation, "invalid request body")
	assert.Equal(t, "invalid request body", got.Message)
}
