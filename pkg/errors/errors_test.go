package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockedFieldMutation_SortsFieldsAndMatchesSentinel(t *testing.T) {
	err := LockedFieldMutation("order", []string{"delivery_phone", "delivery_address"})

	require.Len(t, err.Fields, 2)
	assert.Equal(t, "delivery_address", err.Fields[0].Field)
	assert.Equal(t, "delivery_phone", err.Fields[1].Field)
	assert.True(t, stderrors.Is(err, ErrLockedFieldMutation))
	assert.False(t, stderrors.Is(err, ErrInvalidStatusTransition))
	assert.Equal(t, http.StatusConflict, err.StatusCode())
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("failed to update order: %w", InvalidStatusTransition("order", "processing", "cancelled"))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidTransition, appErr.Code)
	assert.True(t, stderrors.Is(wrapped, ErrInvalidStatusTransition))
}

func TestValidation_CarriesFieldDetail(t *testing.T) {
	err := Validation(FieldError{Field: "quantity", Message: "must be at least 1"})

	assert.Equal(t, http.StatusBadRequest, err.StatusCode())
	assert.Contains(t, err.Error(), "quantity: must be at least 1")
	assert.True(t, stderrors.Is(err, ErrValidationFailed))
}

func TestStatusCode_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Internal(stderrors.New("boom")).StatusCode())
	assert.Equal(t, http.StatusNotFound, NotFound("notification", nil).StatusCode())
	assert.Equal(t, http.StatusForbidden, Forbidden("nope").StatusCode())
}
