package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrEventFull, "no seats left")
	assert.True(t, errors.Is(err, ErrEventFull))
	assert.False(t, errors.Is(err, ErrAlreadyRegistered))
	assert.Equal(t, "no seats left", err.Message)
	assert.Equal(t, "event is full, no more seats available", ErrEventFull.Message)
}

func TestWithDetailsKeepsStatus(t *testing.T) {
	details := map[string]float64{"distance_meters": 150, "radius_meters": 100}
	err := WithDetails(ErrOutsideGeofence, "", details)
	assert.Equal(t, http.StatusForbidden, err.Status)
	assert.Equal(t, details, err.Details)
	assert.Nil(t, ErrOutsideGeofence.Details)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	raw := fmt.Errorf("boom")
	appErr := FromError(raw)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, raw)

	wrapped := fmt.Errorf("ctx: %w", ErrAlreadyMarked)
	assert.Equal(t, ErrAlreadyMarked, FromError(wrapped))
}
