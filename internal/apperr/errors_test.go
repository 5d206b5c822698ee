package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("receive: %w", NotFound("purchase order", 7))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestInsufficientStockCarriesFigures(t *testing.T) {
	err := InsufficientStock("SKU-1", 15, 10)

	assert.Contains(t, err.Error(), "requested 15")
	assert.Contains(t, err.Error(), "available 10")
	assert.Equal(t, 15, err.Details["requested"])
	assert.Equal(t, 10, err.Details["available"])
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil))

	conflict := Conflict("duplicate")
	assert.Same(t, conflict, Wrap(conflict))

	wrapped := Wrap(errors.New("connection reset"))
	var ae *Error
	require.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, KindPersistence, ae.Kind)
	assert.True(t, ae.Retryable)
	assert.Contains(t, wrapped.Error(), "connection reset")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindPersistence, KindOf(errors.New("boom")))
}
