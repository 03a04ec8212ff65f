package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	t.Run("known code", func(t *testing.T) {
		meta := MetadataFor(CodeInsufficientFunds)
		assert.Equal(t, http.StatusUnprocessableEntity, meta.HTTPStatus)
		assert.False(t, meta.Retryable)
		assert.True(t, meta.DetailsAllowed)
	})

	t.Run("unknown code falls back to internal", func(t *testing.T) {
		meta := MetadataFor(Code("NOPE"))
		assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(CodeDependency, cause, "provider call failed")

	require.NotNil(t, err)
	assert.Equal(t, CodeDependency, err.Code())
	assert.ErrorIs(t, err, cause)
}

func TestAs(t *testing.T) {
	inner := New(CodeNotFound, "wallet not found")
	wrapped := fmt.Errorf("lookup: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())

	assert.Nil(t, As(fmt.Errorf("plain")))
	assert.Nil(t, As(nil))
}

func TestHasCode(t *testing.T) {
	err := New(CodeStateConflict, "reward is depleted")
	assert.True(t, HasCode(err, CodeStateConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestDumpCollectsChain(t *testing.T) {
	cause := fmt.Errorf("root")
	err := Wrap(CodeInternal, cause, "wrapped")

	d := Dump(err)
	assert.Equal(t, CodeInternal, d.Code)
	assert.Len(t, d.Chain, 2)
}
